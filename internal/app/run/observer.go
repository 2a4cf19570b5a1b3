package run

import (
	"time"

	"github.com/John-Robertt/volby/internal/config"
	"github.com/John-Robertt/volby/internal/domain"
)

// Observer 把“周期进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 实现必须并发安全：OnItemDone 可能来自多个 goroutine
type Observer interface {
	// OnStart 在每个周期开始时调用。
	OnStart(runID string, eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（sources / exec / crosscheck）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在某个数据源处理完成时调用。
	OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration)
}
