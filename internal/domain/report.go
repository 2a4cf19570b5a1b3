package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusParsed    = "parsed"
	StatusUnchanged = "unchanged"
	StatusFailed    = "failed"
)

const (
	ErrCodeFetchFailed    = "fetch_failed"
	ErrCodeParseFailed    = "parse_failed"
	ErrCodeStoreFailed    = "store_failed"
	ErrCodeIOFailed       = "io_failed"
	ErrCodeConfigNotFound = "config_not_found"
	ErrCodeConfigInvalid  = "config_invalid"
)

// RunReport 是一次抓取周期的对外稳定输出（stdout JSON）。
type RunReport struct {
	RunID   string `json:"run_id"`
	DataDir string `json:"data_dir"`
	DryRun  bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`

	// Warnings 是不影响条目状态的提示（例如全国汇总与 kraj 明细的票数不一致）。
	Warnings []string     `json:"warnings"`
	Items    []ItemResult `json:"items"`
}

type ReportSummary struct {
	Parsed    int `json:"parsed"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// ItemResult 是单个数据源在本周期的处理结果。
type ItemResult struct {
	Source string `json:"source"` // "<kind>/<key>"
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	URL    string `json:"url"`

	Status      string `json:"status"`
	GeneratedAt string `json:"generated_at"`
	Digest      string `json:"digest"`
	Persisted   bool   `json:"persisted"`

	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 source 字典序；source=="" 的合成条目（例如配置错误）排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Source
		b := r.Items[j].Source
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusParsed:
			s.Parsed++
		case StatusUnchanged:
			s.Unchanged++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 保证 warnings/items 总是输出为数组（而不是 null）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	if r.Items == nil {
		r.Items = []ItemResult{}
	}
	return json.Marshal(Alias(r))
}
