package feed

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/John-Robertt/volby/internal/results"
)

// Parse 按数据源种类选择解析器。返回值的动态类型：
//
//	national   -> domain.NationalResult
//	district   -> domain.DistrictResult
//	candidates -> []domain.Candidate
//	overseas   -> domain.OverseasResult
//	batch      -> domain.BatchResult
//
// 解析器报告“无结果”时返回 *Error{Stage: parse} 包裹的 ErrNoResult。
func Parse(src Source, data []byte, log *zap.Logger) (any, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("source", src.ID()))

	var (
		v  any
		ok bool
	)
	switch src.Kind {
	case KindNational:
		v, ok = results.ParseNational(data, log)
	case KindDistrict:
		v, ok = results.ParseDistrict(data, src.Key, log)
	case KindCandidates:
		v, ok = results.ParseCandidates(data, log)
	case KindOverseas:
		v, ok = results.ParseOverseas(data, log)
	case KindBatch:
		v, ok = results.ParseBatch(data, src.BatchType, log)
	default:
		return nil, &Error{Source: src.ID(), Stage: StageParse, Err: fmt.Errorf("未知数据源种类：%q", src.Kind)}
	}
	if !ok {
		return nil, &Error{Source: src.ID(), Stage: StageParse, Err: ErrNoResult}
	}
	return v, nil
}
