package domain

import (
	"sort"

	"github.com/samber/lo"
)

// PartyTotals 按政党代码汇总全国列表中的票数。
func (r NationalResult) PartyTotals() map[string]int {
	out := make(map[string]int, len(r.Parties))
	for _, p := range r.Parties {
		out[p.Code] += p.Votes
	}
	return out
}

// RegionTotals 按政党代码汇总各 kraj 行的票数。
func (r NationalResult) RegionTotals() map[string]int {
	out := make(map[string]int, len(r.Parties))
	for _, reg := range r.Regions {
		for _, p := range reg.Parties {
			out[p.Code] += p.Votes
		}
	}
	return out
}

// CrossCheck 比较两次独立遍历（全国汇总 vs. 各 kraj 明细）得到的票数。
// 返回票数不一致的政党代码（已排序）；为空表示一致。
func (r NationalResult) CrossCheck() []string {
	a := r.PartyTotals()
	b := r.RegionTotals()
	codes := lo.Uniq(append(lo.Keys(a), lo.Keys(b)...))
	bad := lo.Filter(codes, func(c string, _ int) bool { return a[c] != b[c] })
	sort.Strings(bad)
	return bad
}

// TotalVotes 是全国政党列表的票数之和。
func (r NationalResult) TotalVotes() int {
	return lo.SumBy(r.Parties, func(p NationalParty) int { return p.Votes })
}

// ProcessedCount 统计批次中已处理完成的条目数（okres 粒度按 counted==total 判断）。
func (r BatchResult) ProcessedCount() int {
	return lo.CountBy(r.Items, func(it BatchItem) bool {
		switch v := it.(type) {
		case PollingUnitItem:
			return v.Processed
		case MunicipalityItem:
			return v.Processed
		case DistrictItem:
			return v.TotalUnits > 0 && v.CountedUnits >= v.TotalUnits
		default:
			return false
		}
	})
}
