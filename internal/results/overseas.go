package results

import (
	"go.uber.org/zap"

	"github.com/John-Robertt/volby/internal/domain"
	"github.com/John-Robertt/volby/internal/xmlx"
)

// ParseOverseas 解析境外投票文档：ZAHRANICI 的汇总 + 按 STAT 的明细。
// 国家一级只有票数，没有百分比。
func ParseOverseas(data []byte, log *zap.Logger) (domain.OverseasResult, bool) {
	log = orNop(log)
	root, ok := load(data, log, zap.String("document", "zahranici"))
	if !ok {
		return domain.OverseasResult{}, false
	}
	r := reader{log: log}

	res := domain.OverseasResult{
		GeneratedAt: generatedAt(root),
		Parties:     []domain.PartyShare{},
		Countries:   []domain.Country{},
	}

	if z, ok := root.First("ZAHRANICI", xmlx.Descendants); ok {
		res.ValidVotes = r.validVotes(z)
		// STAT 可能嵌套在 ZAHRANICI 内：汇总列表不能把国家一级的 STRANA 再算一遍。
		res.Parties = r.shares(z, xmlx.Descendants.Pruning("STAT"))
	}

	for _, stat := range root.Find("STAT", xmlx.Descendants) {
		res.Countries = append(res.Countries, domain.Country{
			Code:       stat.Attr("CIS_STAT"),
			Name:       stat.Attr("NAZ_STAT"),
			ValidVotes: r.validVotes(stat),
			Parties:    r.votesList(stat, xmlx.Descendants),
		})
	}
	return res, true
}
