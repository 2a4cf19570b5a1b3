package results

import (
	"go.uber.org/zap"

	"github.com/John-Robertt/volby/internal/domain"
	"github.com/John-Robertt/volby/internal/xmlx"
)

// okresScope 在 OKRES 内查找时不进入 OBEC 子树，避免把 obec 的票数重复计入 okres。
var okresScope = xmlx.Descendants.Pruning("OBEC")

// ParseDistrict 解析单个 okres 的结果文档。
//
// code 由调用方提供，只用于标记输出（不校验与文档内容是否一致）。
// okres 的百分比直接取自文档（OKRSKY_ZPRAC_PROC / UCAST_PROC），不重新计算。
// OBEC 在整份文档范围内查找，而不是 OKRES 的子元素：即使 OKRES 缺失，obce 仍会被提取。
func ParseDistrict(data []byte, code string, log *zap.Logger) (domain.DistrictResult, bool) {
	log = orNop(log)
	root, ok := load(data, log, zap.String("document", "okres"), zap.String("okres", code))
	if !ok {
		return domain.DistrictResult{}, false
	}
	r := reader{log: log}

	res := domain.DistrictResult{
		GeneratedAt:    generatedAt(root),
		Code:           code,
		Parties:        []domain.PartyShare{},
		Municipalities: []domain.Municipality{},
	}

	if okres, ok := root.First("OKRES", xmlx.Descendants); ok {
		res.Name = okres.Attr("NAZ_OKRES")
		if ucast, ok := okres.First("UCAST", okresScope); ok {
			res.Progress = &domain.Progress{
				TotalUnits:   r.int(ucast, "OKRSKY_CELKEM"),
				CountedUnits: r.int(ucast, "OKRSKY_ZPRAC"),
				CountedPct:   r.float(ucast, "OKRSKY_ZPRAC_PROC"),
				Voters:       r.int(ucast, "ZAPSANI_VOLICI"),
				Ballots:      r.int(ucast, "VYDANE_OBALKY"),
				ValidVotes:   r.int(ucast, "PLATNE_HLASY"),
				Turnout:      r.float(ucast, "UCAST_PROC"),
			}
		}
		res.Parties = r.shares(okres, okresScope)
	}

	for _, obec := range root.Find("OBEC", xmlx.Descendants) {
		res.Municipalities = append(res.Municipalities, domain.Municipality{
			Code:      obec.Attr("CIS_OBEC"),
			Name:      obec.Attr("NAZ_OBEC"),
			Processed: r.flag(obec, "ZPRACOVANO"),
			Parties:   r.votesList(obec, xmlx.Descendants),
		})
	}
	return res, true
}
