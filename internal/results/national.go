package results

import (
	"sort"

	"go.uber.org/zap"

	"github.com/John-Robertt/volby/internal/domain"
	"github.com/John-Robertt/volby/internal/numx"
	"github.com/John-Robertt/volby/internal/xmlx"
)

// ParseNational 解析全国结果文档（按 kraj 分组）。
//
// 全国统计是所有 KRAJ/UCAST 计数器之和，而不是读取某个全国总计节点；
// 政党总票数按 KSTRANA 汇总（名称在细粒度上可能缺失或不一致，不能作为键）。
// Regions 是对同一组 KRAJ 的第二次独立遍历，其票数与 Parties 逐代码一致。
func ParseNational(data []byte, log *zap.Logger) (domain.NationalResult, bool) {
	log = orNop(log)
	root, ok := load(data, log, zap.String("document", "national"))
	if !ok {
		return domain.NationalResult{}, false
	}
	r := reader{log: log}

	regions := root.Find("KRAJ", xmlx.Descendants)

	res := domain.NationalResult{
		GeneratedAt: generatedAt(root),
		Regions:     make([]domain.Region, 0, len(regions)),
	}

	acc := sumProgress(r, regions)
	// 没有任何 okrsek 时 progress 保持 nil：表示“尚无数据”，而不是 0%。
	if acc.TotalUnits > 0 {
		p := acc
		res.Progress = &p
	}

	res.Parties = nationalParties(r, regions, acc.ValidVotes)

	for _, kraj := range regions {
		res.Regions = append(res.Regions, domain.Region{
			Code:    kraj.Attr("CIS_KRAJ"),
			Name:    kraj.Attr("NAZ_KRAJ"),
			Type:    domain.RegionTypeKraj,
			Parties: r.shares(kraj, xmlx.Children),
		})
	}
	return res, true
}

// sumProgress 累加所有 kraj 的 UCAST 计数器；没有 UCAST 的 kraj 不参与（等价于贡献 0）。
func sumProgress(r reader, regions []xmlx.Node) domain.Progress {
	var p domain.Progress
	for _, kraj := range regions {
		ucast, ok := kraj.First("UCAST", xmlx.Children)
		if !ok {
			continue
		}
		p.TotalUnits += r.int(ucast, "OKRSKY_CELKEM")
		p.CountedUnits += r.int(ucast, "OKRSKY_ZPRAC")
		p.Voters += r.int(ucast, "ZAPSANI_VOLICI")
		p.Ballots += r.int(ucast, "VYDANE_OBALKY")
		p.ValidVotes += r.int(ucast, "PLATNE_HLASY")
	}
	p.CountedPct = numx.Percent(p.CountedUnits, p.TotalUnits)
	p.Turnout = numx.Percent(p.Ballots, p.Voters)
	return p
}

type partyAcc struct {
	name  string
	votes int
}

func nationalParties(r reader, regions []xmlx.Node, validVotes int) []domain.NationalParty {
	order := make([]string, 0, 32)
	byCode := make(map[string]*partyAcc, 32)

	for _, kraj := range regions {
		for _, strana := range kraj.Find("STRANA", xmlx.Children) {
			// 没有任何票数来源的 STRANA 不进入全国列表；kraj 明细里仍保留为 0 票，交叉校验不受影响。
			if !hasValues(strana) {
				continue
			}
			code := strana.Attr("KSTRANA")
			a, ok := byCode[code]
			if !ok {
				a = &partyAcc{}
				byCode[code] = a
				order = append(order, code)
			}
			if a.name == "" {
				a.name = strana.Attr("NAZ_STR")
			}
			a.votes += r.share(strana).Votes
		}
	}

	numeric := make(map[string]bool, len(order))
	out := make([]domain.NationalParty, 0, len(order))
	for _, code := range order {
		a := byCode[code]
		n, ok := numx.IntOK(code)
		if !ok {
			r.log.Warn("政党代码不是整数，排序时按字典序排在数字代码之后", zap.String("code", code))
		}
		numeric[code] = ok
		out = append(out, domain.NationalParty{
			Code:       code,
			Name:       a.name,
			Number:     n,
			Votes:      a.votes,
			Percentage: numx.Percent(a.votes, validVotes),
			Mandates:   0,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := numeric[out[i].Code], numeric[out[j].Code]
		if ni != nj {
			return ni
		}
		if ni {
			return out[i].Number < out[j].Number
		}
		return out[i].Code < out[j].Code
	})
	return out
}
