package results

import (
	"go.uber.org/zap"

	"github.com/John-Robertt/volby/internal/domain"
	"github.com/John-Robertt/volby/internal/xmlx"
)

// ParseCandidates 把候选人文档展平为记录列表（文档顺序）。
// 失败时返回空切片（非 nil）与 false。
func ParseCandidates(data []byte, log *zap.Logger) ([]domain.Candidate, bool) {
	log = orNop(log)
	root, ok := load(data, log, zap.String("document", "kandidati"))
	if !ok {
		return []domain.Candidate{}, false
	}
	r := reader{log: log}

	nodes := root.Find("KANDIDAT", xmlx.Descendants)
	out := make([]domain.Candidate, 0, len(nodes))
	for _, k := range nodes {
		out = append(out, domain.Candidate{
			PartyCode:      k.Attr("KSTRANA"),
			RegionCode:     candidateRegion(k),
			Name:           k.Attr("JMENO"),
			Surname:        k.Attr("PRIJMENI"),
			TitleBefore:    k.Attr("TITULPRED"),
			TitleAfter:     k.Attr("TITULZA"),
			Position:       r.int(k, "PORCISLO"),
			PrefVotes:      r.int(k, "PREF_HLASY"),
			PrefPercentage: r.float(k, "PROC_PREF_HLASU"),
			Elected:        r.flag(k, "ZVOLEN"),
		})
	}
	return out, true
}

// candidateRegion 优先使用 CKRAJ；缺失时继承最近的 KRAJ 祖先的 CIS_KRAJ。
func candidateRegion(k xmlx.Node) string {
	if k.Has("CKRAJ") {
		return k.Attr("CKRAJ")
	}
	if kraj, ok := k.Closest("KRAJ"); ok {
		return kraj.Attr("CIS_KRAJ")
	}
	return ""
}
