package results

import (
	"go.uber.org/zap"

	"github.com/John-Robertt/volby/internal/domain"
	"github.com/John-Robertt/volby/internal/xmlx"
)

// ParseBatch 解析增量批次文件。t 决定提取哪一种粒度；未知的 t 不报错，只返回空 Items。
//
// 每个条目内的 STRANA 在条目子树范围内查找（不限于直接子元素）。
func ParseBatch(data []byte, t domain.BatchType, log *zap.Logger) (domain.BatchResult, bool) {
	log = orNop(log)
	root, ok := load(data, log, zap.String("document", "davka"), zap.String("batch_type", string(t)))
	if !ok {
		return domain.BatchResult{}, false
	}
	r := reader{log: log}

	res := domain.BatchResult{
		GeneratedAt: generatedAt(root),
		Type:        t,
		Items:       []domain.BatchItem{},
	}

	switch t {
	case domain.BatchPollingUnits:
		for _, n := range root.Find("OKRSEK", xmlx.Descendants) {
			res.Items = append(res.Items, domain.PollingUnitItem{
				Code:             n.Attr("CIS_OKRSEK"),
				MunicipalityCode: n.Attr("CIS_OBEC"),
				Processed:        r.flag(n, "ZPRACOVANO"),
				Parties:          r.votesList(n, xmlx.Descendants),
			})
		}
	case domain.BatchMunicipalities:
		for _, n := range root.Find("OBEC", xmlx.Descendants) {
			res.Items = append(res.Items, domain.MunicipalityItem{
				Code:         n.Attr("CIS_OBEC"),
				Name:         n.Attr("NAZ_OBEC"),
				DistrictCode: n.Attr("CIS_OKRES"),
				Processed:    r.flag(n, "ZPRACOVANO"),
				Turnout:      r.float(n, "UCAST_PROC"),
				Parties:      r.shares(n, xmlx.Descendants),
			})
		}
	case domain.BatchDistricts:
		for _, n := range root.Find("OKRES", xmlx.Descendants) {
			res.Items = append(res.Items, domain.DistrictItem{
				Code:         n.Attr("CIS_OKRES"),
				Name:         n.Attr("NAZ_OKRES"),
				RegionCode:   n.Attr("CIS_KRAJ"),
				CountedUnits: r.int(n, "OKRSKY_ZPRAC"),
				TotalUnits:   r.int(n, "OKRSKY_CELKEM"),
				Turnout:      r.float(n, "UCAST_PROC"),
				Parties:      r.shares(n, xmlx.Descendants),
			})
		}
	default:
		log.Warn("未知的批次类型，不做提取", zap.String("batch_type", string(t)))
	}
	return res, true
}
