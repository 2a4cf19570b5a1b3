// Package feed 负责 volby.cz 数据源：确定要抓哪些 URL、带限速与变更检测地抓取、
// 从批次索引页发现 dávka 文件，并把原始字节交给对应的解析器。
//
// 约束：
// - feed 不做持久化（快照与数据库由 run 层决定是否写入）
// - 单个数据源失败只影响该数据源，调用方据 Error.Stage 归类为 fetch_failed / parse_failed
package feed

import (
	"fmt"
	"strings"

	"github.com/John-Robertt/volby/internal/domain"
)

// Kind 是数据源的文档种类，决定用哪个解析器。
type Kind string

const (
	KindNational   Kind = "national"
	KindDistrict   Kind = "district"
	KindCandidates Kind = "candidates"
	KindOverseas   Kind = "overseas"
	KindBatch      Kind = "batch"
)

// LatestKey 是单例文档（全国/候选人/境外）的快照 key。
const LatestKey = "latest"

// Source 是一个可抓取的数据源。
//
// Key 在同一 Kind 内唯一：okres 用其代码，批次用 "<type>_<NNNN>"，单例文档用 LatestKey。
type Source struct {
	Kind      Kind
	Key       string
	URL       string
	BatchType domain.BatchType // 仅 KindBatch
	Number    int              // 仅 KindBatch
}

// ID 是数据源在报告与日志中的稳定标识。
func (s Source) ID() string { return string(s.Kind) + "/" + s.Key }

// URLs 是配置中的 feed 地址。District 是包含 {code} 占位符的模板。
type URLs struct {
	National   string
	District   string
	Candidates string
	Overseas   string
}

const codePlaceholder = "{code}"

// Sources 按固定顺序展开非批次数据源：national、districts（按给定顺序）、candidates、overseas。
// 空 URL 表示不抓取该数据源。
func Sources(u URLs, districtCodes []string) ([]Source, error) {
	out := make([]Source, 0, len(districtCodes)+3)
	if s := strings.TrimSpace(u.National); s != "" {
		out = append(out, Source{Kind: KindNational, Key: LatestKey, URL: s})
	}
	if tpl := strings.TrimSpace(u.District); tpl != "" {
		if !strings.Contains(tpl, codePlaceholder) {
			return nil, fmt.Errorf("district_url 必须包含 %s 占位符：%q", codePlaceholder, tpl)
		}
		seen := make(map[string]bool, len(districtCodes))
		for _, code := range districtCodes {
			code = strings.ToUpper(strings.TrimSpace(code))
			if code == "" || seen[code] {
				continue
			}
			seen[code] = true
			out = append(out, Source{Kind: KindDistrict, Key: code, URL: strings.ReplaceAll(tpl, codePlaceholder, code)})
		}
	}
	if s := strings.TrimSpace(u.Candidates); s != "" {
		out = append(out, Source{Kind: KindCandidates, Key: LatestKey, URL: s})
	}
	if s := strings.TrimSpace(u.Overseas); s != "" {
		out = append(out, Source{Kind: KindOverseas, Key: LatestKey, URL: s})
	}
	return out, nil
}
