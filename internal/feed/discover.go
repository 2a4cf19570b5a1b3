package feed

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/volby/internal/domain"
)

var batchFileRE = regexp.MustCompile(`^vysledky_(okrsky|obce|okresy)_(\d{1,5})\.xml$`)

// DiscoverBatches 从批次索引页（HTML 目录列表）中提取 dávka 文件链接。
//
// 规则：
// - 只识别文件名形如 vysledky_<okrsky|obce|okresy>_<NNNN>.xml 的 <a href>
// - 编号必须在 [1, maxNumber] 内（maxNumber<=0 表示不限制）
// - 相对链接按 baseURL 解析；同一 URL 只出现一次
// - 输出按 (类型, 编号) 排序
func DiscoverBatches(html []byte, baseURL string, maxNumber int) ([]Source, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("非法 batch_index_url：%w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	out := make([]Source, 0, 16)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		m := batchFileRE.FindStringSubmatch(path.Base(ref.Path))
		if m == nil {
			return
		}
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 || (maxNumber > 0 && n > maxNumber) {
			return
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		t := domain.BatchType(m[1])
		out = append(out, Source{
			Kind:      KindBatch,
			Key:       fmt.Sprintf("%s_%04d", t, n),
			URL:       abs,
			BatchType: t,
			Number:    n,
		})
	})

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BatchType != out[j].BatchType {
			return out[i].BatchType < out[j].BatchType
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

// LatestBatches 返回每种批次类型中编号最大的那个（按类型排序）。
func LatestBatches(batches []Source) []Source {
	latest := make(map[domain.BatchType]Source, 3)
	for _, b := range batches {
		if cur, ok := latest[b.BatchType]; !ok || b.Number > cur.Number {
			latest[b.BatchType] = b
		}
	}
	out := make([]Source, 0, len(latest))
	for _, b := range latest {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchType < out[j].BatchType })
	return out
}
