// Package results 把 volby.cz 的五种结果文档解析为统一的内存结果模型。
//
// 约束：
// - 每个 Parse* 都是纯函数：输入相同 => 输出相同；不持有任何跨调用状态，可并发调用
// - XML 无法解析时返回 (零值, false) 并记录 error 日志，不向调用方返回 error
// - 元素缺失按“空”处理、数值属性缺失或非法按 0 处理（尽力而为，部分结果优于整体失败）
package results

import (
	"go.uber.org/zap"

	"github.com/John-Robertt/volby/internal/domain"
	"github.com/John-Robertt/volby/internal/numx"
	"github.com/John-Robertt/volby/internal/xmlx"
)

// volby 是进程内唯一的命名空间绑定（只读，可并发共享）。
var volby = xmlx.Binding{URI: xmlx.VolbyNS}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

func load(data []byte, log *zap.Logger, fields ...zap.Field) (xmlx.Node, bool) {
	root, err := volby.Load(data)
	if err != nil {
		log.Error("XML 解析失败，返回空结果", append(fields, zap.Error(err))...)
		return xmlx.Node{}, false
	}
	return root, true
}

// reader 统一读取属性：缺失/非法数值一律落到默认值，非法值额外记 debug 日志。
type reader struct {
	log *zap.Logger
}

func (r reader) int(n xmlx.Node, name string) int {
	s := n.Attr(name)
	v, ok := numx.IntOK(s)
	if !ok && n.Has(name) {
		r.log.Debug("整数属性非法，按 0 处理", zap.String("element", n.Tag()), zap.String("attr", name), zap.String("value", s))
	}
	return v
}

func (r reader) float(n xmlx.Node, name string) float64 {
	s := n.Attr(name)
	v, ok := numx.FloatOK(s)
	if !ok && n.Has(name) {
		r.log.Debug("浮点属性非法，按 0 处理", zap.String("element", n.Tag()), zap.String("attr", name), zap.String("value", s))
	}
	return v
}

// flag 仅当属性值恰好为 "1" 时为 true。
func (r reader) flag(n xmlx.Node, name string) bool {
	return n.Attr(name) == "1"
}

// partySource 返回携带 HLASY/PROC_HLASU 的元素：
// STRANA 自身带 HLASY 时用它，否则退回到其 HODNOTY_STRANA 子元素。
func partySource(strana xmlx.Node) xmlx.Node {
	if strana.Has("HLASY") {
		return strana
	}
	if h, ok := strana.First("HODNOTY_STRANA", xmlx.Children); ok {
		return h
	}
	return strana
}

// hasValues 报告 STRANA 是否带有票数：自身的 HLASY 或 HODNOTY_STRANA 子元素。
func hasValues(strana xmlx.Node) bool {
	if strana.Has("HLASY") {
		return true
	}
	_, ok := strana.First("HODNOTY_STRANA", xmlx.Children)
	return ok
}

func (r reader) share(strana xmlx.Node) domain.PartyShare {
	src := partySource(strana)
	return domain.PartyShare{
		Code:       strana.Attr("KSTRANA"),
		Votes:      r.int(src, "HLASY"),
		Percentage: r.float(src, "PROC_HLASU"),
	}
}

func (r reader) votes(strana xmlx.Node) domain.PartyVotes {
	return domain.PartyVotes{
		Code:  strana.Attr("KSTRANA"),
		Votes: r.int(partySource(strana), "HLASY"),
	}
}

func (r reader) shares(scope xmlx.Node, sc xmlx.Scope) []domain.PartyShare {
	nodes := scope.Find("STRANA", sc)
	out := make([]domain.PartyShare, 0, len(nodes))
	for _, s := range nodes {
		out = append(out, r.share(s))
	}
	return out
}

func (r reader) votesList(scope xmlx.Node, sc xmlx.Scope) []domain.PartyVotes {
	nodes := scope.Find("STRANA", sc)
	out := make([]domain.PartyVotes, 0, len(nodes))
	for _, s := range nodes {
		out = append(out, r.votes(s))
	}
	return out
}

// validVotes 读取 PLATNE_HLASY：元素自身没有该属性时退回到其 UCAST 子元素。
func (r reader) validVotes(n xmlx.Node) int {
	if n.Has("PLATNE_HLASY") {
		return r.int(n, "PLATNE_HLASY")
	}
	if u, ok := n.First("UCAST", xmlx.Children); ok {
		return r.int(u, "PLATNE_HLASY")
	}
	return 0
}

func generatedAt(root xmlx.Node) string {
	return root.Attr("DATUM_CAS_GENEROVANI")
}
