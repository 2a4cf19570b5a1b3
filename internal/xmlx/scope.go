package xmlx

import "github.com/beevik/etree"

// Scope 描述 Find/First 的搜索范围：只看直接子元素，或下钻整棵子树（可按标签剪枝）。
type Scope struct {
	deep  bool
	prune []string
}

var (
	// Children 只看直接子元素。
	Children = Scope{}
	// Descendants 查找整棵子树（等价于 XPath 的 .//T）。
	Descendants = Scope{deep: true}
)

// Pruning 返回一个新 Scope：遇到 tags 中的元素时不再下钻其子树（元素本身仍可被匹配）。
// 只对 Descendants 有意义。
func (s Scope) Pruning(tags ...string) Scope {
	out := Scope{deep: s.deep}
	out.prune = append(append(out.prune, s.prune...), tags...)
	return out
}

func (s Scope) prunes(n Node, e *etree.Element) bool {
	for _, t := range s.prune {
		if n.matches(e, t) {
			return true
		}
	}
	return false
}
