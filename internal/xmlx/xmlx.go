package xmlx

import (
	"errors"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// VolbyNS 是 volby.cz 各类结果文档共用的 XML 命名空间。
const VolbyNS = "http://www.volby.cz/ps/"

// ErrNoRoot 表示输入里找不到任何根元素（例如纯文本或空文档）。
var ErrNoRoot = errors.New("xmlx: document has no root element")

// Binding 把元素查询绑定到单一命名空间。
//
// 约束：构造后只读；同一个 Binding 可以被任意多个 goroutine 并发使用。
// 不属于该命名空间的元素不会被 Find/First 命中（但仍会被遍历，以便找到嵌套在其中的目标元素）。
type Binding struct {
	URI string
}

// Load 解析一份完整 XML 文档。语法错误或没有根元素时返回 error。
func (b Binding) Load(data []byte) (Node, error) {
	doc := etree.NewDocument()
	// 旧的 volby.cz 数据偶尔声明 windows-1250；交给 x/net 的 charset 表解码。
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(data); err != nil {
		return Node{}, err
	}
	root := doc.Root()
	if root == nil {
		return Node{}, ErrNoRoot
	}
	return Node{b: b, e: root}, nil
}

// Node 是绑定了命名空间的元素句柄。零值表示“不存在”。
type Node struct {
	b Binding
	e *etree.Element
}

func (n Node) Exists() bool { return n.e != nil }

// Tag 返回本地名（不含前缀）。
func (n Node) Tag() string {
	if n.e == nil {
		return ""
	}
	return n.e.Tag
}

// Attr 返回无前缀属性的值；不存在时返回空串。
func (n Node) Attr(name string) string {
	if n.e == nil {
		return ""
	}
	a := n.e.SelectAttr(name)
	if a == nil {
		return ""
	}
	return a.Value
}

func (n Node) Has(name string) bool {
	return n.e != nil && n.e.SelectAttr(name) != nil
}

// Find 按 Scope 查找标签为 tag 的元素（文档顺序）。n 自身永远不参与匹配。
func (n Node) Find(tag string, sc Scope) []Node {
	if n.e == nil {
		return nil
	}
	var out []Node
	n.walk(n.e, tag, sc, func(e *etree.Element) bool {
		out = append(out, Node{b: n.b, e: e})
		return true
	})
	return out
}

// First 返回 Find 的第一个结果。
func (n Node) First(tag string, sc Scope) (Node, bool) {
	if n.e == nil {
		return Node{}, false
	}
	var hit *etree.Element
	n.walk(n.e, tag, sc, func(e *etree.Element) bool {
		hit = e
		return false
	})
	if hit == nil {
		return Node{}, false
	}
	return Node{b: n.b, e: hit}, true
}

// Closest 返回最近的、标签为 tag 的祖先元素。
func (n Node) Closest(tag string) (Node, bool) {
	if n.e == nil {
		return Node{}, false
	}
	for p := n.e.Parent(); p != nil; p = p.Parent() {
		if n.matches(p, tag) {
			return Node{b: n.b, e: p}, true
		}
	}
	return Node{}, false
}

// walk 深度优先遍历 parent 的子树；visit 返回 false 时提前终止。
func (n Node) walk(parent *etree.Element, tag string, sc Scope, visit func(*etree.Element) bool) bool {
	for _, c := range parent.ChildElements() {
		if n.matches(c, tag) && !visit(c) {
			return false
		}
		if !sc.deep || sc.prunes(n, c) {
			continue
		}
		if !n.walk(c, tag, sc, visit) {
			return false
		}
	}
	return true
}

func (n Node) matches(e *etree.Element, tag string) bool {
	return e.Tag == tag && e.NamespaceURI() == n.b.URI
}
