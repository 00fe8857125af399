// Package tree provides an element-tree model for XML documents: elements
// with text and tail content, comments, processing instructions and entity
// references, together with namespace-aware path queries and serialization.
package tree

import "strings"

// Node is implemented by every member of an element's child sequence:
// *Element, *Comment, *ProcInst and *Entity.
//
// Every node carries a non-owning back-reference to its parent element and
// a tail: the character data immediately following the node, before its
// next sibling. A node belongs to at most one parent at a time; attaching
// it elsewhere detaches it first.
type Node interface {
	Kind() NodeKind
	Parent() *Element
	Tail() string
	SetTail(string)

	// CopyNode returns a deep, parentless copy of the node.
	CopyNode() Node

	setParent(*Element)
}

// node holds the state shared by all node variants.
type node struct {
	parent *Element
	tail   string
}

func (n *node) Parent() *Element     { return n.parent }
func (n *node) Tail() string         { return n.tail }
func (n *node) SetTail(s string)     { n.tail = s }
func (n *node) setParent(p *Element) { n.parent = p }

// NextSibling returns the node immediately following n in its parent's
// child sequence, or nil if n is detached or last.
func NextSibling(n Node) Node {
	p := n.Parent()
	if p == nil {
		return nil
	}
	i := p.Index(n)
	if i < 0 || i+1 >= len(p.children) {
		return nil
	}
	return p.children[i+1]
}

// PrevSibling returns the node immediately preceding n in its parent's
// child sequence, or nil if n is detached or first.
func PrevSibling(n Node) Node {
	p := n.Parent()
	if p == nil {
		return nil
	}
	i := p.Index(n)
	if i <= 0 {
		return nil
	}
	return p.children[i-1]
}

// Root returns the topmost element reachable from n by parent links.
func Root(n Node) *Element {
	e, ok := n.(*Element)
	if !ok {
		return n.Parent()
	}
	if e == nil {
		return nil
	}
	for e.parent != nil {
		e = e.parent
	}
	return e
}

// TextContent returns the concatenation of all character data inside n in
// document order: the node's text followed by, for each child, its text
// content and tail. The tail of n itself is not included.
func TextContent(n Node) string {
	e, ok := n.(*Element)
	if !ok {
		return ""
	}
	var sb strings.Builder
	collectText(e, &sb)
	return sb.String()
}

func collectText(e *Element, sb *strings.Builder) {
	sb.WriteString(e.Text)
	for _, c := range e.children {
		if ce, ok := c.(*Element); ok {
			collectText(ce, sb)
		}
		sb.WriteString(c.Tail())
	}
}

// CompareOrder reports the document order of a relative to b: -1 if a
// precedes b, +1 if a follows b, 0 if they are the same node. Nodes from
// different trees compare as -1.
func CompareOrder(a, b Node) int {
	if a == b {
		return 0
	}
	ca := ancestorChain(a)
	cb := ancestorChain(b)
	if ca[0] != cb[0] {
		return -1
	}
	// Walk down from the shared root until the chains diverge.
	i := 1
	for ; i < len(ca) && i < len(cb); i++ {
		if ca[i] != cb[i] {
			parent := ca[i-1].(*Element)
			return parent.Index(ca[i]) - parent.Index(cb[i])
		}
	}
	// One node is an ancestor of the other; the ancestor comes first.
	if len(ca) < len(cb) {
		return -1
	}
	return 1
}

// ancestorChain returns the nodes from the root down to and including n.
func ancestorChain(n Node) []Node {
	var rev []Node
	for cur := n; cur != nil; {
		rev = append(rev, cur)
		p := cur.Parent()
		if p == nil {
			break
		}
		cur = p
	}
	chain := make([]Node, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		chain = append(chain, rev[i])
	}
	return chain
}
