package tree

import "iter"

// An Attr is a single key-value attribute of an element. Unprefixed
// attribute names are in no namespace even when their element is
// namespaced, so Name.Space is empty for them.
type Attr struct {
	Name  Name
	Value string
}

// An Element is an XML element: a qualified name, ordered attributes,
// the text immediately inside its start tag, and an ordered sequence of
// child nodes. Character data between children lives in each child's tail.
type Element struct {
	node
	Name  Name
	Text  string
	attrs []Attr
	decls map[string]string // namespace declarations made on this element
	children []Node
}

// NewElement creates a detached element. The tag may be given in
// universal form ("{uri}local") or as a plain local name.
func NewElement(tag string) *Element {
	return &Element{Name: ParseName(tag)}
}

// SubElement creates an element with the given tag and appends it to
// parent.
func SubElement(parent *Element, tag string) *Element {
	e := NewElement(tag)
	parent.Append(e)
	return e
}

func (e *Element) Kind() NodeKind { return ElementKind }

// CopyNode returns a deep, parentless copy of the element.
func (e *Element) CopyNode() Node { return e.Copy() }

// Copy returns a deep, parentless copy of the element, its attributes,
// namespace declarations and children. The copy's tail is preserved.
func (e *Element) Copy() *Element {
	ne := &Element{
		Name: e.Name,
		Text: e.Text,
	}
	ne.tail = e.tail
	if len(e.attrs) > 0 {
		ne.attrs = make([]Attr, len(e.attrs))
		copy(ne.attrs, e.attrs)
	}
	if len(e.decls) > 0 {
		ne.decls = make(map[string]string, len(e.decls))
		for p, uri := range e.decls {
			ne.decls[p] = uri
		}
	}
	for _, c := range e.children {
		cc := c.CopyNode()
		cc.setParent(ne)
		ne.children = append(ne.children, cc)
	}
	return ne
}

// Len returns the number of child nodes.
func (e *Element) Len() int { return len(e.children) }

// Child returns the i'th child node. It panics if i is out of range.
func (e *Element) Child(i int) Node { return e.children[i] }

// Children returns a copy of the child node sequence. Mutating the
// returned slice does not affect the element.
func (e *Element) Children() []Node {
	out := make([]Node, len(e.children))
	copy(out, e.children)
	return out
}

// ChildElements returns the element children in order.
func (e *Element) ChildElements() []*Element {
	var out []*Element
	for _, c := range e.children {
		if ce, ok := c.(*Element); ok {
			out = append(out, ce)
		}
	}
	return out
}

// Index returns the position of n in the child sequence, or -1 if n is
// not a child of e.
func (e *Element) Index(n Node) int {
	for i, c := range e.children {
		if c == n {
			return i
		}
	}
	return -1
}

// Append adds n to the end of the child sequence. If n is already
// attached somewhere, including to e itself, it is detached first, so a
// node appears in at most one tree position at a time.
func (e *Element) Append(n Node) {
	detach(n)
	n.setParent(e)
	e.children = append(e.children, n)
}

// Insert places n at position i of the child sequence, detaching it from
// any prior parent first. Out-of-range positions clamp to the ends.
func (e *Element) Insert(i int, n Node) {
	detach(n)
	if i < 0 {
		i = 0
	}
	if i > len(e.children) {
		i = len(e.children)
	}
	n.setParent(e)
	e.children = append(e.children, nil)
	copy(e.children[i+1:], e.children[i:])
	e.children[i] = n
}

// Remove detaches n from the child sequence. It reports whether n was a
// child of e.
func (e *Element) Remove(n Node) bool {
	i := e.Index(n)
	if i < 0 {
		return false
	}
	e.children = append(e.children[:i], e.children[i+1:]...)
	n.setParent(nil)
	return true
}

// Clear removes all children, attributes, namespace declarations, text
// and tail from the element, leaving only its name.
func (e *Element) Clear() {
	for _, c := range e.children {
		c.setParent(nil)
	}
	e.children = nil
	e.attrs = nil
	e.decls = nil
	e.Text = ""
	e.tail = ""
}

func detach(n Node) {
	if p := n.Parent(); p != nil {
		p.Remove(n)
	}
}

// Attrs returns a copy of the attribute list in insertion order.
func (e *Element) Attrs() []Attr {
	out := make([]Attr, len(e.attrs))
	copy(out, e.attrs)
	return out
}

// Attr returns the value of the attribute with the given key, which may
// be in universal form. The second result reports whether the attribute
// exists. A plain key matches only attributes in no namespace.
func (e *Element) Attr(key string) (string, bool) {
	name := ParseName(key)
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrValue returns the value of the attribute with the given key, or
// dflt if the attribute does not exist.
func (e *Element) AttrValue(key, dflt string) string {
	if v, ok := e.Attr(key); ok {
		return v
	}
	return dflt
}

// SetAttr sets the attribute with the given key, replacing any existing
// value and otherwise appending to the insertion order.
func (e *Element) SetAttr(key, value string) {
	name := ParseName(key)
	for i, a := range e.attrs {
		if a.Name == name {
			e.attrs[i].Value = value
			return
		}
	}
	e.attrs = append(e.attrs, Attr{Name: name, Value: value})
}

// RemoveAttr deletes the attribute with the given key, reporting whether
// it existed.
func (e *Element) RemoveAttr(key string) bool {
	name := ParseName(key)
	for i, a := range e.attrs {
		if a.Name == name {
			e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
			return true
		}
	}
	return false
}

// Iter walks the subtree rooted at e in document order, yielding e first
// and then every descendant node.
func (e *Element) Iter() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		iterNode(e, yield)
	}
}

func iterNode(n Node, yield func(Node) bool) bool {
	if !yield(n) {
		return false
	}
	if e, ok := n.(*Element); ok {
		for _, c := range e.children {
			if !iterNode(c, yield) {
				return false
			}
		}
	}
	return true
}

// IterTag walks the subtree in document order, yielding only the
// elements whose name matches the given tag pattern ("*", "{*}local",
// "{uri}*" or an exact name).
func (e *Element) IterTag(tag string) iter.Seq[*Element] {
	pat := ParsePattern(tag)
	return func(yield func(*Element) bool) {
		for n := range e.Iter() {
			if ce, ok := n.(*Element); ok && pat.Matches(ce.Name) {
				if !yield(ce) {
					return
				}
			}
		}
	}
}
