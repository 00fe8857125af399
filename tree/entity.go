package tree

// An Entity is an unexpanded entity reference appearing in element
// content, such as one declared in the document's internal subset. It
// serializes back to its reference form "&name;".
type Entity struct {
	node
	Name string
}

// NewEntity creates a detached entity reference node.
func NewEntity(name string) *Entity {
	return &Entity{Name: name}
}

func (e *Entity) Kind() NodeKind { return EntityKind }

// CopyNode returns a parentless copy of the entity reference.
func (e *Entity) CopyNode() Node {
	ne := &Entity{Name: e.Name}
	ne.tail = e.tail
	return ne
}
