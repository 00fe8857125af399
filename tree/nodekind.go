package tree

// NodeKind identifies the concrete variant behind a Node.
type NodeKind int

const (
	ElementKind NodeKind = iota
	CommentKind
	ProcInstKind
	EntityKind
)

// String returns the name of the node kind.
func (k NodeKind) String() string {
	switch k {
	case ElementKind:
		return "element"
	case CommentKind:
		return "comment"
	case ProcInstKind:
		return "processing-instruction"
	case EntityKind:
		return "entity"
	default:
		return "unknown"
	}
}
