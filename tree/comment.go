package tree

// A Comment is an XML comment node.
type Comment struct {
	node
	Data string
}

// NewComment creates a detached comment node.
func NewComment(data string) *Comment {
	return &Comment{Data: data}
}

func (c *Comment) Kind() NodeKind { return CommentKind }

// CopyNode returns a parentless copy of the comment.
func (c *Comment) CopyNode() Node {
	nc := &Comment{Data: c.Data}
	nc.tail = c.tail
	return nc
}
