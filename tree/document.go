package tree

// A Document wraps exactly one root element together with document-level
// metadata: the declared encoding, the raw DOCTYPE text, and any
// comments or processing instructions that sit outside the root.
type Document struct {
	// Encoding is the character encoding named in the XML declaration,
	// or empty if the document had none.
	Encoding string

	// Doctype holds the complete DOCTYPE declaration, including any
	// internal subset, exactly as it appeared in the source. It is
	// written back verbatim so declarations round-trip byte-identically.
	Doctype string

	root   *Element
	prolog []Node
	epilog []Node
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{}
}

// NewDocumentWithRoot creates a document owning the given root element.
func NewDocumentWithRoot(root *Element) *Document {
	d := &Document{}
	d.SetRoot(root)
	return d
}

// Root returns the document's root element, or nil for an empty document.
func (d *Document) Root() *Element { return d.root }

// SetRoot replaces the document's root element. The element is detached
// from any prior parent first.
func (d *Document) SetRoot(root *Element) {
	if root != nil {
		detach(root)
	}
	d.root = root
}

// Prolog returns the comments and processing instructions that precede
// the root element, in document order.
func (d *Document) Prolog() []Node {
	out := make([]Node, len(d.prolog))
	copy(out, d.prolog)
	return out
}

// Epilog returns the comments and processing instructions that follow
// the root element, in document order.
func (d *Document) Epilog() []Node {
	out := make([]Node, len(d.epilog))
	copy(out, d.epilog)
	return out
}

// AppendProlog adds a comment or processing instruction before the root.
func (d *Document) AppendProlog(n Node) {
	detach(n)
	d.prolog = append(d.prolog, n)
}

// AppendEpilog adds a comment or processing instruction after the root.
func (d *Document) AppendEpilog(n Node) {
	detach(n)
	d.epilog = append(d.epilog, n)
}

// Copy returns a deep copy of the document.
func (d *Document) Copy() *Document {
	nd := &Document{
		Encoding: d.Encoding,
		Doctype:  d.Doctype,
	}
	if d.root != nil {
		nd.root = d.root.Copy()
	}
	for _, n := range d.prolog {
		nd.prolog = append(nd.prolog, n.CopyNode())
	}
	for _, n := range d.epilog {
		nd.epilog = append(nd.epilog, n.CopyNode())
	}
	return nd
}
