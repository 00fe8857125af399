package parser

import (
	"strings"

	"github.com/chrisuehlinger/xmltree/tree"
)

// A Target receives parse events instead of a built tree. Tags are in
// universal form ("{uri}local") after namespace resolution. Returning a
// non-nil error from any method aborts the parse with that error.
type Target interface {
	Start(tag string, attrs []tree.Attr) error
	End(tag string) error
	Text(data string) error
	Comment(data string) error
	ProcInst(target, data string) error
	Close() error
}

// NopTarget implements Target with no-op methods. Embed it to implement
// only the events of interest.
type NopTarget struct{}

func (NopTarget) Start(string, []tree.Attr) error { return nil }
func (NopTarget) End(string) error                { return nil }
func (NopTarget) Text(string) error               { return nil }
func (NopTarget) Comment(string) error            { return nil }
func (NopTarget) ProcInst(string, string) error   { return nil }
func (NopTarget) Close() error                    { return nil }

// treeBuilder assembles tokens into a Document, resolving namespace
// prefixes as elements open. When a Target is set, events are forwarded
// to it and no tree is kept.
type treeBuilder struct {
	doc     *tree.Document
	stack   []*tree.Element
	rawTags []string // lexical qualified names of the open elements
	sawRoot bool

	target Target
	emit   func(Event) error // optional event hook for pull iteration
}

func newTreeBuilder(target Target) *treeBuilder {
	return &treeBuilder{doc: tree.NewDocument(), target: target}
}

func (b *treeBuilder) top() *tree.Element {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *treeBuilder) handle(tok token) error {
	switch tok.kind {
	case tokenStartTag:
		return b.startElement(tok)
	case tokenEndTag:
		return b.endElement(tok)
	case tokenText:
		return b.text(tok)
	case tokenEntityRef:
		return b.entityRef(tok)
	case tokenComment:
		return b.comment(tok)
	case tokenProcInst:
		return b.procInst(tok)
	case tokenDirective:
		return b.directive(tok)
	}
	return nil
}

func (b *treeBuilder) startElement(tok token) error {
	if len(b.stack) == 0 && b.sawRoot {
		return &SyntaxError{Line: tok.line, Column: tok.col, Message: "junk after document element"}
	}

	e := tree.NewElement(tok.local)
	for _, a := range tok.attrs {
		switch {
		case a.prefix == "" && a.local == "xmlns":
			e.DeclareNamespace("", a.value)
		case a.prefix == "xmlns":
			e.DeclareNamespace(a.local, a.value)
		}
	}
	if parent := b.top(); parent != nil {
		parent.Append(e)
	} else {
		b.doc.SetRoot(e)
		b.sawRoot = true
	}

	// The element's own declarations are in place, so prefix lookups see
	// the full scope.
	if tok.prefix != "" {
		uri, ok := e.LookupNamespace(tok.prefix)
		if !ok {
			return &NamespaceError{Line: tok.line, Column: tok.col, Prefix: tok.prefix}
		}
		e.Name.Space = uri
	} else if uri, ok := e.LookupNamespace(""); ok {
		e.Name.Space = uri
	}

	var attrs []tree.Attr
	for _, a := range tok.attrs {
		if a.prefix == "xmlns" || (a.prefix == "" && a.local == "xmlns") {
			continue
		}
		name := tree.Name{Local: a.local}
		if a.prefix != "" {
			uri, ok := e.LookupNamespace(a.prefix)
			if !ok {
				return &NamespaceError{Line: tok.line, Column: tok.col, Prefix: a.prefix}
			}
			name.Space = uri
		}
		attrs = append(attrs, tree.Attr{Name: name, Value: a.value})
	}
	for _, a := range attrs {
		e.SetAttr(a.Name.String(), a.Value)
	}

	if b.target != nil {
		if err := b.target.Start(e.Name.String(), attrs); err != nil {
			return err
		}
		if tok.selfClosing {
			return b.targetEnd(e)
		}
	}

	if tok.selfClosing {
		if b.emit != nil {
			if err := b.emit(Event{Kind: EventStart, Node: e}); err != nil {
				return err
			}
			return b.emit(Event{Kind: EventEnd, Node: e})
		}
		return nil
	}
	b.stack = append(b.stack, e)
	b.rawTags = append(b.rawTags, qualified(tok.prefix, tok.local))
	if b.emit != nil {
		return b.emit(Event{Kind: EventStart, Node: e})
	}
	return nil
}

func (b *treeBuilder) targetEnd(e *tree.Element) error {
	return b.target.End(e.Name.String())
}

func (b *treeBuilder) endElement(tok token) error {
	if len(b.stack) == 0 {
		return &SyntaxError{Line: tok.line, Column: tok.col,
			Message: "unexpected end tag </" + qualified(tok.prefix, tok.local) + ">"}
	}
	open := b.rawTags[len(b.rawTags)-1]
	if got := qualified(tok.prefix, tok.local); got != open {
		return &SyntaxError{Line: tok.line, Column: tok.col,
			Message: "mismatched end tag: expected </" + open + ">, got </" + got + ">"}
	}
	e := b.top()
	b.stack = b.stack[:len(b.stack)-1]
	b.rawTags = b.rawTags[:len(b.rawTags)-1]
	if b.target != nil {
		return b.targetEnd(e)
	}
	if b.emit != nil {
		return b.emit(Event{Kind: EventEnd, Node: e})
	}
	return nil
}

func (b *treeBuilder) text(tok token) error {
	if len(b.stack) == 0 {
		if strings.TrimLeft(tok.data, " \t\r\n") != "" {
			return &SyntaxError{Line: tok.line, Column: tok.col, Message: "text outside document element"}
		}
		return nil
	}
	if b.target != nil {
		return b.target.Text(tok.data)
	}
	b.attachText(tok.data)
	return nil
}

// attachText appends character data at the current insertion point: the
// open element's text if it has no children yet, otherwise the tail of
// its last child. Adjacent runs coalesce here, so chunked input yields
// the same tree as whole input.
func (b *treeBuilder) attachText(data string) {
	e := b.top()
	if n := e.Len(); n > 0 {
		last := e.Child(n - 1)
		last.SetTail(last.Tail() + data)
		return
	}
	e.Text += data
}

func (b *treeBuilder) entityRef(tok token) error {
	if len(b.stack) == 0 {
		return &SyntaxError{Line: tok.line, Column: tok.col, Message: "entity reference outside document element"}
	}
	if b.target != nil {
		return b.target.Text("&" + tok.target + ";")
	}
	b.top().Append(tree.NewEntity(tok.target))
	return nil
}

func (b *treeBuilder) comment(tok token) error {
	if b.target != nil {
		return b.target.Comment(tok.data)
	}
	c := tree.NewComment(tok.data)
	switch {
	case len(b.stack) > 0:
		b.top().Append(c)
	case b.sawRoot:
		b.doc.AppendEpilog(c)
	default:
		b.doc.AppendProlog(c)
	}
	if b.emit != nil {
		return b.emit(Event{Kind: EventComment, Node: c})
	}
	return nil
}

func (b *treeBuilder) procInst(tok token) error {
	if tok.target == "xml" && !b.sawRoot && len(b.stack) == 0 {
		// The XML declaration is document metadata, not a tree node.
		b.doc.Encoding = declValue(tok.data, "encoding")
		return nil
	}
	if b.target != nil {
		return b.target.ProcInst(tok.target, tok.data)
	}
	pi := tree.NewProcInst(tok.target, tok.data)
	switch {
	case len(b.stack) > 0:
		b.top().Append(pi)
	case b.sawRoot:
		b.doc.AppendEpilog(pi)
	default:
		b.doc.AppendProlog(pi)
	}
	if b.emit != nil {
		return b.emit(Event{Kind: EventProcInst, Node: pi})
	}
	return nil
}

func (b *treeBuilder) directive(tok token) error {
	raw := tok.data
	if len(raw) > 2 && strings.HasPrefix(raw[2:], "DOCTYPE") {
		if b.sawRoot || len(b.stack) > 0 {
			return &SyntaxError{Line: tok.line, Column: tok.col, Message: "misplaced DOCTYPE declaration"}
		}
		b.doc.Doctype = raw
		return nil
	}
	return &SyntaxError{Line: tok.line, Column: tok.col, Message: "unexpected declaration"}
}

// finish validates end-of-input state and returns the built document.
func (b *treeBuilder) finish(line, col int) (*tree.Document, error) {
	if len(b.rawTags) > 0 {
		return nil, &SyntaxError{Line: line, Column: col,
			Message: "unexpected end of input: <" + b.rawTags[len(b.rawTags)-1] + "> is not closed"}
	}
	if b.target != nil {
		if err := b.target.Close(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if b.doc.Root() == nil {
		return nil, &SyntaxError{Line: line, Column: col, Message: "no document element found"}
	}
	return b.doc, nil
}

// declValue extracts a pseudo-attribute from XML declaration data.
func declValue(data, key string) string {
	i := strings.Index(data, key)
	if i < 0 {
		return ""
	}
	rest := strings.TrimLeft(data[i+len(key):], " \t\r\n")
	if !strings.HasPrefix(rest, "=") {
		return ""
	}
	rest = strings.TrimLeft(rest[1:], " \t\r\n")
	if len(rest) < 2 || (rest[0] != '"' && rest[0] != '\'') {
		return ""
	}
	if j := strings.IndexByte(rest[1:], rest[0]); j >= 0 {
		return rest[1 : 1+j]
	}
	return ""
}

func qualified(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
