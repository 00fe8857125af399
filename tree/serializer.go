package tree

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding/ianaindex"
)

// Mode selects the serializer's output language.
type Mode int

const (
	// ModeXML emits well-formed XML, self-closing empty elements.
	ModeXML Mode = iota
	// ModeHTML emits HTML-compatible output: void elements are not
	// closed and script/style content is left unescaped.
	ModeHTML
	// ModeText emits only character data (text and tails) in document
	// order, with no markup.
	ModeText
)

// WriteOptions control serialization.
type WriteOptions struct {
	// Mode selects xml (default), html or text output.
	Mode Mode

	// Indent enables pretty-printing with the given unit of
	// indentation (for example "  "). Empty disables pretty-printing.
	// Elements with mixed content are never re-indented.
	Indent string

	// TrailingNewline appends a final newline to the output.
	TrailingNewline bool

	// Declaration prepends an XML declaration (xml mode only).
	Declaration bool

	// Encoding names the target character encoding, resolved through
	// the IANA registry. When empty the output is ASCII-safe: non-ASCII
	// runes become character references where references are legal and
	// fail with an EncodingError where they are not.
	Encoding string

	// OmitTail suppresses the tail of the node passed to Write itself.
	// Tails of descendants are always included.
	OmitTail bool
}

// Write serializes v, which must be a Node or a *Document, to w.
func Write(w io.Writer, v any, opts WriteOptions) error {
	out := w
	var closer io.Closer
	if name := opts.Encoding; name != "" && !isUTF8Label(name) && !isASCIILabel(name) {
		enc, err := ianaindex.IANA.Encoding(name)
		if err != nil || enc == nil {
			return &EncodingError{Encoding: name, Message: "unknown encoding"}
		}
		ew := enc.NewEncoder().Writer(w)
		if c, ok := ew.(io.Closer); ok {
			closer = c
		}
		out = ew
	}

	s := &serializer{
		w:     bufio.NewWriter(out),
		opts:  opts,
		ascii: opts.Encoding == "" || isASCIILabel(opts.Encoding),
	}

	var err error
	switch v := v.(type) {
	case *Document:
		err = s.writeDocument(v)
	case Node:
		err = s.writeTop(v)
	default:
		err = fmt.Errorf("tree: cannot serialize %T", v)
	}
	if err == nil && opts.TrailingNewline {
		err = s.w.WriteByte('\n')
	}
	if err == nil {
		err = s.w.Flush()
	}
	if closer != nil {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil && opts.Encoding != "" {
		// Encoder failures surface as transform errors; report them in
		// this package's terms.
		if _, ok := err.(*EncodingError); !ok {
			err = &EncodingError{Encoding: opts.Encoding, Message: err.Error()}
		}
	}
	return err
}

// ToBytes serializes v to a byte slice.
func ToBytes(v any, opts WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, v, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToString serializes v to a string.
func ToString(v any, opts WriteOptions) (string, error) {
	b, err := ToBytes(v, opts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteTo serializes the document to w with default options.
func (d *Document) WriteTo(w io.Writer) error {
	return Write(w, d, WriteOptions{})
}

type serializer struct {
	w     *bufio.Writer
	opts  WriteOptions
	ascii bool
	gen   int // counter for generated namespace prefixes
}

func (s *serializer) writeDocument(d *Document) error {
	if s.opts.Mode == ModeText {
		if d.root == nil {
			return nil
		}
		return s.writeText(d.root)
	}
	if s.opts.Declaration && s.opts.Mode == ModeXML {
		if err := s.writeDeclaration(); err != nil {
			return err
		}
	}
	if d.Doctype != "" && s.opts.Mode == ModeXML {
		if err := s.writeRaw(d.Doctype); err != nil {
			return err
		}
		s.w.WriteByte('\n')
	}
	scope := map[string]string{}
	for _, n := range d.prolog {
		if err := s.writeNode(n, scope, 0, false); err != nil {
			return err
		}
		s.w.WriteByte('\n')
	}
	if d.root != nil {
		if err := s.writeNode(d.root, scope, 0, false); err != nil {
			return err
		}
	}
	for _, n := range d.epilog {
		s.w.WriteByte('\n')
		if err := s.writeNode(n, scope, 0, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *serializer) writeTop(n Node) error {
	if s.opts.Mode == ModeText {
		return s.writeText(n)
	}
	if s.opts.Declaration && s.opts.Mode == ModeXML {
		if err := s.writeDeclaration(); err != nil {
			return err
		}
	}
	// Serialization of a subtree starts from the namespace scope
	// visible at its position in the tree.
	scope := map[string]string{}
	if e, ok := n.(*Element); ok && e.parent != nil {
		scope = e.parent.Scope()
	}
	return s.writeNode(n, scope, 0, !s.opts.OmitTail)
}

func (s *serializer) writeDeclaration() error {
	s.w.WriteString(`<?xml version="1.0"`)
	if s.opts.Encoding != "" {
		s.w.WriteString(` encoding="`)
		s.w.WriteString(s.opts.Encoding)
		s.w.WriteByte('"')
	}
	s.w.WriteString("?>\n")
	return nil
}

func (s *serializer) writeNode(n Node, scope map[string]string, depth int, withTail bool) error {
	var err error
	switch n := n.(type) {
	case *Element:
		err = s.writeElement(n, scope, depth)
	case *Comment:
		err = s.writeComment(n)
	case *ProcInst:
		err = s.writeProcInst(n)
	case *Entity:
		s.w.WriteByte('&')
		s.w.WriteString(n.Name)
		s.w.WriteByte(';')
	}
	if err != nil {
		return err
	}
	if withTail && n.Tail() != "" {
		return s.writeEscaped(n.Tail(), false)
	}
	return nil
}

func (s *serializer) writeElement(e *Element, scope map[string]string, depth int) error {
	// Extend the scope with this element's declarations plus any
	// generated ones; declarations are emitted in deterministic order
	// (default first, then prefixes sorted).
	local := map[string]string{}
	for p, uri := range e.decls {
		local[p] = uri
	}
	inner := scope
	if len(local) > 0 {
		inner = copyScope(scope)
		for p, uri := range local {
			if uri == "" {
				delete(inner, p)
			} else {
				inner[p] = uri
			}
		}
	}

	qname, err := s.elementQName(e, &inner, local)
	if err != nil {
		return err
	}

	s.w.WriteByte('<')
	s.w.WriteString(qname)

	attrNames := make([]string, 0, len(e.attrs))
	for _, a := range e.attrs {
		aq, err := s.attrQName(a.Name, &inner, local)
		if err != nil {
			return err
		}
		attrNames = append(attrNames, aq)
	}

	for _, p := range sortedPrefixes(local) {
		s.w.WriteByte(' ')
		if p == "" {
			s.w.WriteString(`xmlns="`)
		} else {
			s.w.WriteString("xmlns:")
			s.w.WriteString(p)
			s.w.WriteString(`="`)
		}
		if err := s.writeEscaped(local[p], true); err != nil {
			return err
		}
		s.w.WriteByte('"')
	}

	for i, a := range e.attrs {
		s.w.WriteByte(' ')
		s.w.WriteString(attrNames[i])
		s.w.WriteString(`="`)
		if err := s.writeEscaped(a.Value, true); err != nil {
			return err
		}
		s.w.WriteByte('"')
	}

	if s.opts.Mode == ModeHTML {
		return s.finishHTMLElement(e, qname, inner, depth)
	}

	if e.Text == "" && len(e.children) == 0 {
		s.w.WriteString("/>")
		return nil
	}
	s.w.WriteByte('>')
	return s.writeContent(e, qname, inner, depth, false)
}

// writeContent writes an element's text, children and end tag.
func (s *serializer) writeContent(e *Element, qname string, scope map[string]string, depth int, raw bool) error {
	pretty := s.opts.Indent != "" && indentable(e)
	if !pretty || strings.TrimSpace(e.Text) != "" {
		if raw {
			if err := s.writeRaw(e.Text); err != nil {
				return err
			}
		} else if err := s.writeEscaped(e.Text, false); err != nil {
			return err
		}
	}
	for _, c := range e.children {
		if pretty {
			s.w.WriteByte('\n')
			s.writeIndent(depth + 1)
		}
		if err := s.writeNode(c, scope, depth+1, !pretty); err != nil {
			return err
		}
	}
	if pretty && len(e.children) > 0 {
		s.w.WriteByte('\n')
		s.writeIndent(depth)
	}
	s.w.WriteString("</")
	s.w.WriteString(qname)
	s.w.WriteByte('>')
	return nil
}

func (s *serializer) finishHTMLElement(e *Element, qname string, scope map[string]string, depth int) error {
	lower := strings.ToLower(e.Name.Local)
	a := atom.Lookup([]byte(lower))
	if e.Name.Space == "" && isVoidElement(a) {
		s.w.WriteByte('>')
		return nil
	}
	s.w.WriteByte('>')
	raw := e.Name.Space == "" && (a == atom.Script || a == atom.Style)
	return s.writeContent(e, qname, scope, depth, raw)
}

// isVoidElement reports whether the atom names an HTML void element,
// which has no end tag and no content.
func isVoidElement(a atom.Atom) bool {
	switch a {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr,
		atom.Img, atom.Input, atom.Link, atom.Meta, atom.Param,
		atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

// indentable reports whether the element's content can be re-indented
// without changing its meaning: no significant text and no significant
// child tails.
func indentable(e *Element) bool {
	if len(e.children) == 0 {
		return false
	}
	if strings.TrimSpace(e.Text) != "" {
		return false
	}
	for _, c := range e.children {
		if strings.TrimSpace(c.Tail()) != "" {
			return false
		}
	}
	return true
}

func (s *serializer) writeIndent(depth int) {
	for i := 0; i < depth; i++ {
		s.w.WriteString(s.opts.Indent)
	}
}

func (s *serializer) writeComment(c *Comment) error {
	s.w.WriteString("<!--")
	if err := s.writeRaw(c.Data); err != nil {
		return err
	}
	s.w.WriteString("-->")
	return nil
}

func (s *serializer) writeProcInst(p *ProcInst) error {
	s.w.WriteString("<?")
	s.w.WriteString(p.Target)
	if p.Data != "" {
		s.w.WriteByte(' ')
		if err := s.writeRaw(p.Data); err != nil {
			return err
		}
	}
	s.w.WriteString("?>")
	return nil
}

// writeText renders only character data, in document order.
func (s *serializer) writeText(n Node) error {
	e, ok := n.(*Element)
	if !ok {
		return nil
	}
	s.w.WriteString(e.Text)
	for _, c := range e.children {
		if err := s.writeText(c); err != nil {
			return err
		}
		s.w.WriteString(c.Tail())
	}
	return nil
}

// elementQName resolves the serialized name of an element, declaring a
// generated prefix on the element when its namespace has no in-scope
// binding.
func (s *serializer) elementQName(e *Element, scope *map[string]string, local map[string]string) (string, error) {
	name := e.Name
	if name.Space == "" {
		// An unnamespaced element under a default namespace must
		// undeclare it.
		if (*scope)[""] != "" {
			local[""] = ""
			sc := copyScope(*scope)
			delete(sc, "")
			*scope = sc
		}
		return s.checkName(name.Local)
	}
	if name.Space == XMLNamespace {
		return s.checkName("xml:" + name.Local)
	}
	if p, ok := prefixFor(*scope, name.Space, true); ok {
		if p == "" {
			return s.checkName(name.Local)
		}
		return s.checkName(p + ":" + name.Local)
	}
	p := s.generatePrefix(scope, local, name.Space)
	return s.checkName(p + ":" + name.Local)
}

// attrQName resolves the serialized name of an attribute. Attributes
// never use the default namespace; an unprefixed attribute name is in no
// namespace.
func (s *serializer) attrQName(name Name, scope *map[string]string, local map[string]string) (string, error) {
	if name.Space == "" {
		return s.checkName(name.Local)
	}
	if name.Space == XMLNamespace {
		return s.checkName("xml:" + name.Local)
	}
	if p, ok := prefixFor(*scope, name.Space, false); ok {
		return s.checkName(p + ":" + name.Local)
	}
	p := s.generatePrefix(scope, local, name.Space)
	return s.checkName(p + ":" + name.Local)
}

func (s *serializer) generatePrefix(scope *map[string]string, local map[string]string, uri string) string {
	sc := copyScope(*scope)
	for {
		s.gen++
		p := fmt.Sprintf("ns%d", s.gen)
		if _, taken := sc[p]; taken {
			continue
		}
		sc[p] = uri
		local[p] = uri
		*scope = sc
		return p
	}
}

// prefixFor finds a prefix bound to uri in the scope. The default
// prefix is only eligible for element names.
func prefixFor(scope map[string]string, uri string, allowDefault bool) (string, bool) {
	if allowDefault && scope[""] == uri {
		return "", true
	}
	best := ""
	found := false
	for p, u := range scope {
		if u != uri || p == "" {
			continue
		}
		if !found || p < best {
			best = p
			found = true
		}
	}
	return best, found
}

func sortedPrefixes(decls map[string]string) []string {
	out := make([]string, 0, len(decls))
	for p := range decls {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func copyScope(scope map[string]string) map[string]string {
	out := make(map[string]string, len(scope))
	for p, uri := range scope {
		out[p] = uri
	}
	return out
}

// checkName verifies that a serialized name is representable in the
// target encoding when only ASCII output is allowed. Names cannot carry
// character references.
func (s *serializer) checkName(name string) (string, error) {
	if s.ascii {
		for _, r := range name {
			if r >= 0x80 {
				return "", &EncodingError{Encoding: s.encodingName(), Message: fmt.Sprintf("name %q is not representable", name)}
			}
		}
	}
	return name, nil
}

func (s *serializer) encodingName() string {
	if s.opts.Encoding == "" {
		return "us-ascii"
	}
	return s.opts.Encoding
}

// writeRaw writes data that cannot carry character references, such as
// comment and processing-instruction content. Non-ASCII runes here are
// an error when output is restricted to ASCII.
func (s *serializer) writeRaw(data string) error {
	if s.ascii {
		for _, r := range data {
			if r >= 0x80 {
				return &EncodingError{Encoding: s.encodingName(), Message: "content is not representable and cannot be escaped here"}
			}
		}
	}
	_, err := s.w.WriteString(data)
	return err
}

// writeEscaped writes text or attribute content with markup characters
// escaped. In ASCII mode non-ASCII runes become numeric character
// references.
func (s *serializer) writeEscaped(data string, attr bool) error {
	for _, r := range data {
		switch r {
		case '&':
			s.w.WriteString("&amp;")
		case '<':
			s.w.WriteString("&lt;")
		case '>':
			s.w.WriteString("&gt;")
		case '"':
			if attr {
				s.w.WriteString("&quot;")
			} else {
				s.w.WriteRune(r)
			}
		case '\n', '\t':
			if attr {
				fmt.Fprintf(s.w, "&#x%X;", r)
			} else {
				s.w.WriteRune(r)
			}
		default:
			if r >= 0x80 && s.ascii {
				fmt.Fprintf(s.w, "&#x%X;", r)
			} else {
				s.w.WriteRune(r)
			}
		}
	}
	return nil
}

func isUTF8Label(name string) bool {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

func isASCIILabel(name string) bool {
	switch strings.ToLower(name) {
	case "us-ascii", "ascii":
		return true
	}
	return false
}
