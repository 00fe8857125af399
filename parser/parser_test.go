package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrisuehlinger/xmltree/tree"
)

func parseRoot(t *testing.T, src string, opts ...Option) *tree.Element {
	t.Helper()
	doc, err := ParseString(src, opts...)
	if err != nil {
		t.Fatalf("ParseString(%q) error = %v", src, err)
	}
	return doc.Root()
}

func TestParseSimple(t *testing.T) {
	root := parseRoot(t, `<root a="1"><child>hi</child>tail</root>`)

	if root.Name.Local != "root" {
		t.Errorf("root name = %q, want root", root.Name.Local)
	}
	if v, _ := root.Attr("a"); v != "1" {
		t.Errorf("attr a = %q, want 1", v)
	}
	child := root.ChildElements()[0]
	if child.Text != "hi" {
		t.Errorf("child text = %q, want hi", child.Text)
	}
	if child.Tail() != "tail" {
		t.Errorf("child tail = %q, want tail", child.Tail())
	}
}

func TestParseCharacterReferences(t *testing.T) {
	root := parseRoot(t, `<e>a&amp;b&#65;&#x42;</e>`)
	if root.Text != "a&bAB" {
		t.Errorf("text = %q, want %q", root.Text, "a&bAB")
	}
}

func TestParseUnknownEntityBecomesNode(t *testing.T) {
	root := parseRoot(t, `<e>x&foo;y</e>`)

	if root.Text != "x" {
		t.Errorf("text = %q, want x", root.Text)
	}
	if root.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", root.Len())
	}
	ent, ok := root.Child(0).(*tree.Entity)
	if !ok {
		t.Fatalf("child is %T, want *tree.Entity", root.Child(0))
	}
	if ent.Name != "foo" {
		t.Errorf("entity name = %q, want foo", ent.Name)
	}
	if ent.Tail() != "y" {
		t.Errorf("entity tail = %q, want y", ent.Tail())
	}
}

func TestParseCDATA(t *testing.T) {
	root := parseRoot(t, `<e>a<![CDATA[<not>&markup;]]>b</e>`)
	if root.Text != "a<not>&markup;b" {
		t.Errorf("text = %q, want %q", root.Text, "a<not>&markup;b")
	}
}

func TestParseCommentsAndProcInsts(t *testing.T) {
	doc, err := ParseString("<?pi data?><!--pre--><root><!--in--></root><!--post-->")
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	prolog := doc.Prolog()
	if len(prolog) != 2 {
		t.Fatalf("prolog length = %d, want 2", len(prolog))
	}
	if pi, ok := prolog[0].(*tree.ProcInst); !ok || pi.Target != "pi" || pi.Data != "data" {
		t.Errorf("prolog[0] = %#v", prolog[0])
	}
	if c, ok := prolog[1].(*tree.Comment); !ok || c.Data != "pre" {
		t.Errorf("prolog[1] = %#v", prolog[1])
	}

	root := doc.Root()
	if c, ok := root.Child(0).(*tree.Comment); !ok || c.Data != "in" {
		t.Errorf("in-element comment = %#v", root.Child(0))
	}

	epilog := doc.Epilog()
	if len(epilog) != 1 {
		t.Fatalf("epilog length = %d, want 1", len(epilog))
	}
}

func TestParseDoctypeRoundTrip(t *testing.T) {
	src := "<!DOCTYPE catalog [<!ENTITY co \"Example\">]>\n<catalog/>"
	doc, err := ParseString(src)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if doc.Doctype != `<!DOCTYPE catalog [<!ENTITY co "Example">]>` {
		t.Errorf("Doctype = %q", doc.Doctype)
	}

	out, err := tree.ToString(doc, tree.WriteOptions{})
	if err != nil {
		t.Fatalf("ToString() error = %v", err)
	}
	if out != src {
		t.Errorf("round trip = %q, want %q", out, src)
	}
}

func TestParseDeclarationRecordsEncoding(t *testing.T) {
	doc, err := ParseString(`<?xml version="1.0" encoding="ISO-8859-1"?><e/>`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if doc.Encoding != "ISO-8859-1" {
		t.Errorf("Encoding = %q, want ISO-8859-1", doc.Encoding)
	}
	if len(doc.Prolog()) != 0 {
		t.Error("XML declaration must not become a prolog node")
	}
}

func TestParseNamespaces(t *testing.T) {
	root := parseRoot(t, `<p:root xmlns:p="urn:x" p:a="v" b="w"><p:child/></p:root>`)

	if root.Name.Space != "urn:x" || root.Name.Local != "root" {
		t.Errorf("root name = %v", root.Name)
	}
	if v, _ := root.Attr("{urn:x}a"); v != "v" {
		t.Errorf("namespaced attr = %q, want v", v)
	}
	// Unprefixed attributes stay in no namespace.
	if v, _ := root.Attr("b"); v != "w" {
		t.Errorf("plain attr = %q, want w", v)
	}
	child := root.ChildElements()[0]
	if child.Name.Space != "urn:x" {
		t.Errorf("child namespace = %q, want urn:x", child.Name.Space)
	}
}

func TestParseDefaultNamespace(t *testing.T) {
	root := parseRoot(t, `<root xmlns="urn:d"><child/></root>`)

	if root.Name.Space != "urn:d" {
		t.Errorf("root namespace = %q, want urn:d", root.Name.Space)
	}
	if child := root.ChildElements()[0]; child.Name.Space != "urn:d" {
		t.Errorf("child namespace = %q, want urn:d", child.Name.Space)
	}
}

func TestParseUndeclaredPrefix(t *testing.T) {
	_, err := ParseString(`<p:e/>`)
	var ne *NamespaceError
	if !errors.As(err, &ne) {
		t.Fatalf("error = %v, want *NamespaceError", err)
	}
	if ne.Prefix != "p" {
		t.Errorf("Prefix = %q, want p", ne.Prefix)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty input", ""},
		{"junk after root", "<a/><b/>"},
		{"text outside root", "<a/>text"},
		{"unclosed element", "<a><b></b>"},
		{"unquoted attribute", "<a b=c/>"},
		{"bad reference", "<a>&#xZZ;</a>"},
		{"misplaced doctype", "<a/><!DOCTYPE a>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.src)
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *SyntaxError", err)
			}
		})
	}
}

func TestParseMismatchedTagPosition(t *testing.T) {
	_, err := ParseString("<root>\n<a></b></root>")
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *SyntaxError", err)
	}
	if se.Line != 2 || se.Column != 4 {
		t.Errorf("position = %d:%d, want 2:4", se.Line, se.Column)
	}
}

func TestParseUTF16BOM(t *testing.T) {
	src := `<e a="1">x</e>`
	data := []byte{0xFF, 0xFE}
	for _, b := range []byte(src) {
		data = append(data, b, 0x00)
	}

	doc, err := ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if doc.Root().Text != "x" {
		t.Errorf("text = %q, want x", doc.Root().Text)
	}
}

func TestParseDeclaredLegacyEncoding(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="iso-8859-1"?><e>caf`)
	data = append(data, 0xE9)
	data = append(data, []byte(`</e>`)...)

	doc, err := ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if doc.Root().Text != "café" {
		t.Errorf("text = %q, want café", doc.Root().Text)
	}
}

func TestParseEncodingOverride(t *testing.T) {
	data := []byte("<e>caf")
	data = append(data, 0xE9)
	data = append(data, []byte("</e>")...)

	doc, err := ParseBytes(data, WithEncoding("iso-8859-1"))
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if doc.Root().Text != "café" {
		t.Errorf("text = %q, want café", doc.Root().Text)
	}
}

func TestParseInvalidUTF8(t *testing.T) {
	_, err := ParseBytes([]byte("<e>\xff</e>"))
	if err == nil {
		t.Error("expected error for invalid UTF-8 input")
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.xml")
	if err := os.WriteFile(path, []byte("<root><a/></root>"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if doc.Root().Name.Local != "root" {
		t.Errorf("root = %q, want root", doc.Root().Name.Local)
	}
}

func TestParseURL(t *testing.T) {
	body := []byte("<e>caf")
	body = append(body, 0xE9)
	body = append(body, []byte("</e>")...)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml; charset=iso-8859-1")
		w.Write(body)
	}))
	defer server.Close()

	doc, err := ParseURL(context.Background(), server.URL+"/doc.xml")
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}
	if doc.Root().Text != "café" {
		t.Errorf("text = %q, want café", doc.Root().Text)
	}
}

// recordingTarget logs every event it receives.
type recordingTarget struct {
	calls  []string
	closed bool
}

func (r *recordingTarget) Start(tag string, attrs []tree.Attr) error {
	s := "start " + tag
	for _, a := range attrs {
		s += " " + a.Name.String() + "=" + a.Value
	}
	r.calls = append(r.calls, s)
	return nil
}

func (r *recordingTarget) End(tag string) error {
	r.calls = append(r.calls, "end "+tag)
	return nil
}

func (r *recordingTarget) Text(data string) error {
	r.calls = append(r.calls, "text "+data)
	return nil
}

func (r *recordingTarget) Comment(data string) error {
	r.calls = append(r.calls, "comment "+data)
	return nil
}

func (r *recordingTarget) ProcInst(target, data string) error {
	r.calls = append(r.calls, "pi "+target)
	return nil
}

func (r *recordingTarget) Close() error {
	r.closed = true
	return nil
}

func TestParseWithTarget(t *testing.T) {
	rec := &recordingTarget{}
	p := NewParser(WithTarget(rec))
	if err := p.Feed([]byte(`<r xmlns="urn:x" a="1">hi&foo;<c/></r>`)); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	doc, err := p.Close()
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if doc != nil {
		t.Error("target mode should not return a document")
	}
	if !rec.closed {
		t.Error("target Close was not called")
	}

	want := []string{
		"start {urn:x}r a=1",
		"text hi",
		"text &foo;",
		"start {urn:x}c",
		"end {urn:x}c",
		"end {urn:x}r",
	}
	if len(rec.calls) != len(want) {
		t.Fatalf("calls = %q, want %q", rec.calls, want)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Fatalf("calls = %q, want %q", rec.calls, want)
		}
	}
}

type failingTarget struct {
	NopTarget
}

var errTargetStop = errors.New("stop")

func (failingTarget) Start(string, []tree.Attr) error { return errTargetStop }

func TestTargetErrorAbortsParse(t *testing.T) {
	p := NewParser(WithTarget(failingTarget{}))
	err := p.Feed([]byte("<r/>"))
	if !errors.Is(err, errTargetStop) {
		t.Errorf("error = %v, want errTargetStop", err)
	}
}
