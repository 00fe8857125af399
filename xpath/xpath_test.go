package xpath

import (
	"errors"
	"math"
	"testing"

	xmlparser "github.com/chrisuehlinger/xmltree/parser"
	"github.com/chrisuehlinger/xmltree/tree"
)

const librarySrc = `<library>` +
	`<book year="2001" id="b1"><title>Go</title><price>30</price></book>` +
	`<book year="1999" id="b2"><title>XML</title><price>25.5</price></book>` +
	`<magazine id="m1"><title>Weekly</title></magazine>` +
	`</library>`

func library(t *testing.T) *tree.Element {
	t.Helper()
	doc, err := xmlparser.ParseString(librarySrc)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc.Root()
}

func queryNodes(t *testing.T, n tree.Node, src string) NodeSet {
	t.Helper()
	v, err := Query(n, src)
	if err != nil {
		t.Fatalf("Query(%q) error = %v", src, err)
	}
	set, ok := v.(NodeSet)
	if !ok {
		t.Fatalf("Query(%q) = %T, want NodeSet", src, v)
	}
	return set
}

func queryNumber(t *testing.T, n tree.Node, src string) float64 {
	t.Helper()
	v, err := Query(n, src)
	if err != nil {
		t.Fatalf("Query(%q) error = %v", src, err)
	}
	num, ok := v.(Number)
	if !ok {
		t.Fatalf("Query(%q) = %T, want Number", src, v)
	}
	return float64(num)
}

func queryBool(t *testing.T, n tree.Node, src string) bool {
	t.Helper()
	v, err := Query(n, src)
	if err != nil {
		t.Fatalf("Query(%q) error = %v", src, err)
	}
	b, ok := v.(Boolean)
	if !ok {
		t.Fatalf("Query(%q) = %T, want Boolean", src, v)
	}
	return bool(b)
}

func queryString(t *testing.T, n tree.Node, src string) string {
	t.Helper()
	v, err := Query(n, src)
	if err != nil {
		t.Fatalf("Query(%q) error = %v", src, err)
	}
	s, ok := v.(String)
	if !ok {
		t.Fatalf("Query(%q) = %T, want String", src, v)
	}
	return s.Value
}

func TestChildSteps(t *testing.T) {
	root := library(t)

	if set := queryNodes(t, root, "book"); len(set) != 2 {
		t.Errorf("book matched %d, want 2", len(set))
	}
	if set := queryNodes(t, root, "book/title"); len(set) != 2 {
		t.Errorf("book/title matched %d, want 2", len(set))
	}
	if set := queryNodes(t, root, "*"); len(set) != 3 {
		t.Errorf("* matched %d, want 3", len(set))
	}
	if set := queryNodes(t, root, "nothing"); len(set) != 0 {
		t.Errorf("nothing matched %d, want 0", len(set))
	}
}

func TestDescendantSteps(t *testing.T) {
	root := library(t)

	titles := queryNodes(t, root, "//title")
	if len(titles) != 3 {
		t.Fatalf("//title matched %d, want 3", len(titles))
	}
	// Document order.
	want := []string{"Go", "XML", "Weekly"}
	for i, n := range titles {
		if got := n.(*tree.Element).Text; got != want[i] {
			t.Errorf("title %d = %q, want %q", i, got, want[i])
		}
	}

	if set := queryNodes(t, root, "descendant::title"); len(set) != 3 {
		t.Errorf("descendant::title matched %d, want 3", len(set))
	}
}

func TestSelfAndParentSteps(t *testing.T) {
	root := library(t)
	title := queryNodes(t, root, "book/title")[0].(*tree.Element)

	self := queryNodes(t, title, ".")
	if len(self) != 1 || self[0] != tree.Node(title) {
		t.Errorf("self step = %v", self)
	}

	v, err := Query(title, "../@id")
	if err != nil {
		t.Fatalf("Query(../@id) error = %v", err)
	}
	ts, ok := v.(TextSet)
	if !ok || len(ts) != 1 || ts[0].Value != "b1" {
		t.Errorf("../@id = %#v, want [b1]", v)
	}
}

func TestAbsolutePath(t *testing.T) {
	root := library(t)
	title := queryNodes(t, root, "book/title")[0]

	// An absolute path evaluates from the tree root no matter the
	// context node.
	if set := queryNodes(t, title, "/library/book"); len(set) != 2 {
		t.Errorf("/library/book matched %d, want 2", len(set))
	}
}

func TestPredicates(t *testing.T) {
	root := library(t)

	set := queryNodes(t, root, "book[@year='1999']")
	if len(set) != 1 || set[0].(*tree.Element).AttrValue("id", "") != "b2" {
		t.Errorf("book[@year='1999'] = %v", set)
	}

	if set := queryNodes(t, root, "book[@year]"); len(set) != 2 {
		t.Errorf("book[@year] matched %d, want 2", len(set))
	}

	set = queryNodes(t, root, "book[price > 26]")
	if len(set) != 1 || set[0].(*tree.Element).AttrValue("id", "") != "b1" {
		t.Errorf("book[price > 26] = %v", set)
	}

	set = queryNodes(t, root, "book[title='XML']")
	if len(set) != 1 || set[0].(*tree.Element).AttrValue("id", "") != "b2" {
		t.Errorf("book[title='XML'] = %v", set)
	}
}

func TestPositionPredicates(t *testing.T) {
	root := library(t)

	first := queryNodes(t, root, "book[1]")
	if len(first) != 1 || first[0].(*tree.Element).AttrValue("id", "") != "b1" {
		t.Errorf("book[1] = %v", first)
	}

	last := queryNodes(t, root, "book[last()]")
	if len(last) != 1 || last[0].(*tree.Element).AttrValue("id", "") != "b2" {
		t.Errorf("book[last()] = %v", last)
	}

	second := queryNodes(t, root, "book[position()=2]")
	if len(second) != 1 || second[0].(*tree.Element).AttrValue("id", "") != "b2" {
		t.Errorf("book[position()=2] = %v", second)
	}
}

func TestTextSteps(t *testing.T) {
	root := library(t)

	v, err := Query(root, "book/title/text()")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	ts, ok := v.(TextSet)
	if !ok {
		t.Fatalf("result = %T, want TextSet", v)
	}
	if len(ts) != 2 || ts[0].Value != "Go" || ts[1].Value != "XML" {
		t.Fatalf("text() = %#v", ts)
	}

	// Selected text remembers its position in the tree.
	if ts[0].Origin == nil {
		t.Fatal("selected text has no origin")
	}
	if e, ok := ts[0].Origin.Node.(*tree.Element); !ok || e.Name.Local != "title" {
		t.Errorf("origin node = %#v", ts[0].Origin.Node)
	}
	if ts[0].Origin.InTail {
		t.Error("element text reported as tail")
	}
}

func TestTailOrigin(t *testing.T) {
	doc, err := xmlparser.ParseString("<p>lead<b>bold</b>trail</p>")
	if err != nil {
		t.Fatal(err)
	}

	v, err := Query(doc.Root(), "text()")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	ts := v.(TextSet)
	if len(ts) != 2 || ts[0].Value != "lead" || ts[1].Value != "trail" {
		t.Fatalf("text() = %#v", ts)
	}
	if ts[0].Origin.InTail {
		t.Error("leading text reported as tail")
	}
	if !ts[1].Origin.InTail {
		t.Error("trailing text not reported as tail")
	}
	if _, ok := ts[1].Origin.Node.(*tree.Element); !ok {
		t.Errorf("tail origin node = %#v", ts[1].Origin.Node)
	}
}

func TestAttributeSteps(t *testing.T) {
	root := library(t)

	v, err := Query(root, "book/@id")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	ts, ok := v.(TextSet)
	if !ok || len(ts) != 2 {
		t.Fatalf("book/@id = %#v", v)
	}
	if ts[0].Value != "b1" || ts[1].Value != "b2" {
		t.Errorf("values = %q, %q", ts[0].Value, ts[1].Value)
	}
	// Attribute values are computed strings without a tree position.
	if ts[0].Origin != nil {
		t.Error("attribute value carries an origin")
	}
}

func TestCoreFunctions(t *testing.T) {
	root := library(t)

	if got := queryNumber(t, root, "count(//book)"); got != 2 {
		t.Errorf("count(//book) = %v, want 2", got)
	}
	if got := queryNumber(t, root, "sum(book/price)"); got != 55.5 {
		t.Errorf("sum(book/price) = %v, want 55.5", got)
	}
	if got := queryString(t, root, "concat('a', 'b', 'c')"); got != "abc" {
		t.Errorf("concat = %q, want abc", got)
	}
	if got := queryString(t, root, "normalize-space('  a   b ')"); got != "a b" {
		t.Errorf("normalize-space = %q, want %q", got, "a b")
	}
	if got := queryNumber(t, root, "string-length('héllo')"); got != 5 {
		t.Errorf("string-length = %v, want 5", got)
	}
	if !queryBool(t, root, "starts-with('banana', 'ban')") {
		t.Error("starts-with = false, want true")
	}
	if !queryBool(t, root, "contains('banana', 'nan')") {
		t.Error("contains = false, want true")
	}
	if !queryBool(t, root, "not(false())") {
		t.Error("not(false()) = false, want true")
	}
	if got := queryString(t, root, "string(count(book))"); got != "2" {
		t.Errorf("string(count(book)) = %q, want 2", got)
	}
	if got := queryString(t, root, "name(book)"); got != "book" {
		t.Errorf("name(book) = %q, want book", got)
	}
}

func TestArithmetic(t *testing.T) {
	root := library(t)

	if got := queryNumber(t, root, "2 * 3 + 4 div 2 - 1"); got != 7 {
		t.Errorf("precedence result = %v, want 7", got)
	}
	if got := queryNumber(t, root, "10 mod 3"); got != 1 {
		t.Errorf("10 mod 3 = %v, want 1", got)
	}
	if got := queryNumber(t, root, "-count(book)"); got != -2 {
		t.Errorf("-count(book) = %v, want -2", got)
	}
	if got := queryNumber(t, root, "number('oops')"); !math.IsNaN(got) {
		t.Errorf("number('oops') = %v, want NaN", got)
	}
	if got := queryNumber(t, root, "1 div 0"); !math.IsInf(got, 1) {
		t.Errorf("1 div 0 = %v, want +Inf", got)
	}
}

func TestBooleanOperators(t *testing.T) {
	root := library(t)

	if !queryBool(t, root, "count(book)=2 and count(magazine)=1") {
		t.Error("and chain = false, want true")
	}
	if !queryBool(t, root, "false() or 1 < 2") {
		t.Error("or chain = false, want true")
	}
	// Comparison against a set is existential.
	if !queryBool(t, root, "book/@id='b2'") {
		t.Error("book/@id='b2' = false, want true")
	}
	if queryBool(t, root, "book/@id='zzz'") {
		t.Error("book/@id='zzz' = true, want false")
	}
	if !queryBool(t, root, "book/price > 26") {
		t.Error("book/price > 26 = false, want true")
	}
}

func TestUnion(t *testing.T) {
	root := library(t)

	set := queryNodes(t, root, "book | magazine")
	if len(set) != 3 {
		t.Fatalf("union matched %d, want 3", len(set))
	}
	// The two branches merge in document order without duplicates.
	if set2 := queryNodes(t, root, "book | book"); len(set2) != 2 {
		t.Errorf("self union matched %d, want 2", len(set2))
	}
}

func TestCommentAndPISelection(t *testing.T) {
	doc, err := xmlparser.ParseString("<r><!--note--><?style x?></r>")
	if err != nil {
		t.Fatal(err)
	}
	root := doc.Root()

	set := queryNodes(t, root, "comment()")
	if len(set) != 1 {
		t.Fatalf("comment() matched %d, want 1", len(set))
	}
	if c, ok := set[0].(*tree.Comment); !ok || c.Data != "note" {
		t.Errorf("comment() = %#v", set[0])
	}

	set = queryNodes(t, root, "processing-instruction('style')")
	if len(set) != 1 {
		t.Errorf("processing-instruction('style') matched %d, want 1", len(set))
	}
	if set := queryNodes(t, root, "processing-instruction('other')"); len(set) != 0 {
		t.Errorf("wrong PI target matched %d, want 0", len(set))
	}
}

func TestNamespacePrefixes(t *testing.T) {
	doc, err := xmlparser.ParseString(`<r xmlns:a="urn:x"><a:item/><item/></r>`)
	if err != nil {
		t.Fatal(err)
	}
	root := doc.Root()

	v, err := Query(root, "q:item", WithNamespaces(map[string]string{"q": "urn:x"}))
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	set := v.(NodeSet)
	if len(set) != 1 || set[0].(*tree.Element).Name.Space != "urn:x" {
		t.Errorf("q:item = %v", set)
	}

	// Prefixes come from the evaluation options, not the document.
	if _, err := Query(root, "a:item"); err == nil {
		t.Error("expected error for prefix with no binding")
	}
}

func TestExprReuse(t *testing.T) {
	root := library(t)
	e := MustCompile("count(book)")

	for i := 0; i < 3; i++ {
		v, err := e.Evaluate(root)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if v.(Number) != 2 {
			t.Errorf("Evaluate() = %v, want 2", v)
		}
	}
}

func TestQueryAll(t *testing.T) {
	root := library(t)

	books, err := QueryAll(root, "//book")
	if err != nil {
		t.Fatalf("QueryAll() error = %v", err)
	}
	if len(books) != 2 {
		t.Errorf("QueryAll(//book) = %d elements, want 2", len(books))
	}

	_, err = QueryAll(root, "count(book)")
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Errorf("QueryAll on a number = %v, want *QueryError", err)
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"book[",
		"2 +",
		"book/",
		"@",
		"fn(",
	} {
		if _, err := Compile(src); err == nil {
			t.Errorf("Compile(%q) succeeded, want error", src)
		}
	}
}

func TestEvalErrors(t *testing.T) {
	root := library(t)

	// A text step must end the path.
	_, err := Query(root, "book/text()/title")
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Errorf("text mid-path error = %v, want *QueryError", err)
	}

	// Unions cannot mix nodes with text.
	if _, err := Query(root, "book | book/title/text()"); err == nil {
		t.Error("mixed union succeeded, want error")
	}

	if _, err := Query(root, "frobnicate()"); err == nil {
		t.Error("unknown function succeeded, want error")
	}
}
