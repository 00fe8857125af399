package tree

import (
	"errors"
	"testing"
)

// catalogTree builds a small document used by the path tests:
//
//	<catalog>
//	  <book id="1"><title>A</title><author>X</author></book>
//	  <book id="2"><title>B</title><author>Y</author></book>
//	  <magazine><title>M</title></magazine>
//	  <section><book id="3"><title>C</title></book></section>
//	</catalog>
func catalogTree() *Element {
	catalog := NewElement("catalog")
	for i, title := range []string{"A", "B"} {
		book := SubElement(catalog, "book")
		book.SetAttr("id", string(rune('1'+i)))
		SubElement(book, "title").Text = title
		SubElement(book, "author").Text = map[string]string{"A": "X", "B": "Y"}[title]
	}
	mag := SubElement(catalog, "magazine")
	SubElement(mag, "title").Text = "M"
	section := SubElement(catalog, "section")
	book := SubElement(section, "book")
	book.SetAttr("id", "3")
	SubElement(book, "title").Text = "C"
	return catalog
}

func TestFindAllChildren(t *testing.T) {
	catalog := catalogTree()

	books, err := catalog.FindAll("book")
	if err != nil {
		t.Fatalf("FindAll(book) error = %v", err)
	}
	if len(books) != 2 {
		t.Errorf("FindAll(book) matched %d, want 2", len(books))
	}

	all, err := catalog.FindAll("*")
	if err != nil {
		t.Fatalf("FindAll(*) error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("FindAll(*) matched %d, want 4", len(all))
	}
}

func TestFindDescendants(t *testing.T) {
	catalog := catalogTree()

	books, err := catalog.FindAll(".//book")
	if err != nil {
		t.Fatalf("FindAll(.//book) error = %v", err)
	}
	if len(books) != 3 {
		t.Errorf("FindAll(.//book) matched %d, want 3", len(books))
	}

	// A leading // is the same descendant shorthand.
	titles, err := catalog.FindAll("//title")
	if err != nil {
		t.Fatalf("FindAll(//title) error = %v", err)
	}
	if len(titles) != 4 {
		t.Errorf("FindAll(//title) matched %d, want 4", len(titles))
	}
}

func TestFindText(t *testing.T) {
	catalog := catalogTree()

	got, err := catalog.FindText("book/title")
	if err != nil {
		t.Fatalf("FindText() error = %v", err)
	}
	if got != "A" {
		t.Errorf("FindText(book/title) = %q, want %q", got, "A")
	}

	got, err = catalog.FindText("missing/title")
	if err != nil || got != "" {
		t.Errorf("FindText on no match = %q, %v, want empty and nil", got, err)
	}
}

func TestFindAttributeFilters(t *testing.T) {
	catalog := catalogTree()

	b, err := catalog.Find("book[@id='2']")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if b == nil || b.AttrValue("id", "") != "2" {
		t.Errorf("Find(book[@id='2']) = %v", b)
	}

	withID, err := catalog.FindAll(".//book[@id]")
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(withID) != 3 {
		t.Errorf("FindAll(.//book[@id]) matched %d, want 3", len(withID))
	}

	none, err := catalog.FindAll("book[@missing]")
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("FindAll(book[@missing]) matched %d, want 0", len(none))
	}
}

func TestFindChildFilters(t *testing.T) {
	catalog := catalogTree()

	b, err := catalog.Find("book[title='B']")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if b == nil || b.AttrValue("id", "") != "2" {
		t.Errorf("Find(book[title='B']) selected the wrong element")
	}

	withAuthor, err := catalog.FindAll("*[author]")
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(withAuthor) != 2 {
		t.Errorf("FindAll(*[author]) matched %d, want 2", len(withAuthor))
	}
}

func TestFindPositionFilters(t *testing.T) {
	catalog := catalogTree()

	b, err := catalog.Find("book[2]")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if b == nil || b.AttrValue("id", "") != "2" {
		t.Error("Find(book[2]) did not select the second book")
	}

	// Negative positions count from the end.
	last, err := catalog.Find("book[-1]")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if last == nil || last.AttrValue("id", "") != "2" {
		t.Error("Find(book[-1]) did not select the last book")
	}

	if out, _ := catalog.FindAll("book[5]"); len(out) != 0 {
		t.Error("out-of-range position should match nothing")
	}
}

func TestFindSelfAndParent(t *testing.T) {
	catalog := catalogTree()
	section, _ := catalog.Find("section")

	self, err := section.Find(".")
	if err != nil || self != section {
		t.Errorf("Find(.) = %v, %v", self, err)
	}

	parent, err := section.Find("..")
	if err != nil || parent != catalog {
		t.Errorf("Find(..) = %v, %v", parent, err)
	}
}

func TestFindNamespaced(t *testing.T) {
	root := NewElement("root")
	SubElement(root, "{urn:x}item")
	SubElement(root, "{urn:y}item")
	SubElement(root, "item")

	for path, want := range map[string]int{
		"{urn:x}item": 1,
		"{*}item":     3,
		"{urn:x}*":    1,
		"item":        1,
	} {
		got, err := root.FindAll(path)
		if err != nil {
			t.Fatalf("FindAll(%q) error = %v", path, err)
		}
		if len(got) != want {
			t.Errorf("FindAll(%q) matched %d, want %d", path, len(got), want)
		}
	}
}

func TestFindNoDuplicates(t *testing.T) {
	catalog := catalogTree()

	// Both the direct child step and the descendant step reach the same
	// section book; it must appear once.
	got, err := catalog.FindAll(".//section//book")
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("matched %d, want 1", len(got))
	}
}

func TestCompilePathErrors(t *testing.T) {
	for _, path := range []string{
		"",
		"/absolute",
		"book[",
		"book[]",
	} {
		_, err := CompilePath(path)
		if err == nil {
			t.Errorf("CompilePath(%q) succeeded, want error", path)
			continue
		}
		var pe *PathError
		if !errors.As(err, &pe) {
			t.Errorf("CompilePath(%q) error type = %T, want *PathError", path, err)
		}
	}
}

func TestMustCompilePathPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompilePath did not panic on an invalid path")
		}
	}()
	MustCompilePath("/absolute")
}
