package tree

import (
	"strconv"
	"strings"
)

// A Path is a compiled ElementPath expression: a restricted, XPath-like
// language for selecting elements relative to a context element. The
// supported syntax is:
//
//	.               the current element
//	..              the parent of the current element
//	*               all child elements
//	tag             child elements with the given tag
//	{uri}tag        child elements with the given namespaced tag
//	{*}tag          child elements with the local name, any namespace
//	{uri}*          child elements in the namespace, any local name
//	//              all descendants of the current element
//	[@attr]         elements carrying the given attribute
//	[@attr='v']     elements carrying the attribute with value v
//	[tag]           elements with a child element named tag
//	[tag='v']       elements with a child element named tag and text v
//	[N]             the N'th matching element (1-based)
//
// Tag and attribute names may use the universal {uri}local form,
// including the {*}local and {uri}* wildcards. Value comparisons and
// function calls belong to the full expression language in package
// xpath, not to ElementPath.
type Path struct {
	source   string
	segments []segment
}

// CompilePath compiles an ElementPath expression.
func CompilePath(path string) (*Path, error) {
	segments, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	return &Path{source: path, segments: segments}, nil
}

// MustCompilePath compiles an ElementPath expression and panics if it is
// invalid. Use it for hard-coded paths.
func MustCompilePath(path string) *Path {
	p, err := CompilePath(path)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source text the path was compiled from.
func (p *Path) String() string { return p.source }

// Find returns the first element selected by the path, or nil if the
// path matches nothing. It returns an error only for an invalid path.
func (e *Element) Find(path string) (*Element, error) {
	p, err := CompilePath(path)
	if err != nil {
		return nil, err
	}
	return e.FindPath(p), nil
}

// FindAll returns all elements selected by the path in document order.
// A path that matches nothing yields an empty result, not an error.
func (e *Element) FindAll(path string) ([]*Element, error) {
	p, err := CompilePath(path)
	if err != nil {
		return nil, err
	}
	return e.FindAllPath(p), nil
}

// FindText returns the text of the first element selected by the path,
// or the empty string if the path matches nothing.
func (e *Element) FindText(path string) (string, error) {
	m, err := e.Find(path)
	if err != nil || m == nil {
		return "", err
	}
	return m.Text, nil
}

// FindPath returns the first element selected by the compiled path.
func (e *Element) FindPath(p *Path) *Element {
	results := newPather().traverse(e, p)
	if len(results) == 0 {
		return nil
	}
	return results[0]
}

// FindAllPath returns all elements selected by the compiled path.
func (e *Element) FindAllPath(p *Path) []*Element {
	return newPather().traverse(e, p)
}

// A segment is the portion of a path between '/' separators: one
// selector plus zero or more bracketed filters.
type segment struct {
	sel     selector
	filters []filter
}

func (seg *segment) apply(e *Element, p *pather) {
	seg.sel.apply(e, p)
	for _, f := range seg.filters {
		f.apply(p)
	}
}

// A selector feeds candidate elements to the pather.
type selector interface {
	apply(e *Element, p *pather)
}

// A filter pares down the pather's candidate list.
type filter interface {
	apply(p *pather)
}

// A pather traverses the tree with a compiled path, collecting matches
// and dropping duplicates while preserving document order.
type pather struct {
	queue      []pathNode
	results    []*Element
	inResults  map[*Element]bool
	candidates []*Element
	scratch    []*Element
}

type pathNode struct {
	e        *Element
	segments []segment
}

func newPather() *pather {
	return &pather{inResults: make(map[*Element]bool)}
}

func (p *pather) traverse(e *Element, path *Path) []*Element {
	p.queue = append(p.queue, pathNode{e, path.segments})
	for len(p.queue) > 0 {
		n := p.queue[0]
		p.queue = p.queue[1:]
		p.eval(n)
	}
	if p.results == nil {
		return []*Element{}
	}
	return p.results
}

func (p *pather) eval(n pathNode) {
	p.candidates = p.candidates[:0]
	seg, remain := n.segments[0], n.segments[1:]
	seg.apply(n.e, p)

	if len(remain) == 0 {
		for _, c := range p.candidates {
			if !p.inResults[c] {
				p.inResults[c] = true
				p.results = append(p.results, c)
			}
		}
		return
	}
	for _, c := range p.candidates {
		p.queue = append(p.queue, pathNode{c, remain})
	}
}

func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, errPath(path, "empty path")
	}
	// A leading or trailing // is shorthand for a descendant step from
	// the context element.
	full := path
	if strings.HasPrefix(path, "//") {
		path = "." + path
	}
	if strings.HasSuffix(path, "//") {
		path = path + "*"
	}
	if strings.HasPrefix(path, "/") {
		return nil, errPath(full, "absolute paths are not supported")
	}

	var segments []segment
	for _, s := range splitOutsideBraces(path, '/') {
		seg, err := parseSegment(full, s)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func parseSegment(full, s string) (segment, error) {
	pieces := splitOutsideBraces(s, '[')
	sel, err := parseSelector(full, pieces[0])
	if err != nil {
		return segment{}, err
	}
	seg := segment{sel: sel}
	for _, fpath := range pieces[1:] {
		if !strings.HasSuffix(fpath, "]") {
			return segment{}, errPath(full, "unterminated filter")
		}
		f, err := parseFilter(full, fpath[:len(fpath)-1])
		if err != nil {
			return segment{}, err
		}
		seg.filters = append(seg.filters, f)
	}
	return seg, nil
}

func parseSelector(full, s string) (selector, error) {
	switch s {
	case ".":
		return selectSelf{}, nil
	case "..":
		return selectParent{}, nil
	case "":
		return selectDescendants{}, nil
	default:
		return selectChildrenTag{ParsePattern(s)}, nil
	}
}

func parseFilter(full, s string) (filter, error) {
	if s == "" {
		return nil, errPath(full, "empty filter")
	}

	// [@attr='val'] or [tag='val']
	if key, val, ok := splitFilterValue(s); ok {
		if strings.HasPrefix(key, "@") {
			return filterAttrVal{ParsePattern(key[1:]), val}, nil
		}
		return filterChildText{ParsePattern(key), val}, nil
	}

	switch {
	case strings.HasPrefix(s, "@"):
		return filterAttr{ParsePattern(s[1:])}, nil
	case isInteger(s):
		pos, _ := strconv.Atoi(s)
		if pos == 0 {
			pos = 1
		}
		return filterPos{pos - 1}, nil
	default:
		return filterChild{ParsePattern(s)}, nil
	}
}

// splitFilterValue splits a filter of the form key='value' or
// key="value" into its parts.
func splitFilterValue(s string) (key, val string, ok bool) {
	for _, quote := range []string{"='", `="`} {
		i := strings.Index(s, quote)
		if i < 0 {
			continue
		}
		rest := s[i+2:]
		if len(rest) == 0 || rest[len(rest)-1] != quote[1] {
			continue
		}
		return s[:i], rest[:len(rest)-1], true
	}
	return "", "", false
}

// splitOutsideBraces splits s on sep, ignoring separators inside {...}
// namespace literals and quoted filter values.
func splitOutsideBraces(s string, sep byte) []string {
	var parts []string
	var depth int
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func isInteger(s string) bool {
	for i := 0; i < len(s); i++ {
		if (s[i] < '0' || s[i] > '9') && !(i == 0 && (s[i] == '+' || s[i] == '-')) {
			return false
		}
	}
	return len(s) > 0 && s != "+" && s != "-"
}

// selectSelf selects the current element.
type selectSelf struct{}

func (selectSelf) apply(e *Element, p *pather) {
	p.candidates = append(p.candidates, e)
}

// selectParent selects the current element's parent.
type selectParent struct{}

func (selectParent) apply(e *Element, p *pather) {
	if e.parent != nil {
		p.candidates = append(p.candidates, e.parent)
	}
}

// selectDescendants selects the element and every descendant element,
// in document order.
type selectDescendants struct{}

func (selectDescendants) apply(e *Element, p *pather) {
	var walk func(*Element)
	walk = func(cur *Element) {
		p.candidates = append(p.candidates, cur)
		for _, c := range cur.children {
			if ce, ok := c.(*Element); ok {
				walk(ce)
			}
		}
	}
	walk(e)
}

// selectChildrenTag selects child elements matching a tag pattern.
// The pattern "*" matches every element child but never comments,
// processing instructions or entities.
type selectChildrenTag struct {
	pat Pattern
}

func (s selectChildrenTag) apply(e *Element, p *pather) {
	for _, c := range e.children {
		if ce, ok := c.(*Element); ok && s.pat.Matches(ce.Name) {
			p.candidates = append(p.candidates, ce)
		}
	}
}

// filterPos keeps only the candidate at the given index. Negative
// indexes count from the end.
type filterPos struct {
	index int
}

func (f filterPos) apply(p *pather) {
	p.scratch = p.scratch[:0]
	i := f.index
	if i < 0 {
		i += len(p.candidates)
	}
	if i >= 0 && i < len(p.candidates) {
		p.scratch = append(p.scratch, p.candidates[i])
	}
	p.candidates, p.scratch = p.scratch, p.candidates
}

// filterAttr keeps candidates carrying an attribute matching the
// pattern. A namespaced attribute test requires an exact URI and local
// match unless a wildcard is used.
type filterAttr struct {
	pat Pattern
}

func (f filterAttr) apply(p *pather) {
	p.scratch = p.scratch[:0]
	for _, c := range p.candidates {
		for _, a := range c.attrs {
			if f.pat.Matches(a.Name) {
				p.scratch = append(p.scratch, c)
				break
			}
		}
	}
	p.candidates, p.scratch = p.scratch, p.candidates
}

// filterAttrVal keeps candidates whose matching attribute has the given
// value.
type filterAttrVal struct {
	pat Pattern
	val string
}

func (f filterAttrVal) apply(p *pather) {
	p.scratch = p.scratch[:0]
	for _, c := range p.candidates {
		for _, a := range c.attrs {
			if f.pat.Matches(a.Name) && a.Value == f.val {
				p.scratch = append(p.scratch, c)
				break
			}
		}
	}
	p.candidates, p.scratch = p.scratch, p.candidates
}

// filterChild keeps candidates with a child element matching the
// pattern.
type filterChild struct {
	pat Pattern
}

func (f filterChild) apply(p *pather) {
	p.scratch = p.scratch[:0]
	for _, c := range p.candidates {
		for _, cc := range c.children {
			if ce, ok := cc.(*Element); ok && f.pat.Matches(ce.Name) {
				p.scratch = append(p.scratch, c)
				break
			}
		}
	}
	p.candidates, p.scratch = p.scratch, p.candidates
}

// filterChildText keeps candidates with a child element matching the
// pattern whose text equals the given value.
type filterChildText struct {
	pat  Pattern
	text string
}

func (f filterChildText) apply(p *pather) {
	p.scratch = p.scratch[:0]
	for _, c := range p.candidates {
		for _, cc := range c.children {
			if ce, ok := cc.(*Element); ok && f.pat.Matches(ce.Name) && ce.Text == f.text {
				p.scratch = append(p.scratch, c)
				break
			}
		}
	}
	p.candidates, p.scratch = p.scratch, p.candidates
}
