package xpath

import (
	"math"

	"github.com/chrisuehlinger/xmltree/tree"
)

// context carries the evaluation state for one context node.
type context struct {
	node tree.Node
	pos  int // 1-based proximity position
	size int
	ns   map[string]string
	src  string // query source, for error reporting
}

func (c *context) at(n tree.Node, pos, size int) *context {
	return &context{node: n, pos: pos, size: size, ns: c.ns, src: c.src}
}

type expr interface {
	eval(c *context) (Value, error)
}

type orExpr struct{ left, right expr }

func (e *orExpr) eval(c *context) (Value, error) {
	l, err := e.left.eval(c)
	if err != nil {
		return nil, err
	}
	if toBoolean(l) {
		return Boolean(true), nil
	}
	r, err := e.right.eval(c)
	if err != nil {
		return nil, err
	}
	return Boolean(toBoolean(r)), nil
}

type andExpr struct{ left, right expr }

func (e *andExpr) eval(c *context) (Value, error) {
	l, err := e.left.eval(c)
	if err != nil {
		return nil, err
	}
	if !toBoolean(l) {
		return Boolean(false), nil
	}
	r, err := e.right.eval(c)
	if err != nil {
		return nil, err
	}
	return Boolean(toBoolean(r)), nil
}

type compareOp int

const (
	opEq compareOp = iota
	opNeq
	opLt
	opLte
	opGt
	opGte
)

type compareExpr struct {
	op          compareOp
	left, right expr
}

func (e *compareExpr) eval(c *context) (Value, error) {
	l, err := e.left.eval(c)
	if err != nil {
		return nil, err
	}
	r, err := e.right.eval(c)
	if err != nil {
		return nil, err
	}
	return Boolean(compareValues(e.op, l, r)), nil
}

// setStrings expands a set value to the string-values of its members,
// or returns ok=false for scalars.
func setStrings(v Value) ([]string, bool) {
	switch v := v.(type) {
	case NodeSet:
		out := make([]string, len(v))
		for i, n := range v {
			out[i] = stringValue(n)
		}
		return out, true
	case TextSet:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = s.Value
		}
		return out, true
	}
	return nil, false
}

// compareValues implements the XPath comparison rules: comparisons
// against a set hold if they hold for any member.
func compareValues(op compareOp, l, r Value) bool {
	ls, lSet := setStrings(l)
	rs, rSet := setStrings(r)
	switch {
	case lSet && rSet:
		for _, a := range ls {
			for _, b := range rs {
				if compareScalars(op, String{Value: a}, String{Value: b}) {
					return true
				}
			}
		}
		return false
	case lSet:
		for _, a := range ls {
			if compareScalars(op, String{Value: a}, r) {
				return true
			}
		}
		return false
	case rSet:
		for _, b := range rs {
			if compareScalars(op, l, String{Value: b}) {
				return true
			}
		}
		return false
	}
	return compareScalars(op, l, r)
}

func compareScalars(op compareOp, l, r Value) bool {
	switch op {
	case opLt, opLte, opGt, opGte:
		a, b := toNumber(l), toNumber(r)
		switch op {
		case opLt:
			return a < b
		case opLte:
			return a <= b
		case opGt:
			return a > b
		default:
			return a >= b
		}
	}
	var equal bool
	if _, ok := l.(Boolean); ok {
		equal = toBoolean(l) == toBoolean(r)
	} else if _, ok := r.(Boolean); ok {
		equal = toBoolean(l) == toBoolean(r)
	} else if _, ok := l.(Number); ok {
		equal = toNumber(l) == toNumber(r)
	} else if _, ok := r.(Number); ok {
		equal = toNumber(l) == toNumber(r)
	} else {
		equal = toString(l) == toString(r)
	}
	if op == opNeq {
		return !equal
	}
	return equal
}

type arithOp int

const (
	opAdd arithOp = iota
	opSub
	opMul
	opDiv
	opMod
)

type arithExpr struct {
	op          arithOp
	left, right expr
}

func (e *arithExpr) eval(c *context) (Value, error) {
	l, err := e.left.eval(c)
	if err != nil {
		return nil, err
	}
	r, err := e.right.eval(c)
	if err != nil {
		return nil, err
	}
	a, b := toNumber(l), toNumber(r)
	switch e.op {
	case opAdd:
		return Number(a + b), nil
	case opSub:
		return Number(a - b), nil
	case opMul:
		return Number(a * b), nil
	case opDiv:
		return Number(a / b), nil
	default:
		return Number(math.Mod(a, b)), nil
	}
}

type negExpr struct{ operand expr }

func (e *negExpr) eval(c *context) (Value, error) {
	v, err := e.operand.eval(c)
	if err != nil {
		return nil, err
	}
	return Number(-toNumber(v)), nil
}

type unionExpr struct{ terms []expr }

func (e *unionExpr) eval(c *context) (Value, error) {
	var nodes NodeSet
	var texts TextSet
	sawNodes, sawTexts := false, false
	for _, term := range e.terms {
		v, err := term.eval(c)
		if err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case NodeSet:
			sawNodes = true
			for _, n := range v {
				nodes = nodes.add(n)
			}
		case TextSet:
			sawTexts = true
			texts = append(texts, v...)
		default:
			return nil, queryErrf(c.src, "union operand is not a set")
		}
	}
	if sawNodes && sawTexts {
		return nil, queryErrf(c.src, "union mixes nodes and text")
	}
	if sawTexts {
		return texts, nil
	}
	return nodes, nil
}

type numberLit float64

func (e numberLit) eval(*context) (Value, error) { return Number(e), nil }

type stringLit string

func (e stringLit) eval(*context) (Value, error) { return String{Value: string(e)}, nil }

// A locationPath selects from the context node, or from the root when
// absolute.
type locationPath struct {
	abs   bool
	steps []step
}

func (e *locationPath) eval(c *context) (Value, error) {
	if !e.abs {
		return evalSteps(c, NodeSet{c.node}, e.steps)
	}
	root := tree.Root(c.node)
	if root == nil {
		return NodeSet{}, nil
	}
	// The first child step of an absolute path names the document
	// element itself, as if stepping down from the document.
	if len(e.steps) > 0 && e.steps[0].axis == axisChild && !e.steps[0].textual() {
		st := &e.steps[0]
		pat, err := st.test.compile(c)
		if err != nil {
			return nil, err
		}
		selected := NodeSet{}
		if matchTest(&st.test, pat, root) {
			selected = NodeSet{root}
		}
		for _, pred := range st.preds {
			selected, err = filterNodes(c, selected, pred)
			if err != nil {
				return nil, err
			}
		}
		return evalSteps(c, selected, e.steps[1:])
	}
	return evalSteps(c, NodeSet{root}, e.steps)
}

// A filteredPath applies predicates to a primary expression and
// optionally continues with location steps.
type filteredPath struct {
	base  expr
	preds []expr
	steps []step
}

func (e *filteredPath) eval(c *context) (Value, error) {
	v, err := e.base.eval(c)
	if err != nil {
		return nil, err
	}
	if len(e.preds) == 0 && len(e.steps) == 0 {
		return v, nil
	}
	set, ok := v.(NodeSet)
	if !ok {
		return nil, queryErrf(c.src, "predicates and steps require a node set")
	}
	for _, pred := range e.preds {
		set, err = filterNodes(c, set, pred)
		if err != nil {
			return nil, err
		}
	}
	return evalSteps(c, set, e.steps)
}

type axis int

const (
	axisChild axis = iota
	axisDescendant
	axisDescendantOrSelf
	axisSelf
	axisParent
	axisAttribute
)

type step struct {
	axis  axis
	test  nodeTest
	preds []expr
}

// A nodeTest classifies what a step selects. Name and wildcard tests
// select elements (or attributes on the attribute axis); text, comment,
// processing-instruction and node tests select by kind.
type nodeTest struct {
	kind testKind
	name string // raw name test or PI target
}

type testKind int

const (
	testName testKind = iota
	testNode
	testText
	testComment
	testProcInst
)

// textual reports whether the step produces strings rather than nodes.
func (s *step) textual() bool {
	return s.test.kind == testText || s.axis == axisAttribute
}

func evalSteps(c *context, start NodeSet, steps []step) (Value, error) {
	cur := start
	for i := range steps {
		st := &steps[i]
		if st.textual() {
			if i != len(steps)-1 {
				return nil, queryErrf(c.src, "text selection must be the final step")
			}
			return evalTextStep(c, cur, st)
		}
		var next NodeSet
		for _, ctx := range cur {
			selected, err := selectNodes(c, ctx, st)
			if err != nil {
				return nil, err
			}
			for _, pred := range st.preds {
				selected, err = filterNodes(c, selected, pred)
				if err != nil {
					return nil, err
				}
			}
			for _, n := range selected {
				next = next.add(n)
			}
		}
		cur = next
	}
	if cur == nil {
		cur = NodeSet{}
	}
	return cur, nil
}

// selectNodes applies a single non-textual step to one context node.
func selectNodes(c *context, n tree.Node, st *step) (NodeSet, error) {
	pat, err := st.test.compile(c)
	if err != nil {
		return nil, err
	}
	var out NodeSet
	keep := func(cand tree.Node) {
		if matchTest(&st.test, pat, cand) {
			out = append(out, cand)
		}
	}
	switch st.axis {
	case axisSelf:
		keep(n)
	case axisParent:
		if p := n.Parent(); p != nil {
			keep(p)
		}
	case axisChild:
		if e, ok := n.(*tree.Element); ok {
			for _, child := range e.Children() {
				keep(child)
			}
		}
	case axisDescendant, axisDescendantOrSelf:
		if e, ok := n.(*tree.Element); ok {
			first := true
			for d := range e.Iter() {
				if first && st.axis == axisDescendant {
					first = false
					continue
				}
				first = false
				keep(d)
			}
		} else if st.axis == axisDescendantOrSelf {
			keep(n)
		}
	}
	return out, nil
}

// compile resolves a name test into a tree pattern, mapping prefixes
// through the evaluation namespace bindings.
func (t *nodeTest) compile(c *context) (tree.Pattern, error) {
	if t.kind != testName {
		return tree.Pattern{}, nil
	}
	name := t.name
	if i := indexPrefix(name); i >= 0 {
		prefix := name[:i]
		uri, ok := c.ns[prefix]
		if !ok {
			return tree.Pattern{}, queryErrf(c.src, "undeclared query prefix %q", prefix)
		}
		name = "{" + uri + "}" + name[i+1:]
	}
	return tree.ParsePattern(name), nil
}

// indexPrefix finds the prefix colon in a raw name test, ignoring
// universal {uri}name forms.
func indexPrefix(name string) int {
	if len(name) > 0 && name[0] == '{' {
		return -1
	}
	for i := 0; i < len(name); i++ {
		if name[i] == ':' {
			return i
		}
	}
	return -1
}

func matchTest(t *nodeTest, pat tree.Pattern, n tree.Node) bool {
	switch t.kind {
	case testNode:
		return true
	case testComment:
		return n.Kind() == tree.CommentKind
	case testProcInst:
		pi, ok := n.(*tree.ProcInst)
		if !ok {
			return false
		}
		return t.name == "" || pi.Target == t.name
	case testName:
		e, ok := n.(*tree.Element)
		if !ok {
			return false
		}
		return pat.Matches(e.Name)
	}
	return false
}

// evalTextStep handles the string-producing steps: text() children and
// attribute selection.
func evalTextStep(c *context, cur NodeSet, st *step) (Value, error) {
	out := TextSet{}
	if st.axis == axisAttribute {
		pat, err := st.test.compile(c)
		if err != nil {
			return nil, err
		}
		for _, n := range cur {
			e, ok := n.(*tree.Element)
			if !ok {
				continue
			}
			for _, a := range e.Attrs() {
				if pat.Matches(a.Name) {
					out = append(out, String{Value: a.Value})
				}
			}
		}
		return filterTexts(c, cur, out, st.preds)
	}
	for _, n := range cur {
		e, ok := n.(*tree.Element)
		if !ok {
			continue
		}
		if e.Text != "" {
			out = append(out, String{Value: e.Text, Origin: &Origin{Node: e}})
		}
		for _, child := range e.Children() {
			if tail := child.Tail(); tail != "" {
				out = append(out, String{Value: tail, Origin: &Origin{Node: child, InTail: true}})
			}
		}
	}
	return filterTexts(c, cur, out, st.preds)
}

// filterTexts applies predicates to a text result. Only positional
// predicates are meaningful here; other predicates are evaluated with
// the enclosing context node.
func filterTexts(c *context, cur NodeSet, texts TextSet, preds []expr) (Value, error) {
	for _, pred := range preds {
		kept := TextSet{}
		size := len(texts)
		for i, s := range texts {
			node := c.node
			if len(cur) > 0 {
				node = cur[0]
			}
			v, err := pred.eval(c.at(node, i+1, size))
			if err != nil {
				return nil, err
			}
			if num, ok := v.(Number); ok {
				if int(num) == i+1 {
					kept = append(kept, s)
				}
				continue
			}
			if toBoolean(v) {
				kept = append(kept, s)
			}
		}
		texts = kept
	}
	return texts, nil
}

// filterNodes applies one predicate over a node list, giving each node
// its proximity position.
func filterNodes(c *context, nodes NodeSet, pred expr) (NodeSet, error) {
	kept := NodeSet{}
	size := len(nodes)
	for i, n := range nodes {
		v, err := pred.eval(c.at(n, i+1, size))
		if err != nil {
			return nil, err
		}
		if num, ok := v.(Number); ok {
			if int(num) == i+1 {
				kept = append(kept, n)
			}
			continue
		}
		if toBoolean(v) {
			kept = append(kept, n)
		}
	}
	return kept, nil
}
