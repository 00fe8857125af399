// Package xpath evaluates path query expressions against element
// trees. The language is an XPath 1.0 subset: location paths over the
// child, descendant, self, parent and attribute axes, predicates with
// positions, the boolean, numeric and string operators at their usual
// precedence, unions, and a fixed set of core functions.
//
// Results are typed: node sets in document order, text sets whose
// strings remember where in the tree they came from, numbers and
// booleans.
package xpath

import (
	"github.com/chrisuehlinger/xmltree/tree"
)

// An Expr is a compiled query expression, safe for concurrent use.
type Expr struct {
	src  string
	root expr
}

// Compile parses a query expression.
func Compile(src string) (*Expr, error) {
	root, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &Expr{src: src, root: root}, nil
}

// MustCompile is like Compile but panics on error. Use it for
// expressions known to be valid.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source text of the expression.
func (e *Expr) String() string { return e.src }

// An EvalOption configures expression evaluation.
type EvalOption func(*context)

// WithNamespaces binds the prefixes usable in name tests to namespace
// URIs.
func WithNamespaces(ns map[string]string) EvalOption {
	return func(c *context) { c.ns = ns }
}

// Evaluate runs the expression with n as the context node.
func (e *Expr) Evaluate(n tree.Node, opts ...EvalOption) (Value, error) {
	c := &context{node: n, pos: 1, size: 1, src: e.src}
	for _, opt := range opts {
		opt(c)
	}
	return e.root.eval(c)
}

// Query compiles and evaluates an expression in one call.
func Query(n tree.Node, src string, opts ...EvalOption) (Value, error) {
	e, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(n, opts...)
}

// QueryAll evaluates an expression expected to select nodes and
// returns the matching elements, ignoring non-element results.
func QueryAll(n tree.Node, src string, opts ...EvalOption) ([]*tree.Element, error) {
	v, err := Query(n, src, opts...)
	if err != nil {
		return nil, err
	}
	set, ok := v.(NodeSet)
	if !ok {
		return nil, &QueryError{Expr: src, Message: "expression does not select nodes"}
	}
	var out []*tree.Element
	for _, node := range set {
		if e, ok := node.(*tree.Element); ok {
			out = append(out, e)
		}
	}
	return out, nil
}
