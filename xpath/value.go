package xpath

import (
	"math"
	"strconv"
	"strings"

	"github.com/chrisuehlinger/xmltree/tree"
)

// A Value is the result of evaluating an expression: a Boolean, a
// Number, a single String, a NodeSet or a TextSet.
type Value interface {
	value()
}

// Boolean is a truth value.
type Boolean bool

// Number is an IEEE 754 double, including NaN and the infinities.
type Number float64

// An Origin records where in the tree a selected text run lives: the
// text of Node, or its tail when InTail is set. Computed strings have
// no origin.
type Origin struct {
	Node   tree.Node
	InTail bool
}

// A String is a text result. Strings selected from the tree by text()
// steps carry an Origin pointing back at their position.
type String struct {
	Value  string
	Origin *Origin
}

// A NodeSet is a set of tree nodes in document order without
// duplicates.
type NodeSet []tree.Node

// A TextSet is an ordered set of text results, produced by text() and
// attribute steps.
type TextSet []String

func (Boolean) value() {}
func (Number) value()  {}
func (String) value()  {}
func (NodeSet) value() {}
func (TextSet) value() {}

// stringValue is the XPath string-value of a single node.
func stringValue(n tree.Node) string {
	switch v := n.(type) {
	case *tree.Element:
		return tree.TextContent(v)
	case *tree.Comment:
		return v.Data
	case *tree.ProcInst:
		return v.Data
	case *tree.Entity:
		return "&" + v.Name + ";"
	}
	return ""
}

// toString applies the XPath string() conversion.
func toString(v Value) string {
	switch v := v.(type) {
	case Boolean:
		if v {
			return "true"
		}
		return "false"
	case Number:
		return formatNumber(float64(v))
	case String:
		return v.Value
	case NodeSet:
		if len(v) == 0 {
			return ""
		}
		return stringValue(v[0])
	case TextSet:
		if len(v) == 0 {
			return ""
		}
		return v[0].Value
	}
	return ""
}

// toNumber applies the XPath number() conversion.
func toNumber(v Value) float64 {
	switch v := v.(type) {
	case Boolean:
		if v {
			return 1
		}
		return 0
	case Number:
		return float64(v)
	case String:
		return parseNumber(v.Value)
	case NodeSet, TextSet:
		return parseNumber(toString(v))
	}
	return math.NaN()
}

// toBoolean applies the XPath boolean() conversion.
func toBoolean(v Value) bool {
	switch v := v.(type) {
	case Boolean:
		return bool(v)
	case Number:
		return v != 0 && !math.IsNaN(float64(v))
	case String:
		return v.Value != ""
	case NodeSet:
		return len(v) > 0
	case TextSet:
		return len(v) > 0
	}
	return false
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// add inserts n into the set, keeping document order and dropping
// duplicates.
func (s NodeSet) add(n tree.Node) NodeSet {
	for i := len(s) - 1; i >= 0; i-- {
		cmp := tree.CompareOrder(s[i], n)
		if cmp == 0 {
			return s
		}
		if cmp < 0 {
			s = append(s, nil)
			copy(s[i+2:], s[i+1:])
			s[i+1] = n
			return s
		}
	}
	return append(NodeSet{n}, s...)
}
