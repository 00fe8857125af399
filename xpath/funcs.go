package xpath

import (
	"strings"

	"github.com/chrisuehlinger/xmltree/tree"
)

type funcCall struct {
	name string
	args []expr
}

func (e *funcCall) eval(c *context) (Value, error) {
	fn, ok := functions[e.name]
	if !ok {
		return nil, queryErrf(c.src, "unknown function %s()", e.name)
	}
	if len(e.args) < fn.minArgs || (fn.maxArgs >= 0 && len(e.args) > fn.maxArgs) {
		return nil, queryErrf(c.src, "wrong number of arguments to %s()", e.name)
	}
	args := make([]Value, len(e.args))
	for i, a := range e.args {
		v, err := a.eval(c)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn.call(c, args)
}

type function struct {
	minArgs int
	maxArgs int // -1 for variadic
	call    func(c *context, args []Value) (Value, error)
}

// contextString is the string-value of the context node, used by the
// functions that default their argument to the context.
func contextString(c *context, args []Value) string {
	if len(args) > 0 {
		return toString(args[0])
	}
	return stringValue(c.node)
}

var functions = map[string]function{
	"last": {0, 0, func(c *context, _ []Value) (Value, error) {
		return Number(c.size), nil
	}},
	"position": {0, 0, func(c *context, _ []Value) (Value, error) {
		return Number(c.pos), nil
	}},
	"count": {1, 1, func(c *context, args []Value) (Value, error) {
		switch v := args[0].(type) {
		case NodeSet:
			return Number(len(v)), nil
		case TextSet:
			return Number(len(v)), nil
		}
		return nil, queryErrf(c.src, "count() requires a set")
	}},
	"string": {0, 1, func(c *context, args []Value) (Value, error) {
		return String{Value: contextString(c, args)}, nil
	}},
	"concat": {2, -1, func(_ *context, args []Value) (Value, error) {
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(toString(a))
		}
		return String{Value: sb.String()}, nil
	}},
	"starts-with": {2, 2, func(_ *context, args []Value) (Value, error) {
		return Boolean(strings.HasPrefix(toString(args[0]), toString(args[1]))), nil
	}},
	"contains": {2, 2, func(_ *context, args []Value) (Value, error) {
		return Boolean(strings.Contains(toString(args[0]), toString(args[1]))), nil
	}},
	"string-length": {0, 1, func(c *context, args []Value) (Value, error) {
		return Number(len([]rune(contextString(c, args)))), nil
	}},
	"normalize-space": {0, 1, func(c *context, args []Value) (Value, error) {
		return String{Value: strings.Join(strings.Fields(contextString(c, args)), " ")}, nil
	}},
	"boolean": {1, 1, func(_ *context, args []Value) (Value, error) {
		return Boolean(toBoolean(args[0])), nil
	}},
	"not": {1, 1, func(_ *context, args []Value) (Value, error) {
		return Boolean(!toBoolean(args[0])), nil
	}},
	"true": {0, 0, func(_ *context, _ []Value) (Value, error) {
		return Boolean(true), nil
	}},
	"false": {0, 0, func(_ *context, _ []Value) (Value, error) {
		return Boolean(false), nil
	}},
	"number": {0, 1, func(c *context, args []Value) (Value, error) {
		if len(args) > 0 {
			return Number(toNumber(args[0])), nil
		}
		return Number(parseNumber(stringValue(c.node))), nil
	}},
	"sum": {1, 1, func(c *context, args []Value) (Value, error) {
		strs, ok := setStrings(args[0])
		if !ok {
			return nil, queryErrf(c.src, "sum() requires a set")
		}
		total := 0.0
		for _, s := range strs {
			total += parseNumber(s)
		}
		return Number(total), nil
	}},
	"name": {0, 1, func(c *context, args []Value) (Value, error) {
		return String{Value: nodeName(c, args, true)}, nil
	}},
	"local-name": {0, 1, func(c *context, args []Value) (Value, error) {
		return String{Value: nodeName(c, args, false)}, nil
	}},
}

// nodeName returns the expanded or local name of the context node or
// the first node of the argument set.
func nodeName(c *context, args []Value, full bool) string {
	n := c.node
	if len(args) > 0 {
		set, ok := args[0].(NodeSet)
		if !ok || len(set) == 0 {
			return ""
		}
		n = set[0]
	}
	e, ok := n.(*tree.Element)
	if !ok {
		if pi, ok := n.(*tree.ProcInst); ok {
			return pi.Target
		}
		return ""
	}
	if full {
		return e.Name.String()
	}
	return e.Name.Local
}
