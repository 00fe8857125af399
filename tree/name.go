package tree

import "strings"

// A Name is a qualified XML name: a namespace URI plus a local part.
// Names with an empty Space are in no namespace.
type Name struct {
	Space string
	Local string
}

// ParseName parses a name in universal form. "{uri}local" yields a
// namespaced name; anything else is a plain local name in no namespace.
func ParseName(s string) Name {
	if strings.HasPrefix(s, "{") {
		if end := strings.IndexByte(s, '}'); end >= 0 {
			return Name{Space: s[1:end], Local: s[end+1:]}
		}
	}
	return Name{Local: s}
}

// String renders the name in universal form: "{uri}local", or just the
// local part when the name has no namespace.
func (n Name) String() string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}

// IsZero reports whether the name is empty.
func (n Name) IsZero() bool {
	return n.Space == "" && n.Local == ""
}

type patternKind int

const (
	patternExact patternKind = iota
	patternAny                // *
	patternAnyInSpace         // {uri}*
	patternAnyLocal           // {*}local
)

// A Pattern matches qualified names, optionally with a wildcard in the
// namespace or local position. The supported forms are "*", "{*}local",
// "{uri}*", "{uri}local" and a bare local name (which matches only names
// in no namespace).
type Pattern struct {
	kind  patternKind
	space string
	local string
}

// ParsePattern compiles a tag pattern string.
func ParsePattern(s string) Pattern {
	if s == "*" {
		return Pattern{kind: patternAny}
	}
	name := ParseName(s)
	if name.Space == "*" {
		return Pattern{kind: patternAnyLocal, local: name.Local}
	}
	if name.Local == "*" {
		return Pattern{kind: patternAnyInSpace, space: name.Space}
	}
	return Pattern{kind: patternExact, space: name.Space, local: name.Local}
}

// Matches reports whether the pattern matches the given name.
func (p Pattern) Matches(n Name) bool {
	switch p.kind {
	case patternAny:
		return true
	case patternAnyInSpace:
		return p.space == n.Space
	case patternAnyLocal:
		return p.local == n.Local
	default:
		return p.space == n.Space && p.local == n.Local
	}
}

// MatchesElement reports whether the pattern matches an element node.
// Only elements participate in tag matching; comments, processing
// instructions and entities never match.
func (p Pattern) MatchesElement(n Node) bool {
	e, ok := n.(*Element)
	return ok && p.Matches(e.Name)
}
