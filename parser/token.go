package parser

// tokenKind classifies lexical XML tokens.
type tokenKind int

const (
	tokenStartTag tokenKind = iota
	tokenEndTag
	tokenText
	tokenComment
	tokenProcInst
	tokenDirective
	tokenEntityRef
)

// rawAttr is a lexical attribute: prefix and local name before
// namespace resolution, plus the unescaped value.
type rawAttr struct {
	prefix string
	local  string
	value  string
}

// token is one lexical XML token with its source position.
type token struct {
	kind tokenKind

	// Start and end tags.
	prefix      string
	local       string
	attrs       []rawAttr
	selfClosing bool

	// Text, comment and directive content; PI data.
	data string

	// PI target or entity reference name.
	target string

	line int
	col  int
}
