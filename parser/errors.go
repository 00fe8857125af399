package parser

import (
	"errors"
	"fmt"
)

// A SyntaxError reports malformed markup, with the 1-based line and
// column of the offending input.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// A NamespaceError reports a prefix with no in-scope declaration.
type NamespaceError struct {
	Line   int
	Column int
	Prefix string
}

func (e *NamespaceError) Error() string {
	return fmt.Sprintf("%d:%d: undeclared namespace prefix %q", e.Line, e.Column, e.Prefix)
}

// An EncodingError reports input that cannot be decoded with the
// detected or declared character encoding.
type EncodingError struct {
	Encoding string
	Message  string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %q: %s", e.Encoding, e.Message)
}

// ErrNotReset is returned when a parser that has already failed is fed
// again without an intervening Reset.
var ErrNotReset = errors.New("parser: instance must be reset after an error")

// errNeedMore is the tokenizer's suspension signal: the buffered input
// ends mid-token and more data is required.
var errNeedMore = errors.New("need more data")
