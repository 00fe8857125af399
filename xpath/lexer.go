package xpath

import (
	"strconv"
	"strings"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokSlash
	tokDoubleSlash
	tokLBracket
	tokRBracket
	tokLParen
	tokRParen
	tokUnion // |
	tokComma
	tokAt
	tokDot
	tokDotDot
	tokStar
	tokName   // identifier, QName or {uri}name
	tokString // quoted literal
	tokNumber
	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte
	tokPlus
	tokMinus
	tokAnd
	tokOr
	tokMul
	tokDiv
	tokMod
	tokAxis // name followed by ::
)

type tok struct {
	kind tokKind
	text string
	num  float64
}

// lex splits a query into tokens. Per the XPath disambiguation rule, a
// name is read as an operator (and, or, div, mod) and '*' as
// multiplication when the preceding token could end an operand.
func lex(expr string) ([]tok, error) {
	var toks []tok
	s := expr
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		if s == "" {
			return toks, nil
		}
		afterOperand := len(toks) > 0 && operandEnd(toks[len(toks)-1].kind)
		c := s[0]
		switch {
		case c == '/':
			if strings.HasPrefix(s, "//") {
				toks = append(toks, tok{kind: tokDoubleSlash})
				s = s[2:]
			} else {
				toks = append(toks, tok{kind: tokSlash})
				s = s[1:]
			}
		case c == '[':
			toks = append(toks, tok{kind: tokLBracket})
			s = s[1:]
		case c == ']':
			toks = append(toks, tok{kind: tokRBracket})
			s = s[1:]
		case c == '(':
			toks = append(toks, tok{kind: tokLParen})
			s = s[1:]
		case c == ')':
			toks = append(toks, tok{kind: tokRParen})
			s = s[1:]
		case c == '|':
			toks = append(toks, tok{kind: tokUnion})
			s = s[1:]
		case c == ',':
			toks = append(toks, tok{kind: tokComma})
			s = s[1:]
		case c == '@':
			toks = append(toks, tok{kind: tokAt})
			s = s[1:]
		case c == '.':
			if strings.HasPrefix(s, "..") {
				toks = append(toks, tok{kind: tokDotDot})
				s = s[2:]
			} else if len(s) > 1 && isDigit(s[1]) {
				var t tok
				var err error
				t, s, err = lexNumber(expr, s)
				if err != nil {
					return nil, err
				}
				toks = append(toks, t)
			} else {
				toks = append(toks, tok{kind: tokDot})
				s = s[1:]
			}
		case c == '*':
			if afterOperand {
				toks = append(toks, tok{kind: tokMul, text: "*"})
			} else {
				toks = append(toks, tok{kind: tokStar, text: "*"})
			}
			s = s[1:]
		case c == '=':
			toks = append(toks, tok{kind: tokEq})
			s = s[1:]
		case c == '!':
			if !strings.HasPrefix(s, "!=") {
				return nil, queryErrf(expr, "unexpected character %q", c)
			}
			toks = append(toks, tok{kind: tokNeq})
			s = s[2:]
		case c == '<':
			if strings.HasPrefix(s, "<=") {
				toks = append(toks, tok{kind: tokLte})
				s = s[2:]
			} else {
				toks = append(toks, tok{kind: tokLt})
				s = s[1:]
			}
		case c == '>':
			if strings.HasPrefix(s, ">=") {
				toks = append(toks, tok{kind: tokGte})
				s = s[2:]
			} else {
				toks = append(toks, tok{kind: tokGt})
				s = s[1:]
			}
		case c == '+':
			toks = append(toks, tok{kind: tokPlus})
			s = s[1:]
		case c == '-':
			toks = append(toks, tok{kind: tokMinus})
			s = s[1:]
		case c == '\'' || c == '"':
			end := strings.IndexByte(s[1:], c)
			if end < 0 {
				return nil, queryErrf(expr, "unterminated string literal")
			}
			toks = append(toks, tok{kind: tokString, text: s[1 : 1+end]})
			s = s[1+end+1:]
		case isDigit(c):
			var t tok
			var err error
			t, s, err = lexNumber(expr, s)
			if err != nil {
				return nil, err
			}
			toks = append(toks, t)
		case c == '{' || isNameStart(c):
			var t tok
			var err error
			t, s, err = lexName(expr, s, afterOperand)
			if err != nil {
				return nil, err
			}
			toks = append(toks, t)
		default:
			return nil, queryErrf(expr, "unexpected character %q", c)
		}
	}
}

// operandEnd reports whether a token of this kind can end an operand.
func operandEnd(k tokKind) bool {
	switch k {
	case tokName, tokString, tokNumber, tokRParen, tokRBracket, tokStar, tokDot, tokDotDot:
		return true
	}
	return false
}

func lexNumber(expr, s string) (tok, string, error) {
	i := 0
	for i < len(s) && (isDigit(s[i]) || s[i] == '.') {
		i++
	}
	f, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return tok{}, "", queryErrf(expr, "invalid number %q", s[:i])
	}
	return tok{kind: tokNumber, num: f, text: s[:i]}, s[i:], nil
}

// lexName scans an identifier: a plain name, a prefixed QName, a
// universal "{uri}name" form, or an operator keyword in operator
// position. A trailing "::" marks an axis name.
func lexName(expr, s string, afterOperand bool) (tok, string, error) {
	var i int
	if s[0] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return tok{}, "", queryErrf(expr, "unterminated namespace brace")
		}
		i = end + 1
	}
	for i < len(s) && (isNameByte(s[i]) || s[i] == ':' && i+1 < len(s) && s[i+1] != ':') {
		i++
	}
	name := s[:i]
	rest := s[i:]
	// Wildcard name tests: prefix:* and {uri}*.
	if strings.HasPrefix(rest, "*") && (strings.HasSuffix(name, ":") || strings.HasSuffix(name, "}")) {
		name += "*"
		rest = rest[1:]
	}
	if afterOperand {
		switch name {
		case "and":
			return tok{kind: tokAnd, text: name}, rest, nil
		case "or":
			return tok{kind: tokOr, text: name}, rest, nil
		case "div":
			return tok{kind: tokDiv, text: name}, rest, nil
		case "mod":
			return tok{kind: tokMod, text: name}, rest, nil
		}
	}
	if strings.HasPrefix(rest, "::") {
		return tok{kind: tokAxis, text: name}, rest[2:], nil
	}
	return tok{kind: tokName, text: name}, rest, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isNameByte(c byte) bool {
	return isNameStart(c) || c == '-' || c == '.' || isDigit(c)
}
