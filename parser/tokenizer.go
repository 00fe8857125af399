package parser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// tokenizer scans decoded input into lexical XML tokens. Input arrives
// in chunks through append; next returns errNeedMore when the buffered
// input ends mid-token, leaving the cursor untouched so scanning resumes
// exactly where it left off once more data arrives.
type tokenizer struct {
	buf   []byte
	pos   int
	line  int // line of buf[pos], 1-based
	col   int // column of buf[pos], 1-based
	final bool
}

func newTokenizer() *tokenizer {
	return &tokenizer{line: 1, col: 1}
}

func (t *tokenizer) append(p []byte) {
	if t.pos > 0 {
		// Drop consumed input before growing the buffer.
		t.buf = append(t.buf[:0], t.buf[t.pos:]...)
		t.pos = 0
	}
	t.buf = append(t.buf, p...)
}

func (t *tokenizer) setFinal() { t.final = true }

// commit consumes input up to end, updating the line/column trackers.
func (t *tokenizer) commit(end int) {
	for k := t.pos; k < end; k++ {
		if t.buf[k] == '\n' {
			t.line++
			t.col = 1
		} else {
			t.col++
		}
	}
	t.pos = end
}

// position computes the line/column of an offset at or past the cursor.
func (t *tokenizer) position(off int) (line, col int) {
	line, col = t.line, t.col
	for k := t.pos; k < off && k < len(t.buf); k++ {
		if t.buf[k] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

func (t *tokenizer) syntaxErrAt(off int, format string, args ...any) error {
	line, col := t.position(off)
	return &SyntaxError{Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

// next returns the next complete token, errNeedMore if the input ends
// mid-token, or io.EOF when all final input is consumed.
func (t *tokenizer) next() (token, error) {
	if t.pos >= len(t.buf) {
		if t.final {
			return token{}, io.EOF
		}
		return token{}, errNeedMore
	}
	if t.buf[t.pos] == '<' {
		return t.scanMarkup()
	}
	return t.scanText()
}

// scanText scans a character data run, expanding predefined and numeric
// character references. Unknown named references end the run and are
// emitted as entity-reference tokens. When the buffer ends mid-run the
// scanned prefix is emitted immediately; the builder coalesces adjacent
// text.
func (t *tokenizer) scanText() (token, error) {
	line, col := t.line, t.col
	var sb strings.Builder
	i := t.pos
	for i < len(t.buf) {
		c := t.buf[i]
		if c == '<' {
			break
		}
		if c != '&' {
			sb.WriteByte(c)
			i++
			continue
		}
		name, expansion, width, err := t.scanReference(i)
		if err == errNeedMore {
			if sb.Len() == 0 {
				return token{}, errNeedMore
			}
			break // emit what we have; the reference stays buffered
		}
		if err != nil {
			return token{}, err
		}
		if name != "" {
			// Unknown named entity: emit pending text first.
			if sb.Len() > 0 {
				break
			}
			t.commit(i + width)
			return token{kind: tokenEntityRef, target: name, line: line, col: col}, nil
		}
		sb.WriteString(expansion)
		i += width
	}
	t.commit(i)
	return token{kind: tokenText, data: sb.String(), line: line, col: col}, nil
}

// scanReference scans an entity or character reference starting at the
// '&' at offset i. It returns the entity name for unknown named
// references, or the expansion for predefined and numeric ones, along
// with the reference's byte width.
func (t *tokenizer) scanReference(i int) (name, expansion string, width int, err error) {
	end := bytes.IndexByte(t.buf[i:], ';')
	if end < 0 {
		if !t.final && len(t.buf)-i < maxReferenceLength {
			return "", "", 0, errNeedMore
		}
		return "", "", 0, t.syntaxErrAt(i, "unterminated entity reference")
	}
	if end > maxReferenceLength {
		return "", "", 0, t.syntaxErrAt(i, "unterminated entity reference")
	}
	ref := string(t.buf[i+1 : i+end])
	width = end + 1
	if ref == "" {
		return "", "", 0, t.syntaxErrAt(i, "empty entity reference")
	}
	if ref[0] == '#' {
		r, err2 := parseCharRef(ref[1:])
		if err2 != nil {
			return "", "", 0, t.syntaxErrAt(i, "invalid character reference %q", "&"+ref+";")
		}
		return "", string(r), width, nil
	}
	if exp, ok := predefinedEntities[ref]; ok {
		return "", exp, width, nil
	}
	if !isName(ref) {
		return "", "", 0, t.syntaxErrAt(i, "invalid entity reference %q", "&"+ref+";")
	}
	return ref, "", width, nil
}

// maxReferenceLength bounds the distance scanned for a closing ';' so a
// stray ampersand fails instead of buffering forever.
const maxReferenceLength = 64

var predefinedEntities = map[string]string{
	"amp":  "&",
	"lt":   "<",
	"gt":   ">",
	"quot": `"`,
	"apos": "'",
}

func parseCharRef(s string) (rune, error) {
	var n uint64
	var err error
	if strings.HasPrefix(s, "x") || strings.HasPrefix(s, "X") {
		n, err = strconv.ParseUint(s[1:], 16, 32)
	} else {
		n, err = strconv.ParseUint(s, 10, 32)
	}
	if err != nil {
		return 0, err
	}
	r := rune(n)
	if !isChar(r) {
		return 0, fmt.Errorf("code point %#x is not an XML character", n)
	}
	return r, nil
}

// isChar reports whether r is a character allowed in XML content.
func isChar(r rune) bool {
	switch {
	case r == 0x9 || r == 0xA || r == 0xD:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

func (t *tokenizer) scanMarkup() (token, error) {
	if t.pos+1 >= len(t.buf) {
		if t.final {
			return token{}, t.syntaxErrAt(t.pos, "unexpected end of input after '<'")
		}
		return token{}, errNeedMore
	}
	switch t.buf[t.pos+1] {
	case '/':
		return t.scanEndTag()
	case '?':
		return t.scanProcInst()
	case '!':
		return t.scanDeclaration()
	default:
		return t.scanStartTag()
	}
}

func (t *tokenizer) scanEndTag() (token, error) {
	line, col := t.line, t.col
	i := t.pos + 2
	start := i
	i, err := t.scanName(i)
	if err != nil {
		return token{}, err
	}
	prefix, local := splitPrefix(string(t.buf[start:i]))
	i = skipSpace(t.buf, i)
	if i >= len(t.buf) {
		if t.final {
			return token{}, t.syntaxErrAt(i, "unterminated end tag")
		}
		return token{}, errNeedMore
	}
	if t.buf[i] != '>' {
		return token{}, t.syntaxErrAt(i, "invalid character %q in end tag", t.buf[i])
	}
	t.commit(i + 1)
	return token{kind: tokenEndTag, prefix: prefix, local: local, line: line, col: col}, nil
}

func (t *tokenizer) scanStartTag() (token, error) {
	line, col := t.line, t.col
	i := t.pos + 1
	start := i
	i, err := t.scanName(i)
	if err != nil {
		return token{}, err
	}
	prefix, local := splitPrefix(string(t.buf[start:i]))
	tok := token{kind: tokenStartTag, prefix: prefix, local: local, line: line, col: col}

	for {
		hadSpace := skipSpace(t.buf, i) > i
		i = skipSpace(t.buf, i)
		if i >= len(t.buf) {
			if t.final {
				return token{}, t.syntaxErrAt(i, "unterminated start tag")
			}
			return token{}, errNeedMore
		}
		switch t.buf[i] {
		case '>':
			t.commit(i + 1)
			return tok, nil
		case '/':
			if i+1 >= len(t.buf) {
				if t.final {
					return token{}, t.syntaxErrAt(i, "unterminated start tag")
				}
				return token{}, errNeedMore
			}
			if t.buf[i+1] != '>' {
				return token{}, t.syntaxErrAt(i+1, "expected '>' after '/'")
			}
			tok.selfClosing = true
			t.commit(i + 2)
			return tok, nil
		}
		if !hadSpace {
			return token{}, t.syntaxErrAt(i, "expected whitespace before attribute")
		}
		var attr rawAttr
		attr, i, err = t.scanAttribute(i)
		if err != nil {
			return token{}, err
		}
		tok.attrs = append(tok.attrs, attr)
	}
}

func (t *tokenizer) scanAttribute(i int) (rawAttr, int, error) {
	start := i
	i, err := t.scanName(i)
	if err != nil {
		return rawAttr{}, 0, err
	}
	prefix, local := splitPrefix(string(t.buf[start:i]))
	i = skipSpace(t.buf, i)
	if i >= len(t.buf) {
		if t.final {
			return rawAttr{}, 0, t.syntaxErrAt(i, "unterminated attribute")
		}
		return rawAttr{}, 0, errNeedMore
	}
	if t.buf[i] != '=' {
		return rawAttr{}, 0, t.syntaxErrAt(i, "expected '=' after attribute name")
	}
	i = skipSpace(t.buf, i+1)
	if i >= len(t.buf) {
		if t.final {
			return rawAttr{}, 0, t.syntaxErrAt(i, "unterminated attribute")
		}
		return rawAttr{}, 0, errNeedMore
	}
	quote := t.buf[i]
	if quote != '"' && quote != '\'' {
		return rawAttr{}, 0, t.syntaxErrAt(i, "attribute value must be quoted")
	}
	i++
	var sb strings.Builder
	for {
		if i >= len(t.buf) {
			if t.final {
				return rawAttr{}, 0, t.syntaxErrAt(i, "unterminated attribute value")
			}
			return rawAttr{}, 0, errNeedMore
		}
		c := t.buf[i]
		if c == quote {
			i++
			break
		}
		if c == '<' {
			return rawAttr{}, 0, t.syntaxErrAt(i, "'<' is not allowed in attribute values")
		}
		if c == '&' {
			name, expansion, width, err := t.scanReference(i)
			if err != nil {
				return rawAttr{}, 0, err
			}
			if name != "" {
				return rawAttr{}, 0, t.syntaxErrAt(i, "undefined entity &%s; in attribute value", name)
			}
			sb.WriteString(expansion)
			i += width
			continue
		}
		sb.WriteByte(c)
		i++
	}
	return rawAttr{prefix: prefix, local: local, value: sb.String()}, i, nil
}

func (t *tokenizer) scanProcInst() (token, error) {
	line, col := t.line, t.col
	i := t.pos + 2
	start := i
	i, err := t.scanName(i)
	if err != nil {
		return token{}, err
	}
	target := string(t.buf[start:i])
	end := bytes.Index(t.buf[i:], []byte("?>"))
	if end < 0 {
		if t.final {
			return token{}, t.syntaxErrAt(len(t.buf), "unterminated processing instruction")
		}
		return token{}, errNeedMore
	}
	data := string(t.buf[i : i+end])
	data = strings.TrimLeft(data, " \t\r\n")
	t.commit(i + end + 2)
	return token{kind: tokenProcInst, target: target, data: data, line: line, col: col}, nil
}

// scanDeclaration handles comments, CDATA sections and <!...>
// declarations such as DOCTYPE, which may carry a bracketed internal
// subset.
func (t *tokenizer) scanDeclaration() (token, error) {
	line, col := t.line, t.col
	rest := t.buf[t.pos:]

	if hasIncompletePrefix(rest, "<!--") {
		return token{}, t.incomplete("unterminated comment")
	}
	if bytes.HasPrefix(rest, []byte("<!--")) {
		end := bytes.Index(rest[4:], []byte("-->"))
		if end < 0 {
			return token{}, t.incomplete("unterminated comment")
		}
		data := string(rest[4 : 4+end])
		t.commit(t.pos + 4 + end + 3)
		return token{kind: tokenComment, data: data, line: line, col: col}, nil
	}

	if hasIncompletePrefix(rest, "<![CDATA[") {
		return token{}, t.incomplete("unterminated CDATA section")
	}
	if bytes.HasPrefix(rest, []byte("<![CDATA[")) {
		end := bytes.Index(rest[9:], []byte("]]>"))
		if end < 0 {
			return token{}, t.incomplete("unterminated CDATA section")
		}
		data := string(rest[9 : 9+end])
		t.commit(t.pos + 9 + end + 3)
		return token{kind: tokenText, data: data, line: line, col: col}, nil
	}

	// <!DOCTYPE ...> or another declaration: scan to the matching '>',
	// honoring [...] subsets and quoted strings, and keep the raw text.
	depth := 0
	var quote byte
	for i := t.pos + 2; i < len(t.buf); i++ {
		c := t.buf[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			if depth > 0 {
				depth--
			}
		case c == '>' && depth == 0:
			raw := string(t.buf[t.pos : i+1])
			t.commit(i + 1)
			return token{kind: tokenDirective, data: raw, line: line, col: col}, nil
		}
	}
	return token{}, t.incomplete("unterminated declaration")
}

func (t *tokenizer) incomplete(msg string) error {
	if t.final {
		return t.syntaxErrAt(len(t.buf), "%s", msg)
	}
	return errNeedMore
}

// hasIncompletePrefix reports whether b is a proper prefix of the
// marker, meaning more input is needed to classify the construct.
func hasIncompletePrefix(b []byte, marker string) bool {
	return len(b) < len(marker) && bytes.HasPrefix([]byte(marker), b)
}

// scanName scans an XML name starting at offset i and returns the
// offset just past it.
func (t *tokenizer) scanName(i int) (int, error) {
	if i >= len(t.buf) {
		if t.final {
			return 0, t.syntaxErrAt(i, "expected name")
		}
		return 0, errNeedMore
	}
	if !isNameStartByte(t.buf[i]) {
		return 0, t.syntaxErrAt(i, "invalid name start character %q", t.buf[i])
	}
	i++
	for i < len(t.buf) && isNameByte(t.buf[i]) {
		i++
	}
	if i >= len(t.buf) && !t.final {
		// The name may continue in the next chunk.
		return 0, errNeedMore
	}
	return i, nil
}

func isNameStartByte(c byte) bool {
	return c == '_' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isNameByte(c byte) bool {
	return isNameStartByte(c) || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	if !isNameStartByte(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	return true
}

// splitPrefix splits a lexical qualified name at its first colon.
func splitPrefix(s string) (prefix, local string) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

func skipSpace(b []byte, i int) int {
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\r', '\n':
			i++
		default:
			return i
		}
	}
	return i
}
