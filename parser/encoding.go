package parser

import (
	"bytes"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// decoder turns raw input bytes into UTF-8 text for the tokenizer. The
// encoding is detected from a byte order mark or the XML declaration
// once enough input has arrived; until then raw bytes are buffered.
type decoder struct {
	label string // caller-forced encoding label, empty for detection

	tr      transform.Transformer
	name    string
	pending []byte
	decided bool
}

// sniffLimit is how much input detection may buffer before defaulting
// to UTF-8, mirroring the declaration-must-come-first rule.
const sniffLimit = 1024

func newDecoder(label string) *decoder {
	return &decoder{label: label}
}

func (d *decoder) reset() {
	d.tr = nil
	d.name = ""
	d.pending = nil
	d.decided = false
}

// decode consumes a chunk of raw input and returns the decoded UTF-8
// bytes available so far. Incomplete multi-byte sequences at the chunk
// boundary are retained for the next call.
func (d *decoder) decode(p []byte, atEOF bool) ([]byte, error) {
	d.pending = append(d.pending, p...)
	if !d.decided {
		if !atEOF && d.label == "" && len(d.pending) < sniffLimit && !declComplete(d.pending) {
			// Not enough input to detect the encoding yet.
			return nil, nil
		}
		if err := d.decide(); err != nil {
			return nil, err
		}
	}
	if d.tr == nil {
		out := d.pending
		d.pending = nil
		return out, nil
	}
	return d.transformPending(atEOF)
}

// declComplete reports whether the input either finishes an XML
// declaration or visibly has none, so detection can decide early.
func declComplete(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	if hasAnyBOM(b) {
		return true
	}
	if !bytes.HasPrefix(b, []byte("<?")) {
		return true
	}
	return bytes.Contains(b, []byte("?>"))
}

func hasAnyBOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(b, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(b, []byte{0xFE, 0xFF})
}

// decide fixes the input encoding from the forced label, a BOM, or the
// XML declaration, defaulting to UTF-8.
func (d *decoder) decide() error {
	label := d.label
	switch {
	case label != "":
		// Forced by the caller.
	case bytes.HasPrefix(d.pending, []byte{0xEF, 0xBB, 0xBF}):
		d.pending = d.pending[3:]
		label = "utf-8"
	case bytes.HasPrefix(d.pending, []byte{0xFF, 0xFE}):
		d.pending = d.pending[2:]
		label = "utf-16le"
	case bytes.HasPrefix(d.pending, []byte{0xFE, 0xFF}):
		d.pending = d.pending[2:]
		label = "utf-16be"
	default:
		label = declaredEncoding(d.pending)
		if label == "" {
			label = "utf-8"
		}
	}

	d.decided = true
	if isUTF8Label(label) {
		d.name = "utf-8"
		d.tr = encoding.UTF8Validator
		return nil
	}
	enc, name := charset.Lookup(label)
	if enc == nil {
		return &EncodingError{Encoding: label, Message: "unsupported encoding"}
	}
	d.name = name
	d.tr = enc.NewDecoder()
	return nil
}

func isUTF8Label(label string) bool {
	switch strings.ToLower(label) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// declaredEncoding extracts the encoding pseudo-attribute from a
// leading XML declaration, if any. The declaration is ASCII-compatible
// in every encoding this decoder supports without a BOM.
func declaredEncoding(b []byte) string {
	if !bytes.HasPrefix(b, []byte("<?xml")) {
		return ""
	}
	end := bytes.Index(b, []byte("?>"))
	if end < 0 {
		end = len(b)
	}
	decl := string(b[:end])
	i := strings.Index(decl, "encoding")
	if i < 0 {
		return ""
	}
	rest := strings.TrimLeft(decl[i+len("encoding"):], " \t\r\n")
	if !strings.HasPrefix(rest, "=") {
		return ""
	}
	rest = strings.TrimLeft(rest[1:], " \t\r\n")
	if len(rest) < 2 || (rest[0] != '"' && rest[0] != '\'') {
		return ""
	}
	quote := rest[0]
	if j := strings.IndexByte(rest[1:], quote); j >= 0 {
		return rest[1 : 1+j]
	}
	return ""
}

func (d *decoder) transformPending(atEOF bool) ([]byte, error) {
	var out []byte
	dst := make([]byte, 1024)
	for {
		nDst, nSrc, err := d.tr.Transform(dst, d.pending, atEOF)
		out = append(out, dst[:nDst]...)
		d.pending = d.pending[nSrc:]
		switch err {
		case nil:
			if len(d.pending) == 0 {
				return out, nil
			}
			// More input than dst space; keep going.
		case transform.ErrShortDst:
			// Loop with the same dst buffer now that it was drained.
		case transform.ErrShortSrc:
			if atEOF {
				return out, &EncodingError{Encoding: d.name, Message: "truncated input"}
			}
			return out, nil
		default:
			return out, &EncodingError{Encoding: d.name, Message: err.Error()}
		}
	}
}
