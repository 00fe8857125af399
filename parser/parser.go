// Package parser reads XML documents into element trees. It offers
// one-shot entry points, an incremental push parser fed in chunks, pull
// iteration over parse events, and a callback Target mode that skips
// tree construction entirely.
package parser

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/chrisuehlinger/xmltree/network"
	"github.com/chrisuehlinger/xmltree/tree"
)

// Parse reads a complete document from r.
func Parse(r io.Reader, opts ...Option) (*tree.Document, error) {
	p := NewParser(opts...)
	buf := make([]byte, p.opts.chunkSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if err := p.Feed(buf[:n]); err != nil {
				return nil, err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, rerr
		}
	}
	return p.Close()
}

// ParseString parses a document held in a string.
func ParseString(s string, opts ...Option) (*tree.Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// ParseBytes parses a document held in a byte slice.
func ParseBytes(b []byte, opts ...Option) (*tree.Document, error) {
	p := NewParser(opts...)
	if err := p.Feed(b); err != nil {
		return nil, err
	}
	return p.Close()
}

// ParseFile parses the document in the named file.
func ParseFile(path string, opts ...Option) (*tree.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, opts...)
}

// ParseURL retrieves and parses the document at the given http, https,
// ftp or file URL. A charset named by the transport takes effect unless
// WithEncoding overrides it.
func ParseURL(ctx context.Context, rawURL string, opts ...Option) (*tree.Document, error) {
	res, err := network.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if res.Charset != "" {
		opts = append([]Option{WithEncoding(res.Charset)}, opts...)
	}
	return ParseBytes(res.Data, opts...)
}

// ParseWithTarget reads the document from r and routes its events to
// the target instead of building a tree.
func ParseWithTarget(r io.Reader, target Target, opts ...Option) error {
	_, err := Parse(r, append(opts, WithTarget(target))...)
	return err
}
