package parser

import (
	"io"

	"github.com/chrisuehlinger/xmltree/tree"
)

type parserState int

const (
	stateIdle parserState = iota
	stateFeeding
	stateClosed
)

// options collects the configuration shared by the push parser, the
// one-shot entry points and pull iteration.
type options struct {
	target    Target
	encoding  string
	chunkSize int
	events    map[EventKind]bool
	tag       *tree.Pattern
}

const defaultChunkSize = 32 * 1024

func newOptions(opts []Option) options {
	o := options{chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// An Option configures parsing.
type Option func(*options)

// WithTarget routes parse events to t instead of building a tree.
func WithTarget(t Target) Option {
	return func(o *options) { o.target = t }
}

// WithEncoding forces the input encoding, overriding detection from the
// byte order mark and XML declaration.
func WithEncoding(label string) Option {
	return func(o *options) { o.encoding = label }
}

// WithChunkSize sets the read size used when parsing from a stream.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithEvents selects which event kinds are reported by Events and
// IterParse. Without this option start and end events are reported.
func WithEvents(kinds ...EventKind) Option {
	return func(o *options) {
		o.events = make(map[EventKind]bool, len(kinds))
		for _, k := range kinds {
			o.events[k] = true
		}
	}
}

// WithTag restricts start and end events to elements matching the tag
// pattern ("*", "{*}local", "{uri}*" or an exact universal name).
func WithTag(tag string) Option {
	return func(o *options) {
		p := tree.ParsePattern(tag)
		o.tag = &p
	}
}

// A Parser consumes a document incrementally. Feed any number of byte
// chunks, then Close to finish and obtain the tree. A parser that has
// reported an error refuses further input until Reset; a parser that
// was closed resets itself on the next Feed.
type Parser struct {
	opts   options
	dec    *decoder
	tok    *tokenizer
	bld    *treeBuilder
	state  parserState
	err    error
	queued []Event
}

// NewParser creates an incremental parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{opts: newOptions(opts)}
	p.init()
	return p
}

func (p *Parser) init() {
	p.dec = newDecoder(p.opts.encoding)
	p.tok = newTokenizer()
	p.bld = newTreeBuilder(p.opts.target)
	if p.opts.events != nil || p.opts.tag != nil {
		p.bld.emit = p.collect
	}
}

func (p *Parser) wantEvent(ev Event) bool {
	if p.opts.events == nil {
		if ev.Kind != EventStart && ev.Kind != EventEnd {
			return false
		}
	} else if !p.opts.events[ev.Kind] {
		return false
	}
	if p.opts.tag != nil && (ev.Kind == EventStart || ev.Kind == EventEnd) {
		return p.opts.tag.MatchesElement(ev.Node)
	}
	return true
}

func (p *Parser) collect(ev Event) error {
	if p.wantEvent(ev) {
		p.queued = append(p.queued, ev)
	}
	return nil
}

// Feed supplies the next chunk of input. Tokens completed by the chunk
// are processed immediately; a partial token at the end of the chunk is
// retained until more input arrives.
func (p *Parser) Feed(data []byte) error {
	if p.state == stateClosed {
		p.Reset()
	}
	if p.err != nil {
		return ErrNotReset
	}
	p.state = stateFeeding
	if err := p.consume(data, false); err != nil {
		p.err = err
		return err
	}
	return nil
}

// Close marks the end of input, processes anything still buffered, and
// returns the completed document. With a Target configured the document
// is nil and the Target's Close result is reported instead.
func (p *Parser) Close() (*tree.Document, error) {
	if p.err != nil {
		return nil, ErrNotReset
	}
	if err := p.consume(nil, true); err != nil {
		p.state = stateClosed
		p.err = err
		return nil, err
	}
	doc, err := p.bld.finish(p.tok.line, p.tok.col)
	p.state = stateClosed
	if err != nil {
		p.err = err
		return nil, err
	}
	return doc, nil
}

// Reset returns the parser to its initial state, clearing any buffered
// input, queued events, partial tree and recorded error.
func (p *Parser) Reset() {
	p.init()
	p.state = stateIdle
	p.err = nil
	p.queued = nil
}

// Events returns the events collected since the last call and clears
// the queue. Use with WithEvents or WithTag while feeding.
func (p *Parser) Events() []Event {
	out := p.queued
	p.queued = nil
	return out
}

func (p *Parser) consume(data []byte, final bool) error {
	out, err := p.dec.decode(data, final)
	if err != nil {
		return err
	}
	p.tok.append(out)
	if final {
		p.tok.setFinal()
	}
	for {
		tok, err := p.tok.next()
		if err == errNeedMore {
			return nil
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := p.bld.handle(tok); err != nil {
			return err
		}
	}
}
