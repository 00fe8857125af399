package parser

import (
	"io"
	"iter"

	"github.com/chrisuehlinger/xmltree/tree"
)

// EventKind identifies the kind of a parse event.
type EventKind int

const (
	// EventStart fires when an element's start tag has been parsed. Its
	// attributes and namespace declarations are complete; its content is
	// not.
	EventStart EventKind = iota

	// EventEnd fires when an element's end tag has been parsed. The
	// element's subtree is complete.
	EventEnd

	// EventComment fires for each comment.
	EventComment

	// EventProcInst fires for each processing instruction.
	EventProcInst
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	case EventComment:
		return "comment"
	case EventProcInst:
		return "pi"
	}
	return "unknown"
}

// An Event pairs an event kind with the node it concerns. Start and end
// events carry the *tree.Element; comment and processing-instruction
// events carry the respective node.
type Event struct {
	Kind EventKind
	Node tree.Node
}

// IterParse reads the document from r and yields parse events as the
// tree grows. By default start and end events are reported for every
// element; use WithEvents and WithTag to narrow the stream. The tree
// stays reachable through the yielded nodes, so a consumer may call
// Clear on elements it is done with to bound memory.
func IterParse(r io.Reader, opts ...Option) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		p := NewParser(opts...)
		p.bld.emit = p.collect
		buf := make([]byte, p.opts.chunkSize)
		for {
			n, rerr := r.Read(buf)
			if n > 0 {
				if err := p.Feed(buf[:n]); err != nil {
					yield(Event{}, err)
					return
				}
				for _, ev := range p.Events() {
					if !yield(ev, nil) {
						return
					}
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				yield(Event{}, rerr)
				return
			}
		}
		if _, err := p.Close(); err != nil {
			yield(Event{}, err)
			return
		}
		for _, ev := range p.Events() {
			if !yield(ev, nil) {
				return
			}
		}
	}
}
