// Package stack reconstructs the causal tree of a trace from a flat span batch
// and lays it out as a time-scaled swimlane diagram.
//
// The package does no I/O and holds no state beyond one batch. Build links and
// normalizes the batch once; Layout may then be called for any number of
// widths and always returns freshly computed geometry.
package stack

import (
	"errors"

	"tracestack/internal/models"
)

var (
	// ErrEmptyBatch is returned by Build for a batch with no spans.
	ErrEmptyBatch = errors.New("stack: empty span batch")
	// ErrMissingStartTime is returned by Build when no span carries a start time.
	ErrMissingStartTime = errors.New("stack: no span has a start time")
	// ErrInvalidWidth is returned by Layout for a non-positive drawing width.
	ErrInvalidWidth = errors.New("stack: drawing width must be positive")
	// ErrSpanNotFound is returned by Detail for a key outside the batch.
	ErrSpanNotFound = errors.New("stack: span not found")
)

// Stack is one linked and normalized span batch.
type Stack struct {
	nodes    []Node
	idx      index
	minStart int64
	palette  *Palette
	format   Formatter
	router   Router

	laneHeight int
	laneMargin int
}

// Option configures Build.
type Option func(*Stack)

// WithPalette replaces the default colour cycle.
func WithPalette(colors []string) Option {
	return func(s *Stack) {
		s.palette = NewPalette(colors)
	}
}

// WithFormatter replaces DefaultFormatter for labels.
func WithFormatter(f Formatter) Option {
	return func(s *Stack) {
		if f != nil {
			s.format = f
		}
	}
}

// WithLaneHeight sets the lane pitch in pixels. Bars are laneHeight minus the lane margin tall.
func WithLaneHeight(h int) Option {
	return func(s *Stack) {
		if h > s.laneMargin {
			s.laneHeight = h
		}
	}
}

// WithProximity sets the connector detour threshold in pixels.
func WithProximity(px float64) Option {
	return func(s *Stack) {
		s.router.Proximity = px
	}
}

// Build links spans into a stack. Spans keep their arrival order; that order
// decides lanes, not causal depth.
func Build(spans []models.Span, opts ...Option) (*Stack, error) {
	if len(spans) == 0 {
		return nil, ErrEmptyBatch
	}
	if !anyStartTime(spans) {
		return nil, ErrMissingStartTime
	}

	s := &Stack{
		palette:    NewPalette(nil),
		format:     DefaultFormatter{},
		router:     DefaultRouter(),
		laneHeight: DefaultLaneHeight,
		laneMargin: DefaultLaneMargin,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.idx = buildIndex(spans)
	s.nodes = link(spans, s.idx)
	for i := range s.nodes {
		s.nodes[i].Color = s.palette.Color(s.nodes[i].ApplicationCode)
	}
	s.minStart = normalize(s.nodes)
	return s, nil
}

func anyStartTime(spans []models.Span) bool {
	for i := range spans {
		if spans[i].StartTime != 0 {
			return true
		}
	}
	return false
}

// Nodes returns a copy of the linked nodes in arrival order.
func (s *Stack) Nodes() []Node {
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Node returns the node with the given key.
func (s *Stack) Node(key Identity) (Node, bool) {
	i, ok := s.idx[key]
	if !ok {
		return Node{}, false
	}
	return s.nodes[i], true
}

// Len returns the number of nodes, which is also the number of lanes.
func (s *Stack) Len() int {
	return len(s.nodes)
}

// MinStartTime returns the batch time origin.
func (s *Stack) MinStartTime() int64 {
	return s.minStart
}

// Roots returns the number of nodes without an in-batch parent.
func (s *Stack) Roots() int {
	n := 0
	for i := range s.nodes {
		if !s.nodes[i].HasParent() {
			n++
		}
	}
	return n
}

// Legend returns the application colours in first-seen order.
func (s *Stack) Legend() []LegendEntry {
	return s.palette.Legend()
}
