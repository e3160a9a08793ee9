package stack

import (
	"fmt"
	"math"
)

// Lane geometry defaults, in pixels.
const (
	DefaultLaneHeight = 36
	DefaultLaneMargin = 10
	DefaultTickCount  = 4
	axisTickOverhang  = 40
)

// Bar is the rectangle drawn for one span.
type Bar struct {
	SpanKey Identity `json:"spanKey"`
	Lane    int      `json:"lane"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
	Fill    string   `json:"fill"`
	Label   string   `json:"label"`
	IsError bool     `json:"isError"`
}

// Axis describes the duration axis drawn above the lanes.
type Axis struct {
	Ticks []Tick `json:"ticks"`
	// Extent is the duration value at the right edge of the drawing.
	Extent float64 `json:"extent"`
	// TickSize is the length of the tick lines, long enough to cross every lane.
	TickSize float64 `json:"tickSize"`
}

// Layout is the complete geometry for one pass over a batch at one width.
// It is never patched: a new width or batch produces a new Layout.
type Layout struct {
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	Bars       []Bar         `json:"bars"`
	Connectors []Connector   `json:"connectors"`
	Axis       Axis          `json:"axis"`
	Legend     []LegendEntry `json:"legend"`
}

// Bar returns the bar drawn for key.
func (l *Layout) Bar(key Identity) (Bar, bool) {
	for _, b := range l.Bars {
		if b.SpanKey == key {
			return b, true
		}
	}
	return Bar{}, false
}

// ValidWidth reports whether width is a finite, positive pixel count.
func ValidWidth(width float64) bool {
	return width > 0 && !math.IsInf(width, 1)
}

// Layout computes bar, connector and axis geometry for width pixels.
//
// Bars are placed first, one lane per node in arrival order. Connectors are
// routed in a second pass once every bar exists, so a parent that arrives
// after its child is still connected.
func (s *Stack) Layout(width float64) (*Layout, error) {
	if !ValidWidth(width) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWidth, width)
	}

	var maxEnd int64
	for i := range s.nodes {
		if e := s.nodes[i].End(); e > maxEnd {
			maxEnd = e
		}
	}
	scale := NewScale(maxEnd, width)

	lane := float64(s.laneHeight)
	barHeight := float64(s.laneHeight - s.laneMargin)

	out := &Layout{
		Width:  width,
		Height: lane * float64(len(s.nodes)),
		Bars:   make([]Bar, len(s.nodes)),
		Axis: Axis{
			Ticks:    scale.Ticks(DefaultTickCount, s.format),
			Extent:   scale.Extent(),
			TickSize: lane*float64(len(s.nodes)) + axisTickOverhang,
		},
		Legend: s.palette.Legend(),
	}

	for i := range s.nodes {
		n := &s.nodes[i]
		out.Bars[i] = Bar{
			SpanKey: n.Key,
			Lane:    i,
			X:       scale.Px(n.StartOffset),
			Y:       float64(i) * lane,
			Width:   scale.Px(n.Duration),
			Height:  barHeight,
			Fill:    n.Color,
			Label:   n.OperationName + "  " + s.format.Duration(n.Duration),
			IsError: n.IsError,
		}
	}

	for i := range s.nodes {
		n := &s.nodes[i]
		if !n.HasParent() {
			continue
		}
		p := s.idx[n.ParentKey]
		out.Connectors = append(out.Connectors, Connector{
			FromKey:  n.ParentKey,
			ToKey:    n.Key,
			Segments: s.router.Route(out.Bars[p], out.Bars[i]),
			Arrow:    true,
		})
	}

	return out, nil
}
