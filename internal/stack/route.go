package stack

// Segment is one straight piece of a connector.
type Segment struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Connector links a parent bar to a child bar. The arrowhead, when set,
// sits at the end of the last segment.
type Connector struct {
	FromKey  Identity  `json:"fromKey"`
	ToKey    Identity  `json:"toKey"`
	Segments []Segment `json:"segments"`
	Arrow    bool      `json:"arrow"`
}

// Router computes orthogonal connector paths between bars.
type Router struct {
	// Proximity is the horizontal distance below which the connector
	// detours left of the parent instead of dropping straight down.
	Proximity float64
	StubX     float64
	StubY     float64
	// ArrowInset keeps the arrowhead from overlapping the child bar.
	ArrowInset float64
}

// DefaultRouter returns the router used by Layout unless overridden.
func DefaultRouter() Router {
	return Router{
		Proximity:  10,
		StubX:      15,
		StubY:      6,
		ArrowInset: 5,
	}
}

// Route returns the path from the bottom-left corner of parent to the
// vertical middle of child's left edge.
//
// When the child starts less than Proximity pixels right of the parent, a
// vertical drop from the parent's corner would run along the child's own
// bar, so the path steps left first and produces three segments.
// Otherwise it produces two.
func (r Router) Route(parent, child Bar) []Segment {
	px := parent.X
	py := parent.Y + parent.Height
	cy := child.Y + child.Height/2
	end := child.X - r.ArrowInset

	if child.X-parent.X < r.Proximity {
		sx := px - r.StubX
		sy := py - r.StubY
		return []Segment{
			{X1: px, Y1: sy, X2: sx, Y2: sy},
			{X1: sx, Y1: sy, X2: sx, Y2: cy},
			{X1: sx, Y1: cy, X2: end, Y2: cy},
		}
	}
	return []Segment{
		{X1: px, Y1: py, X2: px, Y2: cy},
		{X1: px, Y1: cy, X2: end, Y2: cy},
	}
}
