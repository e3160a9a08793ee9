package stack

import (
	"math"
	"strconv"
)

// Scale maps duration-space values (milliseconds from the batch start) to pixels.
//
// The domain is not the raw maximum M but M rounded up to two significant
// digits (1234 -> 1300, 87 -> 87, 5 -> 5), so that axis ticks fall on round
// numbers. Bars and ticks share the same Scale and therefore stay aligned.
type Scale struct {
	max    int64
	extent float64
	width  float64
}

// NewScale builds a Scale for a batch whose furthest bar edge is maxEnd,
// drawn across width pixels.
func NewScale(maxEnd int64, width float64) Scale {
	if maxEnd <= 0 {
		maxEnd = 1
	}
	return Scale{
		max:    maxEnd,
		extent: float64(roundExtent(maxEnd)),
		width:  width,
	}
}

// roundExtent rounds m up to two significant digits.
func roundExtent(m int64) int64 {
	digits := len(strconv.FormatInt(m, 10))
	if digits <= 2 {
		return m
	}
	unit := int64(math.Pow10(digits - 2))
	return ((m + unit - 1) / unit) * unit
}

// Px converts an offset or a duration to pixels.
func (s Scale) Px(v int64) float64 {
	return float64(v) * s.width / s.extent
}

// Extent returns the rounded domain maximum.
func (s Scale) Extent() float64 {
	return s.extent
}

// Max returns the unrounded maximum the scale was built for.
func (s Scale) Max() int64 {
	return s.max
}

// Tick is one labelled axis mark.
type Tick struct {
	Value    int64   `json:"value"`
	Position float64 `json:"position"`
	Label    string  `json:"label"`
}

// Ticks returns evenly spaced ticks over [0, extent], aiming for roughly count
// of them. Steps are 1, 2 or 5 times a power of ten and never below 1ms.
func (s Scale) Ticks(count int, f Formatter) []Tick {
	if count <= 0 {
		count = 1
	}
	step := tickStep(s.extent, count)
	var ticks []Tick
	for i := int64(0); ; i++ {
		v := i * step
		if float64(v) > s.extent {
			break
		}
		ticks = append(ticks, Tick{
			Value:    v,
			Position: s.Px(v),
			Label:    f.Duration(v),
		})
	}
	return ticks
}

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

func tickStep(extent float64, count int) int64 {
	raw := extent / float64(count)
	power := math.Floor(math.Log10(raw))
	norm := raw / math.Pow(10, power)
	factor := 1.0
	switch {
	case norm >= e10:
		factor = 10
	case norm >= e5:
		factor = 5
	case norm >= e2:
		factor = 2
	}
	step := int64(math.Round(factor * math.Pow(10, power)))
	if step < 1 {
		step = 1
	}
	return step
}
