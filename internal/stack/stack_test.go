package stack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracestack/internal/models"
)

func gatewayOrderBatch() []models.Span {
	return []models.Span{
		{
			SegmentID:       "segA",
			SpanID:          1,
			ParentSpanID:    -1,
			StartTime:       1000,
			EndTime:         1200,
			OperationName:   "/checkout",
			ApplicationCode: "gateway",
			Refs:            []models.Ref{},
		},
		{
			SegmentID:       "segB",
			SpanID:          1,
			ParentSpanID:    1,
			StartTime:       1050,
			EndTime:         1150,
			OperationName:   "/orders",
			ApplicationCode: "order-service",
			Refs:            []models.Ref{{ParentSegmentID: "segA", ParentSpanID: 1, TraceID: "t-1", Type: "CROSS_PROCESS"}},
		},
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("segA", 1), Key("segA", 1))
	assert.NotEqual(t, Key("segA", 1), Key("segA", 2))
	assert.NotEqual(t, Key("segA", 1), Key("segB", 1))
	assert.Equal(t, "segA,1", Key("segA", 1).String())
}

func TestBuildLinksCrossProcessRef(t *testing.T) {
	s, err := Build(gatewayOrderBatch())
	require.NoError(t, err)

	nodes := s.Nodes()
	require.Len(t, nodes, 2)

	assert.False(t, nodes[0].HasParent())
	assert.Equal(t, int64(0), nodes[0].StartOffset)
	assert.Equal(t, int64(200), nodes[0].Duration)

	assert.Equal(t, Key("segA", 1), nodes[1].ParentKey)
	assert.Equal(t, int64(50), nodes[1].StartOffset)
	assert.Equal(t, int64(100), nodes[1].Duration)

	assert.Equal(t, int64(1000), s.MinStartTime())
	assert.Equal(t, 1, s.Roots())
}

func TestBuildUnresolvedRefIsRoot(t *testing.T) {
	spans := []models.Span{
		{SegmentID: "segA", SpanID: 0, ParentSpanID: -1, StartTime: 10, EndTime: 20, ApplicationCode: "a"},
		{
			SegmentID: "segB", SpanID: 0, ParentSpanID: 7, StartTime: 12, EndTime: 18, ApplicationCode: "b",
			Refs: []models.Ref{{ParentSegmentID: "X", ParentSpanID: 9, TraceID: "other", Type: "CROSS_PROCESS"}},
		},
	}

	s, err := Build(spans)
	require.NoError(t, err)

	n, ok := s.Node(Key("segB", 0))
	require.True(t, ok)
	assert.False(t, n.HasParent())
	assert.Equal(t, 2, s.Roots())
}

func TestResolveParent(t *testing.T) {
	batch := []models.Span{
		{SegmentID: "s1", SpanID: 0, ParentSpanID: -1, StartTime: 1},
		{SegmentID: "s1", SpanID: 1, ParentSpanID: 0, StartTime: 2},
		{SegmentID: "s2", SpanID: 0, ParentSpanID: -1, StartTime: 3},
	}
	idx := buildIndex(batch)

	tests := []struct {
		name     string
		span     models.Span
		expected Identity
	}{
		{
			name:     "same segment parent",
			span:     models.Span{SegmentID: "s1", SpanID: 5, ParentSpanID: 1},
			expected: Key("s1", 1),
		},
		{
			name: "ref wins over same segment parent",
			span: models.Span{SegmentID: "s1", SpanID: 5, ParentSpanID: 1,
				Refs: []models.Ref{{ParentSegmentID: "s2", ParentSpanID: 0}}},
			expected: Key("s2", 0),
		},
		{
			name: "first matching ref wins",
			span: models.Span{SegmentID: "s3", SpanID: 0, ParentSpanID: -1,
				Refs: []models.Ref{
					{ParentSegmentID: "gone", ParentSpanID: 4},
					{ParentSegmentID: "s1", ParentSpanID: 1},
					{ParentSegmentID: "s2", ParentSpanID: 0},
				}},
			expected: Key("s1", 1),
		},
		{
			name: "unmatched refs fall back to parent span id",
			span: models.Span{SegmentID: "s2", SpanID: 3, ParentSpanID: 0,
				Refs: []models.Ref{{ParentSegmentID: "gone", ParentSpanID: 4}}},
			expected: Key("s2", 0),
		},
		{
			name:     "no match is a root",
			span:     models.Span{SegmentID: "s9", SpanID: 0, ParentSpanID: -1},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveParent(&tt.span, idx))
		})
	}
}

func TestBuildParentsExistInBatch(t *testing.T) {
	spans := []models.Span{
		{SegmentID: "b", SpanID: 1, ParentSpanID: 0, StartTime: 130, EndTime: 150},
		{SegmentID: "a", SpanID: 0, ParentSpanID: -1, StartTime: 100, EndTime: 300},
		{SegmentID: "b", SpanID: 0, ParentSpanID: -1, StartTime: 120, EndTime: 200,
			Refs: []models.Ref{{ParentSegmentID: "a", ParentSpanID: 0}}},
		{SegmentID: "c", SpanID: 2, ParentSpanID: 1, StartTime: 400, EndTime: 400,
			Refs: []models.Ref{{ParentSegmentID: "zzz", ParentSpanID: 1}}},
	}

	s, err := Build(spans)
	require.NoError(t, err)

	keys := map[Identity]bool{}
	for _, n := range s.Nodes() {
		keys[n.Key] = true
	}

	zeroOffsets := 0
	for _, n := range s.Nodes() {
		assert.GreaterOrEqual(t, n.StartOffset, int64(0))
		if n.StartOffset == 0 {
			zeroOffsets++
		}
		if n.HasParent() {
			assert.True(t, keys[n.ParentKey], "dangling parent %s", n.ParentKey)
			assert.NotEqual(t, n.Key, n.ParentKey)
		}
	}
	assert.GreaterOrEqual(t, zeroOffsets, 1)

	// Arrival order is kept.
	assert.Equal(t, Key("b", 1), s.Nodes()[0].Key)
	assert.Equal(t, Key("b", 0), s.Nodes()[0].ParentKey)
}

func TestBuildDuplicateKeysFirstWins(t *testing.T) {
	spans := []models.Span{
		{SegmentID: "a", SpanID: 0, ParentSpanID: -1, StartTime: 100, EndTime: 200, OperationName: "first"},
		{SegmentID: "a", SpanID: 0, ParentSpanID: -1, StartTime: 110, EndTime: 150, OperationName: "second"},
		{SegmentID: "a", SpanID: 1, ParentSpanID: 0, StartTime: 120, EndTime: 130},
	}

	s, err := Build(spans)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	n, ok := s.Node(Key("a", 0))
	require.True(t, ok)
	assert.Equal(t, "first", n.OperationName)

	l, err := s.Layout(500)
	require.NoError(t, err)
	assert.Len(t, l.Bars, 3)
}

func TestBuildSelfReferenceIsRoot(t *testing.T) {
	s, err := Build([]models.Span{{SegmentID: "a", SpanID: 3, ParentSpanID: 3, StartTime: 5, EndTime: 9}})
	require.NoError(t, err)
	assert.False(t, s.Nodes()[0].HasParent())
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = Build([]models.Span{})
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = Build([]models.Span{{SegmentID: "a"}, {SegmentID: "b"}})
	assert.ErrorIs(t, err, ErrMissingStartTime)
}

func TestBuildNegativeDurationClamped(t *testing.T) {
	s, err := Build([]models.Span{{SegmentID: "a", StartTime: 500, EndTime: 400}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.Nodes()[0].Duration)
}

func TestPaletteSharedAndCycledColors(t *testing.T) {
	spans := []models.Span{
		{SegmentID: "a", SpanID: 0, StartTime: 1, EndTime: 2, ApplicationCode: "gateway"},
		{SegmentID: "a", SpanID: 1, StartTime: 1, EndTime: 2, ApplicationCode: "gateway"},
		{SegmentID: "b", SpanID: 0, StartTime: 1, EndTime: 2, ApplicationCode: "orders"},
	}

	s, err := Build(spans, WithPalette([]string{"red", "green"}))
	require.NoError(t, err)

	nodes := s.Nodes()
	assert.Equal(t, nodes[0].Color, nodes[1].Color)
	assert.Equal(t, "red", nodes[0].Color)
	assert.Equal(t, "green", nodes[2].Color)
	assert.Equal(t, []LegendEntry{
		{ApplicationCode: "gateway", Color: "red"},
		{ApplicationCode: "orders", Color: "green"},
	}, s.Legend())
}

func TestPaletteWraps(t *testing.T) {
	p := NewPalette([]string{"c0", "c1", "c2"})

	assert.Equal(t, "c0", p.Color("a"))
	assert.Equal(t, "c1", p.Color("b"))
	assert.Equal(t, "c2", p.Color("c"))
	assert.Equal(t, "c0", p.Color("d"))
	assert.Equal(t, "c1", p.Color("b"))
	assert.Equal(t, "c1", p.Color("e"))
	assert.Len(t, p.Legend(), 5)
}

func TestPaletteDefaults(t *testing.T) {
	p := NewPalette(nil)
	assert.Equal(t, DefaultColors[0], p.Color(""))
}

func TestFormatter(t *testing.T) {
	f := DefaultFormatter{}

	assert.Equal(t, "0ms", f.Duration(0))
	assert.Equal(t, "850ms", f.Duration(850))
	assert.Equal(t, "1.2s", f.Duration(1234))
	assert.Equal(t, "2m5s", f.Duration(125_400))

	ts := time.Date(2024, 3, 9, 14, 7, 30, 123_000_000, time.UTC).UnixMilli()
	assert.Equal(t, "2024-03-09 14:07:30.123", f.Timestamp(ts))
	assert.Equal(t, "07:30.123", f.LogTime(ts))

	loc := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, "2024-03-09 16:07:30.123", DefaultFormatter{Location: loc}.Timestamp(ts))
}
