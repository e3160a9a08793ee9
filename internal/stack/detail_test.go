package stack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracestack/internal/models"
)

func detailBatch() []models.Span {
	start := time.Date(2024, 3, 9, 14, 7, 30, 0, time.UTC).UnixMilli()
	return []models.Span{
		{
			SegmentID: "segA", SpanID: 0, ParentSpanID: -1,
			StartTime: start, EndTime: start + 250,
			OperationName: "/checkout", Type: "Entry", Component: "SpringMVC", Peer: "",
			Refs: []models.Ref{{ParentSegmentID: "elsewhere", ParentSpanID: 2, TraceID: "trace-up", Type: "CROSS_PROCESS"}},
			Tags: []models.Tag{{Key: "url", Value: "/checkout"}, {Key: "http.method", Value: "POST"}},
			Logs: []models.LogEntry{
				{Time: start + 10, Data: []models.Tag{{Key: "event", Value: "error"}, {Key: "message", Value: "boom"}}},
				{Time: start + 20, Data: []models.Tag{{Key: "event", Value: "retry"}}},
			},
		},
		{
			SegmentID: "segA", SpanID: 1, ParentSpanID: 0,
			StartTime: start + 5, EndTime: start + 60,
			OperationName: "Mysql/JDBI/Statement/execute", Type: "Exit", Peer: "db:3306", IsError: true,
			Refs: []models.Ref{{ParentSegmentID: "elsewhere", ParentSpanID: 2, TraceID: "trace-up"}},
		},
	}
}

func TestDetailRoot(t *testing.T) {
	s, err := Build(detailBatch())
	require.NoError(t, err)

	d, err := s.Detail(Key("segA", 0))
	require.NoError(t, err)

	assert.Equal(t, []Field{
		{Label: "operation name", Value: "/checkout"},
		{Label: "duration", Value: "2024-03-09 14:07:30.000 - 2024-03-09 14:07:30.250"},
		{Label: "span type", Value: "Entry"},
		{Label: "component", Value: "SpringMVC"},
		{Label: "peer", Value: ""},
		{Label: "is error", Value: "false"},
		{Label: "url", Value: "/checkout"},
		{Label: "http.method", Value: "POST"},
	}, d.Fields)

	require.Len(t, d.Logs, 2)
	assert.Equal(t, "07:30.010", d.Logs[0].Label)
	assert.Equal(t, []Field{{Label: "event", Value: "error"}, {Label: "message", Value: "boom"}}, d.Logs[0].Fields)
	assert.Equal(t, "07:30.020", d.Logs[1].Label)

	assert.Equal(t, []RelatedTrace{{Type: "CROSS_PROCESS", TraceID: "trace-up"}}, d.Related)
}

func TestDetailChildHasNoRelatedTraces(t *testing.T) {
	s, err := Build(detailBatch())
	require.NoError(t, err)

	d, err := s.Detail(Key("segA", 1))
	require.NoError(t, err)

	assert.Nil(t, d.Related)
	assert.Empty(t, d.Logs)
	assert.Equal(t, "true", d.Fields[5].Value)
	assert.Len(t, d.Fields, 6)
}

func TestDetailRootWithoutRefs(t *testing.T) {
	s, err := Build([]models.Span{{SegmentID: "a", StartTime: 1, EndTime: 2}})
	require.NoError(t, err)

	d, err := s.Detail(Key("a", 0))
	require.NoError(t, err)
	assert.NotNil(t, d.Related)
	assert.Empty(t, d.Related)
}

func TestDetailDoesNotMutate(t *testing.T) {
	s, err := Build(detailBatch())
	require.NoError(t, err)

	before := s.Nodes()
	_, err = s.Detail(Key("segA", 0))
	require.NoError(t, err)
	assert.Equal(t, before, s.Nodes())
}

func TestDetailNotFound(t *testing.T) {
	s, err := Build(detailBatch())
	require.NoError(t, err)

	_, err = s.Detail(Key("nope", 0))
	assert.ErrorIs(t, err, ErrSpanNotFound)
}
