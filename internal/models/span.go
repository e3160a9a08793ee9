// Package models defines the span records exchanged between the trace backend and the stack engine.
package models

// Span is one recorded unit of work inside one service instance.
// Start and end times are epoch milliseconds.
type Span struct {
	TraceID         string     `json:"traceId,omitempty"`
	SegmentID       string     `json:"segmentId"`
	SpanID          int        `json:"spanId"`
	ParentSpanID    int        `json:"parentSpanId"`
	StartTime       int64      `json:"startTime"`
	EndTime         int64      `json:"endTime"`
	OperationName   string     `json:"operationName"`
	ApplicationCode string     `json:"applicationCode"`
	Type            string     `json:"type"`
	Peer            string     `json:"peer"`
	Component       string     `json:"component"`
	IsError         bool       `json:"isError"`
	Layer           string     `json:"layer"`
	Tags            []Tag      `json:"tags"`
	Logs            []LogEntry `json:"logs"`
	Refs            []Ref      `json:"refs"`
}

// Tag is a key/value annotation on a span.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LogEntry is a timed group of fields recorded on a span.
type LogEntry struct {
	Time int64 `json:"time"`
	Data []Tag `json:"data"`
}

// Ref points from a span to the span that caused it in another process.
type Ref struct {
	ParentSegmentID string `json:"parentSegmentId"`
	ParentSpanID    int    `json:"parentSpanId"`
	TraceID         string `json:"traceId"`
	Type            string `json:"type"`
}

// Duration returns endTime - startTime, or zero when the span ends before it starts.
func (s *Span) Duration() int64 {
	if s.EndTime < s.StartTime {
		return 0
	}
	return s.EndTime - s.StartTime
}

// IsCrossProcess returns true if the span carries at least one cross-process reference
func (s *Span) IsCrossProcess() bool {
	return len(s.Refs) > 0
}
