package stack

import (
	"fmt"
	"strconv"
)

// Field is one labelled value in the span detail view.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogPanel groups the fields of one span log under its time.
type LogPanel struct {
	Label  string  `json:"label"`
	Time   int64   `json:"time"`
	Fields []Field `json:"fields"`
}

// RelatedTrace is one ref listed for a span rendered as a root.
type RelatedTrace struct {
	Type    string `json:"type"`
	TraceID string `json:"traceId"`
}

// Detail is the display-ready projection of one node.
type Detail struct {
	SpanKey Identity   `json:"spanKey"`
	Fields  []Field    `json:"fields"`
	Logs    []LogPanel `json:"logs"`
	// Related is nil when the span has a parent in the batch.
	Related []RelatedTrace `json:"related"`
}

// Detail returns the detail projection of the node with the given key.
func (s *Stack) Detail(key Identity) (*Detail, error) {
	i, ok := s.idx[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSpanNotFound, key)
	}
	return describe(&s.nodes[i], s.format), nil
}

func describe(n *Node, f Formatter) *Detail {
	d := &Detail{
		SpanKey: n.Key,
		Fields: []Field{
			{Label: "operation name", Value: n.OperationName},
			{Label: "duration", Value: f.Timestamp(n.StartTime) + " - " + f.Timestamp(n.EndTime)},
			{Label: "span type", Value: n.Type},
			{Label: "component", Value: n.Component},
			{Label: "peer", Value: n.Peer},
			{Label: "is error", Value: strconv.FormatBool(n.IsError)},
		},
	}
	for _, t := range n.Tags {
		d.Fields = append(d.Fields, Field{Label: t.Key, Value: t.Value})
	}

	for _, l := range n.Logs {
		panel := LogPanel{Label: f.LogTime(l.Time), Time: l.Time, Fields: make([]Field, 0, len(l.Data))}
		for _, kv := range l.Data {
			panel.Fields = append(panel.Fields, Field{Label: kv.Key, Value: kv.Value})
		}
		d.Logs = append(d.Logs, panel)
	}

	if n.HasParent() {
		return d
	}
	d.Related = []RelatedTrace{}
	if n.IsCrossProcess() {
		for _, r := range n.Refs {
			d.Related = append(d.Related, RelatedTrace{Type: r.Type, TraceID: r.TraceID})
		}
	}
	return d
}
