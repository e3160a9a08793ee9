package stack

import "tracestack/internal/models"

// Node is a span placed in the stack: the original record plus its resolved
// identity, causal parent and position relative to the batch start.
type Node struct {
	models.Span

	Key         Identity `json:"spanKey"`
	ParentKey   Identity `json:"parentKey,omitempty"`
	StartOffset int64    `json:"startOffset"`
	// Duration is clamped at zero for spans that end before they start.
	Duration int64 `json:"duration"`
	Color    string `json:"color"`
}

// HasParent reports whether the node's parent was found in the same batch.
func (n *Node) HasParent() bool {
	return n.ParentKey != ""
}

// End returns startOffset + duration, the right edge of the bar in duration space.
func (n *Node) End() int64 {
	return n.StartOffset + n.Duration
}

// index maps identities to node positions. The first node with a given key wins.
type index map[Identity]int

func buildIndex(spans []models.Span) index {
	idx := make(index, len(spans))
	for i := range spans {
		k := Key(spans[i].SegmentID, spans[i].SpanID)
		if _, dup := idx[k]; dup {
			continue
		}
		idx[k] = i
	}
	return idx
}

// resolveParent returns the in-batch parent identity of span, or "" for a root.
// A cross-process ref is preferred; the first ref that matches wins.
// Otherwise the span's parentSpanId within its own segment is tried.
func resolveParent(span *models.Span, idx index) Identity {
	for _, ref := range span.Refs {
		k := Key(ref.ParentSegmentID, ref.ParentSpanID)
		if _, ok := idx[k]; ok {
			return k
		}
	}
	k := Key(span.SegmentID, span.ParentSpanID)
	if _, ok := idx[k]; ok {
		return k
	}
	return ""
}

// link builds one node per span in arrival order with keys and parents resolved.
func link(spans []models.Span, idx index) []Node {
	nodes := make([]Node, len(spans))
	for i := range spans {
		span := spans[i]
		nodes[i] = Node{
			Span:      span,
			Key:       Key(span.SegmentID, span.SpanID),
			ParentKey: resolveParent(&span, idx),
			Duration:  span.Duration(),
		}
		// A span whose parent id points at itself would otherwise become its own parent.
		if nodes[i].ParentKey == nodes[i].Key {
			nodes[i].ParentKey = ""
		}
	}
	return nodes
}

// normalize sets every node's startOffset against the earliest start time in the batch
// and returns that minimum. nodes must be non-empty.
func normalize(nodes []Node) int64 {
	min := nodes[0].StartTime
	for i := 1; i < len(nodes); i++ {
		if nodes[i].StartTime < min {
			min = nodes[i].StartTime
		}
	}
	for i := range nodes {
		nodes[i].StartOffset = nodes[i].StartTime - min
	}
	return min
}
