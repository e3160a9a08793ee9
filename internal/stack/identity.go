package stack

import "strconv"

// Identity is the composite key of a span within one trace view.
type Identity string

// Key joins a segment scope and a span id into an Identity.
// Spans in different segments may share a local id, so both halves are needed.
func Key(scope string, id int) Identity {
	return Identity(scope + "," + strconv.Itoa(id))
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	return string(i)
}
