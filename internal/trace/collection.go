package trace

import (
	"slices"
	"strings"
)

// Collection is an ordered sequence of traces, sorted ascending by id. The
// order is load-bearing: sibling collections derived from the same dataset
// pair positionally in later stages.
type Collection struct {
	traces []*Trace
}

// NewCollection builds a collection from the given traces, sorting them by
// id. The traces themselves are not copied.
func NewCollection(traces ...*Trace) *Collection {
	sorted := slices.Clone(traces)
	slices.SortStableFunc(sorted, func(a, b *Trace) int {
		return CompareIDs(a.ID, b.ID)
	})
	return &Collection{traces: sorted}
}

// Len returns the number of traces in the collection.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.traces)
}

// At returns the i-th trace in id order.
func (c *Collection) At(i int) *Trace {
	return c.traces[i]
}

// Traces returns the underlying traces in id order. Callers must not reorder
// the returned slice.
func (c *Collection) Traces() []*Trace {
	if c == nil {
		return nil
	}
	return c.traces
}

// IDs returns the trace ids in collection order.
func (c *Collection) IDs() []string {
	ids := make([]string, c.Len())
	for i, t := range c.Traces() {
		ids[i] = t.ID
	}
	return ids
}

// ByID returns the trace with the given id, if present.
func (c *Collection) ByID(id string) (*Trace, bool) {
	for _, t := range c.Traces() {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the collection and every trace in it.
func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	traces := make([]*Trace, len(c.traces))
	for i, t := range c.traces {
		traces[i] = t.Clone()
	}
	return &Collection{traces: traces}
}

// CompareIDs orders trace ids by their leading integer value first, then by
// the full string, so "620" < "620bg" < "625" and "999" < "1000".
func CompareIDs(a, b string) int {
	na, aok := leadingInt(a)
	nb, bok := leadingInt(b)
	switch {
	case aok && bok && na != nb:
		if na < nb {
			return -1
		}
		return 1
	case aok != bok:
		// Numeric ids sort before non-numeric ones.
		if aok {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func leadingInt(s string) (int64, bool) {
	var n int64
	var digits int
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int64(r-'0')
		digits++
		if digits > 18 {
			return 0, false
		}
	}
	return n, digits > 0
}
