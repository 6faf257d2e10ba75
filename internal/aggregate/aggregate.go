// Package aggregate sums trace counts onto a shared grid.
package aggregate

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"sfgproc/internal/trace"
)

var (
	ErrLengthMismatch = errors.New("aggregate: trace length differs from grid length")
	ErrGridLength     = errors.New("aggregate: grid length must be positive")
)

// Sum adds every trace's counts elementwise into a fresh slice of length n.
// An empty collection yields all zeros.
func Sum(c *trace.Collection, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrGridLength, n)
	}
	total := make([]float64, n)
	for _, tr := range c.Traces() {
		if tr.Len() != n {
			return nil, fmt.Errorf("%w: trace %s has %d points, want %d",
				ErrLengthMismatch, tr.ID, tr.Len(), n)
		}
		floats.Add(total, tr.Counts)
	}
	return total, nil
}
