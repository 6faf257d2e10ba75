package aggregate_test

import (
	"errors"
	"testing"

	"sfgproc/internal/aggregate"
	"sfgproc/internal/trace"
)

func gridTrace(id string, counts []float64) *trace.Trace {
	return &trace.Trace{
		ID:         id,
		Wavenumber: make([]float64, len(counts)),
		Wavelength: make([]float64, len(counts)),
		Counts:     counts,
	}
}

func TestSum(t *testing.T) {
	c := trace.NewCollection(
		gridTrace("1", []float64{1, 2, 3, 4}),
		gridTrace("2", []float64{10, 0, 0, 40}),
		gridTrace("3", []float64{0, 0.5, 0, 0}),
	)
	got, err := aggregate.Sum(c, 4)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	want := []float64{11, 2.5, 3, 44}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sum[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// Summands are untouched.
	if c.Traces()[0].Counts[0] != 1 {
		t.Errorf("Sum modified its input")
	}
}

func TestSumEmptyCollection(t *testing.T) {
	got, err := aggregate.Sum(trace.NewCollection(), 3)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	for i, v := range got {
		if v != 0 {
			t.Fatalf("Sum[%d] = %v, want 0", i, v)
		}
	}
	if len(got) != 3 {
		t.Fatalf("Sum length = %d, want 3", len(got))
	}
}

func TestSumLengthMismatch(t *testing.T) {
	c := trace.NewCollection(gridTrace("1", []float64{1, 2, 3}))
	if _, err := aggregate.Sum(c, 4); !errors.Is(err, aggregate.ErrLengthMismatch) {
		t.Fatalf("Sum error = %v, want ErrLengthMismatch", err)
	}
	if _, err := aggregate.Sum(c, 0); !errors.Is(err, aggregate.ErrGridLength) {
		t.Fatalf("Sum error = %v, want ErrGridLength", err)
	}
}
