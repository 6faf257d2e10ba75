package trace

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
)

var (
	ErrEmpty          = errors.New("trace: empty trace")
	ErrLengthMismatch = errors.New("trace: array lengths differ")
)

// BackgroundSuffix is the reserved id suffix marking background acquisitions.
const BackgroundSuffix = "bg"

// Trace is one spectral acquisition. Wavenumber, Wavelength, and Counts are
// index-aligned and equal-length as loaded. Once counts are padded onto the
// canonical grid they outgrow the native axes and pair with the grid
// instead.
type Trace struct {
	ID         string
	Wavenumber []float64
	Wavelength []float64
	Counts     []float64
}

// Validate checks the equal-length invariant and rejects empty traces.
func (t *Trace) Validate() error {
	if len(t.Counts) == 0 {
		return fmt.Errorf("%w: %s", ErrEmpty, t.ID)
	}
	if len(t.Wavenumber) != len(t.Counts) || len(t.Wavelength) != len(t.Counts) {
		return fmt.Errorf("%w: %s has wavenumber=%d wavelength=%d counts=%d",
			ErrLengthMismatch, t.ID, len(t.Wavenumber), len(t.Wavelength), len(t.Counts))
	}
	return nil
}

// Len returns the number of points in the trace.
func (t *Trace) Len() int {
	return len(t.Counts)
}

// IsBackground reports whether the trace id carries the background suffix.
func (t *Trace) IsBackground() bool {
	return len(t.ID) > len(BackgroundSuffix) && t.ID[len(t.ID)-len(BackgroundSuffix):] == BackgroundSuffix
}

// Clone returns a deep copy of the trace.
func (t *Trace) Clone() *Trace {
	return &Trace{
		ID:         t.ID,
		Wavenumber: slices.Clone(t.Wavenumber),
		Wavelength: slices.Clone(t.Wavelength),
		Counts:     slices.Clone(t.Counts),
	}
}

// DetectorKey derives the integer detector identity of the trace: the
// rounded median of its wavelength axis.
func (t *Trace) DetectorKey() int {
	return int(math.Round(median(t.Wavelength)))
}

// DetectorLabel renders the detector key in padding-table form, e.g. "det620".
func (t *Trace) DetectorLabel() string {
	return "det" + strconv.Itoa(t.DetectorKey())
}

// median returns the middle value of values, averaging the two middle values
// for even lengths. Returns 0 for empty input.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
