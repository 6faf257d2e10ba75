// Package align zero-pads sample traces onto the canonical grid. Each
// detector segment covers a known window of the full axis, so padding
// amounts are a static per-detector lookup supplied by configuration.
package align

import (
	"errors"
	"fmt"
	"log/slog"

	"sfgproc/internal/logging"
	"sfgproc/internal/trace"
)

var (
	ErrUnknownDetectorKey = errors.New("align: unknown detector key")
	ErrPadLength          = errors.New("align: padded length differs from grid length")
	ErrTable              = errors.New("align: invalid padding table")
	ErrGridLength         = errors.New("align: grid length must be positive")
)

// Pad holds the zero-fill amounts for one detector segment.
type Pad struct {
	Left  int
	Right int
}

// Table maps detector labels (e.g. "det620") to pad amounts.
type Table map[string]Pad

// Aligner pads collections onto a fixed-length grid.
type Aligner struct {
	table  Table
	length int
	logger *slog.Logger
}

// NewAligner validates the padding table against the grid length and builds
// an Aligner.
func NewAligner(table Table, gridLength int, logger *slog.Logger) (*Aligner, error) {
	if gridLength <= 0 {
		return nil, ErrGridLength
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: table is empty", ErrTable)
	}
	for label, pad := range table {
		if pad.Left < 0 || pad.Right < 0 {
			return nil, fmt.Errorf("%w: %s has negative pad [%d, %d]", ErrTable, label, pad.Left, pad.Right)
		}
		if pad.Left+pad.Right > gridLength {
			return nil, fmt.Errorf("%w: %s pads %d+%d exceed grid length %d", ErrTable, label, pad.Left, pad.Right, gridLength)
		}
	}
	a := &Aligner{table: table, length: gridLength}
	a.SetLogger(logger)
	return a, nil
}

// SetLogger updates the aligner's logging destination.
func (a *Aligner) SetLogger(logger *slog.Logger) {
	a.logger = logging.NewComponentLogger(logger, "align")
}

// Pad returns a new collection whose counts are zero-padded to the grid
// length. The wavenumber and wavelength axes are left at their native
// length; padded counts pair with the canonical grid downstream. A detector
// label absent from the table, or pads that do not land exactly on the grid
// length, are configuration errors.
func (a *Aligner) Pad(samples *trace.Collection) (*trace.Collection, error) {
	out := samples.Clone()
	for _, tr := range out.Traces() {
		label := tr.DetectorLabel()
		pad, ok := a.table[label]
		if !ok {
			return nil, fmt.Errorf("%w: %s (sample %s)", ErrUnknownDetectorKey, label, tr.ID)
		}
		if total := pad.Left + tr.Len() + pad.Right; total != a.length {
			return nil, fmt.Errorf("%w: %s pads %d+%d around %d points give %d, want %d",
				ErrPadLength, label, pad.Left, pad.Right, tr.Len(), total, a.length)
		}

		padded := make([]float64, a.length)
		copy(padded[pad.Left:], tr.Counts)
		tr.Counts = padded

		a.logger.Debug("trace padded",
			logging.String(logging.FieldTraceID, tr.ID),
			logging.Int(logging.FieldDetectorKey, tr.DetectorKey()),
			logging.Int("left", pad.Left),
			logging.Int("right", pad.Right),
		)
	}
	return out, nil
}
