// Package spectrum sequences the processing stages for one dataset and
// retains every intermediate snapshot by name. Stages must run in
// dependency order; invoking one before its prerequisite snapshot exists
// fails fast rather than operating on stale data.
package spectrum

import (
	"errors"
	"fmt"
	"log/slog"

	"sfgproc/internal/aggregate"
	"sfgproc/internal/align"
	"sfgproc/internal/background"
	"sfgproc/internal/despike"
	"sfgproc/internal/logging"
	"sfgproc/internal/smooth"
	"sfgproc/internal/trace"
	"sfgproc/internal/truncate"
)

// Collection snapshot names, in pipeline order.
const (
	SnapshotRaw         = "raw"
	SnapshotSubtracted  = "subtracted"
	SnapshotPadded      = "padded"
	SnapshotPreSmoothed = "pre-smoothed"
	SnapshotSmoothed    = "smoothed"
	SnapshotTruncated   = "truncated"
)

// Sum snapshot names.
const (
	SnapshotSummed          = "summed"
	SnapshotTruncatedSummed = "truncated-summed"
)

var ErrMissingSnapshot = errors.New("spectrum: missing snapshot")

var collectionOrder = []string{
	SnapshotRaw,
	SnapshotSubtracted,
	SnapshotPadded,
	SnapshotPreSmoothed,
	SnapshotSmoothed,
	SnapshotTruncated,
}

// Spectrum owns one dataset's samples and backgrounds and every snapshot
// produced from them. Snapshots are deep copies; none aliases another.
type Spectrum struct {
	name        string
	samples     *trace.Collection
	backgrounds *trace.Collection

	// backgrounds after despiking, consumed by subtraction
	cleanBackgrounds *trace.Collection

	collections map[string]*trace.Collection
	sums        map[string][]float64

	logger *slog.Logger
}

// New builds a Spectrum over the loaded samples and backgrounds. name is
// the dataset label used in logs and exports.
func New(name string, samples, backgrounds *trace.Collection, logger *slog.Logger) *Spectrum {
	if samples == nil {
		samples = trace.NewCollection()
	}
	if backgrounds == nil {
		backgrounds = trace.NewCollection()
	}
	s := &Spectrum{
		name:        name,
		samples:     samples,
		backgrounds: backgrounds,
		collections: make(map[string]*trace.Collection),
		sums:        make(map[string][]float64),
	}
	s.SetLogger(logger)
	return s
}

// SetLogger updates the spectrum's logging destination.
func (s *Spectrum) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "spectrum").
		With(logging.String(logging.FieldDataset, s.name))
}

// Name returns the dataset label.
func (s *Spectrum) Name() string {
	return s.name
}

// Despike removes cosmic-ray spikes from samples and backgrounds. The
// despiked samples become the "raw" snapshot; despiked backgrounds are kept
// for subtraction.
func (s *Spectrum) Despike(d *despike.Despiker) error {
	samples, err := d.Collection(s.samples)
	if err != nil {
		return fmt.Errorf("despike samples: %w", err)
	}
	backgrounds, err := d.Collection(s.backgrounds)
	if err != nil {
		return fmt.Errorf("despike backgrounds: %w", err)
	}
	s.collections[SnapshotRaw] = samples
	s.cleanBackgrounds = backgrounds
	s.stageDone(SnapshotRaw)
	return nil
}

// SubtractBackgrounds subtracts matched backgrounds from the raw snapshot,
// producing "subtracted". Returns the number of samples with no matching
// background.
func (s *Spectrum) SubtractBackgrounds(m *background.Matcher) (int, error) {
	raw, err := s.Collection(SnapshotRaw)
	if err != nil {
		return 0, err
	}
	subtracted, unmatched, err := m.Subtract(raw, s.cleanBackgrounds)
	if err != nil {
		return 0, fmt.Errorf("subtract backgrounds: %w", err)
	}
	s.collections[SnapshotSubtracted] = subtracted
	s.stageDone(SnapshotSubtracted)
	return unmatched, nil
}

// Pad zero-fills the subtracted snapshot onto the canonical grid, producing
// "padded".
func (s *Spectrum) Pad(a *align.Aligner) error {
	subtracted, err := s.Collection(SnapshotSubtracted)
	if err != nil {
		return err
	}
	padded, err := a.Pad(subtracted)
	if err != nil {
		return fmt.Errorf("pad: %w", err)
	}
	s.collections[SnapshotPadded] = padded
	s.stageDone(SnapshotPadded)
	return nil
}

// SumPadded sums the padded snapshot into "summed".
func (s *Spectrum) SumPadded(gridLength int) error {
	padded, err := s.Collection(SnapshotPadded)
	if err != nil {
		return err
	}
	sum, err := aggregate.Sum(padded, gridLength)
	if err != nil {
		return fmt.Errorf("sum padded: %w", err)
	}
	s.sums[SnapshotSummed] = sum
	s.stageDone(SnapshotSummed)
	return nil
}

// Smooth Gaussian-smooths the padded snapshot. The padded input is retained
// as "pre-smoothed" and the result becomes "smoothed".
func (s *Spectrum) Smooth(sm *smooth.Smoother) error {
	padded, err := s.Collection(SnapshotPadded)
	if err != nil {
		return err
	}
	smoothed, err := sm.Collection(padded)
	if err != nil {
		return fmt.Errorf("smooth: %w", err)
	}
	s.collections[SnapshotPreSmoothed] = padded.Clone()
	s.collections[SnapshotSmoothed] = smoothed
	s.stageDone(SnapshotSmoothed)
	return nil
}

// truncationInput is the smoothed snapshot, or the padded one when
// smoothing was skipped.
func (s *Spectrum) truncationInput() (*trace.Collection, error) {
	if c, ok := s.collections[SnapshotSmoothed]; ok {
		return c, nil
	}
	if c, ok := s.collections[SnapshotPadded]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingSnapshot, SnapshotSmoothed)
}

// DiscoverTruncation finds per-trace truncation windows on this spectrum.
// When this spectrum is the reference dataset, the returned set is applied
// to every sibling.
func (s *Spectrum) DiscoverTruncation(t *truncate.Truncator) (*truncate.IndexSet, error) {
	in, err := s.truncationInput()
	if err != nil {
		return nil, err
	}
	set, err := t.Discover(in)
	if err != nil {
		return nil, fmt.Errorf("discover truncation: %w", err)
	}
	return set, nil
}

// Truncate applies set to this spectrum, producing "truncated".
func (s *Spectrum) Truncate(t *truncate.Truncator, set *truncate.IndexSet) error {
	in, err := s.truncationInput()
	if err != nil {
		return err
	}
	truncated, err := t.Apply(in, set)
	if err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	s.collections[SnapshotTruncated] = truncated
	s.stageDone(SnapshotTruncated)
	return nil
}

// SumTruncated sums the truncated snapshot into "truncated-summed".
func (s *Spectrum) SumTruncated(gridLength int) error {
	truncated, err := s.Collection(SnapshotTruncated)
	if err != nil {
		return err
	}
	sum, err := aggregate.Sum(truncated, gridLength)
	if err != nil {
		return fmt.Errorf("sum truncated: %w", err)
	}
	s.sums[SnapshotTruncatedSummed] = sum
	s.stageDone(SnapshotTruncatedSummed)
	return nil
}

// Collection returns the named collection snapshot. The returned collection
// is owned by the spectrum and must not be modified.
func (s *Spectrum) Collection(name string) (*trace.Collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSnapshot, name)
	}
	return c, nil
}

// Sum returns the named sum snapshot. The returned slice is owned by the
// spectrum and must not be modified.
func (s *Spectrum) Sum(name string) ([]float64, error) {
	sum, ok := s.sums[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSnapshot, name)
	}
	return sum, nil
}

// Snapshots lists the collection snapshots present, in pipeline order.
func (s *Spectrum) Snapshots() []string {
	var names []string
	for _, name := range collectionOrder {
		if _, ok := s.collections[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Sums lists the sum snapshots present.
func (s *Spectrum) Sums() []string {
	var names []string
	for _, name := range []string{SnapshotSummed, SnapshotTruncatedSummed} {
		if _, ok := s.sums[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// HasSnapshot reports whether the named collection or sum snapshot exists.
func (s *Spectrum) HasSnapshot(name string) bool {
	if _, ok := s.collections[name]; ok {
		return true
	}
	_, ok := s.sums[name]
	return ok
}

func (s *Spectrum) stageDone(snapshot string) {
	s.logger.Debug("snapshot stored",
		logging.String(logging.FieldSnapshot, snapshot),
		logging.Any("have", append(s.Snapshots(), s.Sums()...)),
	)
}
