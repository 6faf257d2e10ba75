package truncate

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"sfgproc/internal/logging"
	"sfgproc/internal/trace"
)

// DefaultFraction is the peak fraction used to place the left edge when
// none is configured.
const DefaultFraction = 0.05

var (
	ErrFraction            = errors.New("truncate: fraction must be in (0, 1)")
	ErrEmpty               = errors.New("truncate: empty trace")
	ErrUnknownTraceID      = errors.New("truncate: no truncation range for trace")
	ErrCardinalityMismatch = errors.New("truncate: range count differs from trace count")
	ErrRange               = errors.New("truncate: invalid truncation range")
)

// Range is a half-open truncation window [Left, Right).
type Range struct {
	Left  int
	Right int
}

// IndexSet maps trace IDs to their truncation ranges.
type IndexSet struct {
	ranges map[string]Range
}

// NewIndexSet copies ranges into a fresh set.
func NewIndexSet(ranges map[string]Range) *IndexSet {
	s := &IndexSet{ranges: make(map[string]Range, len(ranges))}
	for id, r := range ranges {
		s.ranges[id] = r
	}
	return s
}

func (s *IndexSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ranges)
}

// Range reports the window for id and whether one exists.
func (s *IndexSet) Range(id string) (Range, bool) {
	if s == nil {
		return Range{}, false
	}
	r, ok := s.ranges[id]
	return r, ok
}

// IDs returns the trace IDs in collection order.
func (s *IndexSet) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.ranges))
	for id := range s.ranges {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, trace.CompareIDs)
	return ids
}

// Bounds computes the truncation window for a single counts series.
func Bounds(counts []float64, fraction float64) (Range, error) {
	if fraction <= 0 || fraction >= 1 {
		return Range{}, fmt.Errorf("%w: %g", ErrFraction, fraction)
	}
	if len(counts) == 0 {
		return Range{}, ErrEmpty
	}

	maxIdx := 0
	for i, v := range counts {
		if v > counts[maxIdx] {
			maxIdx = i
		}
	}
	target := counts[maxIdx] * fraction

	left := 0
	if maxIdx > 0 {
		best := math.Abs(counts[0] - target)
		for i := 1; i < maxIdx; i++ {
			if d := math.Abs(counts[i] - target); d < best {
				best = d
				left = i
			}
		}
	}

	right := maxIdx
	best := math.Abs(counts[maxIdx] - target)
	for i := maxIdx + 1; i < len(counts); i++ {
		if d := math.Abs(counts[i] - target); d < best {
			best = d
			right = i
		}
	}

	return Range{Left: left, Right: right}, nil
}

// Truncator discovers windows on one collection and applies them to another.
type Truncator struct {
	fraction float64
	logger   *slog.Logger
}

func New(fraction float64, logger *slog.Logger) (*Truncator, error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, fmt.Errorf("%w: %g", ErrFraction, fraction)
	}
	t := &Truncator{fraction: fraction}
	t.SetLogger(logger)
	return t, nil
}

// SetLogger updates the truncator's logging destination.
func (t *Truncator) SetLogger(logger *slog.Logger) {
	t.logger = logging.NewComponentLogger(logger, "truncate")
}

// Discover computes a window for every trace in c.
func (t *Truncator) Discover(c *trace.Collection) (*IndexSet, error) {
	set := &IndexSet{ranges: make(map[string]Range, c.Len())}
	for _, tr := range c.Traces() {
		r, err := Bounds(tr.Counts, t.fraction)
		if err != nil {
			return nil, fmt.Errorf("trace %s: %w", tr.ID, err)
		}
		set.ranges[tr.ID] = r
		t.logger.Debug("truncation window",
			logging.String(logging.FieldTraceID, tr.ID),
			logging.Int("left", r.Left),
			logging.Int("right", r.Right),
		)
	}
	return set, nil
}

// Apply returns a copy of c with counts outside each trace's window zeroed.
// Every trace must have a window in set and vice versa.
func (t *Truncator) Apply(c *trace.Collection, set *IndexSet) (*trace.Collection, error) {
	if set.Len() != c.Len() {
		return nil, fmt.Errorf("%w: %d ranges for %d traces", ErrCardinalityMismatch, set.Len(), c.Len())
	}
	out := c.Clone()
	for _, tr := range out.Traces() {
		r, ok := set.Range(tr.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTraceID, tr.ID)
		}
		if r.Left < 0 || r.Right < r.Left || r.Right > tr.Len() {
			return nil, fmt.Errorf("%w: trace %s window [%d, %d) over %d points",
				ErrRange, tr.ID, r.Left, r.Right, tr.Len())
		}
		for i := 0; i < r.Left; i++ {
			tr.Counts[i] = 0
		}
		for i := r.Right; i < tr.Len(); i++ {
			tr.Counts[i] = 0
		}
	}
	return out, nil
}
