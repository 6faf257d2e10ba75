package despike

import (
	"errors"
	"log/slog"
	"math"
	"slices"

	"sfgproc/internal/logging"
	"sfgproc/internal/trace"
)

const (
	// DefaultThreshold is the residual, in counts, above the rolling median
	// at which a point is flagged as a spike.
	DefaultThreshold = 200.0
	// DefaultWindow is the rolling-median window width.
	DefaultWindow = 7

	// neighborReach bounds how far the replacement scan looks for a clean
	// point on each side of a spike.
	neighborReach = 5
)

var (
	ErrWindow     = errors.New("despike: window must be odd and at least 3")
	ErrThreshold  = errors.New("despike: threshold must be positive")
	ErrShortInput = errors.New("despike: input shorter than window")
)

// Spike records one detected artifact. Replaced is false when no clean
// neighbor existed within reach on either side; the point is then left
// unchanged.
type Spike struct {
	Index       int
	Value       float64
	Replacement float64
	Replaced    bool
}

// RollingMedian computes a centered rolling median over values with an odd
// window width. Positions too close to either edge for a full window carry
// the nearest fully-computed median instead of a partial-window value.
// Returns ErrShortInput when values is shorter than the window.
func RollingMedian(values []float64, window int) ([]float64, error) {
	if window < 3 || window%2 == 0 {
		return nil, ErrWindow
	}
	if len(values) < window {
		return nil, ErrShortInput
	}

	half := window / 2
	n := len(values)
	medians := make([]float64, n)
	buf := make([]float64, window)
	for i := half; i <= n-1-half; i++ {
		copy(buf, values[i-half:i+half+1])
		slices.Sort(buf)
		medians[i] = buf[half]
	}
	for i := 0; i < half; i++ {
		medians[i] = medians[half]
		medians[n-1-i] = medians[n-1-half]
	}
	return medians, nil
}

// Counts despikes one counts array, returning the cleaned copy and the
// spikes found. The input is never modified. An input shorter than the
// window has no fully-computed median and is returned unchanged.
func Counts(counts []float64, threshold float64, window int) ([]float64, []Spike, error) {
	if threshold <= 0 {
		return nil, nil, ErrThreshold
	}
	medians, err := RollingMedian(counts, window)
	if errors.Is(err, ErrShortInput) {
		return slices.Clone(counts), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	n := len(counts)
	isSpike := make([]bool, n)
	var flagged []int
	for i := 0; i < n; i++ {
		if counts[i]-medians[i] > threshold {
			isSpike[i] = true
			flagged = append(flagged, i)
		}
	}

	out := slices.Clone(counts)
	if len(flagged) == 0 {
		return out, nil, nil
	}

	spikes := make([]Spike, 0, len(flagged))
	for _, i := range flagged {
		var sum float64
		var found int
		for j := 1; j <= neighborReach; j++ {
			k := i - j
			if k < 0 {
				break
			}
			if !isSpike[k] {
				sum += counts[k]
				found++
				break
			}
		}
		for j := 1; j <= neighborReach; j++ {
			k := i + j
			if k >= n {
				break
			}
			if !isSpike[k] {
				sum += counts[k]
				found++
				break
			}
		}

		spike := Spike{Index: i, Value: counts[i]}
		if found > 0 {
			spike.Replacement = math.Floor(sum / float64(found))
			spike.Replaced = true
			out[i] = spike.Replacement
		}
		spikes = append(spikes, spike)
	}
	return out, spikes, nil
}

// Despiker applies cosmic-ray removal across whole collections.
type Despiker struct {
	threshold float64
	window    int
	logger    *slog.Logger
}

// New validates the despiking parameters and builds a Despiker.
func New(threshold float64, window int, logger *slog.Logger) (*Despiker, error) {
	if window < 3 || window%2 == 0 {
		return nil, ErrWindow
	}
	if threshold <= 0 {
		return nil, ErrThreshold
	}
	d := &Despiker{threshold: threshold, window: window}
	d.SetLogger(logger)
	return d, nil
}

// SetLogger updates the despiker's logging destination.
func (d *Despiker) SetLogger(logger *slog.Logger) {
	d.logger = logging.NewComponentLogger(logger, "despike")
}

// Collection despikes every trace, returning a new collection. Each spike is
// logged with its index and wavenumber; a clean trace is logged as such.
func (d *Despiker) Collection(c *trace.Collection) (*trace.Collection, error) {
	out := c.Clone()
	for _, tr := range out.Traces() {
		cleaned, spikes, err := Counts(tr.Counts, d.threshold, d.window)
		if err != nil {
			return nil, err
		}
		tr.Counts = cleaned

		if len(spikes) == 0 {
			d.logger.Info("no spikes found", logging.String(logging.FieldTraceID, tr.ID))
			continue
		}
		for _, s := range spikes {
			if !s.Replaced {
				d.logger.Warn("spike has no clean neighbor within reach; left unchanged",
					logging.String(logging.FieldTraceID, tr.ID),
					logging.Int("index", s.Index),
					logging.Float64("wavenumber", tr.Wavenumber[s.Index]),
				)
				continue
			}
			d.logger.Info("spike replaced",
				logging.String(logging.FieldTraceID, tr.ID),
				logging.Int("index", s.Index),
				logging.Float64("wavenumber", tr.Wavenumber[s.Index]),
				logging.Float64("value", s.Value),
				logging.Float64("replacement", s.Replacement),
			)
		}
	}
	return out, nil
}
