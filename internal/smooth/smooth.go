package smooth

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"sfgproc/internal/logging"
	"sfgproc/internal/trace"
)

// DefaultSigma is the standard deviation used when none is configured.
const DefaultSigma = 5.0

// truncate bounds the kernel at four standard deviations.
const truncate = 4.0

var (
	ErrSigma = errors.New("smooth: sigma must be positive")
	ErrEmpty = errors.New("smooth: empty input")
)

// Kernel returns the normalized Gaussian weights for sigma. The kernel has
// 2r+1 taps with r = int(4*sigma + 0.5).
func Kernel(sigma float64) ([]float64, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrSigma, sigma)
	}
	radius := int(truncate*sigma + 0.5)
	weights := make([]float64, 2*radius+1)
	for k := -radius; k <= radius; k++ {
		weights[k+radius] = math.Exp(-0.5 * float64(k*k) / (sigma * sigma))
	}
	floats.Scale(1/floats.Sum(weights), weights)
	return weights, nil
}

// reflectIndex maps i into [0, n) by reflecting about the array edges with
// the edge samples included.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// Values convolves values with the Gaussian kernel for sigma and returns a
// new slice. The input is not modified.
func Values(values []float64, sigma float64) ([]float64, error) {
	if len(values) == 0 {
		return nil, ErrEmpty
	}
	weights, err := Kernel(sigma)
	if err != nil {
		return nil, err
	}
	radius := len(weights) / 2

	out := make([]float64, len(values))
	for i := range values {
		var acc float64
		for k := -radius; k <= radius; k++ {
			acc += weights[k+radius] * values[reflectIndex(i+k, len(values))]
		}
		out[i] = acc
	}
	return out, nil
}

// Smoother smooths every trace in a collection with a fixed sigma.
type Smoother struct {
	sigma  float64
	logger *slog.Logger
}

func New(sigma float64, logger *slog.Logger) (*Smoother, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrSigma, sigma)
	}
	s := &Smoother{sigma: sigma}
	s.SetLogger(logger)
	return s, nil
}

// SetLogger updates the smoother's logging destination.
func (s *Smoother) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "smooth")
}

// Collection returns a smoothed copy of c. The input is untouched, so the
// caller can keep it as the pre-smoothing snapshot.
func (s *Smoother) Collection(c *trace.Collection) (*trace.Collection, error) {
	out := c.Clone()
	for _, tr := range out.Traces() {
		smoothed, err := Values(tr.Counts, s.sigma)
		if err != nil {
			return nil, fmt.Errorf("trace %s: %w", tr.ID, err)
		}
		tr.Counts = smoothed
		s.logger.Debug("trace smoothed",
			logging.String(logging.FieldTraceID, tr.ID),
			logging.Float64("sigma", s.sigma),
		)
	}
	return out, nil
}
