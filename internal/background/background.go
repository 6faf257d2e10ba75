package background

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gonum.org/v1/gonum/floats"

	"sfgproc/internal/logging"
	"sfgproc/internal/trace"
)

// Policy decides what to do when several backgrounds share a sample's
// detector key.
type Policy string

const (
	// PolicyError fails the run on an ambiguous match.
	PolicyError Policy = "error"
	// PolicyFirst subtracts only the first match in background sort order.
	PolicyFirst Policy = "first"
	// PolicyAverage subtracts the elementwise mean of all matches.
	PolicyAverage Policy = "average"
	// PolicySum subtracts every match cumulatively.
	PolicySum Policy = "sum"
)

var (
	ErrAmbiguousMatch = errors.New("background: multiple backgrounds match detector key")
	ErrLengthMismatch = errors.New("background: sample and background lengths differ")
	ErrPolicy         = errors.New("background: unknown match policy")
)

// ParsePolicy folds a config string into a Policy. Empty input selects
// PolicyError.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyError:
		return PolicyError, nil
	case PolicyFirst:
		return PolicyFirst, nil
	case PolicyAverage:
		return PolicyAverage, nil
	case PolicySum:
		return PolicySum, nil
	}
	return "", fmt.Errorf("%w: %q", ErrPolicy, s)
}

// Matcher subtracts matched backgrounds from sample traces.
type Matcher struct {
	policy Policy
	logger *slog.Logger
}

// NewMatcher builds a Matcher with the given ambiguity policy.
func NewMatcher(policy Policy, logger *slog.Logger) (*Matcher, error) {
	parsed, err := ParsePolicy(string(policy))
	if err != nil {
		return nil, err
	}
	m := &Matcher{policy: parsed}
	m.SetLogger(logger)
	return m, nil
}

// SetLogger updates the matcher's logging destination.
func (m *Matcher) SetLogger(logger *slog.Logger) {
	m.logger = logging.NewComponentLogger(logger, "background")
}

// Subtract returns a new collection with each sample's matched background
// subtracted, plus the number of samples no background matched. Unmatched
// samples pass through unchanged; they are logged and counted, never fatal.
func (m *Matcher) Subtract(samples, backgrounds *trace.Collection) (*trace.Collection, int, error) {
	out := samples.Clone()
	unmatched := 0

	for _, sample := range out.Traces() {
		key := sample.DetectorKey()
		var matches []*trace.Trace
		for _, bg := range backgrounds.Traces() {
			if bg.DetectorKey() == key {
				matches = append(matches, bg)
			}
		}

		if len(matches) == 0 {
			m.logger.Warn("no background found for sample",
				logging.String(logging.FieldTraceID, sample.ID),
				logging.Int(logging.FieldDetectorKey, key),
			)
			unmatched++
			continue
		}

		if len(matches) > 1 {
			if m.policy == PolicyError {
				return nil, 0, fmt.Errorf("%w: sample %s key %d matched %d backgrounds",
					ErrAmbiguousMatch, sample.ID, key, len(matches))
			}
			m.logger.Warn("ambiguous background match",
				logging.String(logging.FieldTraceID, sample.ID),
				logging.Int(logging.FieldDetectorKey, key),
				logging.Int("matches", len(matches)),
				logging.String("policy", string(m.policy)),
			)
			if m.policy == PolicyFirst {
				matches = matches[:1]
			}
		}

		if err := m.subtractMatches(sample, matches); err != nil {
			return nil, 0, err
		}
	}
	return out, unmatched, nil
}

func (m *Matcher) subtractMatches(sample *trace.Trace, matches []*trace.Trace) error {
	for _, bg := range matches {
		if bg.Len() != sample.Len() {
			return fmt.Errorf("%w: sample %s has %d points, background %s has %d",
				ErrLengthMismatch, sample.ID, sample.Len(), bg.ID, bg.Len())
		}
	}

	if m.policy == PolicyAverage && len(matches) > 1 {
		mean := make([]float64, sample.Len())
		for _, bg := range matches {
			floats.Add(mean, bg.Counts)
		}
		floats.Scale(1/float64(len(matches)), mean)
		floats.Sub(sample.Counts, mean)
	} else {
		for _, bg := range matches {
			floats.Sub(sample.Counts, bg.Counts)
		}
	}

	ids := make([]string, len(matches))
	for i, bg := range matches {
		ids[i] = bg.ID
	}
	m.logger.Info("background subtracted",
		logging.String(logging.FieldTraceID, sample.ID),
		logging.Int(logging.FieldDetectorKey, sample.DetectorKey()),
		logging.String("background", strings.Join(ids, ",")),
	)
	return nil
}
