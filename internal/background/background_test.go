package background_test

import (
	"errors"
	"testing"

	"sfgproc/internal/background"
	"sfgproc/internal/logging"
	"sfgproc/internal/trace"
)

func sampleTrace(id string, wl, counts float64, n int) *trace.Trace {
	tr := &trace.Trace{ID: id}
	for i := 0; i < n; i++ {
		tr.Wavenumber = append(tr.Wavenumber, float64(i))
		tr.Wavelength = append(tr.Wavelength, wl)
		tr.Counts = append(tr.Counts, counts)
	}
	return tr
}

func newMatcher(t *testing.T, policy background.Policy) *background.Matcher {
	t.Helper()
	m, err := background.NewMatcher(policy, logging.NewNop())
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return m
}

func TestParsePolicy(t *testing.T) {
	cases := []struct {
		in   string
		want background.Policy
	}{
		{"", background.PolicyError},
		{"error", background.PolicyError},
		{"First", background.PolicyFirst},
		{" average ", background.PolicyAverage},
		{"SUM", background.PolicySum},
	}
	for _, tc := range cases {
		got, err := background.ParsePolicy(tc.in)
		if err != nil {
			t.Fatalf("ParsePolicy(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParsePolicy(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := background.ParsePolicy("median"); !errors.Is(err, background.ErrPolicy) {
		t.Fatalf("ParsePolicy(median): got %v, want ErrPolicy", err)
	}
}

func TestSubtractZeroBackgroundLeavesSampleUnchanged(t *testing.T) {
	samples := trace.NewCollection(sampleTrace("620", 620, 500, 8))
	backgrounds := trace.NewCollection(sampleTrace("620bg", 620, 0, 8))

	out, unmatched, err := newMatcher(t, background.PolicyError).Subtract(samples, backgrounds)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	if unmatched != 0 {
		t.Fatalf("unmatched: got %d, want 0", unmatched)
	}
	for i, v := range out.At(0).Counts {
		if v != 500 {
			t.Fatalf("counts[%d]: got %v, want 500", i, v)
		}
	}
}

func TestSubtractConstantBackground(t *testing.T) {
	samples := trace.NewCollection(sampleTrace("620", 620, 500, 8))
	backgrounds := trace.NewCollection(sampleTrace("620bg", 620, 30, 8))

	out, _, err := newMatcher(t, background.PolicyError).Subtract(samples, backgrounds)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	for i, v := range out.At(0).Counts {
		if v != 470 {
			t.Fatalf("counts[%d]: got %v, want 470", i, v)
		}
	}
	if samples.At(0).Counts[0] != 500 {
		t.Fatal("input sample was mutated")
	}
}

func TestSubtractUnmatchedSamplePassesThrough(t *testing.T) {
	samples := trace.NewCollection(
		sampleTrace("620", 620, 500, 8),
		sampleTrace("630", 630, 400, 8),
	)
	backgrounds := trace.NewCollection(sampleTrace("620bg", 620, 30, 8))

	out, unmatched, err := newMatcher(t, background.PolicyError).Subtract(samples, backgrounds)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	if unmatched != 1 {
		t.Fatalf("unmatched: got %d, want 1", unmatched)
	}
	if out.At(0).Counts[0] != 470 {
		t.Fatalf("matched sample: got %v, want 470", out.At(0).Counts[0])
	}
	if out.At(1).Counts[0] != 400 {
		t.Fatalf("unmatched sample: got %v, want 400 unchanged", out.At(1).Counts[0])
	}
}

func TestSubtractAmbiguousMatchPolicies(t *testing.T) {
	newInputs := func() (*trace.Collection, *trace.Collection) {
		samples := trace.NewCollection(sampleTrace("620", 620, 500, 4))
		backgrounds := trace.NewCollection(
			sampleTrace("620bg", 620, 10, 4),
			sampleTrace("621bg", 620, 30, 4),
		)
		return samples, backgrounds
	}

	t.Run("error", func(t *testing.T) {
		samples, backgrounds := newInputs()
		_, _, err := newMatcher(t, background.PolicyError).Subtract(samples, backgrounds)
		if !errors.Is(err, background.ErrAmbiguousMatch) {
			t.Fatalf("Subtract: got %v, want ErrAmbiguousMatch", err)
		}
	})

	t.Run("first", func(t *testing.T) {
		samples, backgrounds := newInputs()
		out, _, err := newMatcher(t, background.PolicyFirst).Subtract(samples, backgrounds)
		if err != nil {
			t.Fatalf("Subtract: %v", err)
		}
		if got := out.At(0).Counts[0]; got != 490 {
			t.Fatalf("first policy: got %v, want 500-10 = 490", got)
		}
	})

	t.Run("average", func(t *testing.T) {
		samples, backgrounds := newInputs()
		out, _, err := newMatcher(t, background.PolicyAverage).Subtract(samples, backgrounds)
		if err != nil {
			t.Fatalf("Subtract: %v", err)
		}
		if got := out.At(0).Counts[0]; got != 480 {
			t.Fatalf("average policy: got %v, want 500-(10+30)/2 = 480", got)
		}
	})

	t.Run("sum", func(t *testing.T) {
		samples, backgrounds := newInputs()
		out, _, err := newMatcher(t, background.PolicySum).Subtract(samples, backgrounds)
		if err != nil {
			t.Fatalf("Subtract: %v", err)
		}
		if got := out.At(0).Counts[0]; got != 460 {
			t.Fatalf("sum policy: got %v, want 500-10-30 = 460", got)
		}
	})
}

func TestSubtractRejectsLengthMismatch(t *testing.T) {
	samples := trace.NewCollection(sampleTrace("620", 620, 500, 8))
	backgrounds := trace.NewCollection(sampleTrace("620bg", 620, 30, 6))

	_, _, err := newMatcher(t, background.PolicyError).Subtract(samples, backgrounds)
	if !errors.Is(err, background.ErrLengthMismatch) {
		t.Fatalf("Subtract: got %v, want ErrLengthMismatch", err)
	}
}
