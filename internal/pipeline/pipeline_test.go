package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"sfgproc/internal/align"
	"sfgproc/internal/catalog"
	"sfgproc/internal/config"
	"sfgproc/internal/logging"
	"sfgproc/internal/pipeline"
	"sfgproc/internal/testsupport"
	"sfgproc/internal/truncate"
)

// The test geometry uses a 10-point grid and 4-point acquisitions:
// det620 occupies grid positions 0-3, det630 positions 6-9, det640
// positions 3-6.
func testConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	base := []testsupport.ConfigOption{
		testsupport.WithGridFile(testsupport.SequentialGrid(10, 1000, 1)),
		testsupport.WithPadding(map[string][]int{
			"det620": {0, 6},
			"det630": {6, 0},
			"det640": {3, 3},
		}),
	}
	return testsupport.NewConfig(t, append(base, opts...)...)
}

type traceSpec struct {
	id         string
	wavelength float64
	start      float64
	counts     []float64
	background []float64
}

func writeDataset(t *testing.T, dir string, specs []traceSpec) string {
	t.Helper()
	for _, spec := range specs {
		wn := testsupport.SequentialGrid(len(spec.counts), spec.start, 1)
		wl := testsupport.ConstantSlice(len(spec.counts), spec.wavelength)
		testsupport.WriteTraceFile(t, filepath.Join(dir, spec.id+".txt"), wn, wl, spec.counts)
		if spec.background != nil {
			testsupport.WriteTraceFile(t, filepath.Join(dir, spec.id+"bg.txt"), wn, wl, spec.background)
		}
	}
	return dir
}

func alphaSpecs() []traceSpec {
	return []traceSpec{
		{id: "1", wavelength: 620, start: 1000, counts: []float64{2, 6, 100, 4}, background: []float64{1, 1, 1, 1}},
		{id: "2", wavelength: 630, start: 1006, counts: []float64{4, 8, 50, 6}, background: []float64{2, 2, 2, 2}},
	}
}

func betaSpecs() []traceSpec {
	return []traceSpec{
		{id: "1", wavelength: 620, start: 1000, counts: []float64{3, 7, 20, 5}, background: []float64{1, 1, 1, 1}},
		{id: "2", wavelength: 630, start: 1006, counts: []float64{5, 9, 30, 7}, background: []float64{2, 2, 2, 2}},
	}
}

func newRunner(t *testing.T, cfg *config.Config) (*pipeline.Runner, *catalog.Store) {
	t.Helper()
	store := testsupport.MustOpenCatalog(t, cfg)
	runner, err := pipeline.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return runner, store
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func sumLinesFor(values []float64) []string {
	lines := make([]string, len(values))
	for i, v := range values {
		lines[i] = fmt.Sprintf("%.5f,%.5f", 1000+float64(i), v)
	}
	return lines
}

func TestRunProcessesDatasetsEndToEnd(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSmoothingDisabled())
	runner, store := newRunner(t, cfg)
	base := testsupport.BaseDir(cfg)
	alpha := writeDataset(t, filepath.Join(base, "alpha"), alphaSpecs())
	beta := writeDataset(t, filepath.Join(base, "beta"), betaSpecs())

	res, err := runner.Run(context.Background(), pipeline.Options{
		Dirs:  []string{alpha, beta},
		Label: "integration",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := uuid.Parse(res.RunID); err != nil {
		t.Errorf("run id %q is not a uuid: %v", res.RunID, err)
	}
	if res.Reference != "alpha" {
		t.Errorf("Reference = %q, want alpha", res.Reference)
	}
	if len(res.Datasets) != 2 || res.Datasets[0] != "alpha" || res.Datasets[1] != "beta" {
		t.Errorf("Datasets = %v, want [alpha beta]", res.Datasets)
	}
	if res.Warnings != 0 {
		t.Errorf("Warnings = %d, want 0", res.Warnings)
	}
	if res.Outputs != 12 {
		t.Errorf("Outputs = %d, want 12", res.Outputs)
	}
	if want := filepath.Join(cfg.Paths.OutputDir, res.RunID); res.OutputDir != want {
		t.Errorf("OutputDir = %q, want %q", res.OutputDir, want)
	}

	for _, ds := range []string{"alpha", "beta"} {
		for _, file := range []string{
			"raw_traces.csv", "subtracted_traces.csv", "padded.csv",
			"truncated.csv", "sum.csv", "truncated_sum.csv",
		} {
			if _, err := os.Stat(filepath.Join(res.OutputDir, ds, file)); err != nil {
				t.Errorf("missing output %s/%s: %v", ds, file, err)
			}
		}
		if _, err := os.Stat(filepath.Join(res.OutputDir, ds, "smoothed.csv")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s/smoothed.csv written with smoothing disabled", ds)
		}
	}

	// alpha: subtracted trace 1 is {1,5,99,3}, trace 2 is {2,6,48,4}; the
	// 0.05 windows are [1,3) and [6,9) on the padded grid.
	lines := readLines(t, filepath.Join(res.OutputDir, "alpha", "truncated_sum.csv"))
	if lines[0] != "wn,counts" {
		t.Errorf("truncated_sum header = %q, want wn,counts", lines[0])
	}
	wantAlpha := sumLinesFor([]float64{0, 5, 99, 0, 0, 0, 2, 6, 48, 0})
	if len(lines) != len(wantAlpha)+1 {
		t.Fatalf("alpha truncated_sum has %d lines, want %d", len(lines), len(wantAlpha)+1)
	}
	for i, want := range wantAlpha {
		if lines[i+1] != want {
			t.Errorf("alpha truncated_sum line %d = %q, want %q", i+1, lines[i+1], want)
		}
	}

	sumLines := readLines(t, filepath.Join(res.OutputDir, "alpha", "sum.csv"))
	wantSum := sumLinesFor([]float64{1, 5, 99, 3, 0, 0, 2, 6, 48, 4})
	if len(sumLines) != len(wantSum) {
		t.Fatalf("alpha sum.csv has %d lines, want %d (and no header)", len(sumLines), len(wantSum))
	}
	for i, want := range wantSum {
		if sumLines[i] != want {
			t.Errorf("alpha sum line %d = %q, want %q", i, sumLines[i], want)
		}
	}

	// beta reuses alpha's windows by trace id.
	betaLines := readLines(t, filepath.Join(res.OutputDir, "beta", "truncated_sum.csv"))
	wantBeta := sumLinesFor([]float64{0, 6, 19, 0, 0, 0, 3, 7, 28, 0})
	for i, want := range wantBeta {
		if betaLines[i+1] != want {
			t.Errorf("beta truncated_sum line %d = %q, want %q", i+1, betaLines[i+1], want)
		}
	}

	rawLines := readLines(t, filepath.Join(res.OutputDir, "alpha", "raw_traces.csv"))
	if rawLines[0] != "1000.00000,2.00000,1006.00000,4.00000" {
		t.Errorf("alpha raw_traces line 0 = %q", rawLines[0])
	}
	paddedLines := readLines(t, filepath.Join(res.OutputDir, "alpha", "padded.csv"))
	if paddedLines[6] != "1006.00000,0.00000,2.00000" {
		t.Errorf("alpha padded line 6 = %q", paddedLines[6])
	}

	run, err := store.GetRun(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run == nil {
		t.Fatal("GetRun returned nil for recorded run")
	}
	if run.Status != catalog.StatusCompleted {
		t.Errorf("run status = %q, want completed", run.Status)
	}
	if run.Label != "integration" || run.Reference != "alpha" {
		t.Errorf("run label/reference = %q/%q", run.Label, run.Reference)
	}
	if run.Warnings != 0 || run.Outputs != 12 {
		t.Errorf("run warnings/outputs = %d/%d, want 0/12", run.Warnings, run.Outputs)
	}
	if run.FinishedAt == nil {
		t.Error("run has no finish time")
	}

	outputs, err := store.OutputsForRun(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("OutputsForRun: %v", err)
	}
	if len(outputs) != 12 {
		t.Fatalf("OutputsForRun returned %d rows, want 12", len(outputs))
	}
	bySnapshot := make(map[string]int)
	for _, out := range outputs {
		bySnapshot[out.Snapshot]++
		if out.Dataset != "alpha" && out.Dataset != "beta" {
			t.Errorf("output dataset = %q", out.Dataset)
		}
		if _, err := os.Stat(out.Path); err != nil {
			t.Errorf("recorded output missing on disk: %v", err)
		}
		// Pair files carry the native 4-point rows, grid files the 10-point grid.
		wantRows := 10
		if out.Snapshot == "raw" || out.Snapshot == "subtracted" {
			wantRows = 4
		}
		if out.Rows != wantRows {
			t.Errorf("snapshot %q rows = %d, want %d", out.Snapshot, out.Rows, wantRows)
		}
	}
	for _, snapshot := range []string{"raw", "subtracted", "padded", "truncated", "summed", "truncated-summed"} {
		if bySnapshot[snapshot] != 2 {
			t.Errorf("snapshot %q recorded %d times, want 2", snapshot, bySnapshot[snapshot])
		}
	}
}

func TestRunWritesSmoothedSnapshot(t *testing.T) {
	cfg := testConfig(t)
	runner, store := newRunner(t, cfg)
	alpha := writeDataset(t, filepath.Join(testsupport.BaseDir(cfg), "alpha"), alphaSpecs())

	res, err := runner.Run(context.Background(), pipeline.Options{Dirs: []string{alpha}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outputs != 7 {
		t.Errorf("Outputs = %d, want 7", res.Outputs)
	}

	lines := readLines(t, filepath.Join(res.OutputDir, "alpha", "smoothed.csv"))
	if len(lines) != 10 {
		t.Errorf("smoothed.csv has %d lines, want 10", len(lines))
	}

	run, err := store.GetRun(context.Background(), res.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v, %v", run, err)
	}
	if run.Outputs != 7 {
		t.Errorf("run outputs = %d, want 7", run.Outputs)
	}
}

func TestRunCountsUnmatchedBackgrounds(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSmoothingDisabled())
	runner, store := newRunner(t, cfg)
	solo := writeDataset(t, filepath.Join(testsupport.BaseDir(cfg), "solo"), []traceSpec{
		{id: "1", wavelength: 620, start: 1000, counts: []float64{2, 6, 100, 4}, background: []float64{1, 1, 1, 1}},
		{id: "3", wavelength: 640, start: 1003, counts: []float64{3, 5, 40, 6}},
	})

	res, err := runner.Run(context.Background(), pipeline.Options{Dirs: []string{solo}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Warnings != 1 {
		t.Errorf("Warnings = %d, want 1", res.Warnings)
	}

	run, err := store.GetRun(context.Background(), res.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v, %v", run, err)
	}
	if run.Status != catalog.StatusCompleted {
		t.Errorf("run status = %q, want completed", run.Status)
	}
	if run.Warnings != 1 {
		t.Errorf("run warnings = %d, want 1", run.Warnings)
	}
}

func TestRunHonorsReferenceSelection(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSmoothingDisabled())
	runner, store := newRunner(t, cfg)
	base := testsupport.BaseDir(cfg)
	alpha := writeDataset(t, filepath.Join(base, "alpha"), alphaSpecs())
	beta := writeDataset(t, filepath.Join(base, "beta"), betaSpecs())

	// Reference given as a path, reduced to its base name.
	res, err := runner.Run(context.Background(), pipeline.Options{
		Dirs:      []string{alpha, beta},
		Reference: beta,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reference != "beta" {
		t.Errorf("Reference = %q, want beta", res.Reference)
	}

	run, err := store.GetRun(context.Background(), res.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v, %v", run, err)
	}
	if run.Reference != "beta" {
		t.Errorf("run reference = %q, want beta", run.Reference)
	}

	// Beta's trace 1 window is [0,4), so alpha's left flank survives where
	// its own window [1,3) would have zeroed position 0.
	lines := readLines(t, filepath.Join(res.OutputDir, "alpha", "truncated_sum.csv"))
	if lines[1] != "1000.00000,1.00000" {
		t.Errorf("alpha truncated_sum line 1 = %q, want 1000.00000,1.00000", lines[1])
	}
}

func TestRunFailsWhileAnotherRunHoldsLock(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSmoothingDisabled())
	runner, store := newRunner(t, cfg)
	alpha := writeDataset(t, filepath.Join(testsupport.BaseDir(cfg), "alpha"), alphaSpecs())

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquire test lock: locked=%v err=%v", locked, err)
	}
	defer lock.Unlock()

	if _, err := runner.Run(context.Background(), pipeline.Options{Dirs: []string{alpha}}); !errors.Is(err, pipeline.ErrRunInProgress) {
		t.Fatalf("Run error = %v, want ErrRunInProgress", err)
	}

	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("lock contention recorded %d runs, want 0", len(runs))
	}
}

func TestRunRejectsDuplicateDatasetNames(t *testing.T) {
	cfg := testConfig(t)
	runner, _ := newRunner(t, cfg)
	base := testsupport.BaseDir(cfg)
	one := filepath.Join(base, "one", "ds")
	two := filepath.Join(base, "two", "ds")
	for _, dir := range []string{one, two} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	_, err := runner.Run(context.Background(), pipeline.Options{Dirs: []string{one, two}})
	if !errors.Is(err, pipeline.ErrDuplicateDataset) {
		t.Fatalf("Run error = %v, want ErrDuplicateDataset", err)
	}
}

func TestRunRejectsBadSelections(t *testing.T) {
	cfg := testConfig(t)
	runner, _ := newRunner(t, cfg)
	alpha := writeDataset(t, filepath.Join(testsupport.BaseDir(cfg), "alpha"), alphaSpecs())

	if _, err := runner.Run(context.Background(), pipeline.Options{}); !errors.Is(err, pipeline.ErrNoDatasets) {
		t.Errorf("empty dirs error = %v, want ErrNoDatasets", err)
	}
	opts := pipeline.Options{Dirs: []string{alpha}, Reference: "gamma"}
	if _, err := runner.Run(context.Background(), opts); !errors.Is(err, pipeline.ErrUnknownReference) {
		t.Errorf("unknown reference error = %v, want ErrUnknownReference", err)
	}
}

func TestRunRequiresGridFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner, _ := newRunner(t, cfg)
	alpha := writeDataset(t, filepath.Join(testsupport.BaseDir(cfg), "alpha"), alphaSpecs())

	_, err := runner.Run(context.Background(), pipeline.Options{Dirs: []string{alpha}})
	if !errors.Is(err, pipeline.ErrNoGridFile) {
		t.Fatalf("Run error = %v, want ErrNoGridFile", err)
	}
}

func TestRunRecordsFailedRuns(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSmoothingDisabled())
	runner, store := newRunner(t, cfg)
	// det650 is not in the padding table.
	bad := writeDataset(t, filepath.Join(testsupport.BaseDir(cfg), "bad"), []traceSpec{
		{id: "1", wavelength: 650, start: 1000, counts: []float64{2, 6, 100, 4}, background: []float64{1, 1, 1, 1}},
	})

	_, err := runner.Run(context.Background(), pipeline.Options{Dirs: []string{bad}})
	if !errors.Is(err, align.ErrUnknownDetectorKey) {
		t.Fatalf("Run error = %v, want ErrUnknownDetectorKey", err)
	}
	if !strings.Contains(err.Error(), "dataset bad") {
		t.Errorf("error %q does not name the dataset", err)
	}

	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns returned %d runs, want 1", len(runs))
	}
	if runs[0].Status != catalog.StatusFailed {
		t.Errorf("run status = %q, want failed", runs[0].Status)
	}
	if runs[0].ErrorMessage == "" {
		t.Error("failed run has no error message")
	}
	if runs[0].FinishedAt == nil {
		t.Error("failed run has no finish time")
	}
}

func TestRunRequiresSharedTraceIDsForTruncation(t *testing.T) {
	cfg := testConfig(t, testsupport.WithSmoothingDisabled())
	runner, store := newRunner(t, cfg)
	base := testsupport.BaseDir(cfg)
	alpha := writeDataset(t, filepath.Join(base, "alpha"), alphaSpecs())
	gamma := writeDataset(t, filepath.Join(base, "gamma"), []traceSpec{
		{id: "1", wavelength: 620, start: 1000, counts: []float64{3, 7, 20, 5}, background: []float64{1, 1, 1, 1}},
		{id: "9", wavelength: 630, start: 1006, counts: []float64{5, 9, 30, 7}, background: []float64{2, 2, 2, 2}},
	})

	_, err := runner.Run(context.Background(), pipeline.Options{Dirs: []string{alpha, gamma}})
	if !errors.Is(err, truncate.ErrUnknownTraceID) {
		t.Fatalf("Run error = %v, want ErrUnknownTraceID", err)
	}

	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != catalog.StatusFailed {
		t.Fatalf("expected one failed run, got %v", runs)
	}
}
