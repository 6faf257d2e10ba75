// Package pipeline runs the full assembly sequence over one or more dataset
// directories and records the outcome in the run catalog. A process lock
// serializes runs so concurrent invocations cannot interleave catalog writes
// or output directories.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"sfgproc/internal/align"
	"sfgproc/internal/background"
	"sfgproc/internal/catalog"
	"sfgproc/internal/config"
	"sfgproc/internal/despike"
	"sfgproc/internal/export"
	"sfgproc/internal/grid"
	"sfgproc/internal/loader"
	"sfgproc/internal/logging"
	"sfgproc/internal/smooth"
	"sfgproc/internal/spectrum"
	"sfgproc/internal/truncate"
)

var (
	ErrNoDatasets       = errors.New("pipeline: no dataset directories")
	ErrDuplicateDataset = errors.New("pipeline: duplicate dataset name")
	ErrUnknownReference = errors.New("pipeline: reference is not one of the datasets")
	ErrNoGridFile       = errors.New("pipeline: grid.file is not configured")
	ErrRunInProgress    = errors.New("pipeline: another run is in progress")
)

// Output file names, one per exported snapshot.
const (
	fileRawTraces        = "raw_traces.csv"
	fileSubtractedTraces = "subtracted_traces.csv"
	filePadded           = "padded.csv"
	fileSmoothed         = "smoothed.csv"
	fileTruncated        = "truncated.csv"
	fileSum              = "sum.csv"
	fileTruncatedSum     = "truncated_sum.csv"
)

// Options select what a run processes.
type Options struct {
	// Dirs are the dataset directories, one spectrum each. The directory
	// base name becomes the dataset name.
	Dirs []string
	// Reference names the dataset whose truncation window applies to every
	// dataset. Defaults to the first directory. A path is reduced to its
	// base name before matching.
	Reference string
	// OutputDir overrides paths.output_dir for this run when set.
	OutputDir string
	// Label is a free-form description stored with the run.
	Label string
}

// Result summarizes a completed run.
type Result struct {
	RunID     string
	Label     string
	Reference string
	Datasets  []string
	Warnings  int
	Outputs   int
	// OutputDir is the run-specific output root containing one
	// subdirectory per dataset.
	OutputDir string
}

// Runner executes the assembly pipeline and records runs in the catalog.
type Runner struct {
	cfg   *config.Config
	store *catalog.Store

	// base is handed to stages and spectra, which attach their own
	// component fields; logger carries the runner's own.
	base   *slog.Logger
	logger *slog.Logger
}

// New constructs a Runner with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*Runner, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("pipeline requires config and catalog store")
	}
	r := &Runner{cfg: cfg, store: store}
	r.SetLogger(logger)
	return r, nil
}

// SetLogger updates the runner's logging destination.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	r.base = logger
	r.logger = logging.NewComponentLogger(logger, "pipeline")
}

type dataset struct {
	name string
	dir  string
}

// Run executes the pipeline over opts.Dirs. Every run is recorded in the
// catalog, including failed ones; the error message of a failed run is
// stored alongside the warnings counted before the failure.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	datasets, err := resolveDatasets(opts.Dirs)
	if err != nil {
		return nil, err
	}
	reference, err := chooseReference(datasets, opts.Reference)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.cfg.Grid.File) == "" {
		return nil, fmt.Errorf("%w: set grid.file in the configuration", ErrNoGridFile)
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(r.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("pipeline: acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	axis, err := grid.Load(r.cfg.Grid.File, r.cfg.Grid.Length)
	if err != nil {
		return nil, err
	}

	outputDir := strings.TrimSpace(opts.OutputDir)
	if outputDir == "" {
		outputDir = r.cfg.Paths.OutputDir
	} else {
		outputDir, err = config.ExpandPath(outputDir)
		if err != nil {
			return nil, fmt.Errorf("pipeline: resolve output dir: %w", err)
		}
	}

	run, err := r.store.BeginRun(ctx, opts.Label, reference)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithRunID(ctx, run.ID)
	runLogger := logging.WithContext(ctx, r.logger)

	result := &Result{
		RunID:     run.ID,
		Label:     opts.Label,
		Reference: reference,
		OutputDir: filepath.Join(outputDir, run.ID),
	}
	for _, ds := range datasets {
		result.Datasets = append(result.Datasets, ds.name)
	}

	runLogger.Info("run started",
		logging.Any("datasets", result.Datasets),
		logging.String("reference", reference),
		logging.Int("grid_points", axis.Len()),
	)

	if err := r.execute(ctx, axis, datasets, reference, result); err != nil {
		finishErr := r.store.FinishRun(context.WithoutCancel(ctx), run.ID,
			catalog.StatusFailed, result.Warnings, err.Error())
		if finishErr != nil {
			runLogger.Warn("failed to record run failure", logging.Error(finishErr))
		}
		return nil, err
	}

	if err := r.store.FinishRun(ctx, run.ID, catalog.StatusCompleted, result.Warnings, ""); err != nil {
		return nil, fmt.Errorf("pipeline: finish run: %w", err)
	}
	runLogger.Info("run completed",
		logging.Int("warnings", result.Warnings),
		logging.Int("outputs", result.Outputs),
		logging.String("output_dir", result.OutputDir),
	)
	return result, nil
}

// execute runs every stage after the catalog run record exists, so stage
// construction failures are recorded as failed runs too.
func (r *Runner) execute(ctx context.Context, axis *grid.Grid, datasets []dataset, reference string, result *Result) error {
	st, err := r.buildStages(axis.Len(), logging.WithContext(ctx, r.base))
	if err != nil {
		return err
	}

	spectra := make([]*spectrum.Spectrum, 0, len(datasets))
	var refSpectrum *spectrum.Spectrum
	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return err
		}
		sp, warnings, err := r.processDataset(ctx, st, axis, ds)
		if err != nil {
			return fmt.Errorf("dataset %s: %w", ds.name, err)
		}
		result.Warnings += warnings
		spectra = append(spectra, sp)
		if ds.name == reference {
			refSpectrum = sp
		}
	}

	// chooseReference guarantees the reference is among the datasets.
	st.setLogger(datasetLogger(ctx, r.base, reference))
	set, err := refSpectrum.DiscoverTruncation(st.truncator)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", reference, err)
	}

	for i, sp := range spectra {
		if err := ctx.Err(); err != nil {
			return err
		}
		st.setLogger(datasetLogger(ctx, r.base, datasets[i].name))
		if err := sp.Truncate(st.truncator, set); err != nil {
			return fmt.Errorf("dataset %s: %w", datasets[i].name, err)
		}
		if err := sp.SumTruncated(axis.Len()); err != nil {
			return fmt.Errorf("dataset %s: %w", datasets[i].name, err)
		}
	}

	for i, sp := range spectra {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := filepath.Join(result.OutputDir, datasets[i].name)
		outputs, err := r.exportDataset(ctx, datasetLogger(ctx, r.logger, datasets[i].name), axis, sp, result.RunID, dir)
		if err != nil {
			return fmt.Errorf("dataset %s: %w", datasets[i].name, err)
		}
		result.Outputs += outputs
	}
	return nil
}

// processDataset loads one directory and runs it through despiking,
// background subtraction, padding, summation, and optional smoothing.
// Returns the spectrum and the number of unmatched-background warnings.
func (r *Runner) processDataset(ctx context.Context, st *stages, axis *grid.Grid, ds dataset) (*spectrum.Spectrum, int, error) {
	// The spectrum attaches its own dataset field, so it gets the
	// run-scoped base; stages and the runner's own lines get the
	// dataset-scoped one.
	spectrumLogger := logging.WithContext(ctx, r.base)
	logger := datasetLogger(ctx, r.logger, ds.name)
	st.setLogger(datasetLogger(ctx, r.base, ds.name))

	samples, backgrounds, err := st.loader.LoadDir(ds.dir)
	if err != nil {
		return nil, 0, err
	}
	logger.Info("dataset loaded",
		logging.Int("samples", samples.Len()),
		logging.Int("backgrounds", backgrounds.Len()),
	)

	sp := spectrum.New(ds.name, samples, backgrounds, spectrumLogger)
	if err := sp.Despike(st.despiker); err != nil {
		return nil, 0, err
	}
	unmatched, err := sp.SubtractBackgrounds(st.matcher)
	if err != nil {
		return nil, 0, err
	}
	if unmatched > 0 {
		logger.Warn("samples without matching background", logging.Int("unmatched", unmatched))
	}
	if err := sp.Pad(st.aligner); err != nil {
		return nil, 0, err
	}
	if err := sp.SumPadded(axis.Len()); err != nil {
		return nil, 0, err
	}
	if st.smoother != nil {
		if err := sp.Smooth(st.smoother); err != nil {
			return nil, 0, err
		}
	}
	return sp, unmatched, nil
}

// exportDataset writes every exportable snapshot into dir and records each
// file in the catalog. The smoothed snapshot is skipped when smoothing was
// disabled.
func (r *Runner) exportDataset(ctx context.Context, logger *slog.Logger, axis *grid.Grid, sp *spectrum.Spectrum, runID, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	gridWN := axis.Wavenumbers()
	outputs := 0

	record := func(snapshot, path string, rows int) error {
		if _, err := r.store.RecordOutput(ctx, runID, sp.Name(), snapshot, path, rows); err != nil {
			return fmt.Errorf("record %s output: %w", snapshot, err)
		}
		outputs++
		return nil
	}

	pairFiles := []struct {
		snapshot string
		file     string
	}{
		{spectrum.SnapshotRaw, fileRawTraces},
		{spectrum.SnapshotSubtracted, fileSubtractedTraces},
	}
	for _, pf := range pairFiles {
		c, err := sp.Collection(pf.snapshot)
		if err != nil {
			return outputs, err
		}
		path := filepath.Join(dir, pf.file)
		if err := export.WritePairs(path, c); err != nil {
			return outputs, err
		}
		if err := record(pf.snapshot, path, c.At(0).Len()); err != nil {
			return outputs, err
		}
	}

	gridFiles := []struct {
		snapshot string
		file     string
	}{
		{spectrum.SnapshotPadded, filePadded},
		{spectrum.SnapshotSmoothed, fileSmoothed},
		{spectrum.SnapshotTruncated, fileTruncated},
	}
	for _, gf := range gridFiles {
		if gf.snapshot == spectrum.SnapshotSmoothed && !sp.HasSnapshot(gf.snapshot) {
			continue
		}
		c, err := sp.Collection(gf.snapshot)
		if err != nil {
			return outputs, err
		}
		path := filepath.Join(dir, gf.file)
		if err := export.WriteGridColumns(path, gridWN, c); err != nil {
			return outputs, err
		}
		if err := record(gf.snapshot, path, len(gridWN)); err != nil {
			return outputs, err
		}
	}

	sumFiles := []struct {
		snapshot string
		file     string
		header   bool
	}{
		{spectrum.SnapshotSummed, fileSum, false},
		{spectrum.SnapshotTruncatedSummed, fileTruncatedSum, true},
	}
	for _, sf := range sumFiles {
		sum, err := sp.Sum(sf.snapshot)
		if err != nil {
			return outputs, err
		}
		path := filepath.Join(dir, sf.file)
		if err := export.WriteSum(path, gridWN, sum, sf.header); err != nil {
			return outputs, err
		}
		if err := record(sf.snapshot, path, len(gridWN)); err != nil {
			return outputs, err
		}
	}

	logger.Info("dataset exported", logging.Int("files", outputs), logging.String("dir", dir))
	return outputs, nil
}

type stages struct {
	loader    *loader.Loader
	despiker  *despike.Despiker
	matcher   *background.Matcher
	aligner   *align.Aligner
	smoother  *smooth.Smoother
	truncator *truncate.Truncator
}

func (r *Runner) buildStages(gridLength int, logger *slog.Logger) (*stages, error) {
	ld, err := loader.New(r.cfg.Loader.Delimiter, r.cfg.Loader.Encoding, logger)
	if err != nil {
		return nil, err
	}
	d, err := despike.New(r.cfg.Despike.Threshold, r.cfg.Despike.Window, logger)
	if err != nil {
		return nil, err
	}
	policy, err := background.ParsePolicy(r.cfg.Background.Policy)
	if err != nil {
		return nil, err
	}
	m, err := background.NewMatcher(policy, logger)
	if err != nil {
		return nil, err
	}
	table, err := paddingTable(r.cfg.Padding)
	if err != nil {
		return nil, err
	}
	a, err := align.NewAligner(table, gridLength, logger)
	if err != nil {
		return nil, err
	}
	t, err := truncate.New(r.cfg.Truncation.Fraction, logger)
	if err != nil {
		return nil, err
	}
	st := &stages{loader: ld, despiker: d, matcher: m, aligner: a, truncator: t}
	if r.cfg.Smoothing.Enabled {
		sm, err := smooth.New(r.cfg.Smoothing.Sigma, logger)
		if err != nil {
			return nil, err
		}
		st.smoother = sm
	}
	return st, nil
}

// setLogger re-points every stage at a dataset-scoped logger. Safe because
// datasets are processed sequentially.
func (st *stages) setLogger(logger *slog.Logger) {
	st.loader.SetLogger(logger)
	st.despiker.SetLogger(logger)
	st.matcher.SetLogger(logger)
	st.aligner.SetLogger(logger)
	if st.smoother != nil {
		st.smoother.SetLogger(logger)
	}
	st.truncator.SetLogger(logger)
}

func paddingTable(padding map[string][]int) (align.Table, error) {
	table := make(align.Table, len(padding))
	for label, pair := range padding {
		if len(pair) != 2 {
			return nil, fmt.Errorf("pipeline: padding.%s must list exactly two values", label)
		}
		table[label] = align.Pad{Left: pair[0], Right: pair[1]}
	}
	return table, nil
}

func resolveDatasets(dirs []string) ([]dataset, error) {
	if len(dirs) == 0 {
		return nil, ErrNoDatasets
	}
	datasets := make([]dataset, 0, len(dirs))
	seen := make(map[string]string, len(dirs))
	for _, dir := range dirs {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return nil, fmt.Errorf("pipeline: resolve %s: %w", dir, err)
		}
		info, err := os.Stat(expanded)
		if err != nil {
			return nil, fmt.Errorf("pipeline: stat dataset: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("pipeline: %s is not a directory", expanded)
		}
		name := filepath.Base(expanded)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %s (%s and %s)", ErrDuplicateDataset, name, prev, expanded)
		}
		seen[name] = expanded
		datasets = append(datasets, dataset{name: name, dir: expanded})
	}
	return datasets, nil
}

func chooseReference(datasets []dataset, requested string) (string, error) {
	trimmed := strings.TrimSpace(requested)
	if trimmed == "" {
		return datasets[0].name, nil
	}
	want := filepath.Base(filepath.Clean(trimmed))
	for _, ds := range datasets {
		if ds.name == want {
			return ds.name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownReference, requested)
}

func datasetLogger(ctx context.Context, logger *slog.Logger, name string) *slog.Logger {
	return logging.WithContext(logging.WithDataset(ctx, name), logger)
}
