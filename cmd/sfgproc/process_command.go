package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"sfgproc/internal/catalog"
	"sfgproc/internal/logging"
	"sfgproc/internal/pipeline"
)

func newProcessCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		reference string
		outputDir string
		label     string
	)

	cmd := &cobra.Command{
		Use:   "process <dir> [dir...]",
		Short: "Run the assembly pipeline over dataset directories",
		Long: `Process loads every dataset directory, despikes and background-subtracts its
traces, aligns them on the canonical wavenumber grid, and sums them into one
spectrum per dataset. The reference dataset's truncation window is applied to
all datasets so their summed spectra stay comparable. Each snapshot is
exported as CSV and recorded in the run catalog.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			return cmdCtx.withStore(func(store *catalog.Store) error {
				runner, err := pipeline.New(cfg, store, logger)
				if err != nil {
					return err
				}
				result, err := runner.Run(signalCtx, pipeline.Options{
					Dirs:      args,
					Reference: reference,
					OutputDir: outputDir,
					Label:     label,
				})
				if err != nil {
					return err
				}
				return printRunSummary(cmd, store, result)
			})
		},
	}

	cmd.Flags().StringVar(&reference, "reference", "", "Dataset whose truncation window applies to every dataset (default: first)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for this run (default: paths.output_dir)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Free-form label stored with the run")

	return cmd
}

func printRunSummary(cmd *cobra.Command, store *catalog.Store, result *pipeline.Result) error {
	outputs, err := store.OutputsForRun(cmd.Context(), result.RunID)
	if err != nil {
		return fmt.Errorf("list run outputs: %w", err)
	}
	filesPerDataset := make(map[string]int, len(result.Datasets))
	for _, output := range outputs {
		filesPerDataset[output.Dataset]++
	}

	rows := make([][]string, 0, len(result.Datasets))
	for _, name := range result.Datasets {
		role := "sample"
		if name == result.Reference {
			role = "reference"
		}
		rows = append(rows, []string{name, role, strconv.Itoa(filesPerDataset[name])})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s completed\n", result.RunID)
	if result.Label != "" {
		fmt.Fprintf(out, "Label: %s\n", result.Label)
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Dataset", "Role", "Files"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	))
	if result.Warnings > 0 {
		fmt.Fprintf(out, "Warnings: %d (see log for details)\n", result.Warnings)
	}
	fmt.Fprintf(out, "Outputs: %s\n", result.OutputDir)
	return nil
}
