package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sfgproc/internal/config"
	"sfgproc/internal/loader"
	"sfgproc/internal/logging"
	"sfgproc/internal/trace"
)

func newListCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <dir>",
		Short: "List the traces in a dataset directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve dataset path: %w", err)
			}

			ld, err := loader.New(cfg.Loader.Delimiter, cfg.Loader.Encoding, logging.NewNop())
			if err != nil {
				return err
			}
			samples, backgrounds, err := ld.LoadDir(dir)
			if err != nil {
				return err
			}

			rows := traceRows(samples, "sample")
			rows = append(rows, traceRows(backgrounds, "background")...)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d samples, %d backgrounds in %s\n", samples.Len(), backgrounds.Len(), dir)
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Role", "Points", "WN Range", "Detector"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func traceRows(collection *trace.Collection, role string) [][]string {
	rows := make([][]string, 0, collection.Len())
	for _, tr := range collection.Traces() {
		rows = append(rows, []string{
			tr.ID,
			role,
			strconv.Itoa(tr.Len()),
			fmt.Sprintf("%.1f-%.1f", tr.Wavenumber[0], tr.Wavenumber[tr.Len()-1]),
			tr.DetectorLabel(),
		})
	}
	return rows
}
