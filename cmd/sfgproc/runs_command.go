package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sfgproc/internal/catalog"
)

const defaultRunsLimit = 20

func newRunsCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withStore(func(store *catalog.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}

				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Label", "Started", "Duration", "Status", "Warnings", "Outputs"},
					runRows(runs, colorize),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultRunsLimit, "Maximum number of runs to list (0 lists all)")

	return cmd
}

func runRows(runs []*catalog.Run, colorize bool) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		label := run.Label
		if label == "" {
			label = "-"
		}
		rows = append(rows, []string{
			run.ID,
			label,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatRunDuration(run),
			renderRunStatus(run.Status, colorize),
			strconv.Itoa(run.Warnings),
			strconv.Itoa(run.Outputs),
		})
	}
	return rows
}

func formatRunDuration(run *catalog.Run) string {
	duration := run.Duration()
	if duration < 0 {
		duration = 0
	}
	return duration.Round(10 * time.Millisecond).String()
}
