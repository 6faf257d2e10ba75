package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	cmdCtx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "sfgproc",
		Short:         "Assemble multi-segment optical spectra",
		Long:          "sfgproc despikes, background-subtracts, aligns, and sums per-detector spectral traces into full spectra, exporting every intermediate snapshot as CSV.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cmdCtx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newProcessCommand(cmdCtx))
	rootCmd.AddCommand(newListCommand(cmdCtx))
	rootCmd.AddCommand(newRunsCommand(cmdCtx))
	rootCmd.AddCommand(newConfigCommand(cmdCtx))

	return rootCmd
}
