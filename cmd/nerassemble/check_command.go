package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nerassemble/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var inputDir, outputDir string
	cmd := &cobra.Command{
		Use:   "check [runner_dir]",
		Short: "Verify java, the runner jar and working directories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			targets := preflight.Targets{InputDir: inputDir, OutputDir: outputDir}
			if len(args) == 1 {
				targets.RunnerDir = args[0]
			}
			results := preflight.RunAll(cmd.Context(), cfg, targets)
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderPreflight(results))
			if err := preflight.Failed(results); err != nil {
				return fmt.Errorf("preflight failed: %w", err)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
	cmd.Flags().StringVar(&inputDir, "input", "", "Also check an input directory")
	cmd.Flags().StringVar(&outputDir, "output", "", "Also check an output directory")
	return cmd
}
