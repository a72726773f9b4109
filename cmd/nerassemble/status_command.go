package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nerassemble/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var prune time.Duration
	cmd := &cobra.Command{
		Use:   "status [run_id]",
		Short: "Show recent runs, or the files of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Ledger.Enabled {
				return fmt.Errorf("ledger is disabled (ledger.enabled = false)")
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if prune > 0 {
				n, err := store.Prune(cmd.Context(), time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d runs older than %s\n", n, prune)
			}

			if len(args) == 0 {
				runs, err := store.Runs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprint(out, renderRuns(runs))
				return nil
			}

			run, err := findRun(cmd, store, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			files, err := store.Files(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Run %s (%s)\n", run.ID, statusLabel(string(run.Status)))
			fmt.Fprintf(out, "Input:  %s\nOutput: %s\n", run.InputDir, run.OutputDir)
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:  %s\n", run.ErrorMessage)
			}
			if len(files) == 0 {
				fmt.Fprintln(out, "No files recorded")
				return nil
			}
			fmt.Fprint(out, renderFiles(files))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list (0 for all)")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete runs older than this age before listing (e.g. 720h)")
	return cmd
}

// findRun resolves a full run id or a unique prefix of one.
func findRun(cmd *cobra.Command, store *ledger.Store, id string) (*ledger.Run, error) {
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}
	runs, err := store.Runs(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var matches []ledger.Run
	for _, r := range runs {
		if strings.HasPrefix(r.ID, id) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("run %q not found", id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("run prefix %q is ambiguous (%d matches)", id, len(matches))
	}
}
