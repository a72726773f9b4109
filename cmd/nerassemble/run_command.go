package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nerassemble/internal/batch"
	"nerassemble/internal/config"
	"nerassemble/internal/corpus"
	"nerassemble/internal/ledger"
	"nerassemble/internal/logging"
	"nerassemble/internal/preflight"
	"nerassemble/internal/publish"
	"nerassemble/internal/services/nertool"
)

type runOptions struct {
	skipPreflight bool
	force         bool
	keepScratch   bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <input_dir> <output_dir> <runner_dir>",
		Short: "Annotate every chunk file in input_dir into output_dir",
		Long: `Run exports each chunk file in input_dir to the NER intermediate format,
runs the runner jar from runner_dir on it, merges the annotations back into
the records and atomically publishes the result under the same name in
output_dir. A file whose tool run fails is reported and skipped; the command
exits non-zero when any file failed.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if opts.force {
				cfg.Workflow.SkipExisting = false
			}
			if opts.keepScratch {
				cfg.Workflow.KeepScratch = true
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			return runBatch(cmd.Context(), cmd.OutOrStdout(), cfg, logger, args[0], args[1], args[2], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Skip java, runner jar and directory checks")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Reprocess inputs whose output already exists")
	cmd.Flags().BoolVar(&opts.keepScratch, "keep-scratch", false, "Keep .cleansed and .ner files after a successful publish")
	return cmd
}

func runBatch(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, inputDir, outputDir, runnerDir string, opts *runOptions) error {
	if strings.TrimSpace(runnerDir) == "" {
		runnerDir = cfg.NER.RunnerDir
	}
	if !opts.skipPreflight {
		results := preflight.RunAll(ctx, cfg, preflight.Targets{InputDir: inputDir, RunnerDir: runnerDir})
		if err := preflight.Failed(results); err != nil {
			fmt.Fprint(out, renderPreflight(results))
			return fmt.Errorf("preflight failed: %w", err)
		}
	}

	client, err := nertool.New(nertool.Config{
		JavaBinary:    cfg.NER.JavaBinary,
		JarPath:       cfg.RunnerJarPath(runnerDir),
		Memory:        cfg.NER.Memory,
		FailureMarker: cfg.NER.FailureMarker,
		Timeout:       time.Duration(cfg.NER.TimeoutSeconds) * time.Second,
	}, nertool.WithLogger(logging.NewComponentLogger(logger, "nertool")))
	if err != nil {
		return err
	}
	publisher := publish.New(publish.Options{
		Compression: corpus.Compression(cfg.Corpus.Compression),
		Verify:      cfg.Workflow.VerifyPublish,
		Logger:      logging.NewComponentLogger(logger, "publish"),
	})

	runnerOpts := batch.Options{
		Config:    cfg,
		Logger:    logger,
		NER:       client,
		Publisher: publisher,
		InputDir:  inputDir,
		OutputDir: outputDir,
		RunnerDir: runnerDir,
	}
	if cfg.Ledger.Enabled {
		store, err := ledger.Open(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		runnerOpts.Ledger = store
	}

	runner, err := batch.New(runnerOpts)
	if err != nil {
		return err
	}
	summary, runErr := runner.Run(ctx)
	if len(summary.Files) > 0 {
		fmt.Fprint(out, renderSummary(summary))
	}
	fmt.Fprintf(out, "Run %s: %d published, %d skipped, %d failed in %s\n",
		summary.RunID, summary.Published, summary.Skipped, summary.Failed, summary.Elapsed.Round(time.Millisecond))
	if runErr != nil {
		return fmt.Errorf("batch halted: %w", runErr)
	}
	return summary.Err()
}
