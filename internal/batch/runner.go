package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"nerassemble/internal/config"
	"nerassemble/internal/corpus"
	"nerassemble/internal/fileutil"
	"nerassemble/internal/intermediate"
	"nerassemble/internal/ledger"
	"nerassemble/internal/logging"
	"nerassemble/internal/merge"
	"nerassemble/internal/scratch"
	"nerassemble/internal/services"
)

// Stage names used in logs, errors and the ledger.
const (
	StageLock    = "lock"
	StageRead    = "read"
	StageExport  = "export"
	StageNER     = "ner"
	StageMerge   = "merge"
	StagePublish = "publish"
)

// Options wires a Runner.
type Options struct {
	Config    *config.Config
	Logger    *slog.Logger
	NER       NERRunner
	Publisher Publisher
	// Ledger is optional.
	Ledger    Ledger
	InputDir  string
	OutputDir string
	RunnerDir string
	// RunID defaults to a random UUID.
	RunID string
}

// Runner processes one input directory.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	ner       NERRunner
	publisher Publisher
	ledger    Ledger
	inputDir  string
	outputDir string
	runnerDir string
	runID     string
}

// New validates options and constructs a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, errors.New("batch: config required")
	}
	if opts.NER == nil {
		return nil, errors.New("batch: ner runner required")
	}
	if opts.Publisher == nil {
		return nil, errors.New("batch: publisher required")
	}
	if strings.TrimSpace(opts.InputDir) == "" || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "configure", "input and output directories required", nil)
	}
	inputDir, err := filepath.Abs(opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve input dir: %w", err)
	}
	outputDir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if inputDir == outputDir {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "configure",
			"output directory must differ from input directory", nil)
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:       opts.Config,
		logger:    logging.NewComponentLogger(logger, "batch"),
		ner:       opts.NER,
		publisher: opts.Publisher,
		ledger:    opts.Ledger,
		inputDir:  inputDir,
		outputDir: outputDir,
		runnerDir: opts.RunnerDir,
		runID:     runID,
	}, nil
}

// RunID returns the identifier assigned to this run.
func (r *Runner) RunID() string {
	return r.runID
}

// Run processes every input file. The returned error is non-nil only when
// the batch halted; per-file failures are reported through Summary.Err.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	ctx = services.WithRequestID(ctx, r.runID)
	logger := logging.WithContext(ctx, r.logger)
	summary := Summary{RunID: r.runID}

	inputs, err := ListInputs(r.inputDir)
	if err != nil {
		return summary, err
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return summary, fmt.Errorf("create output dir: %w", err)
	}
	dir, err := scratch.New(r.cfg.Paths.ScratchDir)
	if err != nil {
		return summary, err
	}

	run := &ledger.Run{
		ID:        r.runID,
		InputDir:  r.inputDir,
		OutputDir: r.outputDir,
		RunnerDir: r.runnerDir,
		StartedAt: start.UTC(),
	}
	if r.ledger != nil {
		if err := r.ledger.BeginRun(context.WithoutCancel(ctx), run); err != nil {
			return summary, fmt.Errorf("ledger: %w", err)
		}
	}

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("input_dir", r.inputDir),
		logging.String("output_dir", r.outputDir),
		logging.String("scratch_dir", dir.Root()),
		logging.Int("files", len(inputs)),
	)

	var haltErr error
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			haltErr = err
			break
		}
		result, fatal := r.processFile(ctx, dir, input)
		summary.add(result)
		r.recordFile(ctx, logger, result)
		if fatal != nil {
			haltErr = fatal
			break
		}
	}

	summary.Elapsed = time.Since(start)
	summary.Halted = haltErr != nil
	r.finishRun(logger, run, summary, haltErr)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("published", summary.Published),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Elapsed),
	}
	if haltErr != nil {
		logger.Error("batch halted", logging.Args(append(attrs, logging.Error(haltErr))...)...)
		return summary, haltErr
	}
	logger.Info("batch finished", logging.Args(attrs...)...)
	return summary, nil
}

// processFile runs one input through the pipeline. A non-nil second return
// value halts the batch.
func (r *Runner) processFile(ctx context.Context, dir *scratch.Dir, inputPath string) (FileResult, error) {
	start := time.Now()
	name := filepath.Base(inputPath)
	ctx = services.WithFile(ctx, name)
	logger := logging.WithContext(ctx, r.logger)
	result := FileResult{
		Name:       name,
		InputPath:  inputPath,
		OutputPath: filepath.Join(r.outputDir, name),
	}
	finish := func(status ledger.FileStatus) FileResult {
		result.Status = status
		result.Elapsed = time.Since(start)
		return result
	}
	fail := func(stage string, err error) (FileResult, error) {
		result.Stage = stage
		result.Err = err
		result.Reason = err.Error()
		finish(ledger.FileFailed)
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if services.Recoverable(err, !r.cfg.Workflow.HaltOnMergeError) {
			logger.Warn("file failed",
				logging.String(logging.FieldEventType, "file_failed"),
				logging.String(logging.FieldStage, stage),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Error(err),
			)
			return result, nil
		}
		return result, fmt.Errorf("%s: %s: %w", name, stage, err)
	}

	files, err := dir.For(inputPath)
	if err != nil {
		return fail(StageLock, err)
	}
	lock, err := files.TryLock()
	if errors.Is(err, scratch.ErrLocked) {
		result.Reason = ReasonLocked
		logger.Warn("file skipped", logging.String("reason", ReasonLocked))
		return finish(ledger.FileSkipped), nil
	}
	if err != nil {
		return fail(StageLock, err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("lock release failed", logging.Error(err))
		}
	}()

	if r.cfg.Workflow.SkipExisting {
		exists, err := fileutil.Exists(result.OutputPath)
		if err != nil {
			return fail(StagePublish, err)
		}
		if exists {
			result.Reason = ReasonOutputExists
			logger.Info("file skipped", logging.String("reason", ReasonOutputExists))
			return finish(ledger.FileSkipped), nil
		}
	}

	chunk, err := corpus.ReadFile(inputPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, os.ErrPermission) {
			err = services.Wrap(services.ErrValidation, StageRead, "decode", "", err)
		}
		return fail(StageRead, err)
	}
	result.Records = chunk.Len()
	logger.Debug("chunk loaded", logging.Int("records", chunk.Len()))

	if err := intermediate.ExportFile(files.Cleansed, chunk.Records); err != nil {
		return fail(StageExport, err)
	}
	if err := intermediate.VerifyFile(files.Cleansed, chunk.StreamIDs()); err != nil {
		return fail(StageExport, err)
	}

	nerCtx := services.WithStage(ctx, StageNER)
	toolResult, err := r.ner.Run(nerCtx, files.Cleansed, files.NER)
	if err != nil {
		return fail(StageNER, err)
	}
	logger.Debug("ner tool finished", logging.Duration("tool_elapsed", toolResult.Elapsed))

	merged, err := merge.MergeFile(chunk.Records, files.NER, merge.Options{Annotator: r.cfg.Corpus.Annotator})
	if err != nil {
		return fail(StageMerge, err)
	}

	published, err := r.publisher.Publish(services.WithStage(ctx, StagePublish), merged, result.OutputPath)
	if err != nil {
		return fail(StagePublish, err)
	}
	result.Digest = published.Digest

	if !r.cfg.Workflow.KeepScratch {
		if err := files.Cleanup(); err != nil {
			logger.Warn("scratch cleanup failed", logging.Error(err))
		}
	}

	finish(ledger.FilePublished)
	logger.Info("file published",
		logging.String(logging.FieldEventType, "file_published"),
		logging.Int("records", result.Records),
		logging.String("digest", result.Digest),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (r *Runner) recordFile(ctx context.Context, logger *slog.Logger, result FileResult) {
	if r.ledger == nil {
		return
	}
	entry := &ledger.File{
		RunID:      r.runID,
		InputPath:  result.InputPath,
		OutputPath: result.OutputPath,
		Status:     result.Status,
		Records:    result.Records,
		Digest:     result.Digest,
		Elapsed:    result.Elapsed,
	}
	switch result.Status {
	case ledger.FileFailed:
		entry.ErrorKind = services.Kind(result.Err)
		entry.ErrorMessage = result.Reason
		entry.OutputPath = ""
	case ledger.FileSkipped:
		entry.ErrorMessage = result.Reason
	}
	// The ledger write outlives a cancelled batch so the failure is kept.
	if err := r.ledger.RecordFile(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("ledger write failed", logging.Error(err))
	}
}

func (r *Runner) finishRun(logger *slog.Logger, run *ledger.Run, summary Summary, haltErr error) {
	if r.ledger == nil {
		return
	}
	run.Published = summary.Published
	run.Skipped = summary.Skipped
	run.Failed = summary.Failed
	switch {
	case haltErr != nil:
		run.Status = ledger.RunHalted
		run.ErrorMessage = haltErr.Error()
	case summary.Failed > 0:
		run.Status = ledger.RunFailed
		run.ErrorMessage = summary.Err().Error()
	default:
		run.Status = ledger.RunCompleted
	}
	if err := r.ledger.FinishRun(context.Background(), run); err != nil {
		logger.Warn("ledger write failed", logging.Error(err))
	}
}

// ListInputs returns the regular files of dir in name order. Hidden files,
// directories and other non-regular entries are ignored.
func ListInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list input dir: %w", err)
	}
	inputs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		inputs = append(inputs, path)
	}
	return inputs, nil
}
