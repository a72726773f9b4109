package batch

import (
	"context"
	"fmt"
	"time"

	"nerassemble/internal/corpus"
	"nerassemble/internal/ledger"
	"nerassemble/internal/publish"
	"nerassemble/internal/services/nertool"
)

// NERRunner runs the external annotation tool on one intermediate file.
type NERRunner interface {
	Run(ctx context.Context, inputPath, outputPath string) (nertool.Result, error)
}

// Publisher writes a merged chunk to its final path.
type Publisher interface {
	Publish(ctx context.Context, chunk *corpus.Chunk, finalPath string) (publish.Published, error)
}

// Ledger records run and file outcomes. *ledger.Store satisfies it.
type Ledger interface {
	BeginRun(ctx context.Context, run *ledger.Run) error
	RecordFile(ctx context.Context, file *ledger.File) error
	FinishRun(ctx context.Context, run *ledger.Run) error
}

// Skip reasons.
const (
	ReasonOutputExists = "output exists"
	ReasonLocked       = "locked by another process"
)

// FileResult is the outcome for one input file.
type FileResult struct {
	Name       string
	InputPath  string
	OutputPath string
	Status     ledger.FileStatus
	Stage      string
	Reason     string
	Err        error
	Records    int
	Digest     string
	Elapsed    time.Duration
}

// Summary aggregates a batch run.
type Summary struct {
	RunID     string
	Files     []FileResult
	Published int
	Skipped   int
	Failed    int
	Halted    bool
	Elapsed   time.Duration
}

func (s *Summary) add(result FileResult) {
	s.Files = append(s.Files, result)
	switch result.Status {
	case ledger.FilePublished:
		s.Published++
	case ledger.FileSkipped:
		s.Skipped++
	case ledger.FileFailed:
		s.Failed++
	}
}

// Err reports per-file failures as a single error, or nil when every file
// was published or skipped.
func (s Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d files failed", s.Failed, len(s.Files))
}
