package ledger

import "time"

// RunStatus describes the lifecycle of a batch run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunHalted    RunStatus = "halted"
)

// FileStatus describes the outcome for one input file.
type FileStatus string

const (
	FilePublished FileStatus = "published"
	FileSkipped   FileStatus = "skipped"
	FileFailed    FileStatus = "failed"
)

// Run is one invocation of the batch driver.
type Run struct {
	ID           string
	InputDir     string
	OutputDir    string
	RunnerDir    string
	Status       RunStatus
	Published    int
	Skipped      int
	Failed       int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns the wall time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// File is the recorded outcome for one input file.
type File struct {
	ID           int64
	RunID        string
	InputPath    string
	OutputPath   string
	Status       FileStatus
	ErrorKind    string
	ErrorMessage string
	Records      int
	Digest       string
	Elapsed      time.Duration
	CreatedAt    time.Time
}
