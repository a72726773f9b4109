package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"nerassemble/internal/config"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.LedgerPath())
}

// OpenPath opens the ledger database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas below are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records a new run in the running state.
func (s *Store) BeginRun(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return errors.New("run id required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = RunRunning
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_dir, output_dir, runner_dir, status, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.InputDir, run.OutputDir, run.RunnerDir, run.Status, formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordFile appends a per-file outcome to a run.
func (s *Store) RecordFile(ctx context.Context, file *File) error {
	if file == nil {
		return errors.New("file is nil")
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO files (
            run_id, input_path, output_path, status, error_kind, error_message,
            records, digest, elapsed_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.RunID,
		file.InputPath,
		nullableString(file.OutputPath),
		file.Status,
		nullableString(file.ErrorKind),
		nullableString(file.ErrorMessage),
		file.Records,
		nullableString(file.Digest),
		file.Elapsed.Milliseconds(),
		formatTime(file.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		file.ID = id
	}
	return nil
}

// FinishRun stores final counters and status for a run.
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return errors.New("run id required")
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs
         SET status = ?, published = ?, skipped = ?, failed = ?, error_message = ?, finished_at = ?
         WHERE id = ?`,
		run.Status, run.Published, run.Skipped, run.Failed,
		nullableString(run.ErrorMessage), formatTime(run.FinishedAt), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: not found", run.ID)
	}
	return nil
}

const runColumns = "id, input_dir, output_dir, runner_dir, status, published, skipped, failed, error_message, started_at, finished_at"

// Runs returns the most recent runs, newest first. A limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run. It returns nil when the run does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// Files returns the per-file outcomes of a run in processing order.
func (s *Store) Files(ctx context.Context, runID string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, input_path, output_path, status, error_kind, error_message,
                records, digest, elapsed_ms, created_at
         FROM files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// Prune removes runs that started before cutoff. Their files cascade.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
