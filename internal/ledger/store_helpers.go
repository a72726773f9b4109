package ledger

import (
	"database/sql"
	"time"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run          Run
		status       string
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&run.InputDir,
		&run.OutputDir,
		&run.RunnerDir,
		&status,
		&run.Published,
		&run.Skipped,
		&run.Failed,
		&errorMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Run{}, err
	}
	run.Status = RunStatus(status)
	run.ErrorMessage = errorMessage.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	return run, nil
}

func scanFile(row scanner) (File, error) {
	var (
		file         File
		outputPath   sql.NullString
		status       string
		errorKind    sql.NullString
		errorMessage sql.NullString
		digest       sql.NullString
		elapsedMS    int64
		createdRaw   string
	)
	if err := row.Scan(
		&file.ID,
		&file.RunID,
		&file.InputPath,
		&outputPath,
		&status,
		&errorKind,
		&errorMessage,
		&file.Records,
		&digest,
		&elapsedMS,
		&createdRaw,
	); err != nil {
		return File{}, err
	}
	file.OutputPath = outputPath.String
	file.Status = FileStatus(status)
	file.ErrorKind = errorKind.String
	file.ErrorMessage = errorMessage.String
	file.Digest = digest.String
	file.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	file.CreatedAt = parseTime(createdRaw)
	return file, nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
