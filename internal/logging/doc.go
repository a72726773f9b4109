// Package logging assembles structured slog loggers used across nerassemble.
//
// It owns the console and JSON handlers, resolves the "auto" format against
// the attached terminal, mirrors records into a JSON log file when a log
// directory is configured, and exposes context helpers so stage code tags
// log lines with the run id, input file, and stage name.
package logging
