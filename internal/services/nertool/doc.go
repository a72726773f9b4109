// Package nertool mediates access to the external NER runner jar.
//
// It builds the java command line, drains the child's stdout and stderr
// concurrently so a chatty tool cannot block on a full pipe, and classifies
// the outcome. A run fails when the process cannot start, exits non-zero,
// writes the configured failure marker anywhere on stderr (even with exit
// status zero), exceeds its timeout, or leaves no output file behind.
//
// Prefer this package over ad-hoc exec.Command usage so timeout handling and
// failure classification stay consistent.
package nertool
