// Package services defines shared utilities consumed by the batch stages and
// the external NER tool integration.
//
// Key responsibilities:
//   - Context helpers that stamp the input file, stage name, and run
//     identifier for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into per-file recoverable (tool, timeout, optionally validation) and
//     batch-halting (filesystem) outcomes.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
