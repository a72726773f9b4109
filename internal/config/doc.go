// Package config loads, normalizes, and validates nerassemble configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the NERASSEMBLE_RUNNER_DIR
// environment fallback. The Config value is passed explicitly to the batch
// runner; there is no package-level options state.
package config
