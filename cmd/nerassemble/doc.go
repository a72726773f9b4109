// Package main hosts the nerassemble CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the logger and
// hands explicit dependencies to the batch driver. Keep this package lean:
// behaviour lives in the internal packages and is surfaced here through
// commands and flags.
package main
