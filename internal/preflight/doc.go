// Package preflight provides readiness checks for the filesystem paths and
// external runtime a batch depends on.
//
// These checks run in two contexts:
//   - The run command calls RunAll before touching any input and refuses to
//     start when a required check fails.
//   - The check command renders every result as a table.
package preflight
