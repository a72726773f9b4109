// Package ledger persists the outcome of every batch run and of every input
// file it touched in a small SQLite database.
//
// The ledger is an audit trail: it never decides whether a file is processed
// (the presence of the published output does). The status command reads it
// back.
package ledger
