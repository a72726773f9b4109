// Package merge joins NER tool output back onto the records it was produced
// from.
//
// The tool emits one segment per exported document, in export order. Each
// segment starts with a <FILENAME ...> line carrying the document id; the
// Nth segment belongs to the Nth record and the ids must agree. Close lines
// are dropped, every other line is kept byte for byte (terminators included)
// and lines that appear before the first open line are ignored.
package merge
