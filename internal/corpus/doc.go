// Package corpus models document records and the chunk files that hold them.
//
// A chunk file is an optional xz stream wrapping the "NERCHUNK" magic followed
// by length-prefixed bintly frames, one per record, in stream order. Readers
// detect compression from the leading bytes, so compressed and plain chunks
// can be mixed in one input directory. Other packages treat the layout as
// opaque and only use Read, ReadFile, and Write.
package corpus
