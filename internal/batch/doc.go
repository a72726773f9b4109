// Package batch drives the annotation of a directory of chunk files.
//
// Files are processed one at a time in name order. Each file is read,
// exported to the intermediate format, handed to the NER tool, merged back
// and published to the output directory under the same name. A file whose
// tool run fails is recorded and skipped so the rest of the batch still
// completes; filesystem and publish failures stop the batch because they
// usually affect every remaining file too.
//
// The presence of a published output is the restart marker: with
// workflow.skip_existing enabled a rerun only processes files that have no
// output yet.
package batch
