package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"nerassemble/internal/corpus"
)

// Records builds records with predictable bodies for the given ids.
func Records(ids ...string) []*corpus.Record {
	records := make([]*corpus.Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, &corpus.Record{
			StreamID: id,
			Cleansed: []byte(fmt.Sprintf("Body of %s.\n", id)),
		})
	}
	return records
}

// WriteChunk writes an uncompressed chunk holding records with the given ids.
func WriteChunk(t testing.TB, path string, ids ...string) {
	t.Helper()
	WriteRecords(t, path, Records(ids...)...)
}

// WriteRecords writes an uncompressed chunk holding records.
func WriteRecords(t testing.TB, path string, records ...*corpus.Record) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	chunk := corpus.NewChunk(len(records))
	for _, record := range records {
		chunk.Add(record)
	}
	if _, err := corpus.Write(f, chunk, corpus.CompressionNone); err != nil {
		t.Fatalf("write chunk %s: %v", path, err)
	}
}
