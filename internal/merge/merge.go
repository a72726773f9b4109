package merge

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"nerassemble/internal/corpus"
	"nerassemble/internal/intermediate"
	"nerassemble/internal/services"
)

const stage = "merge"

// DefaultAnnotator is used when Options.Annotator is empty.
const DefaultAnnotator = "nerassemble"

var (
	// ErrTooManySegments reports more NER segments than input records.
	ErrTooManySegments = errors.New("ner output has more segments than records")
	// ErrTooFewSegments reports NER output that ended before every record was matched.
	ErrTooFewSegments = errors.New("ner output has fewer segments than records")
	// ErrIDMismatch reports a segment whose id differs from the positional record.
	ErrIDMismatch = errors.New("ner segment id does not match record")
)

// Options tunes merge behaviour.
type Options struct {
	Annotator string
}

// Merge reads NER output from r and attaches each segment to the record at the
// same position. Records are mutated in place and returned in a new chunk.
func Merge(records []*corpus.Record, r io.Reader, opts Options) (*corpus.Chunk, error) {
	m := &merger{
		records:   records,
		out:       corpus.NewChunk(len(records)),
		annotator: opts.Annotator,
	}
	if m.annotator == "" {
		m.annotator = DefaultAnnotator
	}

	reader := bufio.NewReaderSize(r, 64<<10)
	lineNo := 0
	for {
		line, readErr := reader.ReadString('\n')
		if line != "" {
			lineNo++
			if err := m.consume(line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read ner output: %w", readErr)
		}
	}

	if err := m.finalize(); err != nil {
		return nil, err
	}
	if m.cursor < len(m.records) {
		return nil, services.Wrap(services.ErrValidation, stage, "eof",
			fmt.Sprintf("matched %d of %d records, next expected %q", m.cursor, len(m.records), m.records[m.cursor].StreamID),
			ErrTooFewSegments)
	}
	return m.out, nil
}

// MergeFile opens path and merges its contents.
func MergeFile(records []*corpus.Record, path string, opts Options) (*corpus.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ner output: %w", err)
	}
	defer f.Close()
	return Merge(records, f, opts)
}

type merger struct {
	records   []*corpus.Record
	out       *corpus.Chunk
	annotator string

	cursor  int
	pending string
	open    bool
	buf     bytes.Buffer
}

func (m *merger) consume(line string) error {
	switch {
	case intermediate.IsCloseLine(line):
		return nil
	case intermediate.IsOpenLine(line):
		if err := m.finalize(); err != nil {
			return err
		}
		id, err := intermediate.ExtractID(line)
		if err != nil {
			return err
		}
		m.pending = id
		m.open = true
		m.buf.Reset()
		return nil
	case m.open:
		m.buf.WriteString(line)
	}
	return nil
}

func (m *merger) finalize() error {
	if !m.open {
		return nil
	}
	m.open = false
	if m.cursor >= len(m.records) {
		return services.Wrap(services.ErrValidation, stage, "finalize",
			fmt.Sprintf("segment %q has no record (only %d records)", m.pending, len(m.records)),
			ErrTooManySegments)
	}
	rec := m.records[m.cursor]
	if rec.StreamID != m.pending {
		return services.Wrap(services.ErrValidation, stage, "finalize",
			fmt.Sprintf("segment %d id %q, record id %q", m.cursor, m.pending, rec.StreamID),
			ErrIDMismatch)
	}
	rec.NER = bytes.Clone(m.buf.Bytes())
	rec.Labels = []corpus.Label{{TargetID: rec.StreamID, Annotator: m.annotator}}
	m.out.Add(rec)
	m.cursor++
	m.buf.Reset()
	return nil
}
