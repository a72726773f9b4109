package intermediate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"nerassemble/internal/corpus"
	"nerassemble/internal/services"
)

// ErrBlockDrift reports an intermediate file whose open lines do not list the
// exported ids in order, typically because a record body carries its own
// open line.
var ErrBlockDrift = errors.New("intermediate blocks do not match records")

// ErrUnsafeID reports a stream id that cannot be embedded in an open line and
// recovered again.
var ErrUnsafeID = errors.New("stream id cannot be embedded in open line")

// Export writes one block per record, in order. Records are not modified.
func Export(w io.Writer, records []*corpus.Record) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	for i, record := range records {
		if err := checkID(record.StreamID); err != nil {
			return services.Wrap(services.ErrValidation, "export", fmt.Sprintf("record %d", i), "", err)
		}
		if _, err := fmt.Fprintf(bw, "%s docid=\"%s\">\n", openPrefix, record.StreamID); err != nil {
			return err
		}
		if _, err := bw.Write(record.Cleansed); err != nil {
			return err
		}
		if _, err := bw.WriteString(closePrefix + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportFile writes the intermediate file to path. The file lives in scratch
// storage and is not published atomically.
func ExportFile(path string, records []*corpus.Record) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create intermediate file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close intermediate file: %w", cerr)
		}
	}()
	if err := Export(file, records); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}

// ScanIDs returns the identifiers of every open line in r, in order.
func ScanIDs(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	var ids []string
	for {
		line, err := br.ReadString('\n')
		if line != "" && IsOpenLine(line) {
			id, idErr := ExtractID(line)
			if idErr != nil {
				return nil, idErr
			}
			ids = append(ids, id)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ids, nil
			}
			return nil, err
		}
	}
}

// VerifyFile re-reads the intermediate file at path and checks that its open
// lines carry exactly ids, in order.
func VerifyFile(path string, ids []string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open intermediate file: %w", err)
	}
	defer file.Close()
	got, err := ScanIDs(file)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if i >= len(got) || got[i] != id {
			found := "none"
			if i < len(got) {
				found = fmt.Sprintf("%q", got[i])
			}
			return services.Wrap(services.ErrValidation, "export", "verify",
				fmt.Sprintf("block %d: want %q, found %s", i, id, found), ErrBlockDrift)
		}
	}
	if len(got) > len(ids) {
		return services.Wrap(services.ErrValidation, "export", "verify",
			fmt.Sprintf("%d blocks for %d records", len(got), len(ids)), ErrBlockDrift)
	}
	return nil
}

func checkID(id string) error {
	if id == "" || strings.ContainsAny(id, "\"\r\n>") {
		return fmt.Errorf("%w: %q", ErrUnsafeID, id)
	}
	return nil
}
