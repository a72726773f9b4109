// Package publish writes merged chunks to their final location so that a
// reader never observes a partially written file.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"nerassemble/internal/corpus"
	"nerassemble/internal/fileutil"
	"nerassemble/internal/logging"
)

// ErrDigestMismatch reports a staged chunk that does not decode to the
// content that was written.
var ErrDigestMismatch = errors.New("staged chunk digest mismatch")

// Options configures a Publisher.
type Options struct {
	Compression corpus.Compression
	Verify      bool
	Logger      *slog.Logger
}

// Published describes a completed publish.
type Published struct {
	Path    string
	Records int
	Digest  string
	Bytes   int64
	Elapsed time.Duration
}

// Publisher serializes chunks through a staging file in the destination
// directory and renames it into place.
type Publisher struct {
	compression corpus.Compression
	verify      bool
	logger      *slog.Logger
}

// New constructs a Publisher.
func New(opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	compression := opts.Compression
	if compression == "" {
		compression = corpus.CompressionXZ
	}
	return &Publisher{compression: compression, verify: opts.Verify, logger: logger}
}

// TempPath returns the staging path used for finalPath. Each call yields a
// distinct name.
func TempPath(finalPath string) string {
	dir, base := filepath.Split(finalPath)
	return filepath.Join(dir, "."+base+".done-"+uuid.NewString())
}

// Publish writes chunk to finalPath atomically.
func (p *Publisher) Publish(ctx context.Context, chunk *corpus.Chunk, finalPath string) (Published, error) {
	if err := ctx.Err(); err != nil {
		return Published{}, err
	}
	start := time.Now()
	tempPath := TempPath(finalPath)

	var digest string
	write := func(w io.Writer) error {
		var err error
		digest, err = corpus.Write(w, chunk, p.compression)
		return err
	}
	opts := fileutil.AtomicOptions{TempPath: tempPath}
	if p.verify {
		opts.Verify = func(path string) error {
			return verifyStaged(path, digest)
		}
	}

	if err := fileutil.WriteFileAtomic(finalPath, write, opts); err != nil {
		return Published{}, fmt.Errorf("publish %s: %w", filepath.Base(finalPath), err)
	}

	result := Published{
		Path:    finalPath,
		Records: chunk.Len(),
		Digest:  digest,
		Elapsed: time.Since(start),
	}
	if info, err := os.Stat(finalPath); err == nil {
		result.Bytes = info.Size()
	}
	logging.WithContext(ctx, p.logger).Debug("chunk published",
		logging.String("path", finalPath),
		logging.Int("records", result.Records),
		logging.Int64("bytes", result.Bytes),
		logging.String("digest", digest),
	)
	return result, nil
}

func verifyStaged(path, want string) error {
	staged, err := corpus.ReadFile(path)
	if err != nil {
		return fmt.Errorf("re-read staged chunk: %w", err)
	}
	got, err := staged.Digest()
	if err != nil {
		return fmt.Errorf("digest staged chunk: %w", err)
	}
	if got != want {
		return fmt.Errorf("%w: wrote %s, read back %s", ErrDigestMismatch, want, got)
	}
	return nil
}
