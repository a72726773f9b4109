// Package scratch names and guards the per-input working files of a batch.
//
// Every input file maps to a stable key derived from its absolute path, so
// two batches over different input trees on the same host never share a
// scratch file, while a rerun over the same input reuses the same names.
package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/minio/highwayhash"

	"nerassemble/internal/fileutil"
)

const (
	suffixCleansed = ".cleansed"
	suffixNER      = ".ner"
	suffixLock     = ".lock"
)

var hashKey = []byte("nerassemble-scratch-key-00000000")

// ErrLocked reports an input already being processed by another invocation.
var ErrLocked = errors.New("input is locked by another process")

// Dir is a scratch directory.
type Dir struct {
	root string
}

// New returns a scratch directory rooted at root, creating it if needed.
func New(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("scratch directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory path.
func (d *Dir) Root() string {
	return d.root
}

// Files names the scratch artifacts for one input.
type Files struct {
	Key      string
	Cleansed string
	NER      string
	Lock     string
}

// For derives the scratch files for inputPath.
func (d *Dir) For(inputPath string) (Files, error) {
	key, err := Key(inputPath)
	if err != nil {
		return Files{}, err
	}
	base := filepath.Join(d.root, key)
	return Files{
		Key:      key,
		Cleansed: base + suffixCleansed,
		NER:      base + suffixNER,
		Lock:     base + suffixLock,
	}, nil
}

// Key returns "<name>-<hash>" where hash is a HighwayHash-64 of the absolute
// input path.
func Key(inputPath string) (string, error) {
	abs, err := filepath.Abs(inputPath)
	if err != nil {
		return "", fmt.Errorf("resolve input path: %w", err)
	}
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return "", err
	}
	if _, err := h.Write([]byte(abs)); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%016x", filepath.Base(abs), h.Sum64()), nil
}

// Cleanup removes the intermediate and NER files. The lock file is left to
// the lock holder.
func (f Files) Cleanup() error {
	var errs []error
	for _, path := range []string{f.Cleansed, f.NER} {
		if err := fileutil.RemoveIfExists(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Lock is a held per-input lock.
type Lock struct {
	lock *flock.Flock
	path string
}

// TryLock acquires the per-input lock without blocking. It returns ErrLocked
// when another process holds it.
func (f Files) TryLock() (*Lock, error) {
	lock := flock.New(f.Lock)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", f.Lock, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{lock: lock, path: f.Lock}, nil
}

// Release unlocks the lock. The lock file stays in place; removing it would
// let a waiter and a newcomer lock different inodes.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
