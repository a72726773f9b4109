package fileutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

)

// AtomicOptions tunes WriteFileAtomic.
type AtomicOptions struct {
	// TempPath names the staging file. It must live in the same directory as
	// the destination so the final rename stays on one filesystem. When empty
	// a random name is chosen in that directory.
	TempPath string
	// Mode is applied to the staging file before rename (default 0o644).
	Mode os.FileMode
	// Verify, when set, runs against the synced and closed staging file. A
	// non-nil result aborts the publish and removes the staging file.
	Verify func(tempPath string) error
}

// WriteFileAtomic streams content produced by write into a staging file,
// syncs and closes it, then renames it onto path. Readers of path observe
// either the previous file or the complete new one. The staging file is
// removed on any failure.
func WriteFileAtomic(path string, write func(io.Writer) error, opts AtomicOptions) (err error) {
	dir := filepath.Dir(path)
	mode := opts.Mode
	if mode == 0 {
		mode = 0o644
	}

	var file *os.File
	if opts.TempPath != "" {
		if filepath.Dir(opts.TempPath) != dir {
			return fmt.Errorf("staging file %s is not in %s", opts.TempPath, dir)
		}
		file, err = os.OpenFile(opts.TempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	} else {
		file, err = os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	}
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	tempPath := file.Name()
	closed := false
	defer func() {
		if err != nil {
			if !closed {
				_ = file.Close()
			}
			_ = os.Remove(tempPath)
		}
	}()

	buffered := bufio.NewWriterSize(file, 256<<10)
	if err = write(buffered); err != nil {
		return err
	}
	if err = buffered.Flush(); err != nil {
		return fmt.Errorf("flush staging file: %w", err)
	}
	if err = file.Chmod(mode); err != nil {
		return fmt.Errorf("chmod staging file: %w", err)
	}
	if err = file.Sync(); err != nil {
		return fmt.Errorf("sync staging file: %w", err)
	}
	closed = true
	if err = file.Close(); err != nil {
		return fmt.Errorf("close staging file: %w", err)
	}
	if opts.Verify != nil {
		if err = opts.Verify(tempPath); err != nil {
			return err
		}
	}
	if err = os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename staging file: %w", err)
	}
	return SyncDir(dir)
}

// SyncDir fsyncs a directory so a completed rename survives a crash.
func SyncDir(dir string) error {
	handle, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir for sync: %w", err)
	}
	defer handle.Close()
	if err := handle.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// RemoveIfExists deletes path, ignoring a missing file.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
