// Package output writes a transfer body to disk atomically: bytes go to a
// temp file next to the destination, which is renamed into place only when
// the transfer succeeded.
package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrFinished         = errors.New("output already committed or aborted")
)

// Error carries the detail of a failed verification.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// File is an io.Writer staging a body for destPath.
type File struct {
	dest     string
	tmp      *os.File
	w        io.Writer
	checksum *checksumVerifier
	written  int64
	done     bool
	logger   *slog.Logger
}

// Create opens the temp file in destPath's directory.
func Create(destPath string, logger *slog.Logger, optFns ...Option) (*File, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".gcurl-out-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	f := File{
		dest:     destPath,
		tmp:      tmp,
		w:        tmp,
		checksum: opts.checksum,
		logger:   logger,
	}
	if opts.checksum != nil {
		f.w = io.MultiWriter(f.w, opts.checksum)
	}
	if opts.progress {
		f.w = &progressWriter{
			w:         f.w,
			logger:    logger,
			startTime: time.Now(),
		}
	}

	return &f, nil
}

func (f *File) Write(p []byte) (int, error) {
	if f.done {
		return 0, ErrFinished
	}

	n, err := f.w.Write(p)
	f.written += int64(n)

	return n, err
}

// Written reports the bytes staged so far.
func (f *File) Written() int64 {
	return f.written
}

// Commit verifies the checksum, if any, and renames the temp file to the
// destination. On failure the temp file is removed.
func (f *File) Commit() error {
	if f.done {
		return ErrFinished
	}

	var successful bool
	defer func() {
		if !successful {
			f.remove()
		}
	}()
	f.done = true

	if err := f.checksum.Verify(); err != nil {
		return err
	}
	if err := f.tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := f.tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(f.tmp.Name(), f.dest); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	successful = true

	f.logger.Debug("output written", "path", f.dest, "bytes", f.written)

	return nil
}

// Abort discards the staged body. It is a no-op after Commit.
func (f *File) Abort() {
	if f.done {
		return
	}
	f.done = true
	f.remove()
}

func (f *File) remove() {
	if err := f.tmp.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		f.logger.Error("closing temp file", "error", err)
	}
	if err := os.Remove(f.tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.logger.Error("failed to remove temp file", "error", err)
	}
}
