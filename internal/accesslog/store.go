package accesslog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sweeney/access-logger/internal/access"
)

var (
	// ErrStorageUnavailable means the log could not be created or truncated.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrStorageWriteFailed means appending a record failed. There is no
	// retry; the caller is expected to abort the run.
	ErrStorageWriteFailed = errors.New("storage write failed")
)

// Store is the append-only access log for one run.
// Not safe for concurrent use; the owning run loop is the only writer.
type Store struct {
	path   string
	format Format
	f      *os.File
	lines  int
}

// Open truncates any existing log at path and opens it for appending.
// The parent directory is created if missing.
func Open(path string, format Format) (*Store, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return nil, fmt.Errorf("open access log: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: mkdir %s: %v", ErrStorageUnavailable, dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &Store{path: path, format: format, f: f}, nil
}

// Append writes one record as a single line. Lines are not buffered, so
// everything appended before a crash is on disk.
func (s *Store) Append(rec access.Record) error {
	if s.f == nil {
		return fmt.Errorf("%w: store is closed", ErrStorageWriteFailed)
	}
	if _, err := s.f.WriteString(EncodeLine(rec, s.format)); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}
	s.lines++
	return nil
}

// Close syncs and releases the file. Calling Close more than once is safe.
func (s *Store) Close() error {
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil

	var errs []error
	if err := f.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync log: %w", err))
	}
	if err := f.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close log: %w", err))
	}
	return errors.Join(errs...)
}

// Lines returns the number of lines written since Open.
func (s *Store) Lines() int {
	return s.lines
}

// Path returns the log file location.
func (s *Store) Path() string {
	return s.path
}

// Format returns the line format used for start and stop records.
func (s *Store) Format() Format {
	return s.format
}
