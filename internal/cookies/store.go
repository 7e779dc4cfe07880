// Package cookies keeps opaque cookie blobs in a flat text file. Records are
// separated by a fixed delimiter and addressed by their current position.
package cookies

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/ytget/yt-web/internal/logging"
	"github.com/ytget/yt-web/internal/platform"
)

// RecordDelimiter terminates every record in the store file
const RecordDelimiter = "\n---\n"

// ErrIndexOutOfRange is returned by Delete for a position with no record
var ErrIndexOutOfRange = errors.New("cookie index out of range")

// ErrEmptyBlob is returned by Append for a whitespace-only blob
var ErrEmptyBlob = errors.New("cookie blob is empty")

// Store appends, lists and deletes cookie records. All operations on one
// Store are serialized.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewStore returns a store backed by path. The file is created on first Append.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logging.Ensure(logger).With("component", "cookies"),
	}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Append writes blob followed by the delimiter at the end of the file
func (s *Store) Append(blob string) error {
	if strings.TrimSpace(blob) == "" {
		return ErrEmptyBlob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := platform.EnsureParentDir(s.path); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, platform.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open cookie file: %w", err)
	}
	if _, err := f.WriteString(blob + RecordDelimiter); err != nil {
		_ = f.Close()
		return fmt.Errorf("append cookie: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("append cookie: %w", err)
	}

	s.logger.Info("cookie record appended", "bytes", len(blob))
	return nil
}

// List returns the records in file order. A missing file lists as empty.
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Delete removes the record at index and rewrites the file atomically.
// Later records shift down by one.
func (s *Store) Delete(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(records) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(records))
	}

	records = append(records[:index], records[index+1:]...)

	var b strings.Builder
	for _, r := range records {
		b.WriteString(r)
		b.WriteString(RecordDelimiter)
	}
	if err := platform.WriteFileAtomic(s.path, []byte(b.String()), platform.DefaultFilePermissions); err != nil {
		return fmt.Errorf("rewrite cookie file: %w", err)
	}

	s.logger.Info("cookie record deleted", "index", index, "remaining", len(records))
	return nil
}

// read parses the file; callers hold mu
func (s *Store) read() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	return Split(string(data)), nil
}

// Split cuts file content into records, dropping whitespace-only ones
func Split(content string) []string {
	records := []string{}
	for _, part := range strings.Split(content, RecordDelimiter) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		records = append(records, part)
	}
	return records
}
