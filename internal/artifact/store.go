package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ytget/yt-web/internal/logging"
	"github.com/ytget/yt-web/internal/model"
	"github.com/ytget/yt-web/internal/platform"
)

// File naming and permission constants
const (
	ClaimSuffix        = ".serving"
	StagingInfix       = ".incomplete"
	FilePermissions    = 0o600
	maxReserveAttempts = 3
)

// ContentTypes maps containers to the Content-Type sent with the artifact
var ContentTypes = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
}

// DefaultContentType is used for containers missing from ContentTypes
const DefaultContentType = "application/octet-stream"

var (
	// ErrNotFound is returned for unknown, malformed, unfinished, or already
	// served tokens
	ErrNotFound = errors.New("artifact not found")
	ErrEmpty    = errors.New("artifact is empty")
)

// Store maps tokens to files in one scratch directory
type Store struct {
	dir       string
	container string
	logger    *slog.Logger
	now       func() time.Time
}

// NewStore creates the scratch directory if needed and returns a store for it
func NewStore(dir, container string, logger *slog.Logger) (*Store, error) {
	if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
		return nil, fmt.Errorf("create scratch dir %s: %w", dir, err)
	}
	return &Store{
		dir:       dir,
		container: strings.ToLower(container),
		logger:    logging.Ensure(logger).With("component", "artifact"),
		now:       time.Now,
	}, nil
}

// Dir returns the scratch directory
func (s *Store) Dir() string {
	return s.dir
}

// Container returns the container extension used for artifact files
func (s *Store) Container() string {
	return s.container
}

// ContentType returns the MIME type for the store's container
func (s *Store) ContentType() string {
	if ct, ok := ContentTypes[s.container]; ok {
		return ct
	}
	return DefaultContentType
}

// FileName returns the attachment name for token
func (s *Store) FileName(token model.ArtifactToken) string {
	return token.String() + "." + s.container
}

// Path returns the file path derived from token
func (s *Store) Path(token model.ArtifactToken) string {
	return filepath.Join(s.dir, s.FileName(token))
}

// StagingPath returns where the download for token is written. Open never
// serves this name; Commit moves it to Path.
func (s *Store) StagingPath(token model.ArtifactToken) string {
	return filepath.Join(s.dir, token.String()+StagingInfix+"."+s.container)
}

// Reserve generates a fresh token and creates its staging file empty. The
// exclusive create guarantees no two fetches share a path. The returned path
// is the staging path.
func (s *Store) Reserve() (model.ArtifactToken, string, error) {
	var lastErr error
	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		token := model.NewArtifactToken()
		path := s.StagingPath(token)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, FilePermissions)
		if errors.Is(err, fs.ErrExist) {
			lastErr = err
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("reserve artifact: %w", err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", "", fmt.Errorf("reserve artifact: %w", err)
		}
		return token, path, nil
	}
	return "", "", fmt.Errorf("reserve artifact: %w", lastErr)
}

// Commit publishes a finished download under its servable name and returns
// its size. An empty staging file is left in place and reported as ErrEmpty.
func (s *Store) Commit(token model.ArtifactToken) (int64, error) {
	if _, ok := model.ParseArtifactToken(token.String()); !ok {
		return 0, ErrNotFound
	}
	staging := s.StagingPath(token)
	info, err := os.Stat(staging)
	if err != nil || !info.Mode().IsRegular() {
		return 0, ErrNotFound
	}
	if info.Size() == 0 {
		return 0, ErrEmpty
	}
	if err := os.Rename(staging, s.Path(token)); err != nil {
		return 0, fmt.Errorf("commit artifact: %w", err)
	}
	return info.Size(), nil
}

// Stat returns the size of a committed artifact
func (s *Store) Stat(token model.ArtifactToken) (int64, error) {
	if _, ok := model.ParseArtifactToken(token.String()); !ok {
		return 0, ErrNotFound
	}
	info, err := os.Stat(s.Path(token))
	if err != nil || !info.Mode().IsRegular() {
		return 0, ErrNotFound
	}
	return info.Size(), nil
}

// Discard removes the artifact and any partial files yt-dlp left next to it.
// Failures are logged only.
func (s *Store) Discard(token model.ArtifactToken) {
	if _, ok := model.ParseArtifactToken(token.String()); !ok {
		return
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, token.String()+"*"))
	if err != nil {
		s.logger.Warn("discard: glob failed", "video_id", token, "error", err)
		return
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("discard: remove failed", "path", path, "error", err)
		}
	}
}

// Open claims a committed artifact for a single reader. The claim is an atomic
// rename, so a concurrent or later Open of the same token returns ErrNotFound.
// The returned Reader deletes the file when closed.
func (s *Store) Open(token model.ArtifactToken) (*Reader, error) {
	if _, ok := model.ParseArtifactToken(token.String()); !ok {
		return nil, ErrNotFound
	}

	path := s.Path(token)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return nil, ErrNotFound
	}

	claimed := path + ClaimSuffix
	if err := os.Rename(path, claimed); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("claim artifact: %w", err)
	}

	f, err := os.Open(claimed)
	if err != nil {
		s.remove(claimed)
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		s.remove(claimed)
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	return &Reader{
		File:  f,
		size:  stat.Size(),
		name:  s.FileName(token),
		path:  claimed,
		store: s,
	}, nil
}

// remove deletes path, logging anything but a missing file
func (s *Store) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove artifact", "path", path, "error", err)
	}
}

// Sweep removes artifact files older than maxAge, including abandoned
// claims and partial downloads. Files not named after a token are left alone.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read scratch dir: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isArtifactName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("sweep: remove failed", "path", path, "error", err)
			}
			continue
		}
		removed++
	}
	return removed, nil
}

// RunSweeper sweeps every interval until ctx is done
func (s *Store) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(maxAge)
			if err != nil {
				s.logger.Warn("sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("swept stale artifacts", "removed", n)
			}
		}
	}
}

func isArtifactName(name string) bool {
	if len(name) < model.ArtifactTokenLength {
		return false
	}
	_, ok := model.ParseArtifactToken(name[:model.ArtifactTokenLength])
	return ok
}

// Reader streams one claimed artifact and deletes it on Close
type Reader struct {
	*os.File
	size  int64
	name  string
	path  string
	store *Store

	once     sync.Once
	closeErr error
}

// Size returns the artifact size in bytes
func (r *Reader) Size() int64 {
	return r.size
}

// FileName returns the attachment file name
func (r *Reader) FileName() string {
	return r.name
}

// Close closes the file and makes exactly one deletion attempt. Repeated
// calls return the first result.
func (r *Reader) Close() error {
	r.once.Do(func() {
		r.closeErr = r.File.Close()
		r.store.remove(r.path)
	})
	return r.closeErr
}
