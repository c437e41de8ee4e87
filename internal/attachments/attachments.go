// Package attachments writes uploaded files to the upload directory and
// serves them back.
package attachments

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"peopleconnect/internal/submission"

	"go.uber.org/zap"
)

// ErrInvalidName is returned when a requested file name tries to leave the
// upload directory.
var ErrInvalidName = errors.New("invalid attachment name")

// Store keeps attachments as plain files named
// <UTC YYYYMMDDhhmmss + microseconds>_<original base name>.
type Store struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
	now    func() time.Time
}

// New creates the upload directory if needed.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, logger: logger, now: time.Now}, nil
}

// Dir returns the upload directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes every upload and returns the stored paths in the same order.
// On failure the files written so far are removed again.
func (s *Store) Save(files []submission.Upload) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path, err := s.write(f)
		if err != nil {
			s.Remove(paths)
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *Store) write(f submission.Upload) (string, error) {
	base := cleanName(f.Filename)
	ts := s.now().UTC()

	// Two uploads in the same microsecond with the same name would collide;
	// bump the timestamp until the name is free.
	for attempt := 0; attempt < 1000; attempt++ {
		name := stamp(ts.Add(time.Duration(attempt)*time.Microsecond)) + "_" + base
		path := filepath.Join(s.dir, name)

		out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", name, err)
		}

		if f.Content != nil {
			if _, err := io.Copy(out, f.Content); err != nil {
				out.Close()
				os.Remove(path)
				return "", fmt.Errorf("write %s: %w", name, err)
			}
		}
		if err := out.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("close %s: %w", name, err)
		}

		s.logger.Debug("📎 Attachment saved", zap.String("path", path))
		return path, nil
	}
	return "", fmt.Errorf("no free name for %s", base)
}

// Remove deletes stored files. Missing files are ignored.
func (s *Store) Remove(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("⚠️  Failed to remove attachment", zap.String("path", p), zap.Error(err))
		}
	}
}

// Open opens a stored attachment by its base name.
func (s *Store) Open(name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, ErrInvalidName
	}
	return os.Open(filepath.Join(s.dir, name))
}

func stamp(t time.Time) string {
	return t.Format("20060102150405") + fmt.Sprintf("%06d", t.Nanosecond()/1000)
}

// cleanName reduces a client-supplied file name to a safe base name.
// Commas are replaced because the attachments column is comma-joined.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ',', r == '/', r < 0x20:
			return '_'
		}
		return r
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "file"
	}
	return name
}
