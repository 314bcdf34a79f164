// Package cachestore holds the local ports.Cache backends: a directory of JSON
// files, an embedded Badger database, and a no-op store.
package cachestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/astroask/backend/internal/core/ports"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

const fileExt = ".json"

// FileStore keeps one <key>.json file per entry. Freshness is the file's
// modification time against the configured window.
type FileStore struct {
	dir    string
	window time.Duration
	now    func() time.Time
	logger *logrus.Logger
}

// FileOption customizes a FileStore.
type FileOption func(*FileStore)

// WithClock replaces time.Now, e.g. for expiry tests.
func WithClock(now func() time.Time) FileOption {
	return func(s *FileStore) { s.now = now }
}

// NewFileStore creates dir if needed and returns a store whose entries stay
// fresh for window.
func NewFileStore(dir string, window time.Duration, logger *logrus.Logger, opts ...FileOption) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	s := &FileStore{dir: dir, window: window, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return s, nil
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

func (s *FileStore) expired(mod time.Time) bool {
	return s.now().Sub(mod) > s.window
}

// Get implements ports.Cache. Expired and unparseable entries are removed.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.expired(info.ModTime()) {
		s.remove(p, "expired")
		return nil, false, nil
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !json.Valid(b) {
		s.remove(p, "corrupt")
		return nil, false, nil
	}
	return b, true, nil
}

// Set implements ports.Cache. The value is written to a temp file in the same
// directory and renamed over the entry, so readers see the old or the new
// bytes and never a mix. ttl is ignored; the store-wide window applies.
func (s *FileStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	now := s.now()
	if err := os.Chtimes(tmpName, now, now); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, p); err != nil {
		cleanup()
		return err
	}
	return nil
}

// Delete implements ports.Cache.
func (s *FileStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Purge removes expired entries and abandoned temp files.
func (s *FileStore) Purge(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, fileExt) || strings.HasSuffix(name, ".tmp")) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !s.expired(info.ModTime()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err == nil && strings.HasSuffix(name, fileExt) {
			removed++
		}
	}
	return removed, nil
}

func (s *FileStore) remove(p, reason string) {
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"path": p, "reason": reason}).WithError(err).Warn("failed to evict cache file")
	}
}

var (
	_ ports.Cache       = (*FileStore)(nil)
	_ ports.CachePurger = (*FileStore)(nil)
)
