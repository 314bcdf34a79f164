package cachestore_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astroask/backend/internal/infrastructure/cachestore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newFileStore(t *testing.T, window time.Duration) (*cachestore.FileStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	s, err := cachestore.NewFileStore(filepath.Join(t.TempDir(), "cache"), window, nil, cachestore.WithClock(clock.Now))
	require.NoError(t, err)
	return s, clock
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	_, err := cachestore.NewFileStore(dir, time.Hour, nil)
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	// second construction on an existing dir is fine
	_, err = cachestore.NewFileStore(dir, time.Hour, nil)
	require.NoError(t, err)
}

func TestFileStore_RoundTrip(t *testing.T) {
	s, _ := newFileStore(t, 24*time.Hour)
	ctx := context.Background()

	payload := []byte(`{"planets":[{"name":"Sun","sign":"Aries"}]}`)
	require.NoError(t, s.Set(ctx, "chart-abc", payload, 0))

	got, ok, err := s.Get(ctx, "chart-abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, payload, got)

	_, err = os.Stat(filepath.Join(s.Dir(), "chart-abc.json"))
	require.NoError(t, err)
}

func TestFileStore_OverwriteLeavesNoTempFiles(t *testing.T) {
	s, _ := newFileStore(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "dasha-1", []byte(`{"v":1}`), 0))
	require.NoError(t, s.Set(ctx, "dasha-1", []byte(`{"v":2}`), 0))

	got, ok, err := s.Get(ctx, "dasha-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"v":2}`, string(got))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileStore_Expiry(t *testing.T) {
	window := 24 * time.Hour
	s, clock := newFileStore(t, window)
	ctx := context.Background()
	written := clock.Now()
	require.NoError(t, s.Set(ctx, "chart-exp", []byte(`{"a":1}`), 0))

	clock.Set(written.Add(window - time.Millisecond))
	_, ok, err := s.Get(ctx, "chart-exp")
	require.NoError(t, err)
	require.True(t, ok)

	clock.Set(written.Add(window + time.Millisecond))
	_, ok, err = s.Get(ctx, "chart-exp")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = os.Stat(filepath.Join(s.Dir(), "chart-exp.json"))
	require.True(t, os.IsNotExist(err))
}

func TestFileStore_CorruptEntryIsEvicted(t *testing.T) {
	s, _ := newFileStore(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "yearly-x", []byte(`{"ok":true}`), 0))

	p := filepath.Join(s.Dir(), "yearly-x.json")
	require.NoError(t, os.WriteFile(p, []byte("{truncated"), 0o644))
	// keep the mtime inside the window so only the content is at fault
	mod := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(p, mod, mod))

	got, ok, err := s.Get(ctx, "yearly-x")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, got)
	_, err = os.Stat(p)
	require.True(t, os.IsNotExist(err))
}

func TestFileStore_MissingAndDelete(t *testing.T) {
	s, _ := newFileStore(t, time.Hour)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "chart-none")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Delete(ctx, "chart-none"))
	require.NoError(t, s.Set(ctx, "chart-del", []byte(`1`), 0))
	require.NoError(t, s.Delete(ctx, "chart-del"))
	_, ok, err = s.Get(ctx, "chart-del")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileStore_RejectsPathLikeKeys(t *testing.T) {
	s, _ := newFileStore(t, time.Hour)
	ctx := context.Background()
	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		require.Error(t, s.Set(ctx, key, []byte(`{}`), 0), key)
	}
}

func TestFileStore_RecreatesDirectoryOnWrite(t *testing.T) {
	s, _ := newFileStore(t, time.Hour)
	require.NoError(t, os.RemoveAll(s.Dir()))
	require.NoError(t, s.Set(context.Background(), "chart-late", []byte(`{}`), 0))
	_, ok, err := s.Get(context.Background(), "chart-late")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFileStore_Purge(t *testing.T) {
	window := time.Hour
	s, clock := newFileStore(t, window)
	ctx := context.Background()
	start := clock.Now()

	require.NoError(t, s.Set(ctx, "chart-old", []byte(`{}`), 0))
	clock.Set(start.Add(50 * time.Minute))
	require.NoError(t, s.Set(ctx, "chart-new", []byte(`{}`), 0))

	clock.Set(start.Add(window + time.Minute))
	n, err := s.Purge(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, ok, err := s.Get(ctx, "chart-new")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFileStore_ConcurrentWritersSameKey(t *testing.T) {
	s, _ := newFileStore(t, time.Hour)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Set(ctx, "chart-race", []byte(`{"same":"payload","n":12345}`), 0)
		}()
	}
	wg.Wait()

	got, ok, err := s.Get(ctx, "chart-race")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"same":"payload","n":12345}`, string(got))
}
