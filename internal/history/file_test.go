package history

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 2, 14, 0, 0, 0, time.Local)}
}

func successEntry(ts time.Time, platform string, n int) Entry {
	return Entry{
		Timestamp:       ts,
		TotalContents:   n,
		SuccessCount:    n,
		PlatformResults: map[string]Tally{platform: {Success: n}},
	}
}

func openTestStore(t *testing.T, c *clock, opts ...FileOption) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "publish_history.json")
	s, err := OpenFile(path, append([]FileOption{WithClock(c.Now)}, opts...)...)
	require.NoError(t, err)
	return s
}

func TestFileStore_AppendPersists(t *testing.T) {
	c := newClock()
	s := openTestStore(t, c)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, successEntry(c.Now(), "file", 1)))

	reopened, err := OpenFile(s.Path(), WithClock(c.Now))
	require.NoError(t, err)
	entries, err := reopened.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].PlatformResults["file"].Success)
	assert.True(t, entries[0].Timestamp.Equal(c.Now()))
}

func TestFileStore_CapsAt100(t *testing.T) {
	c := newClock()
	s := openTestStore(t, c)
	ctx := context.Background()

	base := c.Now().Add(-3 * time.Hour)
	for i := 0; i < DefaultMaxEntries; i++ {
		e := successEntry(base.Add(time.Duration(i)*time.Second), "file", 1)
		e.TotalContents = i
		require.NoError(t, s.Append(ctx, e))
	}

	first, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, first, DefaultMaxEntries)
	assert.Equal(t, 0, first[0].TotalContents)

	overflow := successEntry(base.Add(time.Hour), "file", 1)
	overflow.TotalContents = 100
	require.NoError(t, s.Append(ctx, overflow))

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, DefaultMaxEntries)
	assert.Equal(t, 1, entries[0].TotalContents, "oldest entry evicted")
	assert.Equal(t, 100, entries[len(entries)-1].TotalContents)

	reopened, err := OpenFile(s.Path())
	require.NoError(t, err)
	persisted, err := reopened.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, persisted, DefaultMaxEntries)
}

func TestFileStore_MaxEntriesNeverExceeds100(t *testing.T) {
	c := newClock()
	ctx := context.Background()

	for _, n := range []int{500, 0, -3} {
		s := openTestStore(t, c, WithMaxEntries(n))
		for i := 0; i < DefaultMaxEntries+5; i++ {
			require.NoError(t, s.Append(ctx, successEntry(c.Now(), "file", 1)))
		}
		entries, err := s.Entries(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, DefaultMaxEntries, "cap %d", n)
	}

	small := openTestStore(t, c, WithMaxEntries(3))
	for i := 0; i < 5; i++ {
		require.NoError(t, small.Append(ctx, successEntry(c.Now(), "file", 1)))
	}
	entries, err := small.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestFileStore_CountSuccessToday(t *testing.T) {
	c := newClock()
	s := openTestStore(t, c)
	ctx := context.Background()

	yesterday := c.Now().AddDate(0, 0, -1)
	require.NoError(t, s.Append(ctx, successEntry(yesterday, "wechat", 4)))
	require.NoError(t, s.Append(ctx, successEntry(c.Now(), "wechat", 1)))
	require.NoError(t, s.Append(ctx, successEntry(c.Now(), "wechat", 1)))
	require.NoError(t, s.Append(ctx, Entry{
		Timestamp:       c.Now(),
		FailureCount:    3,
		PlatformResults: map[string]Tally{"wechat": {Failure: 3}, "file": {Success: 1}},
	}))

	n, err := s.CountSuccessToday(ctx, "wechat")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	again, err := s.CountSuccessToday(ctx, "wechat")
	require.NoError(t, err)
	assert.Equal(t, n, again, "read-only query is idempotent")

	none, err := s.CountSuccessToday(ctx, "zhihu")
	require.NoError(t, err)
	assert.Zero(t, none)

	// the next local day starts from zero
	c.Set(c.Now().AddDate(0, 0, 1))
	n, err = s.CountSuccessToday(ctx, "wechat")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFileStore_CountSuccessTodayCountsItems(t *testing.T) {
	c := newClock()
	s := openTestStore(t, c)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, successEntry(c.Now(), "wechat", 3)))
	require.NoError(t, s.Append(ctx, Entry{
		Timestamp:       c.Now(),
		PlatformResults: map[string]Tally{"wechat": {Failure: 2}},
	}))

	n, err := s.CountSuccessToday(ctx, "wechat")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "one entry with three successes uses three units")
}

func TestFileStore_TimestampsMonotonic(t *testing.T) {
	c := newClock()
	s := openTestStore(t, c)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, successEntry(c.Now(), "file", 1)))
	require.NoError(t, s.Append(ctx, successEntry(c.Now().Add(-time.Minute), "file", 1)))
	require.NoError(t, s.Append(ctx, Entry{}))

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}
}

func TestFileStore_MalformedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publish_history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := OpenFile(path)
	require.NoError(t, err)

	entries, err := s.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStore_ReadsLegacyTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publish_history.json")
	legacy := `[{"timestamp": "2026-03-02T09:15:00.123456", "total_contents": 1, "success_count": 1,
		"failure_count": 0, "platform_results": {"file": {"success": 1, "failure": 0}}, "duration_seconds": 0.2}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	c := newClock()
	s, err := OpenFile(path, WithClock(c.Now))
	require.NoError(t, err)

	n, err := s.CountSuccessToday(context.Background(), "file")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFileStore_WriteFailureReturnsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	s, err := OpenFile(filepath.Join(blocker, "publish_history.json"))
	require.NoError(t, err)

	err = s.Append(context.Background(), successEntry(time.Now(), "file", 1))
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)

	// still visible to the rate limiter
	entries, err := s.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_ConcurrentAppends(t *testing.T) {
	c := newClock()
	s := openTestStore(t, c)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Append(ctx, successEntry(c.Now(), "file", 1)))
		}()
	}
	wg.Wait()

	reopened, err := OpenFile(s.Path(), WithClock(c.Now))
	require.NoError(t, err)
	n, err := reopened.CountSuccessToday(ctx, "file")
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}
