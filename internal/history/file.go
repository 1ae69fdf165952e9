package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileStore keeps the history as one JSON array, loaded at open and rewritten
// in full on every append.
type FileStore struct {
	mu         sync.Mutex
	path       string
	maxEntries int
	entries    []Entry
	logger     *zap.Logger
	now        func() time.Time
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithMaxEntries lowers the cap below DefaultMaxEntries. Values outside
// 1..DefaultMaxEntries fall back to DefaultMaxEntries.
func WithMaxEntries(n int) FileOption {
	return func(s *FileStore) { s.maxEntries = capEntries(n) }
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) FileOption {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used for "today".
func WithClock(now func() time.Time) FileOption {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// OpenFile loads the history at path. A missing file starts empty. A file
// that cannot be parsed is logged and replaced on the next append.
func OpenFile(path string, opts ...FileOption) (*FileStore, error) {
	s := &FileStore{
		path:       path,
		maxEntries: DefaultMaxEntries,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read history file %s: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("History file is malformed, starting empty",
			zap.String("path", path),
			zap.Error(err))
		return s, nil
	}
	if len(entries) > s.maxEntries {
		entries = entries[len(entries)-s.maxEntries:]
	}
	s.entries = entries

	s.logger.Debug("History loaded", zap.String("path", path), zap.Int("entries", len(entries)))
	return s, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Append adds entry, evicts the oldest entries past the cap and rewrites the
// file. Timestamps are clamped so the log stays time-ordered. The entry is
// retained in memory even if the write fails.
func (s *FileStore) Append(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry = cloneEntry(entry)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	if n := len(s.entries); n > 0 && entry.Timestamp.Before(s.entries[n-1].Timestamp) {
		entry.Timestamp = s.entries[n-1].Timestamp
	}

	s.entries = append(s.entries, entry)
	if over := len(s.entries) - s.maxEntries; over > 0 {
		s.entries = append([]Entry(nil), s.entries[over:]...)
	}

	if err := s.persist(); err != nil {
		s.logger.Error("History write failed", zap.String("path", s.path), zap.Error(err))
		return err
	}
	return nil
}

func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return &PersistenceError{Path: s.path, Message: "failed to encode history", Cause: err}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return &PersistenceError{Path: s.path, Message: "failed to create history directory", Cause: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.json")
	if err != nil {
		return &PersistenceError{Path: s.path, Message: "failed to create temp file", Cause: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Path: s.path, Message: "failed to write history", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: s.path, Message: "failed to close history", Cause: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: s.path, Message: "failed to replace history", Cause: err}
	}
	return nil
}

// CountSuccessToday implements Store. The count is per item, not per entry.
func (s *FileStore) CountSuccessToday(ctx context.Context, platform string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	total := 0
	for _, e := range s.entries {
		if sameDay(e.Timestamp, now) {
			total += e.PlatformResults[platform].Success
		}
	}
	return total, nil
}

// Entries implements Store.
func (s *FileStore) Entries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = cloneEntry(e)
	}
	return out, nil
}

var _ Store = (*FileStore)(nil)
