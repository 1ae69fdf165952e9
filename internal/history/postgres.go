package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonathan/content-pipeline/internal/db"
)

// PostgresStore keeps the history in the publish_history table.
type PostgresStore struct {
	mu         sync.Mutex
	db         *db.DB
	maxEntries int
	now        func() time.Time
}

// NewPostgresStore ensures the schema exists and returns a store over database.
func NewPostgresStore(ctx context.Context, database *db.DB, maxEntries int) (*PostgresStore, error) {
	maxEntries = capEntries(maxEntries)
	if err := database.EnsurePublishHistorySchema(ctx); err != nil {
		return nil, err
	}
	return &PostgresStore{db: database, maxEntries: maxEntries, now: time.Now}, nil
}

// Append implements Store.
func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	latest, err := s.db.LatestPublishHistoryTimestamp(ctx)
	if err != nil {
		return &PersistenceError{Message: "failed to read latest entry", Cause: err}
	}
	if entry.Timestamp.Before(latest) {
		entry.Timestamp = latest
	}

	results, err := json.Marshal(entry.PlatformResults)
	if err != nil {
		return &PersistenceError{Message: "failed to encode platform results", Cause: err}
	}

	rec := &db.PublishHistoryRecord{
		Timestamp:       entry.Timestamp,
		TotalContents:   entry.TotalContents,
		SuccessCount:    entry.SuccessCount,
		FailureCount:    entry.FailureCount,
		PlatformResults: results,
		DurationSeconds: entry.DurationSeconds,
	}
	if err := s.db.InsertPublishHistory(ctx, rec, s.maxEntries); err != nil {
		return &PersistenceError{Message: "failed to append entry", Cause: err}
	}
	return nil
}

// CountSuccessToday implements Store.
func (s *PostgresStore) CountSuccessToday(ctx context.Context, platform string) (int, error) {
	start, end := dayBounds(s.now())
	return s.db.SumPlatformSuccess(ctx, platform, start, end)
}

// Entries implements Store.
func (s *PostgresStore) Entries(ctx context.Context) ([]Entry, error) {
	records, err := s.db.ListPublishHistory(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		e := Entry{
			Timestamp:       rec.Timestamp.In(time.Local),
			TotalContents:   rec.TotalContents,
			SuccessCount:    rec.SuccessCount,
			FailureCount:    rec.FailureCount,
			DurationSeconds: rec.DurationSeconds,
		}
		if len(rec.PlatformResults) > 0 {
			if err := json.Unmarshal(rec.PlatformResults, &e.PlatformResults); err != nil {
				return nil, fmt.Errorf("failed to decode platform results for entry %d: %w", rec.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

var _ Store = (*PostgresStore)(nil)
