package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// PublishHistoryRecord is one row of publish_history.
type PublishHistoryRecord struct {
	ID              int64
	Timestamp       time.Time
	TotalContents   int
	SuccessCount    int
	FailureCount    int
	PlatformResults json.RawMessage // {"platform": {"success": n, "failure": n}}
	DurationSeconds float64
}

const publishHistorySchema = `
CREATE TABLE IF NOT EXISTS publish_history (
	id               BIGSERIAL PRIMARY KEY,
	ts               TIMESTAMPTZ NOT NULL,
	total_contents   INTEGER NOT NULL,
	success_count    INTEGER NOT NULL,
	failure_count    INTEGER NOT NULL,
	platform_results JSONB NOT NULL DEFAULT '{}'::jsonb,
	duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_publish_history_ts ON publish_history (ts);
`

// EnsurePublishHistorySchema creates the publish_history table if needed.
func (db *DB) EnsurePublishHistorySchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, publishHistorySchema); err != nil {
		return fmt.Errorf("failed to create publish_history schema: %w", err)
	}
	return nil
}

// InsertPublishHistory inserts rec and trims the table to the newest
// maxEntries rows in one transaction. maxEntries <= 0 disables trimming.
func (db *DB) InsertPublishHistory(ctx context.Context, rec *PublishHistoryRecord, maxEntries int) error {
	results := rec.PlatformResults
	if len(results) == 0 {
		results = json.RawMessage(`{}`)
	}

	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO publish_history (ts, total_contents, success_count, failure_count, platform_results, duration_seconds)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			rec.Timestamp, rec.TotalContents, rec.SuccessCount, rec.FailureCount, []byte(results), rec.DurationSeconds,
		).Scan(&rec.ID)
		if err != nil {
			return fmt.Errorf("failed to insert publish history: %w", err)
		}

		if maxEntries <= 0 {
			return nil
		}
		_, err = tx.Exec(ctx,
			`DELETE FROM publish_history
			 WHERE id NOT IN (
				SELECT id FROM publish_history ORDER BY ts DESC, id DESC LIMIT $1
			 )`,
			maxEntries,
		)
		if err != nil {
			return fmt.Errorf("failed to trim publish history: %w", err)
		}
		return nil
	})
}

// LatestPublishHistoryTimestamp returns the newest ts, or the zero time when empty.
func (db *DB) LatestPublishHistoryTimestamp(ctx context.Context) (time.Time, error) {
	var ts *time.Time
	if err := db.pool.QueryRow(ctx, `SELECT MAX(ts) FROM publish_history`).Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest publish history: %w", err)
	}
	if ts == nil {
		return time.Time{}, nil
	}
	return *ts, nil
}

// SumPlatformSuccess totals the per-item success counts of platform over rows
// with from <= ts < to.
func (db *DB) SumPlatformSuccess(ctx context.Context, platform string, from, to time.Time) (int, error) {
	var total int
	err := db.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM((platform_results->$1->>'success')::int), 0)
		 FROM publish_history
		 WHERE ts >= $2 AND ts < $3`,
		platform, from, to,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count platform successes: %w", err)
	}
	return total, nil
}

// ListPublishHistory returns all rows, oldest first.
func (db *DB) ListPublishHistory(ctx context.Context) ([]PublishHistoryRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, ts, total_contents, success_count, failure_count, platform_results, duration_seconds
		 FROM publish_history
		 ORDER BY ts ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list publish history: %w", err)
	}
	defer rows.Close()

	var records []PublishHistoryRecord
	for rows.Next() {
		var rec PublishHistoryRecord
		var results []byte
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.TotalContents, &rec.SuccessCount,
			&rec.FailureCount, &results, &rec.DurationSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan publish history: %w", err)
		}
		rec.PlatformResults = json.RawMessage(results)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate publish history: %w", err)
	}
	return records, nil
}

// DeleteAllPublishHistory empties the table.
func (db *DB) DeleteAllPublishHistory(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM publish_history`); err != nil {
		return fmt.Errorf("failed to delete publish history: %w", err)
	}
	return nil
}
