// Package history persists publish batch summaries and answers the daily
// success counts the rate limiter needs.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultMaxEntries is the number of entries a store retains. It is also the
// upper bound on any configured cap.
const DefaultMaxEntries = 100

// capEntries maps a configured cap into (0, DefaultMaxEntries].
func capEntries(n int) int {
	if n <= 0 || n > DefaultMaxEntries {
		return DefaultMaxEntries
	}
	return n
}

// Tally counts outcomes for one platform within a batch.
type Tally struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Skipped int `json:"skipped,omitempty"`
}

// Entry summarizes one publish batch.
type Entry struct {
	Timestamp       time.Time        `json:"timestamp"`
	TotalContents   int              `json:"total_contents"`
	SuccessCount    int              `json:"success_count"`
	FailureCount    int              `json:"failure_count"`
	PlatformResults map[string]Tally `json:"platform_results"`
	DurationSeconds float64          `json:"duration_seconds"`
}

// legacyTimestamp is the zone-less ISO layout older history files use.
const legacyTimestamp = "2006-01-02T15:04:05.999999999"

// UnmarshalJSON also accepts timestamps without a zone, read as local time.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type alias Entry
	var raw struct {
		alias
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Entry(raw.alias)
	if raw.Timestamp == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		ts, err = time.ParseInLocation(legacyTimestamp, raw.Timestamp, time.Local)
		if err != nil {
			return fmt.Errorf("invalid history timestamp %q: %w", raw.Timestamp, err)
		}
	}
	e.Timestamp = ts
	return nil
}

// Store is a capped, time-ordered publish history.
type Store interface {
	// Append records a batch. Implementations serialize appends.
	Append(ctx context.Context, entry Entry) error
	// CountSuccessToday returns the number of items successfully published to
	// platform today: the sum of that platform's success counts over entries
	// stamped on the current local calendar day. Entries without a success for
	// platform contribute nothing.
	CountSuccessToday(ctx context.Context, platform string) (int, error)
	// Entries returns all retained entries, oldest first.
	Entries(ctx context.Context) ([]Entry, error)
}

// PersistenceError reports a failed history write.
type PersistenceError struct {
	Path    string
	Message string
	Cause   error
}

func (e *PersistenceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("history persistence error: %s (%s): %v", e.Message, e.Path, e.Cause)
	}
	return fmt.Sprintf("history persistence error: %s: %v", e.Message, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// dayBounds returns [start, end) of the local calendar day containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.In(time.Local)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 0, 1)
}

func sameDay(a, b time.Time) bool {
	start, end := dayBounds(b)
	return !a.Before(start) && a.Before(end)
}

func cloneEntry(e Entry) Entry {
	if e.PlatformResults != nil {
		m := make(map[string]Tally, len(e.PlatformResults))
		for k, v := range e.PlatformResults {
			m[k] = v
		}
		e.PlatformResults = m
	}
	return e
}
