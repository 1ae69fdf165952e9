// Package ratelimit enforces per-platform daily publish quotas.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Counter reports successful publishes already recorded today.
type Counter interface {
	CountSuccessToday(ctx context.Context, platform string) (int, error)
}

// Info contains information about quota status.
type Info struct {
	Allowed   bool
	Limit     int // 0 when unlimited
	Used      int
	Remaining int
	ResetTime time.Time // next local midnight
}

// DailyQuota combines persisted successes with successes made during the
// current batch. Create one per batch: in-batch counts are not cleared once
// the batch is written to history.
type DailyQuota struct {
	counter Counter
	used    map[string]int // in-batch successes
	mu      sync.Mutex
	now     func() time.Time
}

// NewDailyQuota creates a quota backed by counter. A nil now uses time.Now.
func NewDailyQuota(counter Counter, now func() time.Time) *DailyQuota {
	if now == nil {
		now = time.Now
	}
	return &DailyQuota{
		counter: counter,
		used:    make(map[string]int),
		now:     now,
	}
}

// Allow reports whether one more success fits under limit. A nil limit is
// unlimited and never queries the counter.
func (q *DailyQuota) Allow(ctx context.Context, platform string, limit *int) (Info, error) {
	reset := nextMidnight(q.now())
	if limit == nil {
		return Info{Allowed: true, ResetTime: reset}, nil
	}

	persisted, err := q.counter.CountSuccessToday(ctx, platform)
	if err != nil {
		return Info{}, fmt.Errorf("failed to count today's publishes for %s: %w", platform, err)
	}

	q.mu.Lock()
	used := persisted + q.used[platform]
	q.mu.Unlock()

	remaining := *limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Info{
		Allowed:   used < *limit,
		Limit:     *limit,
		Used:      used,
		Remaining: remaining,
		ResetTime: reset,
	}, nil
}

// Record counts one in-batch success for platform.
func (q *DailyQuota) Record(platform string) {
	q.mu.Lock()
	q.used[platform]++
	q.mu.Unlock()
}

func nextMidnight(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, 1)
}
