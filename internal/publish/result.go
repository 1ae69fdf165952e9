package publish

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/content-pipeline/internal/history"
)

// PublishAttemptResult is the outcome of one (content, platform) attempt.
type PublishAttemptResult struct {
	ID           uuid.UUID     `json:"id"`
	ContentIndex int           `json:"content_index"` // index into the contents passed to Dispatch
	ContentTitle string        `json:"content_title"`
	Platform     string        `json:"platform"`
	Success      bool          `json:"success"`
	Skipped      bool          `json:"skipped,omitempty"`
	ErrorKind    ErrorKind     `json:"error_kind,omitempty"`
	Error        string        `json:"error,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	Method       PublishMethod `json:"method,omitempty"`
	ArtifactRefs []string      `json:"artifact_refs,omitempty"`
	Reference    string        `json:"reference,omitempty"` // remote id, e.g. a draft media_id
	Message      string        `json:"message,omitempty"`
}

// Failed reports whether the attempt counts as a failure. Skips do not.
func (r PublishAttemptResult) Failed() bool {
	return !r.Success && !r.Skipped
}

// BatchReport aggregates one Dispatch call.
type BatchReport struct {
	TotalContents   int                      `json:"total_contents"`
	TotalPlatforms  int                      `json:"total_platforms"`
	SuccessCount    int                      `json:"success_count"`
	FailureCount    int                      `json:"failure_count"`
	SkippedCount    int                      `json:"skipped_count"`
	PlatformResults map[string]history.Tally `json:"platform_results"`
	Details         []PublishAttemptResult   `json:"details"`
	StartTime       time.Time                `json:"start_time"`
	EndTime         time.Time                `json:"end_time"`
	DurationSeconds float64                  `json:"duration_seconds"`
}

func newBatchReport(start time.Time) *BatchReport {
	return &BatchReport{
		PlatformResults: make(map[string]history.Tally),
		Details:         []PublishAttemptResult{},
		StartTime:       start,
	}
}

func (b *BatchReport) add(r PublishAttemptResult) {
	tally := b.PlatformResults[r.Platform]
	switch {
	case r.Success:
		b.SuccessCount++
		tally.Success++
	case r.Skipped:
		b.SkippedCount++
		tally.Skipped++
	default:
		b.FailureCount++
		tally.Failure++
	}
	b.PlatformResults[r.Platform] = tally
	b.Details = append(b.Details, r)
}

func (b *BatchReport) finish(end time.Time) {
	b.EndTime = end
	b.DurationSeconds = end.Sub(b.StartTime).Seconds()
}

// HistoryEntry derives the history record for this batch.
func (b *BatchReport) HistoryEntry() history.Entry {
	results := make(map[string]history.Tally, len(b.PlatformResults))
	for k, v := range b.PlatformResults {
		results[k] = v
	}
	return history.Entry{
		Timestamp:       b.EndTime,
		TotalContents:   b.TotalContents,
		SuccessCount:    b.SuccessCount,
		FailureCount:    b.FailureCount,
		PlatformResults: results,
		DurationSeconds: b.DurationSeconds,
	}
}

// Merge folds other into b. Contents and platforms are summed, which is
// exact when the reports cover disjoint platform groups.
func (b *BatchReport) Merge(other *BatchReport) {
	if other == nil {
		return
	}
	if b.PlatformResults == nil {
		b.PlatformResults = make(map[string]history.Tally)
	}
	b.TotalContents += other.TotalContents
	b.TotalPlatforms += other.TotalPlatforms
	b.SuccessCount += other.SuccessCount
	b.FailureCount += other.FailureCount
	b.SkippedCount += other.SkippedCount
	for p, t := range other.PlatformResults {
		cur := b.PlatformResults[p]
		cur.Success += t.Success
		cur.Failure += t.Failure
		cur.Skipped += t.Skipped
		b.PlatformResults[p] = cur
	}
	b.Details = append(b.Details, other.Details...)

	if b.StartTime.IsZero() || (!other.StartTime.IsZero() && other.StartTime.Before(b.StartTime)) {
		b.StartTime = other.StartTime
	}
	if other.EndTime.After(b.EndTime) {
		b.EndTime = other.EndTime
	}
	if !b.StartTime.IsZero() && !b.EndTime.IsZero() {
		b.DurationSeconds = b.EndTime.Sub(b.StartTime).Seconds()
	}
}
