package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Status aggregates the persisted run records under an output root.
type Status struct {
	TotalRuns    int       `json:"total_runs"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	LastRun      time.Time `json:"last_run,omitempty"`
	LastRunID    string    `json:"last_run_id,omitempty"`
}

// ListRuns reads every run record under <root>/runs, oldest first.
// Unreadable records are skipped and reported in the returned error.
func ListRuns(root string) ([]RunRecord, error) {
	paths, err := filepath.Glob(filepath.Join(root, "runs", "pipeline_run_*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list run records: %w", err)
	}

	var records []RunRecord
	var errs []error
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		var rec RunRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		rec.FilePath = path
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartTime.Before(records[j].StartTime)
	})
	return records, errors.Join(errs...)
}

// RunStatus summarizes records.
func RunStatus(records []RunRecord) Status {
	var s Status
	for _, rec := range records {
		s.TotalRuns++
		if rec.Summary.OverallSuccess {
			s.SuccessCount++
		} else {
			s.FailureCount++
		}
		if !rec.StartTime.Before(s.LastRun) {
			s.LastRun = rec.StartTime
			s.LastRunID = rec.RunID
		}
	}
	return s
}
