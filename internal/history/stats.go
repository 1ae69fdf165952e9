package history

import (
	"sort"
	"time"
)

const recentLimit = 10

// PlatformStats counts entries that touched a platform.
type PlatformStats struct {
	Total int `json:"total"`
	Today int `json:"today"`
}

// Stats summarizes a history.
type Stats struct {
	TotalPublishes int                      `json:"total_publishes"`
	TodayPublishes int                      `json:"today_publishes"`
	SuccessRate    float64                  `json:"success_rate"` // percent of entries with at least one success
	PlatformStats  map[string]PlatformStats `json:"platform_stats"`
	Recent         []Entry                  `json:"recent_publishes"`
}

// Summarize computes Stats over entries relative to now. Platforms that
// never appear in entries are reported with zero counts.
func Summarize(entries []Entry, platforms []string, now time.Time) Stats {
	stats := Stats{
		TotalPublishes: len(entries),
		PlatformStats:  make(map[string]PlatformStats, len(platforms)),
	}
	for _, p := range platforms {
		stats.PlatformStats[p] = PlatformStats{}
	}

	withSuccess := 0
	for _, e := range entries {
		today := sameDay(e.Timestamp, now)
		if today {
			stats.TodayPublishes++
		}
		if e.SuccessCount > 0 {
			withSuccess++
		}
		for p, tally := range e.PlatformResults {
			if tally.Success+tally.Failure+tally.Skipped == 0 {
				continue
			}
			ps := stats.PlatformStats[p]
			ps.Total++
			if today {
				ps.Today++
			}
			stats.PlatformStats[p] = ps
		}
	}
	if len(entries) > 0 {
		stats.SuccessRate = float64(withSuccess) / float64(len(entries)) * 100
	}

	start := len(entries) - recentLimit
	if start < 0 {
		start = 0
	}
	stats.Recent = append([]Entry(nil), entries[start:]...)
	return stats
}

// PlatformNames returns the platform keys of s in sorted order.
func (s Stats) PlatformNames() []string {
	names := make([]string, 0, len(s.PlatformStats))
	for name := range s.PlatformStats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
