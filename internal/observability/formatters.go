// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/content-pipeline/internal/history"
	"github.com/jonathan/content-pipeline/internal/pipeline"
	"github.com/jonathan/content-pipeline/internal/publish"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if utf8.RuneCountInString(line) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRunRecord outputs the per-stage counters, summary and errors of a run.
func (p *Printer) PrintRunRecord(record *pipeline.RunRecord) {
	if record == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:       %s\n", record.RunID))
	sb.WriteString(fmt.Sprintf("Duration:  %.2fs\n", record.DurationSeconds))
	sb.WriteString(fmt.Sprintf("Input:     %d inspirations\n", record.TotalInspirations))
	sb.WriteString(fmt.Sprintf("Articles:  %d\n", record.TotalArticles))
	sb.WriteString(fmt.Sprintf("Published: %d\n", record.TotalPublished))
	sb.WriteString("\n")

	stages := []struct {
		name string
		c    pipeline.StageCounters
	}{
		{"outline", record.Stages.Outline},
		{"writer", record.Stages.Writer},
		{"formatter", record.Stages.Formatter},
		{"publisher", record.Stages.Publisher},
	}
	for _, s := range stages {
		sb.WriteString(fmt.Sprintf("  %-10s %3d ok  %3d failed", s.name, s.c.Success, s.c.Failed))
		if s.c.Skipped > 0 {
			sb.WriteString(fmt.Sprintf("  %d skipped", s.c.Skipped))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	status := "✅ success"
	if !record.Summary.OverallSuccess {
		status = fmt.Sprintf("⚠️ %d errors", record.Summary.TotalErrors)
	}
	sb.WriteString(fmt.Sprintf("Status:    %s\n", status))
	sb.WriteString(fmt.Sprintf("Processing rate: %.1f%%\n", record.Summary.ProcessingRate))
	if record.Summary.TimeEfficiency > 0 {
		sb.WriteString(fmt.Sprintf("Time per article: %.2fs\n", record.Summary.TimeEfficiency))
	}

	if len(record.Errors) > 0 {
		sb.WriteString("\nErrors:\n")
		count := min(len(record.Errors), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", record.Errors[i]))
		}
		if len(record.Errors) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(record.Errors)-maxItemsToShow))
		}
	}
	if record.FilePath != "" {
		sb.WriteString(fmt.Sprintf("\nRecord: %s\n", record.FilePath))
	}

	p.printBox("PIPELINE RUN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBatchReport outputs per-platform publish tallies and failed attempts.
func (p *Printer) PrintBatchReport(report *publish.BatchReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Contents:  %d across %d platforms\n", report.TotalContents, report.TotalPlatforms))
	sb.WriteString(fmt.Sprintf("Success:   %d\n", report.SuccessCount))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", report.FailureCount))
	if report.SkippedCount > 0 {
		sb.WriteString(fmt.Sprintf("Skipped:   %d\n", report.SkippedCount))
	}

	if len(report.PlatformResults) > 0 {
		sb.WriteString("\n")
		for _, name := range sortedKeys(report.PlatformResults) {
			t := report.PlatformResults[name]
			sb.WriteString(fmt.Sprintf("  %-12s %d ok / %d failed\n", name, t.Success, t.Failure))
		}
	}

	var failed []publish.PublishAttemptResult
	for _, d := range report.Details {
		if d.Failed() {
			failed = append(failed, d)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\nFailures:\n")
		count := min(len(failed), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s [%s] %s\n", failed[i].Platform, failed[i].ErrorKind, failed[i].Error))
		}
		if len(failed) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(failed)-maxItemsToShow))
		}
	}

	p.printBox("PUBLISH REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintHistoryStats outputs publish history statistics.
func (p *Printer) PrintHistoryStats(stats history.Stats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Batches:      %d (%d today)\n", stats.TotalPublishes, stats.TodayPublishes))
	sb.WriteString(fmt.Sprintf("Success rate: %.1f%%\n", stats.SuccessRate))

	if len(stats.PlatformStats) > 0 {
		sb.WriteString("\nPlatforms:\n")
		for _, name := range sortedKeys(stats.PlatformStats) {
			ps := stats.PlatformStats[name]
			sb.WriteString(fmt.Sprintf("  %-12s total %-4d today %d\n", name, ps.Total, ps.Today))
		}
	}

	if len(stats.Recent) > 0 {
		sb.WriteString("\nRecent:\n")
		count := min(len(stats.Recent), maxItemsToShow)
		for i := len(stats.Recent) - 1; i >= len(stats.Recent)-count; i-- {
			e := stats.Recent[i]
			sb.WriteString(fmt.Sprintf("  %s  %d ok / %d failed\n",
				e.Timestamp.Format(time.DateTime), e.SuccessCount, e.FailureCount))
		}
	}

	p.printBox("PUBLISH HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunStatus outputs totals over persisted run records.
func (p *Printer) PrintRunStatus(status pipeline.Status) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Runs:      %d\n", status.TotalRuns))
	sb.WriteString(fmt.Sprintf("Succeeded: %d\n", status.SuccessCount))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", status.FailureCount))
	if status.LastRunID != "" {
		sb.WriteString(fmt.Sprintf("Last run:  %s\n", status.LastRunID))
	}
	p.printBox("PIPELINE STATUS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPlatforms outputs the platform table.
func (p *Printer) PrintPlatforms(platforms []publish.PlatformDescriptor) {
	var sb strings.Builder
	for i, d := range platforms {
		state := "off"
		if d.Enabled {
			state = "on"
		}
		quota := "unlimited"
		if d.RateLimit != nil {
			quota = fmt.Sprintf("%d/day", *d.RateLimit)
		}
		sb.WriteString(fmt.Sprintf("%-12s %-4s %-8s %s\n", d.Name, state, d.PublishMethod, quota))
		if d.DisplayName != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", d.DisplayName))
		}
		if missing := missingParams(d); len(missing) > 0 {
			sb.WriteString(fmt.Sprintf("  missing: %s\n", strings.Join(missing, ", ")))
		}
		if i < len(platforms)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox("PLATFORMS", strings.TrimSuffix(sb.String(), "\n"))
}

func missingParams(d publish.PlatformDescriptor) []string {
	var missing []string
	for _, key := range d.RequiredParams {
		if d.Settings[key] == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
