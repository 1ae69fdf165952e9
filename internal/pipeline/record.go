package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/content-pipeline/internal/pipeline/steps"
	"github.com/jonathan/content-pipeline/internal/publish"
)

// RunIDLayout formats a run's start time into its id. Two runs started in
// the same second share an id and the later record wins.
const RunIDLayout = "20060102_150405"

// StageCounters tallies items handled by one stage.
type StageCounters struct {
	Processed int `json:"processed"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped,omitempty"`
}

// StageResults holds the counters of every stage.
type StageResults struct {
	Outline   StageCounters `json:"outline"`
	Writer    StageCounters `json:"writer"`
	Formatter StageCounters `json:"formatter"`
	Publisher StageCounters `json:"publisher"`
}

// byStage returns the counters for a stage name, in execution order.
func (s *StageResults) byStage(stage string) *StageCounters {
	switch stage {
	case steps.Outline:
		return &s.Outline
	case steps.Write:
		return &s.Writer
	case steps.Format:
		return &s.Formatter
	default:
		return &s.Publisher
	}
}

// StagePerformance is the per-stage part of a summary.
type StagePerformance struct {
	SuccessRate float64 `json:"success_rate"`
	Processed   int     `json:"processed"`
	Success     int     `json:"success"`
	Failed      int     `json:"failed"`
}

// Summary is derived purely from a record's counters.
type Summary struct {
	OverallSuccess   bool                        `json:"overall_success"`
	TotalErrors      int                         `json:"total_errors"`
	ProcessingRate   float64                     `json:"processing_rate"` // percent across all stages
	TimeEfficiency   float64                     `json:"time_efficiency"` // seconds per article
	StagePerformance map[string]StagePerformance `json:"module_performance"`
}

// RunRecord is the persisted summary of one pipeline execution.
type RunRecord struct {
	RunID             string               `json:"pipeline_run_id"`
	ExecutionID       string               `json:"execution_id"` // unique even when RunIDs collide
	StartTime         time.Time            `json:"start_time"`
	EndTime           time.Time            `json:"end_time"`
	DurationSeconds   float64              `json:"duration_seconds"`
	TotalInspirations int                  `json:"total_inspirations"`
	TotalArticles     int                  `json:"total_articles"`
	TotalPublished    int                  `json:"total_published"`
	Stages            StageResults         `json:"module_results"`
	OutputFiles       []string             `json:"output_files"`
	Publish           *publish.BatchReport `json:"publish_report,omitempty"`
	Errors            []string             `json:"errors"`
	Summary           Summary              `json:"summary"`
	FilePath          string               `json:"-"`
}

func newRunRecord(start time.Time) *RunRecord {
	return &RunRecord{
		RunID:       start.Format(RunIDLayout),
		ExecutionID: uuid.NewString(),
		StartTime:   start,
		OutputFiles: []string{},
		Errors:      []string{},
	}
}

func (r *RunRecord) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *RunRecord) finish(end time.Time) {
	r.EndTime = end
	r.DurationSeconds = end.Sub(r.StartTime).Seconds()
	r.Summary = Summarize(r)
}

// Summarize derives the summary from r's counters and errors.
func Summarize(r *RunRecord) Summary {
	s := Summary{
		OverallSuccess:   len(r.Errors) == 0,
		TotalErrors:      len(r.Errors),
		StagePerformance: make(map[string]StagePerformance, len(steps.Order)),
	}

	var processed, success int
	for _, stage := range steps.Order {
		c := r.Stages.byStage(stage)
		processed += c.Processed
		success += c.Success

		perf := StagePerformance{Processed: c.Processed, Success: c.Success, Failed: c.Failed}
		if c.Processed > 0 {
			perf.SuccessRate = float64(c.Success) / float64(c.Processed) * 100
		}
		s.StagePerformance[steps.StageRegistry[stage].Module] = perf
	}
	if processed > 0 {
		s.ProcessingRate = float64(success) / float64(processed) * 100
	}
	if r.TotalArticles > 0 && r.DurationSeconds > 0 {
		s.TimeEfficiency = r.DurationSeconds / float64(r.TotalArticles)
	}
	return s
}
