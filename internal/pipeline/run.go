// Package pipeline drives inspirations through the outline, write, format
// and publish stages and persists a record of every run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/content-pipeline/internal/config"
	"github.com/jonathan/content-pipeline/internal/metrics"
	"github.com/jonathan/content-pipeline/internal/pipeline/steps"
	"github.com/jonathan/content-pipeline/internal/publish"
	"github.com/jonathan/content-pipeline/internal/transform"
	"github.com/jonathan/content-pipeline/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Dispatcher publishes one platform group. *publish.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, contents []types.FormattedContent, platforms []string) (*publish.BatchReport, error)
}

// Options holds the orchestrator's collaborators.
type Options struct {
	Config     *config.Config
	Transform  transform.ContentTransform
	Dispatcher Dispatcher // may be nil when publishing is off
	OutputRoot string     // overrides Config.Pipeline.OutputRoot
	// Defaults is used when Run is given a nil batch. Nil means
	// DefaultInspirations.
	Defaults   []types.Inspiration
	Logger     *zap.Logger
	Metrics    *metrics.Recorder
	Now        func() time.Time
	OnProgress ProgressCallback
}

// Orchestrator runs the content pipeline.
type Orchestrator struct {
	cfg        *config.Config
	transform  transform.ContentTransform
	dispatcher Dispatcher
	outputRoot string
	defaults   []types.Inspiration
	logger     *zap.Logger
	metrics    *metrics.Recorder
	now        func() time.Time
	onProgress ProgressCallback
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Transform == nil {
		return nil, errors.New("pipeline: a content transform is required")
	}
	o := &Orchestrator{
		cfg:        opts.Config,
		transform:  opts.Transform,
		dispatcher: opts.Dispatcher,
		outputRoot: opts.OutputRoot,
		defaults:   opts.Defaults,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		now:        opts.Now,
		onProgress: opts.OnProgress,
	}
	if o.cfg == nil {
		o.cfg = config.Defaults()
	}
	if o.outputRoot == "" {
		o.outputRoot = o.cfg.Pipeline.OutputRoot
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// run holds the state of one execution.
type run struct {
	*Orchestrator
	record    *RunRecord
	artifacts artifactWriter
	logger    *zap.Logger
	completed map[string]bool
}

// Run executes the pipeline over inspirations. A nil batch uses the
// configured defaults; an empty non-nil batch ends the run with
// ErrNoInspirations. The returned record is always non-nil and has been
// persisted unless the returned error says otherwise. A non-nil error also
// reports early termination.
func (o *Orchestrator) Run(ctx context.Context, inspirations []types.Inspiration) (*RunRecord, error) {
	start := o.now()
	record := newRunRecord(start)
	r := &run{
		Orchestrator: o,
		record:       record,
		artifacts:    artifactWriter{root: o.outputRoot, runID: record.RunID},
		logger:       o.logger.With(zap.String("run_id", record.RunID), zap.String("execution_id", record.ExecutionID)),
		completed:    make(map[string]bool, len(steps.Order)),
	}
	r.logger.Info("Pipeline run started", zap.String("output_root", o.outputRoot))

	runErr := r.execute(ctx, inspirations)
	if runErr != nil {
		record.addError(runErr.Error())
		r.logger.Warn("Pipeline run terminated", zap.Error(runErr))
	}

	record.finish(o.now())
	if err := r.persist(); err != nil {
		runErr = errors.Join(runErr, err)
	}

	o.metrics.RunFinished(record.DurationSeconds, record.Summary.OverallSuccess)
	r.logger.Info("Pipeline run finished",
		zap.Bool("overall_success", record.Summary.OverallSuccess),
		zap.Int("errors", len(record.Errors)),
		zap.Float64("duration_seconds", record.DurationSeconds))
	r.emit("run", "pipeline", fmt.Sprintf("Run finished with %d errors", len(record.Errors)), record.Summary)

	return record, runErr
}

func (r *run) execute(ctx context.Context, inspirations []types.Inspiration) error {
	if !r.cfg.Pipeline.Enabled {
		return ErrPipelineDisabled
	}

	batch, err := r.batch(inspirations)
	if err != nil {
		return err
	}

	outlines, err := r.outlineStage(ctx, batch)
	if err != nil {
		return err
	}
	articles, err := r.writeStage(ctx, outlines)
	if err != nil {
		return err
	}
	r.record.TotalArticles = len(articles)

	formatted, err := r.formatStage(ctx, articles)
	if err != nil {
		return err
	}
	return r.publishStage(ctx, formatted)
}

func (r *run) batch(inspirations []types.Inspiration) ([]types.Inspiration, error) {
	if inspirations == nil {
		inspirations = r.defaults
		if inspirations == nil {
			inspirations = DefaultInspirations(r.record.StartTime)
		}
		r.logger.Info("No inspirations supplied, using defaults", zap.Int("count", len(inspirations)))
	}
	if len(inspirations) == 0 {
		return nil, ErrNoInspirations
	}

	r.record.TotalInspirations = len(inspirations)
	maxArticles := r.cfg.Pipeline.MaxArticlesPerRun
	if maxArticles > 0 && len(inspirations) > maxArticles {
		r.logger.Info("Capping batch", zap.Int("max", maxArticles), zap.Int("received", len(inspirations)))
		inspirations = inspirations[:maxArticles]
	}
	return inspirations, nil
}

// begin checks that stage may run. Disabled required stages exhaust the run.
func (r *run) begin(stage string, enabled bool) (bool, error) {
	if err := steps.ValidateDependencies(stage, r.completed); err != nil {
		return false, err
	}
	def := steps.StageRegistry[stage]
	if !enabled {
		r.logger.Info("Stage disabled", zap.String("stage", stage))
		if def.Required {
			return false, &StageExhaustedError{Stage: stage, Reason: "module disabled"}
		}
		return false, nil
	}
	r.logger.Info("Stage started", zap.String("stage", stage))
	return true, nil
}

// end marks stage complete, or exhausts the run when a required stage
// produced nothing.
func (r *run) end(stage string, produced int, what string) error {
	counters := r.record.Stages.byStage(stage)
	r.logger.Info("Stage finished",
		zap.String("stage", stage),
		zap.Int("success", counters.Success),
		zap.Int("failed", counters.Failed))
	r.emit(stage, steps.StageRegistry[stage].Module,
		fmt.Sprintf("%d/%d %s produced", counters.Success, counters.Processed, what), counters)

	if produced == 0 && steps.StageRegistry[stage].Required {
		return &StageExhaustedError{Stage: stage, Reason: "no " + what + " produced"}
	}
	r.completed[stage] = true
	return nil
}

func (r *run) succeed(stage string, refs ...string) {
	r.record.Stages.byStage(stage).Success++
	r.record.Stages.byStage(stage).Processed++
	r.record.OutputFiles = append(r.record.OutputFiles, refs...)
	r.metrics.StageItem(stage, metrics.ResultSuccess)
}

func (r *run) failItem(stage, msg string, err error) {
	r.record.Stages.byStage(stage).Failed++
	r.record.Stages.byStage(stage).Processed++
	r.record.addError(fmt.Sprintf("%s: %v", msg, err))
	r.metrics.StageItem(stage, metrics.ResultFailure)
	r.logger.Warn("Stage item failed", zap.String("stage", stage), zap.String("item", msg), zap.Error(err))
}

func (r *run) outlineStage(ctx context.Context, batch []types.Inspiration) ([]types.Outline, error) {
	ok, err := r.begin(steps.Outline, r.cfg.Modules.Outline.Enabled)
	if !ok {
		return nil, err
	}

	style := r.cfg.Modules.Outline.DefaultStyle
	var outlines []types.Outline
	for i, insp := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label := fmt.Sprintf("outline for %q", insp.Title)
		if err := insp.Validate(); err != nil {
			r.failItem(steps.Outline, label, fmt.Errorf("invalid inspiration: %w", err))
			continue
		}
		outline, err := r.transform.GenerateOutline(ctx, insp, style)
		if err != nil {
			r.failItem(steps.Outline, label, err)
			continue
		}
		path, err := r.artifacts.WriteOutline(i, outline)
		if err != nil {
			r.failItem(steps.Outline, label, err)
			continue
		}
		outline.FilePath = path
		outlines = append(outlines, *outline)
		r.succeed(steps.Outline, path)
	}
	return outlines, r.end(steps.Outline, len(outlines), "outlines")
}

func (r *run) writeStage(ctx context.Context, outlines []types.Outline) ([]types.Article, error) {
	ok, err := r.begin(steps.Write, r.cfg.Modules.Writer.Enabled)
	if !ok {
		return nil, err
	}

	style := r.cfg.Pipeline.DefaultWritingStyle
	var articles []types.Article
	for i, outline := range outlines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label := fmt.Sprintf("article for %q", outline.Title)
		article, err := r.transform.WriteContent(ctx, outline, style)
		if err != nil {
			r.failItem(steps.Write, label, err)
			continue
		}
		refs, err := r.artifacts.WriteArticle(i, article)
		if err != nil {
			r.failItem(steps.Write, label, err)
			continue
		}
		article.FilePath = refs[0]
		articles = append(articles, *article)
		r.succeed(steps.Write, refs...)
	}
	return articles, r.end(steps.Write, len(articles), "articles")
}

func (r *run) formatStage(ctx context.Context, articles []types.Article) ([]types.FormattedContent, error) {
	ok, err := r.begin(steps.Format, r.cfg.Modules.Formatter.Enabled)
	if !ok {
		return nil, err
	}

	platforms := r.cfg.Pipeline.DefaultFormatPlatforms
	var formatted []types.FormattedContent
	for i, article := range articles {
		for _, platform := range platforms {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			label := fmt.Sprintf("%s rendition of %q", platform, article.Metadata.Title)
			fc, err := r.transform.FormatForPlatform(ctx, article, platform)
			if err != nil {
				r.failItem(steps.Format, label, err)
				continue
			}
			if fc.Platform != platform {
				r.failItem(steps.Format, label, fmt.Errorf("transform returned content for %q", fc.Platform))
				continue
			}
			refs, err := r.artifacts.WriteFormatted(i, fc)
			if err != nil {
				r.failItem(steps.Format, label, err)
				continue
			}
			fc.FilePath = refs[0]
			formatted = append(formatted, *fc)
			r.succeed(steps.Format, refs...)
		}
	}
	return formatted, r.end(steps.Format, len(formatted), "formatted contents")
}

// platformGroup is the slice of formatted content bound for one platform,
// with the index of each item in the format stage output.
type platformGroup struct {
	platform string
	contents []types.FormattedContent
	indexes  []int
}

func groupByPlatform(formatted []types.FormattedContent, platforms []string) []platformGroup {
	var groups []platformGroup
	seen := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		if seen[p] {
			continue
		}
		seen[p] = true
		g := platformGroup{platform: p}
		for i, fc := range formatted {
			if fc.Platform == p {
				g.contents = append(g.contents, fc)
				g.indexes = append(g.indexes, i)
			}
		}
		if len(g.contents) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

func (r *run) publishStage(ctx context.Context, formatted []types.FormattedContent) error {
	enabled := r.cfg.Pipeline.AutoPublish && r.cfg.Modules.Publisher.Enabled && r.dispatcher != nil
	if ok, err := r.begin(steps.Publish, enabled); !ok {
		return err
	}

	platforms := r.cfg.Pipeline.PublishPlatforms
	groups := groupByPlatform(formatted, platforms)
	if len(groups) == 0 {
		r.logger.Info("No formatted content matches the publish platforms", zap.Strings("platforms", platforms))
	}

	reports := make([]*publish.BatchReport, len(groups))
	dispatchErrs := make([]error, len(groups))

	var g errgroup.Group
	limit := r.cfg.Pipeline.PublishConcurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, group := range groups {
		g.Go(func() error {
			report, err := r.dispatcher.Dispatch(ctx, group.contents, []string{group.platform})
			if report != nil {
				for d := range report.Details {
					report.Details[d].ContentIndex = group.indexes[report.Details[d].ContentIndex]
				}
			}
			reports[i], dispatchErrs[i] = report, err
			return nil
		})
	}
	_ = g.Wait()

	aggregate := &publish.BatchReport{}
	for i, report := range reports {
		if dispatchErrs[i] != nil {
			r.record.addError(fmt.Sprintf("publish to %s: %v", groups[i].platform, dispatchErrs[i]))
		}
		aggregate.Merge(report)
	}
	aggregate.TotalPlatforms = len(dedupe(platforms))

	counters := &r.record.Stages.Publisher
	counters.Processed = aggregate.TotalContents
	counters.Success = aggregate.SuccessCount
	counters.Failed = aggregate.FailureCount
	counters.Skipped = aggregate.SkippedCount
	for _, d := range aggregate.Details {
		switch {
		case d.Success:
			r.record.OutputFiles = append(r.record.OutputFiles, d.ArtifactRefs...)
			r.metrics.StageItem(steps.Publish, metrics.ResultSuccess)
		case d.Skipped:
			r.metrics.StageItem(steps.Publish, metrics.ResultSkipped)
		default:
			r.record.addError(fmt.Sprintf("publish to %s failed for %q: %s", d.Platform, d.ContentTitle, d.Error))
			r.metrics.StageItem(steps.Publish, metrics.ResultFailure)
		}
	}
	r.record.Publish = aggregate
	r.record.TotalPublished = aggregate.SuccessCount

	return r.end(steps.Publish, aggregate.SuccessCount, "publishes")
}

// persist writes the record with its own path already listed in OutputFiles,
// so the returned record matches the file on disk.
func (r *run) persist() error {
	n := len(r.record.OutputFiles)
	r.record.FilePath = r.artifacts.recordPath()
	r.record.OutputFiles = append(r.record.OutputFiles, r.record.FilePath)

	path, err := r.artifacts.WriteRecord(r.record)
	if err != nil {
		r.logger.Error("Failed to persist run record", zap.Error(err))
		r.record.FilePath = ""
		r.record.OutputFiles = r.record.OutputFiles[:n]
		r.record.addError(err.Error())
		r.record.Summary = Summarize(r.record)
		return err
	}
	r.logger.Info("Run record saved", zap.String("path", path))
	return nil
}

// emit calls the progress callback if configured
func (r *run) emit(step, category, message string, content any) {
	if r.onProgress != nil {
		r.onProgress(ProgressEvent{
			Step:     step,
			Category: category,
			Message:  message,
			RunID:    r.record.RunID,
			Content:  content,
		})
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
