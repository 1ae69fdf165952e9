package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/content-pipeline/internal/history"
	"github.com/jonathan/content-pipeline/internal/metrics"
	"github.com/jonathan/content-pipeline/internal/ratelimit"
	"github.com/jonathan/content-pipeline/internal/types"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single remote publish call.
const DefaultTimeout = 20 * time.Second

// historyTimeout bounds the history append, which outlives caller cancellation.
const historyTimeout = 10 * time.Second

// Dispatcher publishes formatted content to the platforms in a Registry and
// records every batch in a history store.
type Dispatcher struct {
	registry *Registry
	store    history.Store
	local    *LocalPublisher
	remotes  map[string]RemoteClient
	methods  map[PublishMethod]RemoteClient
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRemote sets the client for one platform, replacing its default.
func WithRemote(platform string, client RemoteClient) DispatcherOption {
	return func(d *Dispatcher) { d.remotes[platform] = client }
}

// WithMethodClient sets the fallback client for a publish method.
func WithMethodClient(method PublishMethod, client RemoteClient) DispatcherOption {
	return func(d *Dispatcher) { d.methods[method] = client }
}

// WithTimeout sets the per-call remote timeout.
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics records publish attempts on r.
func WithMetrics(r *metrics.Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = r }
}

// WithDispatcherClock overrides the timestamp source.
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher creates a Dispatcher. Local publishes are written under
// outputRoot. Platforms without an explicit client use DefaultRemotes and
// then DefaultMethodClients.
func NewDispatcher(registry *Registry, store history.Store, outputRoot string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		store:    store,
		local:    NewLocalPublisher(outputRoot),
		remotes:  make(map[string]RemoteClient),
		methods:  make(map[PublishMethod]RemoteClient),
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	client := NewHTTPClient(d.timeout)
	for name, c := range DefaultRemotes(client, d.logger) {
		if _, ok := d.remotes[name]; !ok {
			d.remotes[name] = c
		}
	}
	for method, c := range DefaultMethodClients(client, d.logger) {
		if _, ok := d.methods[method]; !ok {
			d.methods[method] = c
		}
	}
	return d
}

// Dispatch publishes each content item to its own platform, provided that
// platform is in platforms. A nil platforms means every enabled platform.
// The batch is always appended to history; a failed append returns the
// report together with the error.
func (d *Dispatcher) Dispatch(ctx context.Context, contents []types.FormattedContent, platforms []string) (*BatchReport, error) {
	if platforms == nil {
		platforms = d.registry.EnabledNames()
	}
	platforms = dedupe(platforms)
	requested := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		requested[p] = true
	}

	report := newBatchReport(d.now())
	report.TotalPlatforms = len(platforms)
	quota := ratelimit.NewDailyQuota(d.store, d.now)

	for i, content := range contents {
		if !requested[content.Platform] {
			continue
		}
		report.TotalContents++

		result := d.attempt(ctx, quota, i, content)
		report.add(result)
		d.observe(result)
	}

	report.finish(d.now())
	d.logger.Info("Publish batch finished",
		zap.Int("contents", report.TotalContents),
		zap.Int("success", report.SuccessCount),
		zap.Int("failed", report.FailureCount),
		zap.Int("skipped", report.SkippedCount),
		zap.Float64("duration_seconds", report.DurationSeconds))

	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := d.store.Append(appendCtx, report.HistoryEntry()); err != nil {
		d.logger.Error("Failed to record publish history", zap.Error(err))
		return report, fmt.Errorf("failed to record publish history: %w", err)
	}
	return report, nil
}

func (d *Dispatcher) attempt(ctx context.Context, quota *ratelimit.DailyQuota, index int, content types.FormattedContent) PublishAttemptResult {
	platform := content.Platform
	result := PublishAttemptResult{
		ID:           uuid.New(),
		ContentIndex: index,
		ContentTitle: content.Content.FormattedTitle,
		Platform:     platform,
		Timestamp:    d.now(),
	}
	logger := d.logger.With(zap.String("platform", platform), zap.Int("content_index", index))

	desc, err := d.registry.Get(platform)
	if err != nil {
		return fail(result, ErrorUnknownPlatform, err)
	}
	result.Method = desc.PublishMethod

	if !desc.Enabled {
		result.Skipped = true
		result.ErrorKind = ErrorPlatformDisabled
		result.Message = fmt.Sprintf("platform %s is disabled", platform)
		logger.Info("Platform disabled, skipping")
		return result
	}

	info, err := quota.Allow(ctx, platform, desc.RateLimit)
	if err != nil {
		logger.Warn("Quota check failed", zap.Error(err))
		return fail(result, ErrorPersistenceFailure, err)
	}
	if !info.Allowed {
		logger.Info("Daily rate limit reached", zap.Int("used", info.Used), zap.Int("limit", info.Limit))
		return fail(result, ErrorRateLimited, fmt.Errorf("daily limit of %d reached for %s, resets at %s",
			info.Limit, platform, info.ResetTime.Format(time.RFC3339)))
	}

	switch desc.PublishMethod {
	case MethodLocal:
		refs, err := d.local.Publish(platform, content, result.Timestamp)
		result.ArtifactRefs = refs
		if err != nil {
			logger.Error("Local publish failed", zap.Error(err))
			return fail(result, ErrorPersistenceFailure, err)
		}
		result.Message = "saved to local files"

	case MethodWebhook, MethodAPI:
		client := d.remotes[platform]
		if client == nil {
			client = d.methods[desc.PublishMethod]
		}
		if client == nil {
			return fail(result, ErrorUnsupportedMethod, fmt.Errorf("no client for %s method %s", platform, desc.PublishMethod))
		}

		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		remote, err := client.Publish(callCtx, desc, content)
		cancel()
		if err != nil {
			logger.Warn("Remote publish failed", zap.Error(err))
			return fail(result, ErrorRemoteFailure, err)
		}
		if remote != nil {
			result.Reference = remote.Reference
			result.Message = remote.Message
		}

	default:
		return fail(result, ErrorUnsupportedMethod, fmt.Errorf("unsupported publish method %q", desc.PublishMethod))
	}

	result.Success = true
	quota.Record(platform)
	logger.Info("Published", zap.String("method", string(desc.PublishMethod)), zap.Strings("artifacts", result.ArtifactRefs))
	return result
}

func (d *Dispatcher) observe(r PublishAttemptResult) {
	switch {
	case r.Success:
		d.metrics.PublishAttempt(r.Platform, metrics.ResultSuccess)
	case r.Skipped:
		d.metrics.PublishAttempt(r.Platform, metrics.ResultSkipped)
	default:
		d.metrics.PublishAttempt(r.Platform, metrics.ResultFailure)
	}
}

func fail(r PublishAttemptResult, kind ErrorKind, err error) PublishAttemptResult {
	r.Success = false
	r.ErrorKind = kind
	r.Error = err.Error()
	return r
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
