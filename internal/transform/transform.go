// Package transform provides the deterministic content engine that turns an
// inspiration into an outline, an article and per-platform renditions.
package transform

import (
	"context"
	"time"

	"github.com/jonathan/content-pipeline/internal/types"
	"go.uber.org/zap"
)

// ContentTransform is the collaborator the pipeline drives for each stage.
type ContentTransform interface {
	GenerateOutline(ctx context.Context, inspiration types.Inspiration, style string) (*types.Outline, error)
	WriteContent(ctx context.Context, outline types.Outline, style string) (*types.Article, error)
	FormatForPlatform(ctx context.Context, article types.Article, platform string) (*types.FormattedContent, error)
}

// SectionExpander produces body text for one section. Implementations are
// usually model-backed; see internal/llm.
type SectionExpander interface {
	ExpandSection(ctx context.Context, req SectionRequest) (string, error)
}

// SectionRequest describes the section to expand.
type SectionRequest struct {
	Topic          string
	SectionTitle   string
	Hints          []string
	TargetAudience string
	TargetLength   int
}

// Engine is the template-driven ContentTransform.
type Engine struct {
	expander SectionExpander
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithExpander sets a SectionExpander. Expansion errors fall back to template text.
func WithExpander(x SectionExpander) Option {
	return func(e *Engine) { e.expander = x }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ ContentTransform = (*Engine)(nil)
