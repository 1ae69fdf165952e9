package publish

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/content-pipeline/internal/config"
	"go.uber.org/zap"
)

// PublishMethod selects how a platform is published to.
type PublishMethod string

// Publish methods.
const (
	MethodLocal   PublishMethod = "local"
	MethodWebhook PublishMethod = "webhook"
	MethodAPI     PublishMethod = "api"
)

// PlatformDescriptor describes how to publish to one destination.
type PlatformDescriptor struct {
	Name           string            `json:"name" validate:"required"`
	DisplayName    string            `json:"display_name"`
	PublishMethod  PublishMethod     `json:"publish_method" validate:"required,oneof=local webhook api"`
	RateLimit      *int              `json:"rate_limit" validate:"omitempty,min=0"` // nil is unlimited
	Enabled        bool              `json:"enabled"`
	RequiredParams []string          `json:"required_params,omitempty"`
	Settings       map[string]string `json:"settings,omitempty"`
}

// Validate checks the descriptor's struct constraints.
func (d *PlatformDescriptor) Validate() error {
	validate := validator.New()
	return validate.Struct(d)
}

func (d PlatformDescriptor) clone() PlatformDescriptor {
	if d.RateLimit != nil {
		n := *d.RateLimit
		d.RateLimit = &n
	}
	d.RequiredParams = append([]string(nil), d.RequiredParams...)
	if d.Settings != nil {
		m := make(map[string]string, len(d.Settings))
		for k, v := range d.Settings {
			m[k] = v
		}
		d.Settings = m
	}
	return d
}

func limit(n int) *int { return &n }

// SeedPlatforms returns the built-in platform table.
func SeedPlatforms() []PlatformDescriptor {
	return []PlatformDescriptor{
		{Name: "wechat", DisplayName: "WeChat Official Account", PublishMethod: MethodAPI, RateLimit: limit(10),
			RequiredParams: []string{"app_id", "app_secret", "thumb_media_id"}},
		{Name: "zhihu", DisplayName: "Zhihu", PublishMethod: MethodAPI, RateLimit: limit(5),
			RequiredParams: []string{"endpoint"}},
		{Name: "xiaohongshu", DisplayName: "Xiaohongshu", PublishMethod: MethodWebhook, RateLimit: limit(3),
			RequiredParams: []string{"webhook_url"}},
		{Name: "toutiao", DisplayName: "Toutiao", PublishMethod: MethodAPI, RateLimit: limit(10),
			RequiredParams: []string{"endpoint"}},
		{Name: "feishu", DisplayName: "Feishu", PublishMethod: MethodWebhook, RateLimit: limit(100), Enabled: true,
			RequiredParams: []string{"webhook_url"}},
		{Name: "file", DisplayName: "Local File", PublishMethod: MethodLocal, Enabled: true},
	}
}

// Registry is the table of known platforms. It is safe for concurrent use
// and changes only through Apply, Enable and UpdateConfig.
type Registry struct {
	mu        sync.RWMutex
	platforms map[string]*PlatformDescriptor
	order     []string
	logger    *zap.Logger
}

// NewRegistry creates a registry over the given descriptors, or the seed
// table when none are given.
func NewRegistry(logger *zap.Logger, seeds ...PlatformDescriptor) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(seeds) == 0 {
		seeds = SeedPlatforms()
	}
	r := &Registry{
		platforms: make(map[string]*PlatformDescriptor, len(seeds)),
		logger:    logger,
	}
	for _, d := range seeds {
		d := d.clone()
		if _, dup := r.platforms[d.Name]; !dup {
			r.order = append(r.order, d.Name)
		}
		r.platforms[d.Name] = &d
	}
	return r
}

// NewRegistryFromConfig seeds a registry and applies the merged platform
// overrides from cfg.
func NewRegistryFromConfig(cfg *config.Config, logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	if cfg != nil {
		r.Apply(cfg.PlatformOverrides())
	}
	return r
}

// Apply merges overrides into the table. Unknown names and invalid results
// are logged and skipped.
func (r *Registry) Apply(overrides map[string]config.PlatformOverride) {
	for name, o := range overrides {
		if err := r.UpdateConfig(name, o); err != nil {
			r.logger.Warn("Ignoring platform override", zap.String("platform", name), zap.Error(err))
		}
	}
}

// Get returns a copy of the named descriptor.
func (r *Registry) Get(name string) (PlatformDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.platforms[name]
	if !ok {
		return PlatformDescriptor{}, &UnknownPlatformError{Name: name}
	}
	return d.clone(), nil
}

// List returns copies of all descriptors in seed order.
func (r *Registry) List() []PlatformDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PlatformDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.platforms[name].clone())
	}
	return out
}

// Names returns platform names in seed order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// EnabledNames returns the enabled platform names in seed order.
func (r *Registry) EnabledNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, name := range r.order {
		if r.platforms[name].Enabled {
			names = append(names, name)
		}
	}
	return names
}

// Enable toggles a platform.
func (r *Registry) Enable(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.platforms[name]
	if !ok {
		return &UnknownPlatformError{Name: name}
	}
	d.Enabled = enabled
	r.logger.Info("Platform toggled", zap.String("platform", name), zap.Bool("enabled", enabled))
	return nil
}

// UpdateConfig overwrites the keys present in o. The update is rejected,
// leaving the descriptor unchanged, if the result fails validation.
func (r *Registry) UpdateConfig(name string, o config.PlatformOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.platforms[name]
	if !ok {
		return &UnknownPlatformError{Name: name}
	}

	next := current.clone()
	if o.DisplayName != nil {
		next.DisplayName = *o.DisplayName
	}
	if o.PublishMethod != nil {
		next.PublishMethod = normalizeMethod(*o.PublishMethod)
	}
	if o.RateLimit != nil {
		next.RateLimit = nil
		if o.RateLimit.Limit != nil {
			next.RateLimit = limit(*o.RateLimit.Limit)
		}
	}
	if o.Enabled != nil {
		next.Enabled = *o.Enabled
	}
	if o.RequiredParams != nil {
		next.RequiredParams = append([]string(nil), o.RequiredParams...)
	}
	for k, v := range o.Settings {
		if next.Settings == nil {
			next.Settings = make(map[string]string, len(o.Settings))
		}
		next.Settings[k] = v
	}

	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid configuration for platform %s: %w", name, err)
	}

	*current = next
	return nil
}

// normalizeMethod maps the legacy "file" method onto local.
func normalizeMethod(m string) PublishMethod {
	if m == "file" {
		return MethodLocal
	}
	return PublishMethod(m)
}
