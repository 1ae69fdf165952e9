// Package config provides configuration loading and validation for the content pipeline.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// History backends.
const (
	HistoryBackendFile     = "file"
	HistoryBackendPostgres = "postgres"
)

// Config is the hierarchical pipeline configuration document.
// Keys absent from a loaded file keep their Defaults() values.
type Config struct {
	Pipeline  PipelineConfig              `json:"pipeline"`
	Modules   ModulesConfig               `json:"modules"`
	Platforms map[string]PlatformOverride `json:"platforms,omitempty"` // legacy top-level override shape
	History   HistoryConfig               `json:"history"`
	Logging   LoggingConfig               `json:"logging"`
}

// PipelineConfig controls batch sizing, stage fan-out and publishing.
type PipelineConfig struct {
	Enabled                bool     `json:"enabled"`
	MaxArticlesPerRun      int      `json:"max_articles_per_run"`
	DefaultWritingStyle    string   `json:"default_writing_style"`
	DefaultFormatPlatforms []string `json:"default_format_platforms"`
	AutoPublish            bool     `json:"auto_publish"`
	PublishPlatforms       []string `json:"publish_platforms"`
	PublishConcurrency     int      `json:"publish_concurrency"`     // platform groups dispatched at once
	PublishTimeoutSeconds  int      `json:"publish_timeout_seconds"` // per remote call
	OutputRoot             string   `json:"output_root"`
}

// ModulesConfig gates each stage.
type ModulesConfig struct {
	Outline   OutlineModule   `json:"outline"`
	Writer    WriterModule    `json:"writer"`
	Formatter ModuleToggle    `json:"formatter"`
	Publisher PublisherModule `json:"publisher"`
}

// ModuleToggle is a bare enabled flag.
type ModuleToggle struct {
	Enabled bool `json:"enabled"`
}

// OutlineModule configures the outline stage.
type OutlineModule struct {
	Enabled      bool   `json:"enabled"`
	DefaultStyle string `json:"default_style"`
}

// WriterModule configures the write stage.
type WriterModule struct {
	Enabled bool       `json:"enabled"`
	LLM     *LLMConfig `json:"llm,omitempty"`
}

// LLMConfig selects an optional model used to expand section text.
// API keys come from the environment, never from the document.
type LLMConfig struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
}

// PublisherModule configures the publish stage. Platforms is the nested
// legacy override shape (modules.publisher.platforms).
type PublisherModule struct {
	Enabled   bool                        `json:"enabled"`
	Platforms map[string]PlatformOverride `json:"platforms,omitempty"`
}

// maxHistoryEntries is the hard cap on retained publish history entries.
const maxHistoryEntries = 100

// HistoryConfig selects where publish history is kept.
type HistoryConfig struct {
	Backend    string `json:"backend"`
	Path       string `json:"path,omitempty"` // file backend; defaults to <output_root>/publish_history.json
	MaxEntries int    `json:"max_entries"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level      string `json:"level"`
	Encoding   string `json:"encoding"`
	OutputPath string `json:"output_path,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Enabled:                true,
			MaxArticlesPerRun:      3,
			DefaultWritingStyle:    "professional",
			DefaultFormatPlatforms: []string{"wechat", "zhihu", "xiaohongshu", "toutiao", "file"},
			AutoPublish:            true,
			PublishPlatforms:       []string{"file"},
			PublishConcurrency:     1,
			PublishTimeoutSeconds:  20,
			OutputRoot:             filepath.Join("output", "pipeline"),
		},
		Modules: ModulesConfig{
			Outline:   OutlineModule{Enabled: true, DefaultStyle: "tech_analysis"},
			Writer:    WriterModule{Enabled: true},
			Formatter: ModuleToggle{Enabled: true},
			Publisher: PublisherModule{Enabled: true},
		},
		History: HistoryConfig{
			Backend:    HistoryBackendFile,
			MaxEntries: 100,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// LoadConfig decodes the JSON file at path over Defaults().
// Returns a *LoadError if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, &LoadError{Message: "config path is empty"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read config file", Cause: err}
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, &LoadError{Path: path, Message: "failed to parse config JSON", Cause: err}
	}

	return cfg, nil
}

// Load never fails: a missing file yields defaults, and a malformed or
// invalid file is logged as a warning and also yields defaults.
func Load(path string, logger *zap.Logger) *Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		logger.Info("No config file given, using defaults")
		return Defaults()
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Info("Config file not found, using defaults", zap.String("path", path))
		return Defaults()
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		logger.Warn("Config load failed, using defaults", zap.String("path", path), zap.Error(err))
		return Defaults()
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("Config invalid, using defaults", zap.String("path", path), zap.Error(err))
		return Defaults()
	}

	logger.Info("Config loaded", zap.String("path", path))
	return cfg
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.Pipeline.MaxArticlesPerRun < 0 {
		return fmt.Errorf("config error: 'pipeline.max_articles_per_run' must be non-negative")
	}
	if c.Pipeline.PublishConcurrency < 0 {
		return fmt.Errorf("config error: 'pipeline.publish_concurrency' must be non-negative")
	}
	if c.Pipeline.PublishTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'pipeline.publish_timeout_seconds' must be non-negative")
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("config error: 'history.max_entries' must be non-negative")
	}
	if c.History.MaxEntries > maxHistoryEntries {
		return fmt.Errorf("config error: 'history.max_entries' must be at most %d", maxHistoryEntries)
	}

	switch c.History.Backend {
	case "", HistoryBackendFile, HistoryBackendPostgres:
	default:
		return fmt.Errorf("config error: unknown history backend %q", c.History.Backend)
	}

	return nil
}

// HistoryPath resolves the file history location.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.Pipeline.OutputRoot, "publish_history.json")
}
