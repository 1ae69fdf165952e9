package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.True(t, cfg.Pipeline.Enabled)
	assert.Equal(t, 3, cfg.Pipeline.MaxArticlesPerRun)
	assert.Equal(t, "professional", cfg.Pipeline.DefaultWritingStyle)
	assert.Equal(t, []string{"wechat", "zhihu", "xiaohongshu", "toutiao", "file"}, cfg.Pipeline.DefaultFormatPlatforms)
	assert.True(t, cfg.Pipeline.AutoPublish)
	assert.Equal(t, []string{"file"}, cfg.Pipeline.PublishPlatforms)
	assert.Equal(t, "tech_analysis", cfg.Modules.Outline.DefaultStyle)
	assert.True(t, cfg.Modules.Writer.Enabled)
	assert.True(t, cfg.Modules.Formatter.Enabled)
	assert.True(t, cfg.Modules.Publisher.Enabled)
	assert.Equal(t, 100, cfg.History.MaxEntries)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_PartialDocumentKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"pipeline": {"max_articles_per_run": 7, "publish_platforms": ["file", "feishu"]},
		"modules": {"writer": {"enabled": false}}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Pipeline.MaxArticlesPerRun)
	assert.Equal(t, []string{"file", "feishu"}, cfg.Pipeline.PublishPlatforms)
	assert.False(t, cfg.Modules.Writer.Enabled)
	// untouched keys
	assert.True(t, cfg.Modules.Outline.Enabled)
	assert.Equal(t, "professional", cfg.Pipeline.DefaultWritingStyle)
	assert.Equal(t, 20, cfg.Pipeline.PublishTimeoutSeconds)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")

	var loadErr *LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_FallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"empty path", func(t *testing.T) string { return "" }},
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") }},
		{"malformed", func(t *testing.T) string { return writeConfig(t, `{"pipeline": [}`) }},
		{"invalid values", func(t *testing.T) string { return writeConfig(t, `{"pipeline": {"max_articles_per_run": -1}}`) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load(tt.path(t), zap.NewNop())
			require.NotNil(t, cfg)
			assert.Equal(t, Defaults(), cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"negative max", func(c *Config) { c.Pipeline.MaxArticlesPerRun = -1 }, "max_articles_per_run"},
		{"negative concurrency", func(c *Config) { c.Pipeline.PublishConcurrency = -2 }, "publish_concurrency"},
		{"negative timeout", func(c *Config) { c.Pipeline.PublishTimeoutSeconds = -1 }, "publish_timeout_seconds"},
		{"negative history cap", func(c *Config) { c.History.MaxEntries = -1 }, "history.max_entries"},
		{"history cap above 100", func(c *Config) { c.History.MaxEntries = 101 }, "at most 100"},
		{"history cap of 100", func(c *Config) { c.History.MaxEntries = 100 }, ""},
		{"unknown backend", func(c *Config) { c.History.Backend = "redis" }, "history backend"},
		{"postgres backend", func(c *Config) { c.History.Backend = HistoryBackendPostgres }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := Defaults()
	cfg.Pipeline.OutputRoot = "/tmp/out"
	assert.Equal(t, filepath.Join("/tmp/out", "publish_history.json"), cfg.HistoryPath())

	cfg.History.Path = "/var/lib/history.json"
	assert.Equal(t, "/var/lib/history.json", cfg.HistoryPath())
}

func TestPlatformOverride_Unmarshal(t *testing.T) {
	var o PlatformOverride
	err := json.Unmarshal([]byte(`{
		"enabled": true,
		"rate_limit": 4,
		"publish_method": "webhook",
		"webhook_url": "https://hooks.example.com/abc",
		"retries": 3
	}`), &o)
	require.NoError(t, err)

	require.NotNil(t, o.Enabled)
	assert.True(t, *o.Enabled)
	require.NotNil(t, o.RateLimit)
	require.NotNil(t, o.RateLimit.Limit)
	assert.Equal(t, 4, *o.RateLimit.Limit)
	require.NotNil(t, o.PublishMethod)
	assert.Equal(t, "webhook", *o.PublishMethod)
	assert.Equal(t, map[string]string{"webhook_url": "https://hooks.example.com/abc"}, o.Settings)
	assert.Nil(t, o.DisplayName)
}

func TestPlatformOverride_RateLimitTriState(t *testing.T) {
	var absent, null PlatformOverride
	require.NoError(t, json.Unmarshal([]byte(`{"enabled": false}`), &absent))
	require.NoError(t, json.Unmarshal([]byte(`{"rate_limit": null}`), &null))

	assert.Nil(t, absent.RateLimit)
	require.NotNil(t, null.RateLimit)
	assert.Nil(t, null.RateLimit.Limit)
}

func TestPlatformOverride_RoundTripFlat(t *testing.T) {
	limit := 2
	enabled := true
	o := PlatformOverride{
		RateLimit: &RateLimitOverride{Limit: &limit},
		Enabled:   &enabled,
		Settings:  map[string]string{"token": "abc"},
	}

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rate_limit": 2, "enabled": true, "token": "abc"}`, string(data))
}

func TestPlatformOverrides_NestedShapeWins(t *testing.T) {
	path := writeConfig(t, `{
		"platforms": {
			"wechat": {"enabled": true, "rate_limit": 5, "app_id": "top"},
			"zhihu": {"enabled": true}
		},
		"modules": {
			"publisher": {
				"enabled": true,
				"platforms": {
					"wechat": {"rate_limit": 1, "app_secret": "nested"},
					"feishu": {"enabled": false}
				}
			}
		}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	merged := cfg.PlatformOverrides()
	require.Len(t, merged, 3)

	wechat := merged["wechat"]
	require.NotNil(t, wechat.Enabled)
	assert.True(t, *wechat.Enabled)
	assert.Equal(t, 1, *wechat.RateLimit.Limit)
	assert.Equal(t, map[string]string{"app_id": "top", "app_secret": "nested"}, wechat.Settings)

	assert.True(t, *merged["zhihu"].Enabled)
	assert.False(t, *merged["feishu"].Enabled)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CONTENT_OUTPUT_ROOT", "/data/pipeline")

	env, err := LoadEnv()
	require.NoError(t, err)

	cfg := Defaults()
	cfg.ApplyEnv(env)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/data/pipeline", cfg.Pipeline.OutputRoot)

	cfg.ApplyEnv(nil)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
