package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv keeps developer .env values from leaking into the commands.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LOG_LEVEL", "DATABASE_URL", "CONTENT_OUTPUT_ROOT", "AI_API_KEY", "GEMINI_API_KEY", "AI_BASE_URL"} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const fileOnlyConfig = `{
	"pipeline": {"default_format_platforms": ["blog", "file"], "publish_platforms": ["file"]},
	"logging": {"level": "error"}
}`

func TestRunPipeline_EndToEnd(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "out")

	var pushes atomic.Int32
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushes.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	opts := runOptions{
		ConfigPath:   writeFile(t, dir, "config.json", fileOnlyConfig),
		Inspirations: writeFile(t, dir, "inspirations.json", `[{"title": "Profiling Go services", "keywords": ["pprof"]}]`),
		Output:       output,
		MetricsFile:  filepath.Join(dir, "pipeline.prom"),
		Pushgateway:  gateway.URL,
	}

	var out bytes.Buffer
	require.NoError(t, runPipeline(context.Background(), opts, &out))

	assert.Contains(t, out.String(), "PIPELINE RUN")
	assert.Contains(t, out.String(), "PUBLISH REPORT")
	assert.Contains(t, out.String(), "Published: 1")

	runs, err := filepath.Glob(filepath.Join(output, "runs", "pipeline_run_*.json"))
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.FileExists(t, filepath.Join(output, "publish_history.json"))

	metricsText, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), "content_pipeline_last_run_success 1")
	assert.Equal(t, int32(1), pushes.Load())

	var status bytes.Buffer
	require.NoError(t, showStatus(context.Background(), opts.ConfigPath, output, &status))
	assert.Contains(t, status.String(), "PUBLISH HISTORY")
	assert.Contains(t, status.String(), "Batches:      1 (1 today)")
	assert.Contains(t, status.String(), "Runs:      1")
}

func TestRunPipeline_VerboseProgress(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	var out bytes.Buffer
	err := runPipeline(context.Background(), runOptions{
		ConfigPath: writeFile(t, dir, "config.json", fileOnlyConfig),
		Output:     dir,
		Verbose:    true,
	}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "[outline]")
	assert.Contains(t, out.String(), "[run]")
	assert.Contains(t, out.String(), "Input:     2 inspirations")
}

func TestRunPipeline_InvalidInspirations(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	err := runPipeline(context.Background(), runOptions{
		Inspirations: writeFile(t, dir, "bad.json", `[{"summary": "no title"}]`),
		Output:       dir,
	}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid inspirations file")

	_, statErr := os.Stat(filepath.Join(dir, "runs"))
	assert.True(t, os.IsNotExist(statErr), "no run should start")
}

func TestRunPipeline_PublishFailureExitsNonZero(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	cfg := `{
		"pipeline": {"default_format_platforms": ["feishu"], "publish_platforms": ["feishu"]},
		"logging": {"level": "error"}
	}`

	var out bytes.Buffer
	err := runPipeline(context.Background(), runOptions{
		ConfigPath:   writeFile(t, dir, "config.json", cfg),
		Inspirations: writeFile(t, dir, "inspirations.json", `[{"title": "Webhook without a URL"}]`),
		Output:       dir,
	}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finished with 1 error(s)")
	assert.Contains(t, out.String(), "remote_failure")
}

func TestValidateDocument(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		schema  string
		content string
		wantErr bool
		wantOut string
	}{
		{"valid inspirations", "inspirations", `[{"title": "ok"}]`, false, "Validation passed"},
		{"invalid inspirations", "inspirations", `[{"title": 42}]`, true, "Validation failed: 1 error(s)"},
		{"valid config", "config", `{"pipeline": {"enabled": false}}`, false, "Validation passed"},
		{"unknown schema", "resume", `{}`, true, "Validation failed: unknown schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.schema+".json", tt.content)
			var out bytes.Buffer
			err := validateDocument(tt.schema, path, &out)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out.String(), tt.wantOut)
		})
	}
}

func TestValidateDocument_MissingFile(t *testing.T) {
	err := validateDocument("inspirations", filepath.Join(t.TempDir(), "nope.json"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListPlatforms(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	cfg := `{
		"platforms": {"wechat": {"enabled": true, "app_id": "wx1"}},
		"logging": {"level": "error"}
	}`

	var out bytes.Buffer
	require.NoError(t, listPlatforms(writeFile(t, dir, "config.json", cfg), &out))

	text := out.String()
	assert.Contains(t, text, "PLATFORMS")
	assert.Contains(t, text, "missing: app_secret, thumb_media_id")
	assert.Contains(t, text, "10/day")
	assert.Contains(t, text, "unlimited")
}
