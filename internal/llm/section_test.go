package llm

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jonathan/content-pipeline/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeClient) GenerateContent(_ context.Context, prompt string, _ ModelTier) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeClient) GetModel(ModelTier) string { return "fake" }
func (f *fakeClient) Close() error              { return nil }

func loadKey(t *testing.T, name string) string {
	t.Helper()
	key := os.Getenv(name)
	if key == "" {
		t.Skipf("Skipping integration test: %s not set", name)
	}
	return key
}

func TestSectionWriter_ExpandSection(t *testing.T) {
	fc := &fakeClient{reply: "## Core Principles\n\nAttention is the key mechanism."}
	w := NewSectionWriter(fc)

	text, err := w.ExpandSection(context.Background(), transform.SectionRequest{
		Topic:          "LLMs",
		SectionTitle:   "Core Principles",
		Hints:          []string{"a", "b", "c", "d", "e", "f"},
		TargetAudience: "engineers",
	})
	require.NoError(t, err)
	assert.Equal(t, "Attention is the key mechanism.", text)
	assert.Contains(t, fc.prompt, "\"Core Principles\"")
	assert.Contains(t, fc.prompt, "about 300 words")
	assert.Contains(t, fc.prompt, "- e\n")
	assert.NotContains(t, fc.prompt, "- f\n")
	assert.Contains(t, fc.prompt, "You are a writer for engineers.")
	assert.NotContains(t, fc.prompt, "{{.")
}

func TestBuildSectionPrompt_DefaultAudience(t *testing.T) {
	prompt := BuildSectionPrompt(transform.SectionRequest{Topic: "Go", SectionTitle: "Intro", TargetLength: 120})
	assert.Contains(t, prompt, "general technology readers")
	assert.Contains(t, prompt, "about 120 words")
}

func TestSectionWriter_Errors(t *testing.T) {
	w := NewSectionWriter(&fakeClient{err: errors.New("rate limited")})
	_, err := w.ExpandSection(context.Background(), transform.SectionRequest{SectionTitle: "X"})
	assert.EqualError(t, err, "rate limited")

	w = NewSectionWriter(&fakeClient{reply: "## X"})
	_, err = w.ExpandSection(context.Background(), transform.SectionRequest{SectionTitle: "X"})
	assert.Error(t, err)
}

func TestStripHeading(t *testing.T) {
	assert.Equal(t, "body", stripHeading("# Title\nbody", "Title"))
	assert.Equal(t, "## Other\nbody", stripHeading("## Other\nbody", "Title"))
	assert.Equal(t, "plain", stripHeading("plain", "Title"))
}
