package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/content-pipeline/internal/prompts"
	"github.com/jonathan/content-pipeline/internal/transform"
)

// SectionWriter expands outline sections with a model.
type SectionWriter struct {
	client Client
	tier   ModelTier
}

// NewSectionWriter wraps client. Section expansion uses the standard tier.
func NewSectionWriter(client Client) *SectionWriter {
	return &SectionWriter{client: client, tier: TierStandard}
}

// ExpandSection implements transform.SectionExpander.
func (w *SectionWriter) ExpandSection(ctx context.Context, req transform.SectionRequest) (string, error) {
	text, err := w.client.GenerateContent(ctx, BuildSectionPrompt(req), w.tier)
	if err != nil {
		return "", err
	}
	text = stripHeading(strings.TrimSpace(text), req.SectionTitle)
	if text == "" {
		return "", fmt.Errorf("model returned empty text for section %q", req.SectionTitle)
	}
	return text, nil
}

// BuildSectionPrompt renders the expansion prompt. At most five hints are included.
func BuildSectionPrompt(req transform.SectionRequest) string {
	length := req.TargetLength
	if length <= 0 {
		length = 300
	}
	audience := req.TargetAudience
	if audience == "" {
		audience = prompts.MustGet(prompts.Writing, "default-audience")
	}

	var hints strings.Builder
	for i, hint := range req.Hints {
		if i == 5 {
			break
		}
		fmt.Fprintf(&hints, "- %s\n", hint)
	}

	return prompts.Format(prompts.MustGet(prompts.Writing, "expand-section"), map[string]string{
		"Audience":     audience,
		"Length":       strconv.Itoa(length),
		"SectionTitle": req.SectionTitle,
		"Topic":        req.Topic,
		"Hints":        hints.String(),
	})
}

// stripHeading drops a leading markdown heading that repeats the section title.
func stripHeading(text, title string) string {
	first, rest, found := strings.Cut(text, "\n")
	if !strings.HasPrefix(first, "#") {
		return text
	}
	if strings.TrimSpace(strings.TrimLeft(first, "#")) != title {
		return text
	}
	if !found {
		return ""
	}
	return strings.TrimSpace(rest)
}

var _ transform.SectionExpander = (*SectionWriter)(nil)
