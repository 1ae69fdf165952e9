package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/content-pipeline/internal/types"
)

const textRule = "=================================================="

// artifactWriter lays out per-run files under root.
type artifactWriter struct {
	root  string
	runID string
}

func (w artifactWriter) outlinePath(i int) string {
	return filepath.Join(w.root, "outlines", fmt.Sprintf("outline_%s_%02d.json", w.runID, i))
}

func (w artifactWriter) articlePath(i int) string {
	return filepath.Join(w.root, "articles", fmt.Sprintf("article_%s_%02d.json", w.runID, i))
}

func (w artifactWriter) formattedPath(platform string, i int) string {
	return filepath.Join(w.root, "formatted", platform, fmt.Sprintf("formatted_%s_%02d.json", w.runID, i))
}

func (w artifactWriter) recordPath() string {
	return filepath.Join(w.root, "runs", fmt.Sprintf("pipeline_run_%s.json", w.runID))
}

// WriteOutline writes the outline JSON and returns its path.
func (w artifactWriter) WriteOutline(i int, o *types.Outline) (string, error) {
	path := w.outlinePath(i)
	return path, writeJSON(path, o)
}

// WriteArticle writes the article JSON plus a markdown rendition.
func (w artifactWriter) WriteArticle(i int, a *types.Article) ([]string, error) {
	path := w.articlePath(i)
	if err := writeJSON(path, a); err != nil {
		return nil, err
	}
	md := strings.TrimSuffix(path, ".json") + ".md"
	if err := writeText(md, articleMarkdown(a)); err != nil {
		return []string{path}, err
	}
	return []string{path, md}, nil
}

// WriteFormatted writes the formatted JSON plus a platform text rendition.
func (w artifactWriter) WriteFormatted(i int, f *types.FormattedContent) ([]string, error) {
	path := w.formattedPath(f.Platform, i)
	if err := writeJSON(path, f); err != nil {
		return nil, err
	}
	txt := strings.TrimSuffix(path, ".json") + ".txt"
	if err := writeText(txt, formattedText(f)); err != nil {
		return []string{path}, err
	}
	return []string{path, txt}, nil
}

// WriteRecord persists the run record.
func (w artifactWriter) WriteRecord(r *RunRecord) (string, error) {
	path := w.recordPath()
	return path, writeJSON(path, r)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &ArtifactError{Path: path, Cause: err}
	}
	return writeText(path, string(data))
}

func writeText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &ArtifactError{Path: path, Cause: err}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return &ArtifactError{Path: path, Cause: err}
	}
	return nil
}

func articleMarkdown(a *types.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", a.Metadata.Title)
	fmt.Fprintf(&b, "> Generated: %s\n", a.Metadata.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "> Words: %d\n", a.Metadata.WordCount)
	fmt.Fprintf(&b, "> Tone: %s\n\n", a.Metadata.WritingTone)
	fmt.Fprintf(&b, "%s\n\n", a.Content.Introduction)
	for _, s := range a.Content.Sections {
		fmt.Fprintf(&b, "%s\n\n", s.Content)
	}
	fmt.Fprintf(&b, "## Conclusion\n\n%s\n", a.Content.Conclusion)
	if len(a.Content.References) > 0 {
		b.WriteString("\n## References\n\n")
		for _, ref := range a.Content.References {
			if ref.URL != "" {
				fmt.Fprintf(&b, "- [%s](%s)\n", ref.Title, ref.URL)
			} else {
				fmt.Fprintf(&b, "- %s\n", ref.Title)
			}
		}
	}
	return b.String()
}

func formattedText(f *types.FormattedContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n", f.PlatformName)
	fmt.Fprintf(&b, "Formatted: %s\n", f.FormattedAt.Format(time.RFC3339))
	b.WriteString(textRule + "\n\n")
	fmt.Fprintf(&b, "Title: %s\n\n", f.Content.FormattedTitle)
	fmt.Fprintf(&b, "Summary: %s\n\n", f.Content.Summary)
	b.WriteString("Body:\n")
	b.WriteString(f.Content.FormattedContent)
	fmt.Fprintf(&b, "\n\nTags: %s\n", strings.Join(f.Content.Tags, " "))
	return b.String()
}
