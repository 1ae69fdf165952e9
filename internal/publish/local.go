package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/jonathan/content-pipeline/internal/types"
)

const (
	maxTitleRunes = 50
	textRule      = "============================================================"
)

// LocalPublisher writes content under <root>/published/<platform>/<YYYYMMDD>/.
type LocalPublisher struct {
	root string
}

// NewLocalPublisher creates a LocalPublisher rooted at root.
func NewLocalPublisher(root string) *LocalPublisher {
	return &LocalPublisher{root: root}
}

// Publish writes a JSON and a text rendition named <title>_<HHMMSS>. An
// existing file is never overwritten; a numeric suffix is added instead.
func (p *LocalPublisher) Publish(platform string, content types.FormattedContent, at time.Time) ([]string, error) {
	dir := filepath.Join(p.root, "published", platform, at.Format("20060102"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create publish directory: %w", err)
	}

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode content: %w", err)
	}

	base := fmt.Sprintf("%s_%s", SafeTitle(content.Content.FormattedTitle), at.Format("150405"))
	jsonPath, txtPath, err := reservePair(dir, base)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", jsonPath, err)
	}
	if err := os.WriteFile(txtPath, []byte(renderText(content)), 0644); err != nil {
		return []string{jsonPath}, fmt.Errorf("failed to write %s: %w", txtPath, err)
	}
	return []string{jsonPath, txtPath}, nil
}

// reservePair creates the .json file exclusively and returns both paths.
func reservePair(dir, base string) (string, string, error) {
	for i := 1; i < 1000; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		jsonPath := filepath.Join(dir, name+".json")
		f, err := os.OpenFile(jsonPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to create %s: %w", jsonPath, err)
		}
		f.Close()
		return jsonPath, filepath.Join(dir, name+".txt"), nil
	}
	return "", "", fmt.Errorf("too many files named %s in %s", base, dir)
}

// SafeTitle keeps letters, digits, spaces, '_' and '-', truncated to 50
// runes. An empty result becomes "untitled".
func SafeTitle(title string) string {
	var b strings.Builder
	n := 0
	for _, r := range title {
		if n == maxTitleRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
			n++
		}
	}
	safe := strings.TrimSpace(b.String())
	if safe == "" {
		return "untitled"
	}
	return safe
}

func renderText(c types.FormattedContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", c.Content.FormattedTitle)
	fmt.Fprintf(&b, "Platform: %s\n", c.PlatformName)
	fmt.Fprintf(&b, "Time: %s\n", c.FormattedAt.Format(time.RFC3339))
	b.WriteString(textRule + "\n\n")
	b.WriteString(c.Content.FormattedContent)
	b.WriteString("\n\n" + textRule + "\n")
	fmt.Fprintf(&b, "Tags: %s\n", strings.Join(c.Content.Tags, ", "))
	fmt.Fprintf(&b, "Words: %d\n", c.Content.WordCount)
	return b.String()
}
