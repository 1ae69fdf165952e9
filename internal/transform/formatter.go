package transform

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/jonathan/content-pipeline/internal/types"
	"go.uber.org/zap"
)

type platformFormat struct {
	name      string
	maxLength int // runes; 0 means unlimited
	markdown  bool
	extraTags []string
}

var platformFormats = map[string]platformFormat{
	"wechat":      {name: "WeChat Official Account", maxLength: 20000, markdown: true},
	"zhihu":       {name: "Zhihu", maxLength: 40000, markdown: true, extraTags: []string{"in-depth", "knowledge", "industry"}},
	"xiaohongshu": {name: "Xiaohongshu", maxLength: 1000, extraTags: []string{"recommended", "tips", "notes"}},
	"toutiao":     {name: "Toutiao", maxLength: 5000, extraTags: []string{"trending", "analysis", "guide"}},
	"blog":        {name: "Blog", markdown: true},
}

const (
	xhsTitleRunes   = 20
	xhsBodyRunes    = 800
	xhsParagraphMax = 100
	summaryRunes    = 150
	maxTags         = 5
)

var (
	xhsEmoji       = []string{"✨", "🔥", "💡", "🚀", "📚", "👀", "💪", "🌟"}
	xhsDefaultTags = []string{"#TechLife", "#KnowledgeSharing", "#Notes"}
	toutiaoHooks   = []string{
		"Everyone is talking about this, let's take a look!",
		"A deep dive worth bookmarking!",
		"Read this once and the confusion is gone!",
	}
	toutiaoQuestions = []string{
		"What do you think?",
		"What is your take on this?",
		"Join the discussion in the comments!",
	}
)

// FormatForPlatform renders the article for one platform. Platforms without
// a dedicated rendition get generic markdown but keep the requested name, so
// the result is dispatched only to that platform.
func (e *Engine) FormatForPlatform(ctx context.Context, article types.Article, platform string) (*types.FormattedContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if platform == "" {
		return nil, &TransformError{Stage: StageFormat, Item: article.Metadata.Title, Message: "target platform is empty"}
	}
	if strings.TrimSpace(article.Metadata.Title) == "" {
		return nil, &TransformError{Stage: StageFormat, Item: platform, Message: "article title is empty"}
	}

	pf, ok := platformFormats[platform]
	if !ok {
		pf = platformFormat{name: platform, markdown: true}
	}

	body := formatBody(article, platform, pf)
	fc := &types.FormattedContent{
		Platform:     platform,
		PlatformName: pf.name,
		FormattedAt:  e.now(),
		Metadata:     article.Metadata,
		Content: types.FormattedBody{
			OriginalTitle:    article.Metadata.Title,
			FormattedTitle:   formatTitle(article.Metadata.Title, platform),
			FormattedContent: body,
			Summary:          formatSummary(article, platform),
			Tags:             formatTags(article, pf),
			WordCount:        CountWords(body),
			Validation: types.FormatValidation{
				MaxLengthOK:          true,
				TagCompliance:        true,
				StyleRequirementsMet: true,
			},
		},
	}
	fc.Metadata.Keywords = append([]string(nil), article.Metadata.Keywords...)

	if n := len([]rune(body)); pf.maxLength > 0 && n > pf.maxLength {
		fc.Content.Validation.MaxLengthOK = false
		e.logger.Warn("Formatted content exceeds platform length",
			zap.String("platform", platform),
			zap.Int("length", n),
			zap.Int("max", pf.maxLength))
	}

	e.logger.Debug("Content formatted",
		zap.String("platform", platform),
		zap.Int("word_count", fc.Content.WordCount))

	return fc, nil
}

func formatTitle(title, platform string) string {
	switch platform {
	case "xiaohongshu":
		return "🔥 " + truncateRunes(title, xhsTitleRunes, "...")
	case "toutiao":
		for _, end := range []string{"?", "!", "？", "！"} {
			if strings.HasSuffix(title, end) {
				return title
			}
		}
		return title + "?"
	default:
		return title
	}
}

func formatBody(article types.Article, platform string, pf platformFormat) string {
	var parts []string

	if intro := cleanParagraphs(article.Content.Introduction); intro != "" {
		parts = append(parts, formatParagraphs(intro, platform))
	}
	for _, s := range article.Content.Sections {
		if s.Content == "" {
			continue
		}
		if pf.markdown && s.Title != "" && !strings.HasPrefix(s.Content, "#") {
			parts = append(parts, fmt.Sprintf("## %s\n\n%s", s.Title, s.Content))
		} else {
			parts = append(parts, s.Content)
		}
	}
	if conclusion := cleanParagraphs(article.Content.Conclusion); conclusion != "" {
		parts = append(parts, formatParagraphs(conclusion, platform))
	}

	body := strings.Join(parts, "\n\n")

	switch platform {
	case "xiaohongshu":
		body = truncateRunes(body, xhsBodyRunes, "...") + "\n\n" + strings.Join(hashtags(article.Metadata.Keywords), " ")
	case "toutiao":
		hook := toutiaoHooks[pick(article.Metadata.Title, len(toutiaoHooks))]
		question := toutiaoQuestions[pick(article.Metadata.Topic, len(toutiaoQuestions))]
		body = hook + "\n\n" + body + "\n\n" + question
	case "zhihu":
		body = normalizeQuotes(body)
	}
	return body
}

func cleanParagraphs(text string) string {
	text = strings.TrimSpace(text)
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return text
}

func formatParagraphs(text, platform string) string {
	if platform != "xiaohongshu" {
		return text
	}
	paragraphs := strings.Split(text, "\n\n")
	for i, p := range paragraphs {
		if i%3 == 0 && len([]rune(p)) < xhsParagraphMax {
			paragraphs[i] = xhsEmoji[(i/3)%len(xhsEmoji)] + " " + p
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func normalizeQuotes(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, ">") && !strings.HasPrefix(line, "> ") {
			lines[i] = "> " + strings.TrimPrefix(line, ">")
		}
	}
	return strings.Join(lines, "\n")
}

func hashtags(keywords []string) []string {
	var tags []string
	for _, kw := range keywords {
		kw = strings.Join(strings.Fields(kw), "")
		if kw == "" {
			continue
		}
		tags = append(tags, "#"+kw)
		if len(tags) == 3 {
			return tags
		}
	}
	if len(tags) == 0 {
		return xhsDefaultTags
	}
	return tags
}

func formatSummary(article types.Article, platform string) string {
	intro := article.Content.Introduction
	switch platform {
	case "xiaohongshu":
		return truncateRunes(intro, xhsParagraphMax, "...")
	case "toutiao":
		return fmt.Sprintf("What you need to know about %s:", article.Metadata.Topic)
	}
	if i := strings.Index(intro, ". "); i >= 0 {
		return intro[:i+1]
	}
	return truncateRunes(intro, summaryRunes, "...")
}

func formatTags(article types.Article, pf platformFormat) []string {
	candidates := make([]string, 0, 1+3+len(pf.extraTags))
	if article.Metadata.Topic != "" {
		candidates = append(candidates, article.Metadata.Topic)
	}
	candidates = append(candidates, limit(article.Metadata.Keywords, 3)...)
	candidates = append(candidates, pf.extraTags...)

	seen := make(map[string]struct{}, len(candidates))
	tags := make([]string, 0, maxTags)
	for _, t := range candidates {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

// pick maps s onto [0, n) stably.
func pick(s string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(n))
}
