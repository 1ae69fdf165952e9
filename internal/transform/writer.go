package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/content-pipeline/internal/types"
	"go.uber.org/zap"
)

// Writing styles.
const (
	WritingProfessional   = "professional"
	WritingPopularScience = "popular_science"
	WritingNewsCommentary = "news_commentary"
)

type writingStyle struct {
	tone       string
	audience   string
	intro      string // %[1]s is the topic
	conclusion string // %[1]s is the topic
}

var writingStyles = map[string]writingStyle{
	WritingProfessional: {
		tone:       "rigorous",
		audience:   "practitioners and engineers",
		intro:      "%[1]s has become a focal point for the industry. This article examines the principles, applications and direction of %[1]s from several angles.",
		conclusion: "In summary, %[1]s is driven by steady technical progress. As the tooling matures, %[1]s will reach more domains, and practitioners should track it closely.",
	},
	WritingPopularScience: {
		tone:       "accessible",
		audience:   "general readers",
		intro:      "%[1]s keeps showing up everywhere lately. Here is a plain-language tour of what %[1]s is and where it is used.",
		conclusion: "%[1]s is less mysterious than it looks. With the basics above you should have a clearer picture, and the best next step is to keep learning.",
	},
	WritingNewsCommentary: {
		tone:       "opinionated",
		audience:   "industry watchers",
		intro:      "%[1]s is trending again. This piece looks at the logic behind the story and where it is heading.",
		conclusion: "Taken together, %[1]s signals a shift in the industry. Opportunity or risk, it deserves a calm and objective response.",
	},
}

const keyPointNote = "to be expanded"

// WriteContent writes an article from the outline. Unknown styles use professional.
func (e *Engine) WriteContent(ctx context.Context, outline types.Outline, style string) (*types.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(outline.Sections) == 0 {
		return nil, &TransformError{Stage: StageWrite, Item: outline.Title, Message: "outline has no sections"}
	}

	ws, ok := writingStyles[style]
	if !ok {
		style = WritingProfessional
		ws = writingStyles[WritingProfessional]
	}

	article := &types.Article{
		Metadata: types.ArticleMetadata{
			Title:          outline.Title,
			Topic:          outline.Topic,
			Style:          style,
			WritingTone:    ws.tone,
			TargetAudience: ws.audience,
			Keywords:       append([]string(nil), outline.Keywords...),
			SectionCount:   len(outline.Sections),
			GeneratedAt:    e.now(),
		},
	}

	article.Content.Introduction = writeIntroduction(outline, ws)
	for i, section := range outline.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		article.Content.Sections = append(article.Content.Sections, e.writeSection(ctx, outline, section, style, ws, i+1))
	}
	article.Content.Conclusion = fmt.Sprintf(ws.conclusion, outline.Topic)
	article.Content.References = references(outline, e.now().Format("2006-01-02"))

	article.Metadata.WordCount = CountWords(articleText(article))
	if article.Metadata.WordCount == 0 {
		return nil, &TransformError{Stage: StageWrite, Item: outline.Title, Message: "article has no words"}
	}

	e.logger.Info("Article written",
		zap.String("title", article.Metadata.Title),
		zap.String("style", style),
		zap.Int("word_count", article.Metadata.WordCount))

	return article, nil
}

func writeIntroduction(outline types.Outline, ws writingStyle) string {
	var b strings.Builder
	fmt.Fprintf(&b, ws.intro, outline.Topic)
	if outline.Summary != "" {
		fmt.Fprintf(&b, "\n\nKey point: %s", outline.Summary)
	}
	if len(outline.Keywords) > 0 {
		kw := outline.Keywords
		if len(kw) > 5 {
			kw = kw[:5]
		}
		fmt.Fprintf(&b, "\n\nKeywords: %s", strings.Join(kw, ", "))
	}
	return b.String()
}

func (e *Engine) writeSection(ctx context.Context, outline types.Outline, section types.Section, style string, ws writingStyle, number int) types.SectionContent {
	body := ""
	if e.expander != nil && len(section.ContentHints) > 0 {
		text, err := e.expander.ExpandSection(ctx, SectionRequest{
			Topic:          outline.Topic,
			SectionTitle:   section.Title,
			Hints:          section.ContentHints,
			TargetAudience: ws.audience,
			TargetLength:   section.TargetLength,
		})
		switch {
		case err != nil:
			e.logger.Warn("Section expansion failed, using template",
				zap.String("section", section.Title),
				zap.Error(err))
		case strings.TrimSpace(text) == "":
			e.logger.Warn("Section expansion returned empty text, using template",
				zap.String("section", section.Title))
		default:
			body = strings.TrimSpace(text)
		}
	}
	if body == "" {
		body = templateSection(outline.Topic, section, style)
	}

	sc := types.SectionContent{
		Number:  number,
		Title:   section.Title,
		Content: fmt.Sprintf("## %s\n\n%s", section.Title, body),
	}
	for i, hint := range section.ContentHints {
		if i == 2 {
			break
		}
		sc.KeyPoints = append(sc.KeyPoints, types.KeyPoint{Point: hint, Explanation: keyPointNote})
	}
	return sc
}

func templateSection(topic string, section types.Section, style string) string {
	var b strings.Builder
	hints := section.ContentHints

	switch style {
	case WritingPopularScience:
		fmt.Fprintf(&b, "Let's talk about %s. Put simply, %s shows up here in a few key ways:\n\n", strings.ToLower(section.Title), topic)
		for i, hint := range limit(hints, 3) {
			fmt.Fprintf(&b, "%d. **%s**: an important thing to watch, and easy to spot in everyday use.\n\n", i+1, hint)
		}
		b.WriteString("Once these points click, the picture is simpler than it seems.")
	case WritingNewsCommentary:
		fmt.Fprintf(&b, "On %s, several trends stand out:\n\n", strings.ToLower(section.Title))
		for i, hint := range limit(hints, 3) {
			fmt.Fprintf(&b, "**View %d: %s** reflects a deeper change in the market.\n\n", i+1, hint)
		}
		b.WriteString("Overall, this area deserves continued attention and a matching adjustment in strategy.")
	default:
		fmt.Fprintf(&b, "This section looks closely at %s:\n\n", strings.ToLower(section.Title))
		for i, hint := range limit(hints, 4) {
			fmt.Fprintf(&b, "%d. %s: from an engineering standpoint this comes down to concrete trade-offs, and field experience backs it up.\n\n", i+1, hint)
		}
		b.WriteString("From this analysis we can draw clear conclusions and next steps.")
	}
	return b.String()
}

func references(outline types.Outline, today string) []types.Reference {
	var refs []types.Reference
	if outline.Source != "" {
		refs = append(refs, types.Reference{Type: "source", Title: outline.Source, Date: today})
	}
	refs = append(refs, types.Reference{
		Type:  "further_reading",
		Title: fmt.Sprintf("More research on %s", outline.Topic),
	})
	return refs
}

func articleText(a *types.Article) string {
	var b strings.Builder
	b.WriteString(a.Content.Introduction)
	b.WriteString("\n")
	for _, s := range a.Content.Sections {
		b.WriteString(s.Content)
		b.WriteString("\n")
	}
	b.WriteString(a.Content.Conclusion)
	return b.String()
}

func limit(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
