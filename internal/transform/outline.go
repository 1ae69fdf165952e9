package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/content-pipeline/internal/types"
	"go.uber.org/zap"
)

// Outline styles.
const (
	StyleTechAnalysis   = "tech_analysis"
	StyleNewsCommentary = "news_commentary"
	StyleTutorialGuide  = "tutorial_guide"
)

const (
	outlineTargetLength = 2000
	sectionTargetLength = 300
)

type outlineTemplate struct {
	title    string // %s is the topic
	sections []string
}

var outlineTemplates = map[string]outlineTemplate{
	StyleTechAnalysis: {
		title: "%s: Technical Analysis and Outlook",
		sections: []string{
			"Background and Current State",
			"Core Principles",
			"Application Scenarios",
			"Strengths and Weaknesses",
			"Trend Forecast",
			"Practical Recommendations",
		},
	},
	StyleNewsCommentary: {
		title: "%s: An In-Depth Reading of the Story",
		sections: []string{
			"Event Background",
			"Key Facts",
			"Perspectives of the Parties",
			"Underlying Causes",
			"Likely Impact",
			"Suggested Responses",
		},
	},
	StyleTutorialGuide: {
		title: "%s in Practice: From Beginner to Expert",
		sections: []string{
			"Prerequisites",
			"Basic Concepts",
			"Core Steps",
			"Common Questions",
			"Advanced Techniques",
			"Best Practices",
		},
	},
}

var defaultOutlineTargets = []string{"wechat", "zhihu", "xiaohongshu"}

// GenerateOutline builds a six-section outline for the inspiration.
// Unknown styles use tech_analysis.
func (e *Engine) GenerateOutline(ctx context.Context, inspiration types.Inspiration, style string) (*types.Outline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	topic := strings.TrimSpace(inspiration.Title)
	if topic == "" {
		return nil, &TransformError{Stage: StageOutline, Item: inspiration.Title, Message: "inspiration title is empty"}
	}

	tmpl, ok := outlineTemplates[style]
	if !ok {
		e.logger.Debug("Unknown outline style, using default",
			zap.String("style", style),
			zap.String("default", StyleTechAnalysis))
		style = StyleTechAnalysis
		tmpl = outlineTemplates[StyleTechAnalysis]
	}

	source := inspiration.Source
	if source == "" {
		source = "unknown"
	}

	outline := &types.Outline{
		Topic:           topic,
		Title:           fmt.Sprintf(tmpl.title, topic),
		Style:           style,
		Keywords:        append([]string(nil), inspiration.Keywords...),
		Summary:         inspiration.Summary,
		Sections:        make([]types.Section, 0, len(tmpl.sections)),
		TargetLength:    outlineTargetLength,
		TargetPlatforms: append([]string(nil), defaultOutlineTargets...),
		Source:          source,
		GeneratedAt:     e.now(),
	}

	for _, title := range tmpl.sections {
		outline.Sections = append(outline.Sections, types.Section{
			Title:        title,
			ContentHints: sectionHints(topic, title),
			TargetLength: sectionTargetLength,
		})
	}

	e.logger.Info("Outline generated",
		zap.String("title", outline.Title),
		zap.String("style", style),
		zap.Int("sections", len(outline.Sections)))

	return outline, nil
}

func sectionHints(topic, section string) []string {
	switch section {
	case "Background and Current State":
		return []string{
			fmt.Sprintf("How %s has evolved", topic),
			"Mainstream approaches today",
			"Adoption across the industry",
			"Maturity assessment",
		}
	case "Core Principles":
		return []string{
			"Underlying principles",
			"Key building blocks",
			"How the pieces work together",
			"Comparison with alternatives",
		}
	case "Application Scenarios":
		return []string{
			"Typical use cases",
			"Industry case studies",
			"Observed results",
			"Where it fits and where it does not",
		}
	default:
		return []string{
			fmt.Sprintf("%s of %s", section, topic),
			"Key takeaways",
			"Practical advice",
			"Looking ahead",
		}
	}
}
