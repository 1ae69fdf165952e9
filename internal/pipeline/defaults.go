package pipeline

import (
	"time"

	"github.com/jonathan/content-pipeline/internal/types"
)

const defaultSource = "content pipeline"

// DefaultInspirations is the batch used when a run is given none.
func DefaultInspirations(now time.Time) []types.Inspiration {
	return []types.Inspiration{
		{
			Title:     "Today's key AI industry moves and the opportunities they open",
			Keywords:  []string{"AI", "large models", "industry adoption", "productization"},
			Summary:   "Model capability, commercialization and team productivity: the opportunities worth watching today and what to do about them.",
			Source:    defaultSource,
			Timestamp: now,
		},
		{
			Title:     "Enterprise AI adoption: from pilot to scale",
			Keywords:  []string{"enterprise AI", "workflow automation", "ROI", "scaling"},
			Summary:   "A case review of the blockers, winning strategies and repeatable methods companies meet when rolling out AI.",
			Source:    defaultSource,
			Timestamp: now,
		},
	}
}
