package types

import "time"

// Section is one planned part of an outline.
type Section struct {
	Title        string   `json:"title"`
	ContentHints []string `json:"content_hints"`
	TargetLength int      `json:"target_length"`
}

// Outline is a structured section plan derived from an Inspiration.
type Outline struct {
	Topic           string    `json:"topic"`
	Title           string    `json:"title"`
	Style           string    `json:"style"`
	Keywords        []string  `json:"keywords,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	Sections        []Section `json:"sections"`
	TargetLength    int       `json:"target_length"`
	TargetPlatforms []string  `json:"target_platforms"`
	Source          string    `json:"inspiration_source,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
	FilePath        string    `json:"file_path,omitempty"` // set once the outline has been persisted
}
