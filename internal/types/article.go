package types

import "time"

// ArticleMetadata describes an article and links it back to its outline topic.
type ArticleMetadata struct {
	Title          string    `json:"title"`
	Topic          string    `json:"topic"`
	Style          string    `json:"style"`
	WritingTone    string    `json:"writing_tone,omitempty"`
	TargetAudience string    `json:"target_audience,omitempty"`
	Keywords       []string  `json:"keywords,omitempty"`
	WordCount      int       `json:"word_count"`
	SectionCount   int       `json:"section_count"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// KeyPoint is a highlighted point inside a section.
type KeyPoint struct {
	Point       string `json:"point"`
	Explanation string `json:"explanation"`
}

// SectionContent is the written text of one outline section.
type SectionContent struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	KeyPoints []KeyPoint `json:"key_points,omitempty"`
}

// Reference is a cited or suggested source.
type Reference struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Date  string `json:"date,omitempty"`
}

// ArticleContent holds the body of an article.
type ArticleContent struct {
	Introduction string           `json:"introduction"`
	Sections     []SectionContent `json:"sections"`
	Conclusion   string           `json:"conclusion"`
	References   []Reference      `json:"references"`
}

// Article is the full generated text derived from exactly one Outline.
type Article struct {
	Metadata ArticleMetadata `json:"metadata"`
	Content  ArticleContent  `json:"content"`
	FilePath string          `json:"file_path,omitempty"`
}
