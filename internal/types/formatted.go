package types

import "time"

// FormatValidation records whether a rendition satisfies its platform's rules.
type FormatValidation struct {
	MaxLengthOK          bool `json:"max_length_ok"`
	TagCompliance        bool `json:"tag_compliance"`
	StyleRequirementsMet bool `json:"style_requirements_met"`
}

// FormattedBody is the platform-specific rendition of an article body.
type FormattedBody struct {
	OriginalTitle    string           `json:"original_title"`
	FormattedTitle   string           `json:"formatted_title"`
	FormattedContent string           `json:"formatted_content"`
	Summary          string           `json:"summary"`
	Tags             []string         `json:"tags"`
	WordCount        int              `json:"word_count"`
	Validation       FormatValidation `json:"format_validation"`
}

// FormattedContent is an Article rendered for one specific target platform.
// It is only ever dispatched to the platform named in Platform.
type FormattedContent struct {
	Platform     string          `json:"platform"`
	PlatformName string          `json:"platform_name"`
	FormattedAt  time.Time       `json:"formatted_at"`
	Metadata     ArticleMetadata `json:"metadata"`
	Content      FormattedBody   `json:"content"`
	FilePath     string          `json:"file_path,omitempty"`
}
