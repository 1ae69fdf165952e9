// Package types provides type definitions for structured data flowing through the content pipeline.
package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Inspiration is a raw seed record describing a topic to produce content about.
type Inspiration struct {
	Title     string    `json:"title" validate:"required"`
	Keywords  []string  `json:"keywords"`
	Summary   string    `json:"summary"`
	Source    string    `json:"source"`
	URL       string    `json:"url,omitempty" validate:"omitempty,url"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate validates the Inspiration using the validator.
func (i *Inspiration) Validate() error {
	validate := validator.New()
	return validate.Struct(i)
}

// localTimestamp is the zone-less ISO layout trend feeds emit.
const localTimestamp = "2006-01-02T15:04:05.999999999"

// UnmarshalJSON accepts RFC 3339 timestamps, zone-less timestamps read as
// local time, and an empty or missing timestamp.
func (i *Inspiration) UnmarshalJSON(data []byte) error {
	type alias Inspiration
	var raw struct {
		alias
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*i = Inspiration(raw.alias)
	if raw.Timestamp == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		ts, err = time.ParseInLocation(localTimestamp, raw.Timestamp, time.Local)
		if err != nil {
			return fmt.Errorf("invalid inspiration timestamp %q: %w", raw.Timestamp, err)
		}
	}
	i.Timestamp = ts
	return nil
}
