package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// RateLimitOverride distinguishes an absent rate_limit key (nil pointer on
// the parent) from an explicit null (Limit nil, meaning unlimited).
type RateLimitOverride struct {
	Limit *int
}

// PlatformOverride is a partial platform descriptor. Nil fields were absent
// from the document. String keys other than the known ones are collected in
// Settings (app_id, webhook_url, endpoint, token, ...).
type PlatformOverride struct {
	DisplayName    *string            `json:"display_name,omitempty"`
	PublishMethod  *string            `json:"publish_method,omitempty"`
	RateLimit      *RateLimitOverride `json:"rate_limit,omitempty"`
	Enabled        *bool              `json:"enabled,omitempty"`
	RequiredParams []string           `json:"required_params,omitempty"`
	Settings       map[string]string  `json:"settings,omitempty"`
}

// UnmarshalJSON decodes the flat override object.
func (o *PlatformOverride) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out PlatformOverride
	for key, value := range raw {
		switch key {
		case "display_name":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return fmt.Errorf("display_name: %w", err)
			}
			out.DisplayName = &s
		case "publish_method":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return fmt.Errorf("publish_method: %w", err)
			}
			out.PublishMethod = &s
		case "rate_limit":
			rl := &RateLimitOverride{}
			if !bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
				var n int
				if err := json.Unmarshal(value, &n); err != nil {
					return fmt.Errorf("rate_limit: %w", err)
				}
				rl.Limit = &n
			}
			out.RateLimit = rl
		case "enabled":
			var b bool
			if err := json.Unmarshal(value, &b); err != nil {
				return fmt.Errorf("enabled: %w", err)
			}
			out.Enabled = &b
		case "required_params":
			if err := json.Unmarshal(value, &out.RequiredParams); err != nil {
				return fmt.Errorf("required_params: %w", err)
			}
		case "settings":
			var m map[string]string
			if err := json.Unmarshal(value, &m); err != nil {
				return fmt.Errorf("settings: %w", err)
			}
			for k, v := range m {
				out.setSetting(k, v)
			}
		default:
			// Non-string extras are not settings.
			var s string
			if err := json.Unmarshal(value, &s); err == nil {
				out.setSetting(key, s)
			}
		}
	}

	*o = out
	return nil
}

// MarshalJSON writes the flat form accepted by UnmarshalJSON.
func (o PlatformOverride) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(o.Settings)+5)
	for k, v := range o.Settings {
		m[k] = v
	}
	if o.DisplayName != nil {
		m["display_name"] = *o.DisplayName
	}
	if o.PublishMethod != nil {
		m["publish_method"] = *o.PublishMethod
	}
	if o.RateLimit != nil {
		if o.RateLimit.Limit == nil {
			m["rate_limit"] = nil
		} else {
			m["rate_limit"] = *o.RateLimit.Limit
		}
	}
	if o.Enabled != nil {
		m["enabled"] = *o.Enabled
	}
	if o.RequiredParams != nil {
		m["required_params"] = o.RequiredParams
	}
	return json.Marshal(m)
}

func (o *PlatformOverride) setSetting(key, value string) {
	if o.Settings == nil {
		o.Settings = make(map[string]string)
	}
	o.Settings[key] = value
}

// Merge returns o with every key present in next overwriting it.
func (o PlatformOverride) Merge(next PlatformOverride) PlatformOverride {
	out := o
	if next.DisplayName != nil {
		out.DisplayName = next.DisplayName
	}
	if next.PublishMethod != nil {
		out.PublishMethod = next.PublishMethod
	}
	if next.RateLimit != nil {
		out.RateLimit = next.RateLimit
	}
	if next.Enabled != nil {
		out.Enabled = next.Enabled
	}
	if next.RequiredParams != nil {
		out.RequiredParams = next.RequiredParams
	}
	if len(next.Settings) > 0 {
		merged := make(map[string]string, len(o.Settings)+len(next.Settings))
		for k, v := range o.Settings {
			merged[k] = v
		}
		for k, v := range next.Settings {
			merged[k] = v
		}
		out.Settings = merged
	}
	return out
}

// PlatformOverrides merges both override shapes by platform name. The
// top-level platforms map is applied first, then modules.publisher.platforms,
// so the nested shape wins on conflicting keys.
func (c *Config) PlatformOverrides() map[string]PlatformOverride {
	out := make(map[string]PlatformOverride, len(c.Platforms)+len(c.Modules.Publisher.Platforms))
	for _, src := range []map[string]PlatformOverride{c.Platforms, c.Modules.Publisher.Platforms} {
		for _, name := range sortedKeys(src) {
			out[name] = out[name].Merge(src[name])
		}
	}
	return out
}

func sortedKeys(m map[string]PlatformOverride) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
