// Package llm provides model configuration and clients used to expand
// article sections.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for short rewrites
	TierLite ModelTier = "lite"
	// TierStandard is for section expansion
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long-form drafting
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is the OpenAI chat completions provider
	ProviderOpenAI Provider = "openai"
	// ProviderDeepSeek speaks the OpenAI protocol at a different base URL
	ProviderDeepSeek Provider = "deepseek"
)

// DeepSeekBaseURL is the OpenAI-compatible DeepSeek endpoint.
const DeepSeekBaseURL = "https://api.deepseek.com/v1"

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	BaseURL  string // OpenAI-compatible providers only
	Models   map[ModelTier]string
}

// DefaultConfig returns the default configuration (DeepSeek)
func DefaultConfig() *Config {
	return DefaultDeepSeekConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// DefaultOpenAIConfig returns the default OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o",
		},
	}
}

// DefaultDeepSeekConfig returns the default DeepSeek configuration
func DefaultDeepSeekConfig() *Config {
	return &Config{
		Provider: ProviderDeepSeek,
		BaseURL:  DeepSeekBaseURL,
		Models: map[ModelTier]string{
			TierStandard: "deepseek-chat",
		},
	}
}

// ConfigFor returns the default configuration for a provider name, with
// model and baseURL overriding the standard tier and endpoint when set.
// Unknown providers use DeepSeek.
func ConfigFor(provider, model, baseURL string) *Config {
	var cfg *Config
	switch Provider(provider) {
	case ProviderGemini:
		cfg = DefaultGeminiConfig()
	case ProviderOpenAI:
		cfg = DefaultOpenAIConfig()
	default:
		cfg = DefaultDeepSeekConfig()
	}
	if model != "" {
		cfg = cfg.WithModel(TierStandard, model)
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return cfg
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider: c.Provider,
		BaseURL:  c.BaseURL,
		Models:   make(map[ModelTier]string, len(c.Models)+1),
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}
