package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderDeepSeek, config.Provider)
	assert.Equal(t, DeepSeekBaseURL, config.BaseURL)
	assert.Equal(t, "deepseek-chat", config.GetModel(TierStandard))
	// lite and advanced fall back to standard
	assert.Equal(t, "deepseek-chat", config.GetModel(TierLite))
	assert.Equal(t, "deepseek-chat", config.GetModel(TierAdvanced))
}

func TestDefaultGeminiConfig(t *testing.T) {
	config := DefaultGeminiConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{Provider: ProviderOpenAI, Models: map[ModelTier]string{}}
	assert.Equal(t, "", config.GetModel(TierAdvanced))
}

func TestWithModel(t *testing.T) {
	config := DefaultGeminiConfig()
	newConfig := config.WithModel(TierAdvanced, "custom-model")

	// Original should be unchanged
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Equal(t, "custom-model", newConfig.GetModel(TierAdvanced))
	assert.Equal(t, "gemini-2.5-flash-lite", newConfig.GetModel(TierLite))
}

func TestConfigFor(t *testing.T) {
	tests := []struct {
		name         string
		provider     string
		model        string
		baseURL      string
		wantProvider Provider
		wantModel    string
		wantBaseURL  string
	}{
		{"deepseek default", "", "", "", ProviderDeepSeek, "deepseek-chat", DeepSeekBaseURL},
		{"openai override model", "openai", "gpt-4.1", "", ProviderOpenAI, "gpt-4.1", ""},
		{"gemini", "gemini", "", "", ProviderGemini, "gemini-2.5-flash", ""},
		{"custom base url", "deepseek", "", "http://localhost:8080/v1", ProviderDeepSeek, "deepseek-chat", "http://localhost:8080/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ConfigFor(tt.provider, tt.model, tt.baseURL)
			assert.Equal(t, tt.wantProvider, cfg.Provider)
			assert.Equal(t, tt.wantModel, cfg.GetModel(TierStandard))
			assert.Equal(t, tt.wantBaseURL, cfg.BaseURL)
		})
	}
}
