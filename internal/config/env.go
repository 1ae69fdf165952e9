package config

import "github.com/kelseyhightower/envconfig"

// Env holds process settings read from the environment. Secrets live here
// rather than in the JSON document.
type Env struct {
	LogLevel     string `envconfig:"LOG_LEVEL"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	AIAPIKey     string `envconfig:"AI_API_KEY"`
	AIBaseURL    string `envconfig:"AI_BASE_URL"`
	OutputRoot   string `envconfig:"CONTENT_OUTPUT_ROOT"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// ApplyEnv overlays non-empty environment values onto the config.
func (c *Config) ApplyEnv(env *Env) {
	if env == nil {
		return
	}
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.OutputRoot != "" {
		c.Pipeline.OutputRoot = env.OutputRoot
	}
}
