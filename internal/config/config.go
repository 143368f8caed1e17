/*
Package config handles loading, saving, and validating api-hub-mcp
configuration.

Configuration is stored in ~/.api-hub-mcp.json using camelCase keys.

Schema:
  {
    "apis": {
      "github": {
        "baseUrl": "https://api.github.com",
        "specUrl": "https://api.github.com/openapi.json",
        "authType": "bearer",
        "authEnv": "GITHUB_TOKEN",
        "rateLimit": 100,
        "rateWindowSeconds": 3600
      }
    },
    "settings": {
      "topK": 8,
      "confidenceThreshold": 0.7,
      "retentionDays": 30,
      "llmBaseUrl": "https://api.openai.com/v1",
      "llmModel": "gpt-4o-mini",
      "llmApiKeyEnv": "OPENAI_API_KEY"
    }
  }
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the root configuration structure.
type Config struct {
	// APIs maps API identifiers to their registrations.
	APIs map[string]*APIConfig `json:"apis"`

	// Settings contains global configuration options.
	Settings *Settings `json:"settings,omitempty"`
}

// APIConfig represents a single registered API.
type APIConfig struct {
	// BaseURL is the root URL calls against this API are made to.
	BaseURL string `json:"baseUrl,omitempty"`

	// SpecURL is where the OpenAPI document is fetched from.
	SpecURL string `json:"specUrl"`

	// AuthType names the auth scheme ("bearer", "api-key", "none").
	AuthType string `json:"authType,omitempty"`

	// AuthEnv is the environment variable holding the credential.
	// Credentials themselves are never written to the config file.
	AuthEnv string `json:"authEnv,omitempty"`

	// RateLimit is the max call attempts per window. Zero means the
	// system default.
	RateLimit int `json:"rateLimit,omitempty"`

	// RateWindowSeconds is the rate window length. Zero means the
	// system default.
	RateWindowSeconds int `json:"rateWindowSeconds,omitempty"`

	// Description is a human-readable note shown in listings.
	Description string `json:"description,omitempty"`
}

// Settings contains global configuration options.
type Settings struct {
	// TopK is the max number of fragments returned per search.
	TopK int `json:"topK,omitempty"`

	// ConfidenceThreshold is the minimum LLM confidence before the
	// heuristic fallback result is preferred for warnings.
	ConfidenceThreshold float64 `json:"confidenceThreshold,omitempty"`

	// RetentionDays is how long unused fragments are kept.
	RetentionDays int `json:"retentionDays,omitempty"`

	// LLMBaseURL overrides the OpenAI-compatible endpoint.
	LLMBaseURL string `json:"llmBaseUrl,omitempty"`

	// LLMModel is the chat model used for call synthesis.
	LLMModel string `json:"llmModel,omitempty"`

	// LLMAPIKeyEnv is the environment variable holding the LLM key.
	LLMAPIKeyEnv string `json:"llmApiKeyEnv,omitempty"`

	// UsageBoost amplifies scores of frequently and recently used
	// fragments during search.
	UsageBoost bool `json:"usageBoost,omitempty"`

	// ForbiddenPatterns replaces the built-in unsafe-parameter
	// patterns when non-empty. Regular expressions.
	ForbiddenPatterns []string `json:"forbiddenPatterns,omitempty"`

	// MaxParamLength caps string parameter values during validation.
	// Zero means the system default.
	MaxParamLength int `json:"maxParamLength,omitempty"`
}

// NewConfig creates a new empty configuration with default settings.
func NewConfig() *Config {
	return &Config{
		APIs: make(map[string]*APIConfig),
		Settings: &Settings{
			TopK:                8,
			ConfidenceThreshold: 0.7,
			RetentionDays:       30,
			LLMModel:            "gpt-4o-mini",
			LLMAPIKeyEnv:        "OPENAI_API_KEY",
		},
	}
}

// RateWindow returns the configured window as a duration, or zero when
// unset.
func (a *APIConfig) RateWindow() time.Duration {
	return time.Duration(a.RateWindowSeconds) * time.Second
}

// Retention returns the configured retention period, or zero when unset.
func (s *Settings) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// GetDefaultConfigPath returns the path to ~/.api-hub-mcp.json
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".api-hub-mcp.json"), nil
}

// Load reads the configuration from the default path. A missing file
// yields an empty configuration rather than an error: registering the
// first API creates it.
func Load() (*Config, error) {
	configPath, err := GetDefaultConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		var notFound *ConfigNotFoundError
		if errors.As(err, &notFound) {
			return NewConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
