// Package config holds the application configuration and its loader.
package config

import (
	"errors"
	"time"
)

// ErrMissingCredential is returned when the active provider requires an
// API key and none is configured.
var ErrMissingCredential = errors.New("no API key configured for provider")

// Config represents the main application configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Index    IndexConfig    `yaml:"index"`
	Agent    AgentConfig    `yaml:"agent"`
	Tools    ToolsConfig    `yaml:"tools"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Runtime version information
	Version string `yaml:"-"`
}

// ProviderConfig holds LLM provider settings.
type ProviderConfig struct {
	// Active provider: ollama, openai, anthropic (default: ollama)
	Name  string `yaml:"name"`
	Model string `yaml:"model"`

	// Ollama server URL (default: http://localhost:11434)
	OllamaBaseURL string `yaml:"ollama_base_url,omitempty"`
	// Embedding model served by Ollama (default: nomic-embed-text)
	EmbedModel string `yaml:"embed_model,omitempty"`

	OpenAIKey        string `yaml:"openai_key,omitempty"`
	OpenAIBaseURL    string `yaml:"openai_base_url,omitempty"`
	AnthropicKey     string `yaml:"anthropic_key,omitempty"`
	AnthropicBaseURL string `yaml:"anthropic_base_url,omitempty"`

	Temperature float32 `yaml:"temperature"`
	MaxTokens   int32   `yaml:"max_tokens"`

	Retry RetryConfig `yaml:"retry"`

	// RequestsPerMinute caps outbound provider calls (0 = unlimited).
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// RetryConfig holds retry settings for provider calls.
type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`  // default: 3
	RetryDelay  time.Duration `yaml:"retry_delay"`  // default: 1s
	HTTPTimeout time.Duration `yaml:"http_timeout"` // default: 120s
}

// IndexConfig holds codebase indexing settings.
type IndexConfig struct {
	MaxDepth    int   `yaml:"max_depth"`     // directory recursion cap (default: 8)
	MaxFileSize int64 `yaml:"max_file_size"` // bytes, larger files are skipped (default: 1MB)
	ChunkSize   int   `yaml:"chunk_size"`    // character budget per chunk (default: 1500)
	TopK        int   `yaml:"top_k"`         // retrieval result count (default: 5)
}

// AgentConfig holds agent loop settings.
type AgentConfig struct {
	HistoryLimit int `yaml:"history_limit"` // conversation turns kept (default: 10)
}

// ToolsConfig holds tool execution settings.
type ToolsConfig struct {
	CommandTimeout time.Duration `yaml:"command_timeout"` // default: 30s
	FetchMaxBytes  int64         `yaml:"fetch_max_bytes"` // web fetch body cap (default: 1MB)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Credential returns the API key for the active provider.
// Ollama runs locally and needs none.
func (c *ProviderConfig) Credential() string {
	switch c.Name {
	case "openai":
		return c.OpenAIKey
	case "anthropic":
		return c.AnthropicKey
	}
	return ""
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "openai", "anthropic":
		if c.Provider.Credential() == "" {
			return ErrMissingCredential
		}
	}
	return nil
}
