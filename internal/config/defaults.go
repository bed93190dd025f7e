package config

import "time"

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:          "ollama",
			Model:         "qwen2.5-coder",
			OllamaBaseURL: "http://localhost:11434",
			EmbedModel:    "nomic-embed-text",
			Temperature:   0.2,
			MaxTokens:     4096,
			Retry: RetryConfig{
				MaxRetries:  3,
				RetryDelay:  1 * time.Second,
				HTTPTimeout: 120 * time.Second,
			},
			RequestsPerMinute: 60,
		},
		Index: IndexConfig{
			MaxDepth:    8,
			MaxFileSize: 1 << 20,
			ChunkSize:   1500,
			TopK:        5,
		},
		Agent: AgentConfig{
			HistoryLimit: 10,
		},
		Tools: ToolsConfig{
			CommandTimeout: 30 * time.Second,
			FetchMaxBytes:  1 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
