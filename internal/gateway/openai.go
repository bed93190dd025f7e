package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"koda/internal/config"
	"koda/internal/errs"
)

// openaiCaller talks to the chat-completions endpoint with a bearer
// token.
type openaiCaller struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	maxTokens   int32
	httpClient  *http.Client
}

func newOpenAICaller(cfg config.ProviderConfig) *openaiCaller {
	base := cfg.OpenAIBaseURL
	if base == "" {
		base = "https://api.openai.com"
	}
	return &openaiCaller{
		apiKey:      cfg.OpenAIKey,
		baseURL:     strings.TrimSuffix(base, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{},
	}
}

func (c *openaiCaller) complete(ctx context.Context, prompt Prompt) (string, error) {
	body := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": prompt.System},
			{"role": "user", "content": prompt.User},
		},
	}
	if c.temperature > 0 {
		body["temperature"] = c.temperature
	}
	if c.maxTokens > 0 {
		body["max_tokens"] = c.maxTokens
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errs.Unreachable(string(ProviderOpenAI), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Unreachable(string(ProviderOpenAI), err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errs.APIFromStatus(string(ProviderOpenAI), resp.StatusCode, string(data))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", errs.APIFromStatus(string(ProviderOpenAI), resp.StatusCode, "unparseable response body")
	}
	if len(parsed.Choices) == 0 {
		return "", errs.APIFromStatus(string(ProviderOpenAI), resp.StatusCode, "response contained no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
