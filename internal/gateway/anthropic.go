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

// anthropicCaller talks to the messages endpoint. Authentication uses
// the x-api-key header and the system prompt rides in its own field.
type anthropicCaller struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	maxTokens   int32
	httpClient  *http.Client
}

func newAnthropicCaller(cfg config.ProviderConfig) *anthropicCaller {
	base := cfg.AnthropicBaseURL
	if base == "" {
		base = "https://api.anthropic.com"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		// max_tokens is mandatory on this endpoint
		maxTokens = 4096
	}
	return &anthropicCaller{
		apiKey:      cfg.AnthropicKey,
		baseURL:     strings.TrimSuffix(base, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{},
	}
}

func (c *anthropicCaller) complete(ctx context.Context, prompt Prompt) (string, error) {
	body := map[string]any{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"system":     prompt.System,
		"messages": []map[string]string{
			{"role": "user", "content": prompt.User},
		},
	}
	if c.temperature > 0 {
		body["temperature"] = c.temperature
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errs.Unreachable(string(ProviderAnthropic), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Unreachable(string(ProviderAnthropic), err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errs.APIFromStatus(string(ProviderAnthropic), resp.StatusCode, string(data))
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", errs.APIFromStatus(string(ProviderAnthropic), resp.StatusCode, "unparseable response body")
	}

	var out strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", errs.APIFromStatus(string(ProviderAnthropic), resp.StatusCode, "response contained no text blocks")
	}

	return out.String(), nil
}
