package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"koda/internal/config"
	"koda/internal/errs"
)

// ollamaCaller generates against a local Ollama server. It is also the
// fallback path for unknown provider names, so it must tolerate a
// missing server and report it as an unreachable API error.
type ollamaCaller struct {
	client *api.Client
	model  string
	opts   map[string]any
}

func newOllamaCaller(cfg config.ProviderConfig) *ollamaCaller {
	base := cfg.OllamaBaseURL
	if base == "" {
		base = "http://localhost:11434"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL, _ = url.Parse("http://localhost:11434")
	}

	opts := map[string]any{}
	if cfg.Temperature > 0 {
		opts["temperature"] = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		opts["num_predict"] = cfg.MaxTokens
	}

	return &ollamaCaller{
		client: api.NewClient(baseURL, http.DefaultClient),
		model:  cfg.Model,
		opts:   opts,
	}
}

func (c *ollamaCaller) complete(ctx context.Context, prompt Prompt) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt.User,
		System:  prompt.System,
		Stream:  &stream,
		Options: c.opts,
	}

	var out strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", errs.APIFromStatus(string(ProviderOllama), statusErr.StatusCode, statusErr.ErrorMessage)
		}
		return "", errs.Unreachable(string(ProviderOllama), err)
	}

	return out.String(), nil
}
