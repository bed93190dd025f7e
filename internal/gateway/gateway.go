package gateway

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"koda/internal/config"
	"koda/internal/errs"
	"koda/internal/logging"
)

// caller is one provider call path. It sends a rendered prompt and
// returns the raw model text.
type caller interface {
	complete(ctx context.Context, prompt Prompt) (string, error)
}

// DefaultResponse is returned alongside the error when a turn cannot
// reach the model, so callers always have something presentable.
var DefaultResponse = Response{
	Narrative: "I couldn't reach the language model. Check the provider configuration and try again.",
}

// Gateway sends prompts to the configured provider and decodes the
// replies. A Gateway is safe for concurrent use.
type Gateway struct {
	provider Provider
	caller   caller
	limiter  *rate.Limiter
	retry    config.RetryConfig
	// set when the configured provider cannot be used at all
	configErr error
}

// New builds a Gateway from provider settings. Unrecognized provider
// names fall back to the local Ollama endpoint. A hosted provider
// without a credential still constructs; each Generate call then fails
// with a configuration error and the safe default response.
func New(cfg config.ProviderConfig) *Gateway {
	g := &Gateway{
		provider: ParseProvider(cfg.Name),
		retry:    cfg.Retry,
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
	if cfg.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	if g.provider != Provider(cfg.Name) && cfg.Name != "" {
		logging.Warn("unknown provider, falling back to ollama", "configured", cfg.Name)
	}

	switch g.provider {
	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			g.configErr = errs.Configuration("openai selected but no API key configured")
			break
		}
		g.caller = newOpenAICaller(cfg)
	case ProviderAnthropic:
		if cfg.AnthropicKey == "" {
			g.configErr = errs.Configuration("anthropic selected but no API key configured")
			break
		}
		g.caller = newAnthropicCaller(cfg)
	default:
		g.caller = newOllamaCaller(cfg)
	}

	return g
}

// Provider reports the resolved provider.
func (g *Gateway) Provider() Provider { return g.provider }

// Generate runs one model turn: renders the prompt, calls the provider
// with retry, and decodes the reply. On failure it returns the typed
// error together with DefaultResponse so the caller can still present
// something to the user.
func (g *Gateway) Generate(ctx context.Context, req Request) (Response, error) {
	if g.configErr != nil {
		return DefaultResponse, g.configErr
	}

	prompt := BuildPrompt(req)

	raw, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		logging.Error("model call failed", "provider", g.provider, "error", err)
		return DefaultResponse, err
	}

	return ParseResponse(raw), nil
}

// callWithRetry performs the provider call, retrying transient
// failures with exponential backoff.
func (g *Gateway) callWithRetry(ctx context.Context, prompt Prompt) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= g.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(g.retry.RetryDelay, attempt-1)
			logging.Info("retrying model call", "provider", g.provider, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		raw, err := g.callOnce(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if !errs.IsRetryable(err) {
			return "", err
		}
		logging.Warn("model call failed, will retry", "provider", g.provider, "attempt", attempt, "error", err)
	}

	return "", lastErr
}

// callOnce performs a single rate-limited provider call under the
// configured per-request timeout.
func (g *Gateway) callOnce(ctx context.Context, prompt Prompt) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if g.retry.HTTPTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.retry.HTTPTimeout)
		defer cancel()
	}

	return g.caller.complete(ctx, prompt)
}
