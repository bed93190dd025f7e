// Package embedding turns text into fixed-dimension vectors.
// The primary path calls a local Ollama embedding endpoint; when that is
// unavailable a deterministic hash embedding keeps indexing and retrieval
// working offline.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"koda/internal/cache"
	"koda/internal/logging"

	"github.com/ollama/ollama/api"
)

// Dimension is the fixed embedding vector length.
const Dimension = 384

// cacheSize bounds how many recent embeddings are kept. Re-indexing a
// workspace mostly hits unchanged chunks, so this saves repeated calls
// to the embedding endpoint.
const cacheSize = 4096

// Config holds settings for the embedding provider.
type Config struct {
	BaseURL     string        // Default: "http://localhost:11434"
	Model       string        // e.g. "nomic-embed-text"
	HTTPTimeout time.Duration // default: 60s
}

// Provider generates embeddings with an offline fallback.
type Provider struct {
	client *api.Client
	model  string
	recent *cache.LRU[string, []float32]
}

// NewProvider creates an embedding provider backed by an Ollama server.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	return &Provider{
		client: api.NewClient(baseURL, httpClient),
		model:  cfg.Model,
		recent: cache.NewLRU[string, []float32](cacheSize, 0),
	}, nil
}

// NewOfflineProvider creates a provider that only uses the hash fallback.
func NewOfflineProvider() *Provider {
	return &Provider{}
}

// Model returns the embedding model name.
func (p *Provider) Model() string {
	return p.model
}

// Embed generates an embedding for text. Any failure on the primary path
// falls back to the deterministic hash embedding, so Embed never fails.
func (p *Provider) Embed(ctx context.Context, text string) []float32 {
	if p.client != nil {
		if vec, ok := p.recent.Get(text); ok {
			return vec
		}
		resp, err := p.client.Embeddings(ctx, &api.EmbeddingRequest{
			Model:  p.model,
			Prompt: text,
		})
		if err == nil && len(resp.Embedding) > 0 {
			vec := make([]float32, len(resp.Embedding))
			for i, v := range resp.Embedding {
				vec[i] = float32(v)
			}
			p.recent.Put(text, vec)
			return vec
		}
		if err != nil {
			logging.Debug("embedding endpoint failed, using hash fallback", "error", err)
		}
	}
	return HashEmbedding(text)
}
