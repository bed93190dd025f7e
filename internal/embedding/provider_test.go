package embedding

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedCachesRepeatedText(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	p, err := NewProvider(Config{BaseURL: srv.URL, Model: "test-embed"})
	require.NoError(t, err)

	first := p.Embed(t.Context(), "func main() {}")
	second := p.Embed(t.Context(), "func main() {}")

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), hits.Load())

	p.Embed(t.Context(), "different text")
	assert.Equal(t, int64(2), hits.Load())
}

func TestEmbedFallsBackWhenEndpointFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p, err := NewProvider(Config{BaseURL: srv.URL, Model: "test-embed"})
	require.NoError(t, err)

	vec := p.Embed(t.Context(), "some source text")
	assert.Len(t, vec, Dimension)
	assert.Equal(t, HashEmbedding("some source text"), vec)
}
