package embedding

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbeddingDeterministic(t *testing.T) {
	inputs := []string{
		"func main() { fmt.Println(\"hello\") }",
		"the quick brown fox",
		"x",
		"   spaced    out   tokens   ",
	}

	for _, in := range inputs {
		a := HashEmbedding(in)
		b := HashEmbedding(in)
		assert.Equal(t, a, b, "same input must embed identically")
		assert.Len(t, a, Dimension)
	}
}

func TestHashEmbeddingUnitNorm(t *testing.T) {
	inputs := []string{
		"package main",
		"a b c d e f g",
		"",
		"\t\n ",
	}

	for _, in := range inputs {
		vec := HashEmbedding(in)
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5, "input %q", in)
	}
}

func TestHashEmbeddingEmptyInput(t *testing.T) {
	vec := HashEmbedding("")
	nonzero := 0
	for _, v := range vec {
		if v != 0 {
			nonzero++
			assert.Equal(t, float32(1), v)
		}
	}
	assert.Equal(t, 1, nonzero, "empty input maps to a single unit position")
}

func TestHashEmbeddingDistinguishesInputs(t *testing.T) {
	a := HashEmbedding("alpha beta gamma")
	b := HashEmbedding("delta epsilon zeta")
	assert.NotEqual(t, a, b)
}

func TestChunkTextRespectsBudget(t *testing.T) {
	text := strings.Repeat("word ", 100)
	chunks := ChunkText(text, 40)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 40)
	}

	// No word is lost or split.
	rejoined := strings.Fields(strings.Join(chunks, " "))
	assert.Len(t, rejoined, 100)
}

func TestChunkTextNeverSplitsWord(t *testing.T) {
	chunks := ChunkText("supercalifragilistic tiny", 10)

	require.NotEmpty(t, chunks)
	// The oversized word still occupies its own chunk, unbroken.
	assert.Equal(t, "supercalifragilistic", chunks[0])
}

func TestChunkTextAlwaysReturnsAtLeastOneChunk(t *testing.T) {
	assert.Equal(t, []string{""}, ChunkText("", 100))
	assert.Equal(t, []string{"   "}, ChunkText("   ", 100))
	assert.Equal(t, []string{"abc"}, ChunkText("abc", 0))
}

func TestOfflineProviderUsesFallback(t *testing.T) {
	p := NewOfflineProvider()
	vec := p.Embed(t.Context(), "hello world")
	assert.Equal(t, HashEmbedding("hello world"), vec)
}
