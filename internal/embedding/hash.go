package embedding

import (
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedding computes a deterministic embedding from text alone.
// Tokens scatter decaying weights into hashed positions; the result is
// L2-normalized so the same text always maps to the same unit vector.
func HashEmbedding(text string) []float32 {
	vec := make([]float32, Dimension)

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		// Degenerate input still maps to a stable unit vector.
		vec[tokenHash(text)%Dimension] = 1
		return vec
	}

	for i, tok := range tokens {
		vec[tokenHash(tok)%Dimension] += 1 / float32(i+1)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

func tokenHash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// ChunkText packs words greedily into chunks of at most maxChunkSize
// characters, never splitting a word. It always returns at least one chunk.
func ChunkText(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		return []string{text}
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	var chunks []string
	var b strings.Builder
	for _, w := range words {
		need := len(w)
		if b.Len() > 0 {
			need++ // joining space
		}
		if b.Len() > 0 && b.Len()+need > maxChunkSize {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
