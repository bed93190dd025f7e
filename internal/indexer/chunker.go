package indexer

import "strings"

// DefaultChunkSize is the character budget for one document chunk.
const DefaultChunkSize = 1500

// ChunkDocument splits content into line-aligned chunks. A chunk
// accumulates whole lines until the next line would exceed the budget,
// then flushes. A single line longer than the budget still occupies its
// own chunk; lines are never split.
func ChunkDocument(content string, budget int) []string {
	if budget <= 0 {
		budget = DefaultChunkSize
	}

	lines := strings.Split(content, "\n")
	var chunks []string
	var b strings.Builder

	for _, line := range lines {
		need := len(line)
		if b.Len() > 0 {
			need++ // newline joining the previous line
		}
		if b.Len() > 0 && b.Len()+need > budget {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	chunks = append(chunks, b.String())

	return chunks
}
