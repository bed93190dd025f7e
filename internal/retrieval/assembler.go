// Package retrieval assembles the grounding context handed to the model:
// a cached project summary followed by vector-search hits.
package retrieval

import (
	"context"
	"fmt"
	"sync"

	"koda/internal/embedding"
	"koda/internal/indexer"
	"koda/internal/logging"
	"koda/internal/vectorstore"
)

// DefaultTopK is the number of vector-search hits retrieved per query.
const DefaultTopK = 5

// Assembler merges vector-search hits with cached project metadata into
// one ordered context bundle. It never fails the caller: sub-failures
// yield a shorter list.
type Assembler struct {
	store    *vectorstore.Store
	embedder *embedding.Provider
	root     string
	topK     int

	mu       sync.Mutex
	summary  *indexer.ProjectSummary
	fallback *indexer.ProjectSummary
	loaded   bool
}

// NewAssembler creates a context assembler for one workspace.
func NewAssembler(store *vectorstore.Store, embedder *embedding.Provider, root string, topK int) *Assembler {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Assembler{store: store, embedder: embedder, root: root, topK: topK}
}

// SetSummary installs a freshly generated summary, replacing any copy
// previously loaded from disk. The summary also serves as the in-memory
// fallback when the on-disk copy is unavailable.
func (a *Assembler) SetSummary(s *indexer.ProjectSummary) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary = s
	a.fallback = s
	a.loaded = s != nil
}

// Summary returns the project summary, loading it from disk lazily and
// caching the first successful load. Returns nil when no summary exists.
func (a *Assembler) Summary() *indexer.ProjectSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.summary != nil {
		return a.summary
	}
	if !a.loaded {
		s, err := indexer.LoadSummary(a.root)
		if err == nil {
			a.summary = s
			a.loaded = true
			return s
		}
		logging.Debug("project summary unavailable on disk", "error", err)
	}
	return a.fallback
}

// RelevantContext returns the ordered context bundle for a query:
// one project-summary block (when a summary exists) followed by up to
// topK retrieved chunks.
func (a *Assembler) RelevantContext(ctx context.Context, query string) []string {
	var bundle []string

	if s := a.Summary(); s != nil {
		bundle = append(bundle, "PROJECT SUMMARY:\n"+s.Format())
	}

	if a.store == nil || a.store.IsEmpty() {
		return bundle
	}

	queryVec := a.embedder.Embed(ctx, query)
	for _, m := range a.store.Search(queryVec, a.topK) {
		bundle = append(bundle, fmt.Sprintf("FILE %s:\n%s", m.Document.Metadata, m.Document.Content))
	}
	return bundle
}
