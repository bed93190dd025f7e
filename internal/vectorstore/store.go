// Package vectorstore holds embedded documents in memory with JSON
// snapshot persistence and cosine-ranked retrieval.
package vectorstore

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"koda/internal/errs"
	"koda/internal/fileutil"
	"koda/internal/logging"
)

// SnapshotVersion is the persisted snapshot format version.
const SnapshotVersion = 1

// DocumentKind distinguishes whole files from chunks.
type DocumentKind string

const (
	KindFile  DocumentKind = "file"
	KindChunk DocumentKind = "chunk"
)

// Document is an indexed piece of the codebase. Immutable once stored.
type Document struct {
	Kind     DocumentKind `json:"kind"`
	Path     string       `json:"path"`
	Language string       `json:"language"`
	Content  string       `json:"content"`
	Metadata string       `json:"metadata,omitempty"`
}

// snapshot is the on-disk form. The parallel slices must stay the same
// length; a mismatch on load forces a full reset.
type snapshot struct {
	Vectors   [][]float32 `json:"vectors"`
	Documents []Document  `json:"documents"`
	Version   int         `json:"version"`
}

// Match is a retrieval hit with its similarity score.
type Match struct {
	Document Document
	Score    float32
}

// Store is an append-only collection of (vector, document) records.
type Store struct {
	mu      sync.RWMutex
	vectors [][]float32
	docs    []Document
	dirty   bool
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Add appends a record and marks the store dirty.
func (s *Store) Add(doc Document, vector []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vectors = append(s.vectors, vector)
	s.docs = append(s.docs, doc)
	s.dirty = true
}

// Reset discards all records and marks the store dirty.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vectors = nil
	s.docs = nil
	s.dirty = true
}

// IsEmpty reports whether the store holds no records.
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs) == 0
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Documents returns a copy of the stored documents in insertion order.
func (s *Store) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Save persists the store to path. It is a no-op when nothing changed
// since the last save or load.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	snap := snapshot{
		Vectors:   s.vectors,
		Documents: s.docs,
		Version:   SnapshotVersion,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return errs.Storage("encoding index snapshot", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errs.Storage("creating state directory", err)
	}

	if err := fileutil.WriteAtomic(path, data, 0644); err != nil {
		return errs.Storage("writing index snapshot", err)
	}

	s.dirty = false
	return nil
}

// Load replaces the store contents from a snapshot file. On any read,
// parse, or invariant failure the store resets to empty and dirty and
// Load returns false; failures never propagate to the caller.
func (s *Store) Load(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		s.resetLocked()
		if !os.IsNotExist(err) {
			logging.Warn("index snapshot unreadable, starting empty", "path", path, "error", err)
		}
		return false
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logging.Warn("index snapshot corrupt, starting empty", "path", path, "error", err)
		s.resetLocked()
		return false
	}

	if len(snap.Vectors) != len(snap.Documents) {
		logging.Warn("index snapshot invariant violated, starting empty",
			"vectors", len(snap.Vectors), "documents", len(snap.Documents))
		s.resetLocked()
		return false
	}

	s.vectors = snap.Vectors
	s.docs = snap.Documents
	s.dirty = false
	return true
}

func (s *Store) resetLocked() {
	s.vectors = nil
	s.docs = nil
	s.dirty = true
}

// Search returns up to k stored documents ranked by cosine similarity to
// the query vector, best first.
func (s *Store) Search(query []float32, k int) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.docs) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(s.docs))
	for i, vec := range s.vectors {
		matches = append(matches, Match{
			Document: s.docs[i],
			Score:    CosineSimilarity(query, vec),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
