// Package indexer walks a workspace, chunks its text files, embeds the
// chunks, and populates the vector store. Indexing always rebuilds the
// store from scratch; there is no incremental update.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"koda/internal/embedding"
	"koda/internal/errs"
	"koda/internal/fileutil"
	"koda/internal/logging"
	"koda/internal/vectorstore"
)

const (
	// StateDirName is the hidden project-local state directory.
	StateDirName = ".koda"
	// IndexFileName is the persisted vector store snapshot.
	IndexFileName = "index.json"
	// TreeFileName is the persisted directory-tree snapshot.
	TreeFileName = "tree.json"
	// SummaryFileName is the persisted project summary.
	SummaryFileName = "project.json"

	// DefaultMaxDepth caps directory recursion.
	DefaultMaxDepth = 8
	// DefaultMaxFileSize is the per-file size cap in bytes.
	DefaultMaxFileSize = 1 << 20
)

// Options configures an Indexer.
type Options struct {
	MaxDepth    int
	MaxFileSize int64
	ChunkSize   int
}

// Stats reports the outcome of one indexing pass.
type Stats struct {
	FilesIndexed int
	ChunksStored int
	FilesSkipped int
	Languages    map[string]int
}

// Indexer builds the vector store for a workspace.
type Indexer struct {
	embedder *embedding.Provider
	store    *vectorstore.Store
	opts     Options

	lastSummary *ProjectSummary
}

// New creates an indexer feeding the given store.
func New(embedder *embedding.Provider, store *vectorstore.Store, opts Options) *Indexer {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Indexer{embedder: embedder, store: store, opts: opts}
}

// Summary returns the project summary generated by the most recent
// IndexWorkspace pass, or nil when no pass ran or generation failed.
func (ix *Indexer) Summary() *ProjectSummary {
	return ix.lastSummary
}

// StateDir returns the project-local state directory for a workspace.
func StateDir(root string) string {
	return filepath.Join(root, StateDirName)
}

// treeSnapshot is the persisted directory-tree form.
type treeSnapshot struct {
	DirectoryTree   string   `json:"directoryTree"`
	IgnoredPatterns []string `json:"ignoredPatterns"`
	StandardIgnores []string `json:"standardIgnores"`
}

// IndexWorkspace rebuilds the store from the workspace at root and
// persists the snapshot and directory tree. Per-file failures are logged
// and skipped; only workspace-level failures abort the pass.
func (ix *Indexer) IndexWorkspace(ctx context.Context, root string) (Stats, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Stats{}, errs.Storage(fmt.Sprintf("workspace root %s is not a directory", root), err)
	}

	ignores := LoadIgnoreList(root)
	ix.store.Reset()

	stats := Stats{Languages: make(map[string]int)}
	var tree strings.Builder
	if err := ix.walk(ctx, root, root, 0, ignores, &stats, &tree); err != nil {
		return stats, err
	}

	stateDir := StateDir(root)
	if err := ix.store.Save(filepath.Join(stateDir, IndexFileName)); err != nil {
		return stats, err
	}
	if err := saveTree(stateDir, tree.String(), ignores); err != nil {
		return stats, err
	}

	// Summary generation failure does not fail the indexing pass.
	ix.lastSummary = nil
	if summary, err := Summarize(root, stats.Languages); err != nil {
		logging.Warn("project summary generation failed", "error", err)
	} else {
		ix.lastSummary = summary
		if err := SaveSummary(root, summary); err != nil {
			logging.Warn("project summary not persisted", "error", err)
		}
	}

	logging.Info("workspace indexed",
		"root", root,
		"files", stats.FilesIndexed,
		"chunks", stats.ChunksStored,
		"skipped", stats.FilesSkipped)
	return stats, nil
}

func (ix *Indexer) walk(ctx context.Context, root, dir string, depth int, ignores *IgnoreList, stats *Stats, tree *strings.Builder) error {
	if depth > ix.opts.MaxDepth {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.Warn("cannot read directory, skipping", "dir", dir, "error", err)
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	indent := strings.Repeat("  ", depth)
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = name
		}

		if entry.IsDir() {
			if IsStandardIgnore(name) || strings.HasPrefix(name, ".") || ignores.Ignored(rel, true) {
				continue
			}
			fmt.Fprintf(tree, "%s%s/\n", indent, name)
			if err := ix.walk(ctx, root, path, depth+1, ignores, stats, tree); err != nil {
				return err
			}
			continue
		}

		if IsStandardIgnore(name) || ignores.Ignored(rel, false) {
			continue
		}
		if !IsIndexableFile(path) {
			stats.FilesSkipped++
			continue
		}

		fmt.Fprintf(tree, "%s%s\n", indent, name)
		if err := ix.indexFile(ctx, rel, path, stats); err != nil {
			logging.Warn("failed to index file, skipping", "path", rel, "error", err)
			stats.FilesSkipped++
		}
	}
	return nil
}

func (ix *Indexer) indexFile(ctx context.Context, rel, path string, stats *Stats) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > ix.opts.MaxFileSize {
		return fmt.Errorf("file exceeds size cap (%d bytes)", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	language := DetectLanguage(path)
	chunks := ChunkDocument(string(data), ix.opts.ChunkSize)

	kind := vectorstore.KindChunk
	if len(chunks) == 1 {
		kind = vectorstore.KindFile
	}

	for i, chunk := range chunks {
		meta := fmt.Sprintf("%s (%s) [%d/%d]", filepath.ToSlash(rel), language, i+1, len(chunks))
		doc := vectorstore.Document{
			Kind:     kind,
			Path:     filepath.ToSlash(rel),
			Language: language,
			Content:  chunk,
			Metadata: meta,
		}
		vec := ix.embedder.Embed(ctx, meta+"\n"+chunk)
		ix.store.Add(doc, vec)
		stats.ChunksStored++
	}

	stats.Languages[language] += len(chunks)
	stats.FilesIndexed++
	return nil
}

func saveTree(stateDir, tree string, ignores *IgnoreList) error {
	snap := treeSnapshot{
		DirectoryTree:   tree,
		IgnoredPatterns: ignores.Patterns(),
		StandardIgnores: standardIgnores,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errs.Storage("encoding tree snapshot", err)
	}
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return errs.Storage("creating state directory", err)
	}
	if err := fileutil.WriteAtomic(filepath.Join(stateDir, TreeFileName), data, 0644); err != nil {
		return errs.Storage("writing tree snapshot", err)
	}
	return nil
}
