package indexer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"koda/internal/embedding"
	"koda/internal/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestIndexWorkspaceChunksTextSkipsBinary(t *testing.T) {
	root := t.TempDir()

	// One 4000-character text file and one non-allow-listed binary.
	var lines []string
	for len(strings.Join(lines, "\n")) < 4000 {
		lines = append(lines, "some source text that fills the file with content")
	}
	writeFile(t, root, "main.txt", strings.Join(lines, "\n"))
	writeFile(t, root, "image.bin", "\x00\x01\x02\x03")

	store := vectorstore.New()
	ix := New(embedding.NewOfflineProvider(), store, Options{ChunkSize: DefaultChunkSize})

	stats, err := ix.IndexWorkspace(t.Context(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesIndexed)
	assert.GreaterOrEqual(t, stats.ChunksStored, 3, "a 4000-char file yields at least 3 chunks at a 1500-char budget")
	assert.Equal(t, stats.ChunksStored, store.Len())

	for _, doc := range store.Documents() {
		assert.Equal(t, "main.txt", doc.Path)
		assert.Equal(t, "plaintext", doc.Language)
	}
}

func TestIndexWorkspaceExposesSummary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module demo\n\ngo 1.25\n")
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	ix := New(embedding.NewOfflineProvider(), vectorstore.New(), Options{})
	assert.Nil(t, ix.Summary(), "no summary before the first pass")

	_, err := ix.IndexWorkspace(t.Context(), root)
	require.NoError(t, err)

	s := ix.Summary()
	require.NotNil(t, s)
	assert.Equal(t, "go", s.ProjectType)
}

func TestIndexWorkspacePersistsState(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc A() {}\n")

	store := vectorstore.New()
	ix := New(embedding.NewOfflineProvider(), store, Options{})
	_, err := ix.IndexWorkspace(t.Context(), root)
	require.NoError(t, err)

	// Index snapshot, tree snapshot, and project summary all land in .koda.
	for _, name := range []string{IndexFileName, TreeFileName, SummaryFileName} {
		_, err := os.Stat(filepath.Join(root, StateDirName, name))
		assert.NoError(t, err, name)
	}

	// The snapshot round-trips into a fresh store.
	fresh := vectorstore.New()
	assert.True(t, fresh.Load(filepath.Join(root, StateDirName, IndexFileName)))
	assert.Equal(t, store.Len(), fresh.Len())
}

func TestIndexWorkspaceRebuildsFromScratch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "one.go", "package one\n")

	store := vectorstore.New()
	ix := New(embedding.NewOfflineProvider(), store, Options{})

	_, err := ix.IndexWorkspace(t.Context(), root)
	require.NoError(t, err)
	first := store.Len()

	// Re-indexing discards the previous records instead of appending.
	_, err = ix.IndexWorkspace(t.Context(), root)
	require.NoError(t, err)
	assert.Equal(t, first, store.Len())
}

func TestIndexWorkspaceHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n*.log\n")
	writeFile(t, root, "keep.go", "package keep\n")
	writeFile(t, root, "generated/out.go", "package out\n")
	writeFile(t, root, "trace.log", "noise")

	store := vectorstore.New()
	ix := New(embedding.NewOfflineProvider(), store, Options{})
	stats, err := ix.IndexWorkspace(t.Context(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesIndexed)
	require.Equal(t, 1, store.Len())
	assert.Equal(t, "keep.go", store.Documents()[0].Path)
}

func TestIndexWorkspaceSkipsStandardIgnores(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.go", "package app\n")
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = {}\n")
	writeFile(t, root, ".git/config", "[core]\n")

	store := vectorstore.New()
	ix := New(embedding.NewOfflineProvider(), store, Options{})
	stats, err := ix.IndexWorkspace(t.Context(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
}

func TestIndexWorkspaceDepthCap(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "top.go", "package top\n")
	writeFile(t, root, "a/b/c/deep.go", "package deep\n")

	store := vectorstore.New()
	ix := New(embedding.NewOfflineProvider(), store, Options{MaxDepth: 1})
	stats, err := ix.IndexWorkspace(t.Context(), root)
	require.NoError(t, err)

	// Only the top-level file and depth-1 directories are reachable.
	assert.Equal(t, 1, stats.FilesIndexed)
}

func TestIndexWorkspaceMissingRoot(t *testing.T) {
	store := vectorstore.New()
	ix := New(embedding.NewOfflineProvider(), store, Options{})
	_, err := ix.IndexWorkspace(t.Context(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "go", DetectLanguage("x/y/z.go"))
	assert.Equal(t, "typescript", DetectLanguage("app.TSX"))
	assert.Equal(t, "plaintext", DetectLanguage("README"))
	assert.False(t, IsIndexableFile("photo.png"))
	assert.True(t, IsIndexableFile("notes.md"))
}
