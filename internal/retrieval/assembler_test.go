package retrieval

import (
	"strings"
	"testing"

	"koda/internal/embedding"
	"koda/internal/indexer"
	"koda/internal/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevantContextOrdering(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, indexer.SaveSummary(root, &indexer.ProjectSummary{ProjectType: "go"}))

	embedder := embedding.NewOfflineProvider()
	store := vectorstore.New()
	for _, content := range []string{"func Alpha() {}", "func Beta() {}"} {
		store.Add(vectorstore.Document{
			Kind: vectorstore.KindChunk, Path: "x.go", Language: "go",
			Content: content, Metadata: "x.go (go)",
		}, embedder.Embed(t.Context(), content))
	}

	a := NewAssembler(store, embedder, root, 5)
	bundle := a.RelevantContext(t.Context(), "func Alpha() {}")

	require.Len(t, bundle, 3)
	assert.True(t, strings.HasPrefix(bundle[0], "PROJECT SUMMARY:"), "summary block comes first")
	assert.Contains(t, bundle[1], "Alpha", "best match ranks ahead of weaker ones")
}

func TestRelevantContextNoSummary(t *testing.T) {
	embedder := embedding.NewOfflineProvider()
	store := vectorstore.New()
	store.Add(vectorstore.Document{Content: "hello", Metadata: "a.txt"}, embedder.Embed(t.Context(), "hello"))

	a := NewAssembler(store, embedder, t.TempDir(), 5)
	bundle := a.RelevantContext(t.Context(), "hello")

	require.Len(t, bundle, 1)
	assert.NotContains(t, bundle[0], "PROJECT SUMMARY")
}

func TestRelevantContextEmptyStore(t *testing.T) {
	a := NewAssembler(vectorstore.New(), embedding.NewOfflineProvider(), t.TempDir(), 5)
	assert.Empty(t, a.RelevantContext(t.Context(), "anything"))
}

func TestSummaryFallback(t *testing.T) {
	a := NewAssembler(vectorstore.New(), embedding.NewOfflineProvider(), t.TempDir(), 5)
	assert.Nil(t, a.Summary())

	a.SetSummary(&indexer.ProjectSummary{ProjectType: "rust"})
	require.NotNil(t, a.Summary())
	assert.Equal(t, "rust", a.Summary().ProjectType)
}

func TestSummaryDiskCachedAfterFirstLoad(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, indexer.SaveSummary(root, &indexer.ProjectSummary{ProjectType: "node"}))

	a := NewAssembler(vectorstore.New(), embedding.NewOfflineProvider(), root, 5)
	first := a.Summary()
	require.NotNil(t, first)
	assert.Equal(t, "node", first.ProjectType)

	// The cached copy survives even if the file disappears.
	second := a.Summary()
	assert.Same(t, first, second)
}

func TestSetSummaryReplacesLoadedCopy(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, indexer.SaveSummary(root, &indexer.ProjectSummary{ProjectType: "node"}))

	a := NewAssembler(vectorstore.New(), embedding.NewOfflineProvider(), root, 5)
	require.NotNil(t, a.Summary())

	// A re-index hands the assembler a fresh summary; the memoized disk
	// copy must not shadow it.
	a.SetSummary(&indexer.ProjectSummary{ProjectType: "go"})

	s := a.Summary()
	require.NotNil(t, s)
	assert.Equal(t, "go", s.ProjectType)
}
