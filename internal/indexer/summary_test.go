package indexer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeGoProject(t *testing.T) {
	root := t.TempDir()
	gomod := "module example\n\ngo 1.22\n\nrequire (\n\tgithub.com/spf13/cobra v1.10.2\n\tgopkg.in/yaml.v3 v3.0.1\n\tgolang.org/x/sys v0.1.0 // indirect\n)\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte(gomod), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "internal"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cmd"), 0755))

	summary, err := Summarize(root, map[string]int{"go": 40, "yaml": 2})
	require.NoError(t, err)

	assert.Equal(t, "go", summary.ProjectType)
	assert.Equal(t, []string{"go"}, summary.MainLanguages)
	assert.Equal(t, "layered", summary.Architecture.Type)
	assert.Contains(t, summary.Architecture.Components, "internal")
	assert.Contains(t, summary.Dependencies, "github.com/spf13/cobra")
	assert.NotContains(t, summary.Dependencies, "golang.org/x/sys")
}

func TestSummarizeUnknownProject(t *testing.T) {
	summary, err := Summarize(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, "unknown", summary.ProjectType)
	assert.Empty(t, summary.MainLanguages)
}

func TestSummaryPersistRoundTrip(t *testing.T) {
	root := t.TempDir()
	in := &ProjectSummary{
		ProjectType:   "node",
		MainLanguages: []string{"javascript"},
		Architecture:  Architecture{Type: "flat"},
		Dependencies:  []string{"express"},
	}
	require.NoError(t, SaveSummary(root, in))

	out, err := LoadSummary(root)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSummaryFormat(t *testing.T) {
	s := &ProjectSummary{
		ProjectType:   "go",
		MainLanguages: []string{"go"},
		Architecture:  Architecture{Type: "layered", Components: []string{"cmd", "internal"}},
	}
	text := s.Format()
	assert.Contains(t, text, "Project type: go")
	assert.Contains(t, text, "layered")
}

func TestIgnoreListNegation(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"),
		[]byte("# build output\n*.log\n!keep.log\nbuild/\n"), 0644))

	list := LoadIgnoreList(root)
	assert.True(t, list.Ignored("trace.log", false))
	assert.False(t, list.Ignored("keep.log", false), "negation re-includes the path")
	assert.True(t, list.Ignored("build", true))
	assert.False(t, list.Ignored("build", false), "dir-only pattern leaves files alone")
}

func TestIgnoreListMissingFile(t *testing.T) {
	list := LoadIgnoreList(t.TempDir())
	assert.False(t, list.Ignored("anything.go", false))
	assert.Empty(t, list.Patterns())
}
