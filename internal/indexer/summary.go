package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"koda/internal/errs"
	"koda/internal/fileutil"
)

// Architecture describes the detected project layout.
type Architecture struct {
	Type       string   `json:"type"`
	Components []string `json:"components"`
}

// ProjectSummary is cached project metadata, produced once per codebase
// initialization and reused until the next re-index.
type ProjectSummary struct {
	ProjectType   string       `json:"projectType"`
	MainLanguages []string     `json:"mainLanguages"`
	Frameworks    []string     `json:"frameworks"`
	Architecture  Architecture `json:"architecture"`
	KeyFeatures   []string     `json:"keyFeatures"`
	Dependencies  []string     `json:"dependencies"`
}

// Format renders the summary as a context block for the model.
func (s *ProjectSummary) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project type: %s\n", s.ProjectType)
	if len(s.MainLanguages) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", strings.Join(s.MainLanguages, ", "))
	}
	if len(s.Frameworks) > 0 {
		fmt.Fprintf(&b, "Frameworks: %s\n", strings.Join(s.Frameworks, ", "))
	}
	if s.Architecture.Type != "" {
		fmt.Fprintf(&b, "Architecture: %s (%s)\n", s.Architecture.Type, strings.Join(s.Architecture.Components, ", "))
	}
	if len(s.Dependencies) > 0 {
		fmt.Fprintf(&b, "Dependencies: %s\n", strings.Join(s.Dependencies, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// projectMarkers maps manifest files to a project type.
var projectMarkers = []struct {
	marker      string
	projectType string
}{
	{"go.mod", "go"},
	{"package.json", "node"},
	{"Cargo.toml", "rust"},
	{"pyproject.toml", "python"},
	{"requirements.txt", "python"},
	{"pom.xml", "java"},
	{"build.gradle", "java"},
	{"Gemfile", "ruby"},
	{"composer.json", "php"},
}

// Summarize builds a project summary from workspace markers and the
// indexed document set. It never calls the network; failures come only
// from the filesystem.
func Summarize(root string, docLanguages map[string]int) (*ProjectSummary, error) {
	summary := &ProjectSummary{ProjectType: "unknown"}

	for _, m := range projectMarkers {
		if _, err := os.Stat(filepath.Join(root, m.marker)); err == nil {
			summary.ProjectType = m.projectType
			summary.Dependencies = readDependencies(root, m.marker)
			break
		}
	}

	// Rank languages by indexed chunk count.
	type langCount struct {
		lang  string
		count int
	}
	var langs []langCount
	for lang, n := range docLanguages {
		if lang == "plaintext" || lang == "markdown" || lang == "json" || lang == "yaml" {
			continue
		}
		langs = append(langs, langCount{lang, n})
	}
	sort.Slice(langs, func(i, j int) bool {
		if langs[i].count != langs[j].count {
			return langs[i].count > langs[j].count
		}
		return langs[i].lang < langs[j].lang
	})
	for i, lc := range langs {
		if i >= 3 {
			break
		}
		summary.MainLanguages = append(summary.MainLanguages, lc.lang)
	}

	summary.Architecture = detectArchitecture(root)
	return summary, nil
}

func detectArchitecture(root string) Architecture {
	arch := Architecture{Type: "flat"}

	var components []string
	for _, dir := range []string{"cmd", "internal", "pkg", "src", "lib", "api"} {
		if info, err := os.Stat(filepath.Join(root, dir)); err == nil && info.IsDir() {
			components = append(components, dir)
		}
	}
	if len(components) > 0 {
		arch.Type = "layered"
		arch.Components = components
	}
	return arch
}

// readDependencies pulls direct dependency names out of the manifest.
// Best effort: a manifest we cannot parse yields an empty list.
func readDependencies(root, marker string) []string {
	data, err := os.ReadFile(filepath.Join(root, marker))
	if err != nil {
		return nil
	}

	switch marker {
	case "go.mod":
		return goModDependencies(string(data))
	case "package.json":
		return packageJSONDependencies(data)
	}
	return nil
}

func goModDependencies(content string) []string {
	var deps []string
	inBlock := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "require (":
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock && line != "" && !strings.HasSuffix(line, "// indirect"):
			if fields := strings.Fields(line); len(fields) >= 1 {
				deps = append(deps, fields[0])
			}
		}
	}
	return deps
}

func packageJSONDependencies(data []byte) []string {
	var manifest struct {
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil
	}
	deps := make([]string, 0, len(manifest.Dependencies))
	for name := range manifest.Dependencies {
		deps = append(deps, name)
	}
	sort.Strings(deps)
	return deps
}

// SaveSummary persists the summary to the workspace state directory.
func SaveSummary(root string, summary *ProjectSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errs.Analysis("encoding project summary", err)
	}
	stateDir := StateDir(root)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return errs.Analysis("creating state directory", err)
	}
	if err := fileutil.WriteAtomic(filepath.Join(stateDir, SummaryFileName), data, 0644); err != nil {
		return errs.Analysis("writing project summary", err)
	}
	return nil
}

// LoadSummary reads a previously persisted summary.
func LoadSummary(root string) (*ProjectSummary, error) {
	data, err := os.ReadFile(filepath.Join(root, StateDirName, SummaryFileName))
	if err != nil {
		return nil, err
	}
	var summary ProjectSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
