package indexer

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// standardIgnores are directory names always excluded from indexing:
// version control, build outputs, package-manager caches, OS artifacts.
var standardIgnores = []string{
	".git", ".svn", ".hg",
	"node_modules", "vendor", "target", "build", "dist", "out",
	"__pycache__", ".venv", "venv",
	".idea", ".vscode", "bin", "obj",
	".DS_Store", "Thumbs.db",
	".koda",
}

var standardIgnoreSet = func() map[string]bool {
	set := make(map[string]bool, len(standardIgnores))
	for _, name := range standardIgnores {
		set[name] = true
	}
	return set
}()

// ignorePattern is one parsed .gitignore line.
type ignorePattern struct {
	glob     string
	negation bool
	dirOnly  bool
	anchored bool
}

// IgnoreList combines the standard ignore set with workspace .gitignore
// patterns.
type IgnoreList struct {
	patterns []ignorePattern
}

// LoadIgnoreList reads the workspace root .gitignore. A missing file is
// not an error; the standard ignore set still applies.
func LoadIgnoreList(root string) *IgnoreList {
	list := &IgnoreList{}

	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return list
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p, ok := parseIgnoreLine(scanner.Text()); ok {
			list.patterns = append(list.patterns, p)
		}
	}
	return list
}

func parseIgnoreLine(line string) (ignorePattern, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ignorePattern{}, false
	}

	var p ignorePattern
	if strings.HasPrefix(line, "!") {
		p.negation = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	} else if strings.Contains(line, "/") {
		p.anchored = true
	}
	p.glob = line
	return p, true
}

// Patterns returns the raw .gitignore globs, for the tree snapshot.
func (l *IgnoreList) Patterns() []string {
	out := make([]string, len(l.patterns))
	for i, p := range l.patterns {
		out[i] = p.glob
	}
	return out
}

// IsStandardIgnore reports whether a base name is in the built-in
// ignore set.
func IsStandardIgnore(name string) bool {
	return standardIgnoreSet[name]
}

// Ignored checks a workspace-relative path (forward slashes) against the
// .gitignore patterns. The last matching pattern wins, honoring negation.
func (l *IgnoreList) Ignored(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)

	ignored := false
	for _, p := range l.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if matchIgnore(p, relPath) {
			ignored = !p.negation
		}
	}
	return ignored
}

func matchIgnore(p ignorePattern, relPath string) bool {
	if p.anchored {
		if ok, _ := doublestar.Match(p.glob, relPath); ok {
			return true
		}
		ok, _ := doublestar.Match(p.glob+"/**", relPath)
		return ok
	}
	if ok, _ := doublestar.Match("**/"+p.glob, relPath); ok {
		return true
	}
	ok, _ := doublestar.Match("**/"+p.glob+"/**", relPath)
	return ok
}
