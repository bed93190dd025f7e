package indexer

import (
	"path/filepath"
	"strings"
)

// languageByExt maps recognized text-file extensions to a language tag.
// Extensions absent from this map are not indexed.
var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".lua":   "lua",
	".r":     "r",
	".sh":    "shell",
	".bash":  "shell",
	".zsh":   "shell",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".scss":  "css",
	".less":  "css",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".xml":   "xml",
	".md":    "markdown",
	".rst":   "plaintext",
	".txt":   "plaintext",
}

// IsIndexableFile reports whether the extension is in the text-file
// allow-list.
func IsIndexableFile(path string) bool {
	_, ok := languageByExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// DetectLanguage returns the language tag for a file, defaulting to
// "plaintext".
func DetectLanguage(path string) string {
	if lang, ok := languageByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "plaintext"
}
