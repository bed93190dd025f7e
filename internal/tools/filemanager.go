package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"koda/internal/editor"
	"koda/internal/errs"
	"koda/internal/gateway"
)

// FileManagerName is the registry name for file operations.
const FileManagerName = "FileManager"

// maxReadSize caps file content fed back into a prompt.
const maxReadSize = 512 * 1024

// FileManager performs file operations inside the workspace. Writes
// go through the editor collaborator so the host can show the change;
// reads come straight from disk.
type FileManager struct {
	root   string
	editor editor.Editor
}

// NewFileManager creates a FileManager rooted at the editor's
// workspace.
func NewFileManager(ed editor.Editor) *FileManager {
	return &FileManager{root: ed.WorkspaceRoot(), editor: ed}
}

func (m *FileManager) Name() string { return FileManagerName }

func (m *FileManager) Commands() []gateway.CommandSpec {
	return []gateway.CommandSpec{
		{Name: "createFile", Signature: "(path, content)", Description: "create a new file with the given content"},
		{Name: "readFile", Signature: "(path)", Description: "return the content of a file"},
		{Name: "fileExists", Signature: "(path)", Description: "report whether a file exists"},
		{Name: "editFile", Signature: "(path, newContent)", Description: "replace a file's content, showing a diff first"},
	}
}

func (m *FileManager) Execute(ctx context.Context, command string, params []any) (Result, error) {
	path, err := stringParam(params, 0, "path")
	if err != nil {
		return Result{}, err
	}

	switch command {
	case "createFile":
		content, err := stringParam(params, 1, "content")
		if err != nil {
			return Result{}, err
		}
		return m.createFile(ctx, path, content)
	case "readFile":
		return m.readFile(path)
	case "fileExists":
		return m.fileExists(path)
	case "editFile":
		content, err := stringParam(params, 1, "newContent")
		if err != nil {
			return Result{}, err
		}
		return m.editFile(ctx, path, content)
	}
	return Result{}, fmt.Errorf("unhandled command %s", command)
}

// resolve anchors a possibly-relative path at the workspace root and
// rejects escapes above it.
func (m *FileManager) resolve(path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(m.root, abs)
	}
	abs = filepath.Clean(abs)
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errs.New(errs.KindStorage, fmt.Sprintf("path %s is outside the workspace", path))
	}
	return abs, nil
}

func (m *FileManager) createFile(ctx context.Context, path, content string) (Result, error) {
	abs, err := m.resolve(path)
	if err != nil {
		return Result{}, err
	}
	if _, err := os.Stat(abs); err == nil {
		return Result{}, errs.New(errs.KindStorage, fmt.Sprintf("file already exists: %s", path))
	}

	if err := m.editor.ApplyEdit(ctx, abs, content); err != nil {
		return Result{}, errs.Storage(fmt.Sprintf("cannot create %s", path), err)
	}
	m.editor.Notify("created " + path)
	return Result{Content: fmt.Sprintf("created %s (%d bytes)", path, len(content))}, nil
}

func (m *FileManager) readFile(path string) (Result, error) {
	abs, err := m.resolve(path)
	if err != nil {
		return Result{}, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return Result{}, errs.Storage(fmt.Sprintf("cannot read %s", path), err)
	}
	content := string(data)
	if len(content) > maxReadSize {
		content = content[:maxReadSize] + "\n... (truncated)"
	}
	return Result{Content: content}, nil
}

func (m *FileManager) fileExists(path string) (Result, error) {
	abs, err := m.resolve(path)
	if err != nil {
		return Result{}, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return Result{Content: "false"}, nil
		}
		return Result{}, errs.Storage(fmt.Sprintf("cannot stat %s", path), err)
	}
	return Result{Content: "true"}, nil
}

func (m *FileManager) editFile(ctx context.Context, path, newContent string) (Result, error) {
	abs, err := m.resolve(path)
	if err != nil {
		return Result{}, err
	}

	old, err := os.ReadFile(abs)
	if err != nil {
		return Result{}, errs.Storage(fmt.Sprintf("cannot read %s", path), err)
	}

	diff := renderDiff(string(old), newContent)
	m.editor.ShowDiff(path, diff)

	if err := m.editor.ApplyEdit(ctx, abs, newContent); err != nil {
		return Result{}, errs.Storage(fmt.Sprintf("cannot edit %s", path), err)
	}
	return Result{Content: fmt.Sprintf("edited %s\n%s", path, diff)}, nil
}

// renderDiff produces a compact line-oriented diff of the change.
func renderDiff(oldText, newText string) string {
	dmp := diffmatchpatch.New()
	chars1, chars2, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lines)

	var b strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		default:
			// unchanged regions are summarized, not repeated
			n := strings.Count(d.Text, "\n")
			if n > 2 {
				fmt.Fprintf(&b, "  ... (%d unchanged lines)\n", n)
				continue
			}
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			b.WriteString(prefix)
			b.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
