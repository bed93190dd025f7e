package editor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"koda/internal/logging"
)

// Headless is the CLI-mode editor: no selection, no active file,
// notifications go to a writer and edits go straight to disk.
type Headless struct {
	root string
	out  io.Writer
}

// NewHeadless creates a headless editor rooted at root, writing
// notifications to out.
func NewHeadless(root string, out io.Writer) *Headless {
	if out == nil {
		out = os.Stderr
	}
	return &Headless{root: root, out: out}
}

func (h *Headless) WorkspaceRoot() string { return h.root }

func (h *Headless) Selection() string { return "" }

func (h *Headless) ActiveFile() (string, string) { return "", "" }

func (h *Headless) Notify(message string) {
	fmt.Fprintln(h.out, message)
}

func (h *Headless) NotifyError(message string) {
	fmt.Fprintln(h.out, "error: "+message)
}

func (h *Headless) ShowDiff(path, diff string) {
	fmt.Fprintf(h.out, "--- changes to %s ---\n%s\n", path, diff)
}

func (h *Headless) ApplyEdit(_ context.Context, path, content string) error {
	if !filepath.IsAbs(path) {
		path = filepath.Join(h.root, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return err
	}
	logging.Debug("applied edit", "path", path, "bytes", len(content))
	return nil
}
