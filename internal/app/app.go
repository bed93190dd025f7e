// Package app wires the subsystems into a running assistant and hosts
// the CLI front ends.
package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"koda/internal/agent"
	"koda/internal/chat"
	"koda/internal/config"
	"koda/internal/editor"
	"koda/internal/embedding"
	"koda/internal/gateway"
	"koda/internal/indexer"
	"koda/internal/logging"
	"koda/internal/retrieval"
	"koda/internal/terminal"
	"koda/internal/tools"
	"koda/internal/vectorstore"
	"koda/internal/watcher"
)

// App owns one workspace's assistant: its index, session, and tools.
type App struct {
	cfg       *config.Config
	root      string
	store     *vectorstore.Store
	indexer   *indexer.Indexer
	assembler *retrieval.Assembler
	session   *agent.Session
	editor    editor.Editor
	watcher   *watcher.Watcher

	// One scanner for all stdin reads; a second scanner would lose
	// lines already sitting in this one's buffer.
	stdin *bufio.Scanner
}

// New builds an App for the workspace at root. The persisted index is
// loaded if present; a corrupt or missing snapshot just leaves the
// store empty until the next `index` run.
func New(cfg *config.Config, root string) (*App, error) {
	stateDir := indexer.StateDir(root)
	if err := logging.EnableFileLogging(stateDir, logging.Level(cfg.Logging.Level)); err != nil {
		// logging to file is best-effort; stderr still works
		logging.Warn("file logging unavailable", "error", err)
	}

	embedder, err := embedding.NewProvider(embedding.Config{
		BaseURL: cfg.Provider.OllamaBaseURL,
		Model:   cfg.Provider.EmbedModel,
	})
	if err != nil {
		return nil, err
	}

	store := vectorstore.New()
	store.Load(filepath.Join(stateDir, indexer.IndexFileName))

	ix := indexer.New(embedder, store, indexer.Options{
		MaxDepth:    cfg.Index.MaxDepth,
		MaxFileSize: cfg.Index.MaxFileSize,
		ChunkSize:   cfg.Index.ChunkSize,
	})

	ed := editor.NewHeadless(root, os.Stderr)
	assembler := retrieval.NewAssembler(store, embedder, root, cfg.Index.TopK)

	shell, err := terminal.NewSession(root, cfg.Tools.CommandTimeout)
	if err != nil {
		return nil, err
	}

	dispatcher := tools.NewDispatcher()
	for _, tool := range []tools.Tool{
		tools.NewFileManager(ed),
		tools.NewTerminalTool(shell),
		tools.NewWebReader(cfg.Tools.FetchMaxBytes),
	} {
		if err := dispatcher.Register(tool); err != nil {
			return nil, err
		}
	}

	gw := gateway.New(cfg.Provider)
	history := chat.NewHistory(cfg.Agent.HistoryLimit)
	session := agent.NewSession(ed, assembler, gw, dispatcher, history)

	w, err := watcher.New(root, watcher.Config{})
	if err != nil {
		logging.Warn("file watching unavailable", "error", err)
		w = nil
	} else if err := w.Start(); err != nil {
		logging.Warn("file watching unavailable", "error", err)
		w = nil
	}

	stdin := bufio.NewScanner(os.Stdin)
	stdin.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	logging.Info("app ready", "root", root, "provider", gw.Provider(), "indexed", store.Len())
	return &App{
		cfg:       cfg,
		root:      root,
		store:     store,
		indexer:   ix,
		assembler: assembler,
		session:   session,
		editor:    ed,
		watcher:   w,
		stdin:     stdin,
	}, nil
}

// Index rebuilds the workspace index from scratch.
func (a *App) Index(ctx context.Context) (indexer.Stats, error) {
	stats, err := a.indexer.IndexWorkspace(ctx, a.root)
	if err != nil {
		// the caller must not proceed as if indexing succeeded
		a.editor.NotifyError("indexing failed: " + err.Error())
		return stats, err
	}
	// Hand the fresh summary to the assembler so later turns in this
	// process do not serve the pre-index copy.
	if s := a.indexer.Summary(); s != nil {
		a.assembler.SetSummary(s)
	}
	if a.watcher != nil {
		a.watcher.Reset()
	}
	return stats, nil
}

// Ask runs one turn and prints the outcome.
func (a *App) Ask(ctx context.Context, prompt string) error {
	a.warnIfStale()

	result, err := a.session.HandleRequest(ctx, prompt)
	if err != nil {
		return err
	}
	a.printResult(result)

	if result.RequiresUserInput {
		answers, ok := a.collectAnswers(result.Questions)
		if !ok {
			return nil
		}
		result, err = a.session.Resume(ctx, prompt, answers)
		if err != nil {
			return err
		}
		a.printResult(result)
	}
	return nil
}

// RunInteractive reads prompts from stdin until EOF.
func (a *App) RunInteractive(ctx context.Context) error {
	if a.store.IsEmpty() {
		fmt.Println("No index found. Run `koda index` for project-aware answers.")
	}

	for {
		fmt.Print("> ")
		if !a.stdin.Scan() {
			break
		}
		prompt := strings.TrimSpace(a.stdin.Text())
		if prompt == "" {
			continue
		}
		if prompt == "exit" || prompt == "quit" {
			break
		}
		if err := a.Ask(ctx, prompt); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return a.stdin.Err()
}

// Close releases the app's resources.
func (a *App) Close() {
	if a.watcher != nil {
		_ = a.watcher.Stop()
	}
	if err := a.session.History().Save(filepath.Join(indexer.StateDir(a.root), "sessions")); err != nil {
		logging.Debug("could not save session transcript", "error", err)
	}
	logging.Close()
}

func (a *App) warnIfStale() {
	if a.watcher != nil && a.watcher.Stale() {
		fmt.Println("(files changed since the last index; run `koda index` to refresh)")
	}
}

func (a *App) printResult(result agent.TurnResult) {
	if result.Narrative != "" {
		fmt.Println(result.Narrative)
	}
	for _, outcome := range result.Actions {
		if outcome.Err == nil && outcome.Output != "" {
			fmt.Println(outcome.Output)
		}
	}
}

// collectAnswers prompts for each model question on the shared stdin
// scanner.
func (a *App) collectAnswers(questions []gateway.Question) (map[string]string, bool) {
	answers := make(map[string]string, len(questions))
	for _, q := range questions {
		fmt.Printf("%s ", q.Text)
		if !a.stdin.Scan() {
			return nil, false
		}
		answers[q.ID] = strings.TrimSpace(a.stdin.Text())
	}
	return answers, true
}
