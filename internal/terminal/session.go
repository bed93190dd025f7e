// Package terminal runs model-issued shell commands in a persistent
// session: working directory and exported variables carry over between
// commands, so sequential commands behave like one shell.
package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"koda/internal/errs"
	"koda/internal/logging"
)

// DefaultTimeout bounds a single command when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// maxOutputLen caps captured command output.
const maxOutputLen = 30000

var (
	// ErrEmptyCommand is returned for blank command text.
	ErrEmptyCommand = errors.New("empty command")
	// ErrBusy is returned when a command is already running in the session.
	ErrBusy = errors.New("a command is already running")
)

// Session is a persistent shell session. One command runs at a time.
type Session struct {
	mu      sync.Mutex
	workDir string
	env     map[string]string
	timeout time.Duration
	running bool
}

// NewSession creates a session rooted at workDir.
func NewSession(workDir string, timeout time.Duration) (*Session, error) {
	info, err := os.Stat(workDir)
	if err != nil {
		return nil, errs.Terminal("cannot create terminal session", err)
	}
	if !info.IsDir() {
		return nil, errs.Terminal("cannot create terminal session", fmt.Errorf("%s is not a directory", workDir))
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		workDir: workDir,
		env:     make(map[string]string),
		timeout: timeout,
	}, nil
}

// WorkDir returns the session's current working directory.
func (s *Session) WorkDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workDir
}

// Run adapts and executes one command, returning combined output.
// Exported variables and directory changes persist into later calls.
func (s *Session) Run(ctx context.Context, command string) (string, error) {
	command = Adapt(command)
	if strings.TrimSpace(command) == "" {
		return "", errs.Terminal("cannot run command", ErrEmptyCommand)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return "", errs.Terminal("cannot run command", ErrBusy)
	}
	s.running = true
	workDir := s.workDir
	env := s.envSlice()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	// export statements mutate the session instead of spawning a shell
	if key, val, ok := parseExport(command); ok {
		s.mu.Lock()
		s.env[key] = val
		s.mu.Unlock()
		return "", nil
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, shellName(), shellFlag(), command)
	cmd.Dir = workDir
	cmd.Env = env

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	output := truncateOutput(out.String())

	if execCtx.Err() == context.DeadlineExceeded {
		return output, errs.Terminal("command timed out", fmt.Errorf("after %v: %s", s.timeout, command))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, errs.Terminal("command failed", fmt.Errorf("exit code %d", exitErr.ExitCode()))
		}
		return output, errs.Terminal("command failed", err)
	}

	s.trackWorkDir(command)
	logging.Debug("command completed", "command", command, "output_len", len(output))
	return output, nil
}

// envSlice merges the process environment with session exports.
// Caller holds the lock.
func (s *Session) envSlice() []string {
	env := os.Environ()
	for key, val := range s.env {
		env = append(env, key+"="+val)
	}
	return env
}

// trackWorkDir follows simple cd commands so the next command runs in
// the directory the model expects. Compound commands are left alone.
func (s *Session) trackWorkDir(command string) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "cd" || trimmed == "cd ~" {
		if home, err := os.UserHomeDir(); err == nil {
			s.mu.Lock()
			s.workDir = home
			s.mu.Unlock()
		}
		return
	}
	if !strings.HasPrefix(trimmed, "cd ") {
		return
	}

	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "cd "))
	for _, sep := range []string{"&&", "||", ";", "|"} {
		if strings.Contains(rest, sep) {
			return
		}
	}
	rest = strings.Trim(rest, `"'`)
	if strings.HasPrefix(rest, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			rest = home + rest[1:]
		}
	}
	if rest == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	target := rest
	if !filepath.IsAbs(target) {
		target = filepath.Join(s.workDir, target)
	}
	target = filepath.Clean(target)
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		s.workDir = target
	}
}

// parseExport recognizes a lone environment assignment, in the unix
// `export KEY=VALUE` form or the `set KEY=VALUE` form Adapt produces on
// Windows. Both must mutate the session env; a `set` child process
// would discard the assignment.
func parseExport(command string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(command)
	assignment, found := cutPrefixFold(trimmed, "export ")
	if !found {
		assignment, found = cutPrefixFold(trimmed, "set ")
	}
	if !found {
		return "", "", false
	}
	assignment = strings.TrimSpace(assignment)
	eq := strings.Index(assignment, "=")
	if eq <= 0 {
		return "", "", false
	}
	key = assignment[:eq]
	if strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	value = strings.Trim(assignment[eq+1:], `"'`)
	return key, value, true
}

func truncateOutput(out string) string {
	if len(out) <= maxOutputLen {
		return out
	}
	return out[:maxOutputLen] + fmt.Sprintf("\n... (output truncated: showing %d of %d characters)", maxOutputLen, len(out))
}
