package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koda/internal/errs"
	"koda/internal/gateway"
)

type stubTool struct {
	name     string
	commands []gateway.CommandSpec
	execErr  error
	lastCmd  string
}

func (s *stubTool) Name() string                    { return s.name }
func (s *stubTool) Commands() []gateway.CommandSpec { return s.commands }
func (s *stubTool) Execute(_ context.Context, command string, _ []any) (Result, error) {
	s.lastCmd = command
	if s.execErr != nil {
		return Result{}, s.execErr
	}
	return Result{Content: "ok:" + command}, nil
}

func echoSpec(names ...string) []gateway.CommandSpec {
	specs := make([]gateway.CommandSpec, len(names))
	for i, n := range names {
		specs[i] = gateway.CommandSpec{Name: n, Signature: "()"}
	}
	return specs
}

func TestRegisterRejectsInvalidTools(t *testing.T) {
	d := NewDispatcher()

	assert.Error(t, d.Register(&stubTool{name: ""}))
	assert.Error(t, d.Register(&stubTool{name: "Empty"}))
	assert.Error(t, d.Register(&stubTool{name: "Dup", commands: echoSpec("a", "a")}))
	assert.Error(t, d.Register(&stubTool{name: "Unnamed", commands: echoSpec("")}))

	require.NoError(t, d.Register(&stubTool{name: "Good", commands: echoSpec("run")}))
	assert.Error(t, d.Register(&stubTool{name: "Good", commands: echoSpec("run")}), "duplicate registration")
}

func TestExecuteUnknownToolNamesAvailable(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register(&stubTool{name: "FileManager", commands: echoSpec("readFile")}))
	require.NoError(t, d.Register(&stubTool{name: "Terminal", commands: echoSpec("runCommand")}))

	_, err := d.Execute(t.Context(), gateway.ToolAction{Tool: "Mailer", Command: "send"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown tool "Mailer"`)
	assert.Contains(t, err.Error(), "FileManager")
	assert.Contains(t, err.Error(), "Terminal")
}

func TestExecuteUnknownCommandNamesCommands(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register(&stubTool{name: "Terminal", commands: echoSpec("runCommand")}))

	_, err := d.Execute(t.Context(), gateway.ToolAction{Tool: "Terminal", Command: "reboot"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no command "reboot"`)
	assert.Contains(t, err.Error(), "runCommand")
}

func TestExecuteRoutesToCommand(t *testing.T) {
	tool := &stubTool{name: "Terminal", commands: echoSpec("runCommand")}
	d := NewDispatcher()
	require.NoError(t, d.Register(tool))

	res, err := d.Execute(t.Context(), gateway.ToolAction{Tool: "Terminal", Command: "runCommand"})
	require.NoError(t, err)
	assert.Equal(t, "ok:runCommand", res.Content)
	assert.Equal(t, "runCommand", tool.lastCmd)
}

func TestExecuteWrapsFailureWithOrigin(t *testing.T) {
	cause := errs.Storage("cannot read missing.txt", errors.New("no such file"))
	d := NewDispatcher()
	require.NoError(t, d.Register(&stubTool{name: "FileManager", commands: echoSpec("readFile"), execErr: cause}))

	_, err := d.Execute(t.Context(), gateway.ToolAction{Tool: "FileManager", Command: "readFile", Params: []any{"missing.txt"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FileManager.readFile")
	assert.Equal(t, errs.KindStorage, errs.KindOf(err))
}

func TestCataloguePreservesRegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register(&stubTool{name: "FileManager", commands: echoSpec("readFile")}))
	require.NoError(t, d.Register(&stubTool{name: "Terminal", commands: echoSpec("runCommand")}))

	cat := d.Catalogue()
	require.Len(t, cat, 2)
	assert.Equal(t, "FileManager", cat[0].Name)
	assert.Equal(t, "Terminal", cat[1].Name)
}
