package tools

import (
	"context"

	"koda/internal/gateway"
	"koda/internal/terminal"
)

// TerminalName is the registry name for shell execution.
const TerminalName = "Terminal"

// TerminalTool runs shell commands in a persistent session.
type TerminalTool struct {
	session *terminal.Session
}

// NewTerminalTool wraps an existing terminal session.
func NewTerminalTool(session *terminal.Session) *TerminalTool {
	return &TerminalTool{session: session}
}

func (t *TerminalTool) Name() string { return TerminalName }

func (t *TerminalTool) Commands() []gateway.CommandSpec {
	return []gateway.CommandSpec{
		{Name: "runCommand", Signature: "(command)", Description: "run a shell command in the project directory"},
	}
}

func (t *TerminalTool) Execute(ctx context.Context, command string, params []any) (Result, error) {
	cmd, err := stringParam(params, 0, "command")
	if err != nil {
		return Result{}, err
	}

	output, err := t.session.Run(ctx, cmd)
	if err != nil {
		// partial output still helps the model diagnose the failure
		return Result{Content: output}, err
	}
	if output == "" {
		output = "(no output)"
	}
	return Result{Content: output}, nil
}
