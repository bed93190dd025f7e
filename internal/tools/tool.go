// Package tools executes model-issued actions. Each tool exposes a
// closed set of named commands taking positional parameters; the
// Dispatcher validates command sets at registration time and routes
// actions to them.
package tools

import (
	"context"
	"fmt"

	"koda/internal/gateway"
)

// Tool is one capability group the model can act through.
type Tool interface {
	// Name is the identifier used in tool actions.
	Name() string
	// Commands describes every invocable command, in catalogue order.
	Commands() []gateway.CommandSpec
	// Execute runs the named command with positional parameters.
	Execute(ctx context.Context, command string, params []any) (Result, error)
}

// Result is the outcome of a command, fed back to the model or shown
// to the user.
type Result struct {
	Content string
}

// stringParam extracts the positional parameter at index i as a
// string. Models occasionally send numbers where text is expected, so
// scalar values are stringified rather than rejected.
func stringParam(params []any, i int, name string) (string, error) {
	if i >= len(params) {
		return "", fmt.Errorf("missing parameter %q (position %d)", name, i+1)
	}
	switch v := params[i].(type) {
	case string:
		return v, nil
	case float64, int, int64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("parameter %q (position %d) must be a string", name, i+1)
	}
}
