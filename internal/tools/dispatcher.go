package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"koda/internal/errs"
	"koda/internal/gateway"
	"koda/internal/logging"
)

// Dispatcher is the registry of tools and the single entry point for
// executing model-issued actions.
type Dispatcher struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	commands map[string]map[string]bool
	order    []string
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		tools:    make(map[string]Tool),
		commands: make(map[string]map[string]bool),
	}
}

// Register adds a tool. The tool's command set is validated here, not
// at call time: a tool with no name, no commands, or duplicate command
// names is rejected.
func (d *Dispatcher) Register(tool Tool) error {
	name := tool.Name()
	if name == "" {
		return errs.New(errs.KindConfiguration, "tool has no name")
	}

	specs := tool.Commands()
	if len(specs) == 0 {
		return errs.New(errs.KindConfiguration, fmt.Sprintf("tool %s declares no commands", name))
	}
	commands := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return errs.New(errs.KindConfiguration, fmt.Sprintf("tool %s declares an unnamed command", name))
		}
		if commands[spec.Name] {
			return errs.New(errs.KindConfiguration, fmt.Sprintf("tool %s declares command %s twice", name, spec.Name))
		}
		commands[spec.Name] = true
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.tools[name]; exists {
		return errs.New(errs.KindConfiguration, fmt.Sprintf("tool already registered: %s", name))
	}
	d.tools[name] = tool
	d.commands[name] = commands
	d.order = append(d.order, name)
	return nil
}

// Catalogue returns the registered tools' specs in registration order,
// for the prompt's tool listing.
func (d *Dispatcher) Catalogue() []gateway.ToolSpec {
	d.mu.RLock()
	defer d.mu.RUnlock()

	specs := make([]gateway.ToolSpec, 0, len(d.order))
	for _, name := range d.order {
		specs = append(specs, gateway.ToolSpec{
			Name:     name,
			Commands: d.tools[name].Commands(),
		})
	}
	return specs
}

// Execute runs one action. Unknown tools and commands produce errors
// naming what is available; command failures are returned with the
// originating tool and command identified. The dispatcher never
// retries.
func (d *Dispatcher) Execute(ctx context.Context, action gateway.ToolAction) (Result, error) {
	d.mu.RLock()
	tool, ok := d.tools[action.Tool]
	commands := d.commands[action.Tool]
	d.mu.RUnlock()

	if !ok {
		return Result{}, errs.New(errs.KindUnknown,
			fmt.Sprintf("unknown tool %q (available: %s)", action.Tool, strings.Join(d.toolNames(), ", ")))
	}
	if !commands[action.Command] {
		return Result{}, errs.New(errs.KindUnknown,
			fmt.Sprintf("tool %s has no command %q (available: %s)", action.Tool, action.Command, strings.Join(commandNames(tool), ", ")))
	}

	logging.Debug("dispatching action", "tool", action.Tool, "command", action.Command, "params", len(action.Params))
	result, err := tool.Execute(ctx, action.Command, action.Params)
	if err != nil {
		return result, fmt.Errorf("%s.%s: %w", action.Tool, action.Command, err)
	}
	return result, nil
}

func (d *Dispatcher) toolNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, len(d.order))
	copy(names, d.order)
	sort.Strings(names)
	return names
}

func commandNames(tool Tool) []string {
	specs := tool.Commands()
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}
	return names
}
