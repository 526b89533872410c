package test

import (
	"context"
	"sync"

	"github.com/outofforest/kronos/pkg/tool"
)

// HandlerFn simulates the tool.
type HandlerFn func(cmd tool.Command) error

// NewExecutor creates fake executor.
func NewExecutor() *Executor {
	return &Executor{
		handlers: map[string]HandlerFn{},
	}
}

// Executor records commands instead of running them.
type Executor struct {
	mu       sync.Mutex
	handlers map[string]HandlerFn
	commands []tool.Command
}

// Handle registers handler executed for every command with the given tool name.
func (e *Executor) Handle(name string, handler HandlerFn) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers[name] = handler
}

// Fail makes every invocation of the tool exit with the code.
func (e *Executor) Fail(name string, code int) {
	e.Handle(name, func(cmd tool.Command) error {
		return &tool.ExitError{Command: cmd, Code: code}
	})
}

// Run records the command and calls its handler.
func (e *Executor) Run(_ context.Context, cmd tool.Command) error {
	e.mu.Lock()
	e.commands = append(e.commands, cmd)
	handler := e.handlers[cmd.Name]
	e.mu.Unlock()

	if handler == nil {
		return nil
	}
	return handler(cmd)
}

// Commands returns recorded commands.
func (e *Executor) Commands() []tool.Command {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]tool.Command{}, e.commands...)
}

// Names returns names of recorded commands in invocation order.
func (e *Executor) Names() []string {
	commands := e.Commands()
	names := make([]string, 0, len(commands))
	for _, c := range commands {
		names = append(names, c.Name)
	}
	return names
}
