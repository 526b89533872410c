package tool

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/outofforest/libexec"
	"github.com/outofforest/logger"
)

// Command describes single invocation of external tool.
type Command struct {
	// Name is the executable to run, looked up in PATH.
	Name string
	Args []string

	// Env holds extra NAME=value entries passed to this process only.
	Env []string
	Dir string

	Stdin  io.Reader
	Stdout io.Writer

	// Silent disables the trace of the invocation.
	Silent bool
}

// String returns the command line.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Executor runs commands to completion.
type Executor interface {
	Run(ctx context.Context, cmd Command) error
}

// ExitError is returned when the tool exits with non-zero status.
type ExitError struct {
	Command Command
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q failed with exit code %d", e.Command.Name, e.Code)
}

// New returns executor running commands as subprocesses of the current process.
func New() *Exec {
	return &Exec{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Exec executes commands using libexec.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run runs the command and waits until it exits.
func (e *Exec) Run(ctx context.Context, cmd Command) error {
	log := logger.Get(ctx)
	if !cmd.Silent {
		log.Info("* " + cmd.String())
	}

	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdin = cmd.Stdin
	c.Stdout = e.Stdout
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}
	c.Stderr = e.Stderr

	err := libexec.Exec(ctx, c)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return errors.WithStack(ctx.Err())
	}

	// libexec does not expose the wrapped exit error, process state is still available.
	code := -1
	if c.ProcessState != nil {
		code = c.ProcessState.ExitCode()
	}

	log.Error("Command failed", zap.String("command", cmd.Name), zap.Int("exitCode", code))
	return errors.WithStack(&ExitError{Command: cmd, Code: code})
}
