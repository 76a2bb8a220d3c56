package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"

	"github.com/jitolabs/cbuild/internal/fault"
)

// Bytes of stderr kept for error messages.
const stderrTail = 4096

// An external command invocation.
type Command struct {
	Name   string    // Executable looked up on PATH.
	Args   []string  // Arguments, without the executable.
	Dir    string    // Working directory. Empty uses the current one.
	Stdout io.Writer // Nil discards output.
	Stderr io.Writer // Nil discards output. Stderr is also captured for errors.
}

// Renders the command the way a shell trace would.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'$") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// A command that ran and exited with a non-zero status.
type ExitError struct {
	Command string // Rendered command line.
	Code    int    // Exit status.
	Stderr  string // Tail of the command's standard error.
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Runs commands as child processes.
type ExecRunner struct{}

// Runs cmd and waits for it to exit.
//
// The command line is logged before it starts. A missing executable fails
// with [ErrToolNotFound]; a non-zero exit status fails with [*ExitError],
// as does death by signal, reported as 128 plus the signal number.
func (ExecRunner) Run(ctx context.Context, cmd Command) error {
	slog.Info("exec", "command", cmd.String())

	tail := &tailBuffer{max: stderrTail}
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = cmd.Stdout
	c.Stderr = tail
	if cmd.Stderr != nil {
		c.Stderr = io.MultiWriter(cmd.Stderr, tail)
	}

	err := c.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return fault.Wrapf(ErrToolNotFound, "%s", cmd.Name)
	case errors.As(err, &exitErr):
		if code, ok := exitStatus(exitErr); ok {
			return &ExitError{Command: cmd.String(), Code: code, Stderr: tail.String()}
		}
		return fault.Wrapf(ErrRuntime, "%s: %w", cmd.Name, err)
	default:
		return fault.Wrapf(ErrRuntime, "%s: %w", cmd.Name, err)
	}
}

// Returns the status a shell would report for the exited process: the exit
// code, or 128 plus the signal number for a process killed by a signal.
func exitStatus(err *exec.ExitError) (int, bool) {
	if code := err.ExitCode(); code > 0 {
		return code, true
	}
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), true
	}
	return 0, false
}

// Keeps the last max bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) > t.max {
		p = p[len(p)-t.max:]
	}
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
