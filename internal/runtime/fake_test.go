package runtime

import (
	"context"
	"io"
	"strings"
)

// Records commands and replies with canned output or errors.
type fakeRunner struct {
	commands []Command
	stdout   map[string]string // Keyed by the first argument.
	errs     map[string]error  // Keyed by the first argument.
}

func (f *fakeRunner) Run(ctx context.Context, cmd Command) error {
	f.commands = append(f.commands, cmd)
	key := ""
	if len(cmd.Args) > 0 {
		key = cmd.Args[0]
	}
	if out, ok := f.stdout[key]; ok && cmd.Stdout != nil {
		io.Copy(cmd.Stdout, strings.NewReader(out))
	}
	return f.errs[key]
}
