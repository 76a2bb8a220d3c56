package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/jitolabs/cbuild/internal/fault"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Sequence counter for exec process identifiers.
var execSeq uint64

// Returns a unique exec process identifier.
func nextExecID() string {
	return fmt.Sprintf("exec-%d", atomic.AddUint64(&execSeq, 1))
}

// Runs args inside the container's task and fails with [*ExitError] on a
// non-zero exit status. Standard output is written to stdout.
func (c *Container) mustExec(ctx context.Context, stdout io.Writer, args ...string) error {
	pspec, err := c.processSpec(ctx, args...)
	if err != nil {
		return fault.Wrap(ErrRuntime, err)
	}

	var stderr bytes.Buffer
	code, err := c.execProcess(ctx, pspec, stdout, &stderr)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{
			Command: c.id + ": " + strings.Join(args, " "),
			Code:    code,
			Stderr:  stderr.String(),
		}
	}
	return nil
}

// Derives an exec process spec from the container's own spec, replacing the
// arguments.
func (c *Container) processSpec(ctx context.Context, args ...string) (*specs.Process, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, err
	}

	spec, err := ctr.Spec(ctx)
	if err != nil {
		return nil, err
	}

	pspec := *spec.Process
	pspec.Terminal = false
	pspec.Args = args
	return &pspec, nil
}

// Starts pspec as an additional process in the container's task, waits for
// it to exit, and returns its exit code. A non-zero exit code is not an
// error here.
func (c *Container) execProcess(ctx context.Context, pspec *specs.Process, stdout, stderr io.Writer) (int, error) {
	task, err := c.loadTask(ctx)
	if err != nil {
		return 0, err
	}

	if stdout == nil {
		stdout = io.Discard
	}

	process, err := task.Exec(ctx, nextExecID(), pspec, cio.NewCreator(
		cio.WithStreams(nil, stdout, stderr),
	))
	if err != nil {
		return 0, fault.Wrap(ErrRuntime, err)
	}

	return awaitProcess(ctx, process)
}

// Loads the container's running task.
func (c *Container) loadTask(ctx context.Context) (containerd.Task, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, fault.Wrap(ErrRuntime, err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return nil, fault.Wrap(ErrRuntime, err)
	}

	return task, nil
}

// Starts an exec process, blocks until it exits, and returns the exit code.
// The process is always deleted before returning.
func awaitProcess(ctx context.Context, process containerd.Process) (int, error) {
	statusC, err := process.Wait(ctx)
	if err != nil {
		process.Delete(ctx)
		return 0, fault.Wrap(ErrRuntime, err)
	}

	if err := process.Start(ctx); err != nil {
		process.Delete(ctx)
		return 0, fault.Wrap(ErrRuntime, err)
	}

	var exitStatus containerd.ExitStatus
	select {
	case exitStatus = <-statusC:
	case <-ctx.Done():
		process.Delete(context.WithoutCancel(ctx), containerd.WithProcessKill)
		return 0, ctx.Err()
	}
	process.Delete(ctx)

	code, _, err := exitStatus.Result()
	if err != nil {
		return 0, fault.Wrap(ErrRuntime, err)
	}

	return int(code), nil
}
