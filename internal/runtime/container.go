package runtime

import (
	"context"
	"log/slog"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	"github.com/jitolabs/cbuild/internal/fault"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// A throwaway container backed by containerd.
type Container struct {
	client      *containerd.Client // Containerd client for managing the container.
	id          string             // Containerd container ID.
	platform    string             // OCI platform (e.g., "linux/amd64").
	snapshotter string             // Snapshotter holding the container filesystem.
}

// Removes the container and its snapshot.
//
// Any running task is killed first. Fails with [ErrNoSuchContainer] when the
// container does not exist.
func (c *Container) Remove(ctx context.Context) error {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return fault.Wrapf(ErrNoSuchContainer, "%s", c.id)
		}
		return fault.Wrap(ErrRuntime, err)
	}

	if task, err := ctr.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		if _, err := task.Delete(ctx, containerd.WithProcessKill); err != nil && !errdefs.IsNotFound(err) {
			return fault.Wrap(ErrRuntime, err)
		}
	}

	if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
		return fault.Wrap(ErrRuntime, err)
	}

	slog.Debug("container removed", "id", c.id)
	return nil
}

// Creates the containerd container with a fresh snapshot of image.
//
// The container process idles so that a task started later can host exec
// processes.
func (c *Container) create(ctx context.Context, image containerd.Image) (containerd.Container, error) {
	return c.client.NewContainer(ctx, c.id,
		containerd.WithImage(image),
		containerd.WithSnapshotter(c.snapshotter),
		containerd.WithNewSnapshot(c.id, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithNewSpec(
			oci.WithDefaultSpecForPlatform(c.platform),
			oci.WithImageConfig(image),
			oci.WithHostNamespace(specs.NetworkNamespace),
			oci.WithProcessArgs("sleep", "infinity"),
		),
	)
}

// Starts the container's idle task unless one is already running.
func (c *Container) ensureTask(ctx context.Context) error {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return fault.Wrapf(ErrNoSuchContainer, "%s", c.id)
		}
		return fault.Wrap(ErrRuntime, err)
	}

	if _, err := ctr.Task(ctx, nil); err == nil {
		return nil
	} else if !errdefs.IsNotFound(err) {
		return fault.Wrap(ErrRuntime, err)
	}

	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err != nil {
		return fault.Wrap(ErrRuntime, err)
	}
	if err := task.Start(ctx); err != nil {
		task.Delete(ctx)
		return fault.Wrap(ErrRuntime, err)
	}

	slog.Debug("container task started", "id", c.id, "pid", task.Pid())
	return nil
}
