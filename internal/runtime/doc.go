// Package runtime drives the container tooling behind a build.
//
// An [Engine] builds an image from a build definition, manages the
// throwaway container created from it, and streams paths out of the
// container's filesystem as tar archives. Two engines are provided:
//
//   - [CLIEngine] shells out to a docker-compatible CLI (docker or podman).
//     Every command is logged before it runs, and a failing command is
//     reported as an [*ExitError] carrying the tool's exit code.
//   - [ContainerdEngine] builds an OCI archive with "docker buildx", imports
//     it into containerd, and manages images and containers through the
//     containerd client. Paths are copied out by executing tar inside a task
//     that is started on demand, so the image must provide tar and sleep.
//
// Example usage:
//
//	eng, err := runtime.New(ctx, runtime.Config{Kind: runtime.KindCLI})
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	img, err := eng.Build(ctx, runtime.BuildOptions{
//	    Tag:        "example/app",
//	    Dockerfile: "Dockerfile",
//	    Context:    ".",
//	    Args:       []runtime.BuildArg{{Name: "ci_commit", Value: "v1.0.0"}},
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := eng.CreateContainer(ctx, "temp", img.Name); err != nil {
//	    return err
//	}
//	defer eng.RemoveContainer(ctx, "temp")
//
//	return eng.CopyFrom(ctx, "temp", "/app/out", w)
package runtime
