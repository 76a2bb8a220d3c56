package runtime

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/jitolabs/cbuild/internal/fault"
	"github.com/opencontainers/go-digest"
)

// Drives a docker-compatible CLI.
type CLIEngine struct {
	bin    string // Executable, e.g. "docker" or "podman".
	runner Runner // Executes the commands.
}

// Creates an engine invoking bin through runner.
func NewCLIEngine(bin string, runner Runner) *CLIEngine {
	return &CLIEngine{bin: bin, runner: runner}
}

// Runs "<bin> build" and looks up the resulting image ID.
func (e *CLIEngine) Build(ctx context.Context, opts BuildOptions) (Image, error) {
	err := e.runner.Run(ctx, Command{
		Name:   e.bin,
		Args:   buildArgs(opts),
		Dir:    opts.Dir,
		Stdout: opts.Progress,
		Stderr: opts.Progress,
	})
	if err != nil {
		return Image{}, err
	}

	img := Image{Name: opts.Tag}
	id, err := e.imageID(ctx, opts.Tag, opts.Dir)
	if err != nil {
		slog.Debug("image id unavailable", "image", opts.Tag, "error", err)
		return img, nil
	}
	img.Digest = id
	return img, nil
}

// Returns the arguments of the build command, without the executable.
func buildArgs(opts BuildOptions) []string {
	args := []string{"build"}
	for _, a := range opts.Args {
		args = append(args, "--build-arg", a.Name+"="+a.Value)
	}
	if opts.Platform != "" {
		args = append(args, "--platform", opts.Platform)
	}
	return append(args, "-t", opts.Tag, "-f", opts.Dockerfile, opts.Context)
}

// Reads the ID of a local image. Podman prints bare hex IDs, which are
// qualified as sha256 digests.
func (e *CLIEngine) imageID(ctx context.Context, image, dir string) (digest.Digest, error) {
	var out bytes.Buffer
	err := e.runner.Run(ctx, Command{
		Name:   e.bin,
		Args:   []string{"image", "inspect", "--format", "{{.Id}}", image},
		Dir:    dir,
		Stdout: &out,
	})
	if err != nil {
		return "", err
	}

	id := strings.TrimSpace(out.String())
	if !strings.Contains(id, ":") {
		id = string(digest.SHA256) + ":" + id
	}

	d, err := digest.Parse(id)
	if err != nil {
		return "", fault.Wrap(ErrRuntime, err)
	}
	return d, nil
}

// Runs "<bin> rm <name>".
func (e *CLIEngine) RemoveContainer(ctx context.Context, name string) error {
	return e.run(ctx, nil, "rm", name)
}

// Runs "<bin> create --name <name> <image>".
func (e *CLIEngine) CreateContainer(ctx context.Context, name, image string) error {
	return e.run(ctx, nil, "create", "--name", name, image)
}

// Runs "<bin> cp <name>:<path> -", which writes a tar stream to stdout.
func (e *CLIEngine) CopyFrom(ctx context.Context, name, path string, w io.Writer) error {
	return e.run(ctx, w, "cp", name+":"+path, "-")
}

// Runs "<bin> rmi <image>".
func (e *CLIEngine) RemoveImage(ctx context.Context, image string) error {
	return e.run(ctx, nil, "rmi", image)
}

// Runs "<bin> save <image>".
func (e *CLIEngine) SaveImage(ctx context.Context, image string, w io.Writer) error {
	return e.run(ctx, w, "save", image)
}

// Nothing to release.
func (e *CLIEngine) Close() error {
	return nil
}

func (e *CLIEngine) run(ctx context.Context, stdout io.Writer, args ...string) error {
	return e.runner.Run(ctx, Command{Name: e.bin, Args: args, Stdout: stdout})
}
