package runtime

import (
	"context"
	"io"
	"os/exec"
	goruntime "runtime"

	"github.com/jitolabs/cbuild/internal/fault"
	"github.com/opencontainers/go-digest"
)

const (

	// Engine driving a docker-compatible CLI.
	KindCLI = "cli"

	// Engine talking to containerd directly.
	KindContainerd = "containerd"

	// Default containerd socket address.
	DefaultContainerdAddress = "/run/containerd/containerd.sock"

	// Default containerd namespace for images and containers.
	DefaultContainerdNamespace = "cbuild"

	// Default snapshotter for container filesystems.
	DefaultSnapshotter = "overlayfs"
)

// CLIs probed, in order, when none is configured.
var knownCLIs = []string{"docker", "podman"}

// Container operations needed to build an image and extract files from it.
type Engine interface {

	// Builds and tags an image.
	Build(ctx context.Context, opts BuildOptions) (Image, error)

	// Removes a container. Fails if the container does not exist.
	RemoveContainer(ctx context.Context, name string) error

	// Creates a container from an image without starting it.
	CreateContainer(ctx context.Context, name, image string) error

	// Writes a tar stream of path inside the container to w. The archive
	// entries are rooted at the base name of path.
	CopyFrom(ctx context.Context, name, path string, w io.Writer) error

	// Removes an image.
	RemoveImage(ctx context.Context, image string) error

	// Writes the image as a tar archive to w.
	SaveImage(ctx context.Context, image string, w io.Writer) error

	// Releases resources held by the engine.
	Close() error
}

// A single --build-arg.
type BuildArg struct {
	Name  string
	Value string
}

// Parameters of an image build.
type BuildOptions struct {
	Tag        string     // Image reference to tag the result with.
	Dockerfile string     // Build definition file.
	Context    string     // Build context directory.
	Dir        string     // Working directory of the builder. Empty uses the current one.
	Args       []BuildArg // Build arguments, passed in order.
	Platform   string     // Target platform. Empty uses the builder's default.
	Progress   io.Writer  // Receives builder output. Nil discards it.
}

// A built image.
type Image struct {
	Name   string        // Reference the image is tagged with.
	Digest digest.Digest // Image ID or manifest digest. Empty when unknown.
}

// Selects and configures an engine.
type Config struct {
	Kind                string // KindCLI or KindContainerd. Empty means KindCLI.
	CLI                 string // Builder CLI. Empty probes docker, then podman.
	ContainerdAddress   string // Empty uses [DefaultContainerdAddress].
	ContainerdNamespace string // Empty uses [DefaultContainerdNamespace].
	Snapshotter         string // Empty uses [DefaultSnapshotter].
	Platform            string // Empty uses the host platform.
	RunID               string // Names intermediate files of this run.
	Runner              Runner // Executes CLI commands. Nil uses [ExecRunner].
}

// Creates the engine selected by cfg.
func New(ctx context.Context, cfg Config) (Engine, error) {
	runner := cfg.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	bin := cfg.CLI
	if bin == "" {
		detected, err := DetectCLI()
		if err != nil {
			return nil, err
		}
		bin = detected
	}

	switch cfg.Kind {
	case "", KindCLI:
		return NewCLIEngine(bin, runner), nil
	case KindContainerd:
		return NewContainerdEngine(ctx, ContainerdConfig{
			Address:     cfg.ContainerdAddress,
			Namespace:   cfg.ContainerdNamespace,
			Snapshotter: cfg.Snapshotter,
			Platform:    cfg.Platform,
			RunID:       cfg.RunID,
			Builder:     bin,
			Runner:      runner,
		})
	default:
		return nil, fault.Wrapf(ErrUnknownEngine, "%q", cfg.Kind)
	}
}

// Returns the first docker-compatible CLI found on PATH.
func DetectCLI() (string, error) {
	for _, name := range knownCLIs {
		if _, err := exec.LookPath(name); err == nil {
			return name, nil
		}
	}
	return "", fault.Wrapf(ErrToolNotFound, "none of %v found on PATH", knownCLIs)
}

// Returns the OCI platform of the host, always for Linux.
func defaultPlatform() string {
	return "linux/" + goruntime.GOARCH
}
