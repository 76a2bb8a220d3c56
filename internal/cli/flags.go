package cli

import (
	"context"

	"github.com/jitolabs/cbuild/internal/project"
	"github.com/jitolabs/cbuild/internal/runtime"
)

// Flags naming the project literals.
type ProjectFlags struct {
	Dir          string   `default:"${default_dir}" env:"CBUILD_DIR" help:"Project directory. Relative paths resolve against it." placeholder:"DIR"`
	Image        string   `default:"${default_image}" env:"CBUILD_IMAGE" help:"Image tag." placeholder:"REF"`
	Dockerfile   string   `default:"${default_dockerfile}" env:"CBUILD_DOCKERFILE" help:"Build definition file." placeholder:"FILE"`
	Context      string   `default:"${default_context}" env:"CBUILD_CONTEXT" help:"Build context directory." placeholder:"DIR"`
	BuildArgName string   `name:"build-arg-name" default:"${default_build_arg}" env:"CBUILD_BUILD_ARG_NAME" help:"Build argument carrying the version descriptor." placeholder:"NAME"`
	BuildArg     []string `name:"build-arg" sep:"none" help:"Extra build argument (repeatable)." placeholder:"KEY=VALUE"`
	BuildArgFile string   `name:"build-arg-file" env:"CBUILD_BUILD_ARG_FILE" help:"Dotenv file of extra build arguments." placeholder:"FILE"`
	Container    string   `default:"${default_container}" env:"CBUILD_CONTAINER" help:"Throwaway container name." placeholder:"NAME"`
	Source       string   `default:"${default_source}" env:"CBUILD_SOURCE" help:"Directory inside the image to extract." placeholder:"PATH"`
	Output       string   `default:"${default_output}" env:"CBUILD_OUTPUT" help:"Local output directory." placeholder:"DIR"`
}

// Returns the project described by the flags.
func (f ProjectFlags) project() project.Project {
	return project.Project{
		Dir:          f.Dir,
		Image:        f.Image,
		Dockerfile:   f.Dockerfile,
		Context:      f.Context,
		BuildArgName: f.BuildArgName,
		BuildArgs:    f.BuildArg,
		BuildArgFile: f.BuildArgFile,
		Container:    f.Container,
		Source:       f.Source,
		Output:       f.Output,
	}
}

// Flags selecting the container engine.
type EngineFlags struct {
	Engine              string `enum:"${engine_cli},${engine_containerd}" default:"${engine_cli}" env:"CBUILD_ENGINE" help:"Container engine (${enum})."`
	CLI                 string `name:"cli" default:"docker" env:"CBUILD_CLI" help:"Docker-compatible CLI. Empty probes docker, then podman." placeholder:"BIN"`
	ContainerdAddress   string `default:"${containerd_address}" env:"CBUILD_CONTAINERD_ADDRESS" help:"Containerd socket." placeholder:"PATH"`
	ContainerdNamespace string `default:"${containerd_namespace}" env:"CBUILD_CONTAINERD_NAMESPACE" help:"Containerd namespace." placeholder:"NAME"`
	Platform            string `env:"CBUILD_PLATFORM" help:"Target platform, e.g. linux/amd64." placeholder:"OS/ARCH"`
}

func (f EngineFlags) config(runID string) runtime.Config {
	return runtime.Config{
		Kind:                f.Engine,
		CLI:                 f.CLI,
		ContainerdAddress:   f.ContainerdAddress,
		ContainerdNamespace: f.ContainerdNamespace,
		Platform:            f.Platform,
		RunID:               runID,
	}
}

// Creates the engine selected by the flags.
func (f EngineFlags) engine(ctx context.Context, runID string) (runtime.Engine, error) {
	return runtime.New(ctx, f.config(runID))
}
