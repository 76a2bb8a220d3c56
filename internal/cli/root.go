package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/jitolabs/cbuild/internal"
	"github.com/jitolabs/cbuild/internal/paths"
	"github.com/jitolabs/cbuild/internal/project"
	"github.com/jitolabs/cbuild/internal/runtime"
)

// Root command of cbuild.
type rootCmd struct {
	Quiet    bool        `short:"q" help:"Suppress informational output."`
	Verbose  bool        `short:"v" help:"Enable verbose output."`
	Debug    bool        `short:"d" help:"Enable debug output."`
	Run      RunCmd      `cmd:"" default:"withargs" help:"Build the image and extract the output (default)."`
	Describe DescribeCmd `cmd:"" help:"Print the version descriptor of the repository."`
	Clean    CleanCmd    `cmd:"" help:"Remove the throwaway container."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Parsed command line of the running process.
var RootCmd rootCmd

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	parser, err := newParser(&RootCmd, kong.BindTo(ctx, (*context.Context)(nil)))
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	configureLogger()

	return kongCtx.Run()
}

// Builds the parser for cmd, reading configuration files and defaults.
func newParser(cmd *rootCmd, options ...kong.Option) (*kong.Kong, error) {
	opts := []kong.Option{
		kong.Name(internal.Name),
		kong.Description("Builds a container image tagged with the repository's version descriptor and extracts a directory from it.\n\nWith no command, runs the build."),
		kong.UsageOnError(),
		kong.Configuration(project.YAML, paths.ConfigFiles()...),
		kong.Vars{
			"version":              internal.VersionString(),
			"default_dir":          project.DefaultDir,
			"default_image":        project.DefaultImage,
			"default_dockerfile":   project.DefaultDockerfile,
			"default_context":      project.DefaultContext,
			"default_build_arg":    project.DefaultBuildArgName,
			"default_container":    project.DefaultContainer,
			"default_source":       project.DefaultSource,
			"default_output":       project.DefaultOutput,
			"engine_cli":           runtime.KindCLI,
			"engine_containerd":    runtime.KindContainerd,
			"containerd_address":   runtime.DefaultContainerdAddress,
			"containerd_namespace": runtime.DefaultContainerdNamespace,
		},
	}
	return kong.New(cmd, append(opts, options...)...)
}
