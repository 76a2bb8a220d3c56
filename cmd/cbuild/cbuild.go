package main

import (
	"log/slog"
	"os"

	"github.com/jitolabs/cbuild/internal"
	"github.com/jitolabs/cbuild/internal/cli"
	"github.com/jitolabs/cbuild/internal/pipeline"
)

// The entry point for cbuild.
//
// Initializes logging, displays startup information, and executes the root
// command. A failing run exits with the status of the failing external
// command when there is one, and 1 otherwise.
func main() {
	slog.SetDefault(logger())

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("cbuild is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(pipeline.ExitCode(err))
	}
}

// Creates a logger seeded from build-time linker flags.
//
// The logger is reconfigured after flag parsing via cli.Execute.
func logger() *slog.Logger {
	return cli.NewLogger(os.Stderr, cli.Level(internal.IsDebug(), internal.IsQuiet()), internal.IsVerbose())
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
