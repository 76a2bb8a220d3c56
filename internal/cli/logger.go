package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/jitolabs/cbuild/internal"
)

// Configures the global logger based on CLI flags.
func configureLogger() {
	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()
	verbose := RootCmd.Verbose || internal.IsVerbose()

	internal.SetDebug(debug)
	internal.SetQuiet(quiet)
	internal.SetVerbose(verbose)

	slog.SetDefault(NewLogger(os.Stderr, Level(debug, quiet), verbose))
}

// Creates a logger writing to w.
//
// Terminals get the text handler, anything else JSON lines. Verbose loggers
// annotate records with their source location.
func NewLogger(w io.Writer, level slog.Level, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	}

	var handler slog.Handler
	if isTerminal(w) {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("app", internal.Name)
}

// Returns the log level for the given modes. Debug wins over quiet.
func Level(debug, quiet bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	if quiet {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// Whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
