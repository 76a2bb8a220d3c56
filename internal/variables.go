package internal

import (
	"fmt"
	"runtime"
	"strings"
)

// Name of the executable, used for log groups and XDG subdirectories.
const Name = "cbuild"

const (

	// Placeholder for a link-time variable that was never set.
	undefined = "(undefined)"

	// Reported instead of the version string when built outside the pipeline.
	localBuild = "(local)"

	// Stage omitted from version strings.
	mainBranch = "main"
)

// Set via -ldflags "-X github.com/jitolabs/cbuild/internal.<name>=<value>".
var (
	version   = "" // Release version, e.g. "v1.4.0".
	stage     = "" // Branch the binary was built from.
	gitCommit = "" // Commit the binary was built from.

	rawQuiet   = "false" // Default for -q.
	rawDebug   = "false" // Default for -d.
	rawVerbose = "false" // Default for -v.
)

// Returns the release version without a leading "v".
func Version() string {
	v := strings.ToLower(strings.TrimSpace(version))
	if v == "" {
		return undefined
	}
	return strings.TrimPrefix(v, "v")
}

// Returns the branch the binary was built from.
func Stage() string {
	s := strings.ToLower(strings.TrimSpace(stage))
	if s == "" {
		return undefined
	}
	return s
}

// Returns the commit the binary was built from.
func GitCommit() string {
	c := strings.TrimSpace(gitCommit)
	if c == "" {
		return undefined
	}
	return c
}

// Reports whether any of the release variables is missing.
func IsLocal() bool {
	return strings.TrimSpace(version) == "" ||
		strings.TrimSpace(stage) == "" ||
		strings.TrimSpace(gitCommit) == ""
}

// Returns "<version>[+<stage>] <commit> [<os>/<arch>]", or "(local)".
//
// The stage is left out for builds of the main branch.
func VersionString() string {
	if IsLocal() {
		return localBuild
	}

	suffix := ""
	if s := Stage(); s != mainBranch {
		suffix = "+" + s
	}

	return fmt.Sprintf("%s%s %s [%s/%s]", Version(), suffix, GitCommit(), runtime.GOOS, runtime.GOARCH)
}
