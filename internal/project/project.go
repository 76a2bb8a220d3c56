package project

import (
	"os"
	"path/filepath"

	"github.com/jitolabs/cbuild/internal/fault"
)

// Defaults reproducing the historic build script.
const (
	DefaultDir          = "."
	DefaultImage        = "jitolabs/solana-accountsdb-connector"
	DefaultDockerfile   = "Dockerfile"
	DefaultContext      = "."
	DefaultBuildArgName = "ci_commit"
	DefaultContainer    = "temp"
	DefaultSource       = "/solana-accountsdb-connector/docker-output"
	DefaultOutput       = "docker-output"
)

// Literals of a build run.
type Project struct {
	Dir          string   // Project directory. Relative paths resolve against it.
	Image        string   // Image tag.
	Dockerfile   string   // Build definition file.
	Context      string   // Build context directory.
	BuildArgName string   // Name of the build argument carrying the descriptor.
	BuildArgs    []string // Extra KEY=VALUE build arguments.
	BuildArgFile string   // Optional dotenv file of extra build arguments.
	Container    string   // Throwaway container name.
	Source       string   // Absolute directory inside the image to extract.
	Output       string   // Local output directory.
}

// Returns the historic defaults.
func Defaults() Project {
	return Project{
		Dir:          DefaultDir,
		Image:        DefaultImage,
		Dockerfile:   DefaultDockerfile,
		Context:      DefaultContext,
		BuildArgName: DefaultBuildArgName,
		Container:    DefaultContainer,
		Source:       DefaultSource,
		Output:       DefaultOutput,
	}
}

// Validates p and returns a copy with absolute paths.
//
// Dir is made absolute against the working directory and must be an existing
// directory. Dockerfile, Context, Output and BuildArgFile are resolved
// against Dir when relative. Source is a path inside the image and is left
// untouched, but must be absolute.
func (p Project) Resolve() (Project, error) {
	if p.Image == "" {
		return p, fault.Wrapf(ErrProject, "image is empty")
	}
	if p.Container == "" {
		return p, fault.Wrapf(ErrProject, "container is empty")
	}
	if p.BuildArgName == "" {
		return p, fault.Wrapf(ErrProject, "build argument name is empty")
	}
	if p.Output == "" {
		return p, fault.Wrapf(ErrProject, "output is empty")
	}
	if !filepath.IsAbs(p.Source) {
		return p, fault.Wrapf(ErrProject, "source %q is not absolute", p.Source)
	}

	if p.Dir == "" {
		p.Dir = DefaultDir
	}
	dir, err := filepath.Abs(p.Dir)
	if err != nil {
		return p, fault.Wrap(ErrProject, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return p, fault.Wrap(ErrProject, err)
	}
	if !info.IsDir() {
		return p, fault.Wrapf(ErrProject, "%s is not a directory", dir)
	}
	p.Dir = dir

	p.Dockerfile = p.join(p.Dockerfile, DefaultDockerfile)
	p.Context = p.join(p.Context, DefaultContext)
	p.Output = p.join(p.Output, DefaultOutput)
	if p.BuildArgFile != "" {
		p.BuildArgFile = p.join(p.BuildArgFile, "")
	}

	return p, nil
}

func (p Project) join(path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(p.Dir, path)
}
