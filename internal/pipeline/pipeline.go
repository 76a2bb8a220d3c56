package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jitolabs/cbuild/internal/extract"
	"github.com/jitolabs/cbuild/internal/metrics"
	"github.com/jitolabs/cbuild/internal/project"
	"github.com/jitolabs/cbuild/internal/runtime"
	"github.com/jitolabs/cbuild/internal/vcs"
)

// Step names, as reported in errors, logs and metrics.
const (
	StepEngine      = "engine"
	StepResolve     = "resolve"
	StepDescribe    = "describe"
	StepBuild       = "build"
	StepPrune       = "prune"
	StepCreate      = "create"
	StepMkdir       = "mkdir"
	StepCopy        = "copy"
	StepRemove      = "remove"
	StepRemoveImage = "remove-image"
	StepArchive     = "archive"
	StepSaveImage   = "save-image"
)

// Computes the version descriptor of the repository containing dir.
type DescribeFunc func(dir string) (string, error)

// Controls a pipeline run.
type Options struct {
	Project     project.Project  // Literals of the run. Resolved by Run.
	Describe    DescribeFunc     // Nil uses [vcs.Describe] with default options.
	Platform    string           // Target platform of the build. Empty uses the builder's default.
	RemoveImage bool             // Remove the image after extraction.
	Archive     bool             // Pack the output directory into a tar.zst next to it.
	SaveImage   string           // Write the image as a tarball to this path. Empty skips.
	Progress    io.Writer        // Receives builder output. Nil discards it.
	Recorder    metrics.Recorder // Nil uses [metrics.NoopRecorder].
}

// Timing of a completed or failed step.
type StepTiming struct {
	Step     string
	Duration time.Duration
	Err      error
}

// Returned after a successful run.
type Result struct {
	Descriptor string          // Version descriptor passed to the build.
	Image      runtime.Image   // Built image.
	Output     string          // Absolute output directory.
	Archive    string          // Path of the output archive, if one was written.
	Extracted  extract.Stats   // What the copy step wrote.
	Steps      []StepTiming    // Executed steps in order.
	Project    project.Project // Resolved literals.
}

// Executes the build pipeline.
func Run(ctx context.Context, eng runtime.Engine, opts Options) (res *Result, err error) {
	r := newRun(eng, opts)

	defer func() {
		r.rec.SetOutcome(err == nil, time.Now())
	}()

	if err := r.run(ctx); err != nil {
		return nil, err
	}
	return r.result, nil
}

// State of a single run.
type run struct {
	eng      runtime.Engine
	opts     Options
	rec      metrics.Recorder
	describe DescribeFunc
	result   *Result
}

func newRun(eng runtime.Engine, opts Options) *run {
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	describe := opts.Describe
	if describe == nil {
		describe = func(dir string) (string, error) {
			return vcs.Describe(dir, vcs.Options{})
		}
	}

	return &run{
		eng:      eng,
		opts:     opts,
		rec:      rec,
		describe: describe,
		result:   &Result{},
	}
}

func (r *run) run(ctx context.Context) error {
	if err := r.step(StepResolve, r.resolve); err != nil {
		return err
	}

	if err := r.step(StepDescribe, r.describeHead); err != nil {
		return err
	}

	slog.Info("version descriptor", "descriptor", r.result.Descriptor)

	if err := r.step(StepBuild, func() error { return r.build(ctx) }); err != nil {
		return err
	}

	r.prune(ctx)

	if err := r.withContainer(ctx, func() error {
		if err := r.step(StepMkdir, r.mkdir); err != nil {
			return err
		}
		return r.step(StepCopy, func() error { return r.copy(ctx) })
	}); err != nil {
		return err
	}

	return r.finish(ctx)
}

// Times fn and reports it under name. Failures come back as [*StepError].
func (r *run) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)

	r.rec.ObserveStep(name, d, err)
	r.result.Steps = append(r.result.Steps, StepTiming{Step: name, Duration: d, Err: err})

	if err != nil {
		return newStepError(name, err)
	}
	slog.Debug("step done", "step", name, "duration", d)
	return nil
}

func (r *run) resolve() error {
	p, err := r.opts.Project.Resolve()
	if err != nil {
		return err
	}
	r.result.Project = p
	r.result.Output = p.Output
	return nil
}

func (r *run) describeHead() error {
	descriptor, err := r.describe(r.result.Project.Dir)
	if err != nil {
		return err
	}
	r.result.Descriptor = descriptor
	return nil
}

func (r *run) build(ctx context.Context) error {
	p := r.result.Project

	args, err := p.BuildArgs(r.result.Descriptor)
	if err != nil {
		return err
	}

	image, err := r.eng.Build(ctx, runtime.BuildOptions{
		Tag:        p.Image,
		Dockerfile: p.Dockerfile,
		Context:    p.Context,
		Dir:        p.Dir,
		Args:       args,
		Platform:   r.opts.Platform,
		Progress:   r.opts.Progress,
	})
	if err != nil {
		return err
	}

	r.result.Image = image
	slog.Info("image built", "image", image.Name, "digest", image.Digest.String())
	return nil
}

// Removes a container left over from an earlier run. Usually there is none,
// so failure is expected and only logged.
func (r *run) prune(ctx context.Context) {
	name := r.result.Project.Container

	start := time.Now()
	err := r.eng.RemoveContainer(ctx, name)
	d := time.Since(start)

	r.rec.ObserveStep(StepPrune, d, nil)
	r.result.Steps = append(r.result.Steps, StepTiming{Step: StepPrune, Duration: d})

	if err != nil {
		slog.Debug("no leftover container removed", "container", name, "error", err)
	}
}
