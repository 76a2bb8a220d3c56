package pipeline

import (
	"archive/tar"
	"context"
	"io"
	"path"
	"slices"
	"time"

	"github.com/jitolabs/cbuild/internal/runtime"
)

// Records engine calls and replies with canned errors.
type fakeEngine struct {
	calls     []string
	build     runtime.BuildOptions
	files     map[string]string // Served by CopyFrom, relative to the source directory.
	errs      map[string]error  // Keyed by operation: build, create, cp, rmi, save.
	rmErrs    []error           // Successive RemoveContainer results.
	saveImage string            // Written by SaveImage.
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		files: map[string]string{
			"libplugin.so":       "elf",
			"config/plugin.json": "{}",
		},
		errs: map[string]error{},
	}
}

func (f *fakeEngine) Build(ctx context.Context, opts runtime.BuildOptions) (runtime.Image, error) {
	f.calls = append(f.calls, "build "+opts.Tag)
	f.build = opts
	if err := f.errs["build"]; err != nil {
		return runtime.Image{}, err
	}
	return runtime.Image{Name: opts.Tag, Digest: "sha256:0a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f9"}, nil
}

func (f *fakeEngine) RemoveContainer(ctx context.Context, name string) error {
	f.calls = append(f.calls, "rm "+name)
	if len(f.rmErrs) == 0 {
		return nil
	}
	err := f.rmErrs[0]
	f.rmErrs = f.rmErrs[1:]
	return err
}

func (f *fakeEngine) CreateContainer(ctx context.Context, name, image string) error {
	f.calls = append(f.calls, "create "+name+" "+image)
	return f.errs["create"]
}

func (f *fakeEngine) CopyFrom(ctx context.Context, name, p string, w io.Writer) error {
	f.calls = append(f.calls, "cp "+name+":"+p)
	if err := f.errs["cp"]; err != nil {
		return err
	}

	tw := tar.NewWriter(w)
	top := path.Base(p)
	if err := tw.WriteHeader(&tar.Header{Name: top + "/", Typeflag: tar.TypeDir, Mode: 0o755, ModTime: time.Now()}); err != nil {
		return err
	}

	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		body := f.files[name]
		hdr := &tar.Header{Name: top + "/" + name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(body))}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := io.WriteString(tw, body); err != nil {
			return err
		}
	}
	return tw.Close()
}

func (f *fakeEngine) RemoveImage(ctx context.Context, image string) error {
	f.calls = append(f.calls, "rmi "+image)
	return f.errs["rmi"]
}

func (f *fakeEngine) SaveImage(ctx context.Context, image string, w io.Writer) error {
	f.calls = append(f.calls, "save "+image)
	if err := f.errs["save"]; err != nil {
		return err
	}
	_, err := io.WriteString(w, "image:"+image)
	return err
}

func (f *fakeEngine) Close() error {
	return nil
}

// Captures metrics reported by a run.
type fakeRecorder struct {
	steps   []string
	failed  []string
	outcome *bool
}

func (r *fakeRecorder) ObserveStep(step string, d time.Duration, err error) {
	r.steps = append(r.steps, step)
	if err != nil {
		r.failed = append(r.failed, step)
	}
}

func (r *fakeRecorder) SetOutcome(success bool, at time.Time) {
	r.outcome = &success
}
