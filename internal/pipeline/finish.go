package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jitolabs/cbuild/internal/extract"
	"github.com/jitolabs/cbuild/internal/fault"
	"github.com/jitolabs/cbuild/internal/paths"
)

// Runs the optional steps enabled in the options.
func (r *run) finish(ctx context.Context) error {
	if r.opts.RemoveImage {
		if err := r.step(StepRemoveImage, func() error {
			return r.eng.RemoveImage(ctx, r.result.Project.Image)
		}); err != nil {
			return err
		}
	}

	if r.opts.Archive {
		if err := r.step(StepArchive, func() error { return r.archive(ctx) }); err != nil {
			return err
		}
	}

	if r.opts.SaveImage != "" {
		if r.opts.RemoveImage {
			slog.Warn("image removed before it could be saved", "path", r.opts.SaveImage)
		} else if err := r.step(StepSaveImage, func() error { return r.saveImage(ctx) }); err != nil {
			return err
		}
	}

	return nil
}

func (r *run) archive(ctx context.Context) error {
	dest := filepath.Clean(r.result.Output) + extract.ArchiveExt
	if err := extract.Archive(ctx, r.result.Output, dest); err != nil {
		return err
	}
	r.result.Archive = dest
	return nil
}

// Writes the image tarball, deleting a partial file on failure.
func (r *run) saveImage(ctx context.Context) (err error) {
	path := r.opts.SaveImage
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.result.Project.Dir, path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return fault.Wrap(ErrFileSystemOperation, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fault.Wrap(ErrFileSystemOperation, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := r.eng.SaveImage(ctx, r.result.Project.Image, f); err != nil {
		return err
	}

	slog.Info("image saved", "image", r.result.Project.Image, "path", path)
	return nil
}
