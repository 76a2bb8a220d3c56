package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/jitolabs/cbuild/internal/extract"
	"github.com/jitolabs/cbuild/internal/fault"
	"github.com/jitolabs/cbuild/internal/paths"
)

// Creates the throwaway container, runs fn, and removes the container.
//
// Removal runs whatever fn returns, with a context that survives
// cancellation so an interrupted run does not leak the container. If fn
// failed, a removal error is logged and fn's error is returned. Otherwise a
// removal error is the result.
func (r *run) withContainer(ctx context.Context, fn func() error) (err error) {
	p := r.result.Project

	if err := r.step(StepCreate, func() error {
		return r.eng.CreateContainer(ctx, p.Container, p.Image)
	}); err != nil {
		return err
	}

	defer func() {
		rmErr := r.step(StepRemove, func() error {
			return r.eng.RemoveContainer(context.WithoutCancel(ctx), p.Container)
		})
		if rmErr == nil {
			return
		}
		if err != nil {
			slog.Warn("failed to remove container", "container", p.Container, "error", rmErr)
			return
		}
		err = rmErr
	}()

	return fn()
}

func (r *run) mkdir() error {
	if err := os.MkdirAll(r.result.Output, paths.DefaultDirMode); err != nil {
		return fault.Wrap(ErrFileSystemOperation, err)
	}
	return nil
}

// Streams the source directory out of the container into the output.
//
// The engine writes a tar stream into a pipe read by the extractor. When the
// engine fails first its error is returned as is, keeping the exit status of
// the failing command. When the extractor fails first the engine is
// cancelled and the extraction error is returned.
func (r *run) copy(ctx context.Context) error {
	p := r.result.Project

	copyCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pr, pw := io.Pipe()
	done := make(chan error, 1)

	go func() {
		err := r.eng.CopyFrom(copyCtx, p.Container, p.Source, pw)
		pw.CloseWithError(err)
		done <- err
	}()

	src := &pipeReader{r: pr}
	stats, err := extract.Untar(ctx, src, p.Output)
	if err == nil {
		// Trailing padding after the end-of-archive marker.
		_, err = io.Copy(io.Discard, src)
	}
	if err != nil {
		cancel()
	}
	pr.CloseWithError(err)

	copyErr := <-done
	switch {
	case copyErr != nil && (err == nil || src.err != nil):
		return copyErr
	case err != nil:
		return fault.Wrap(ErrCopy, err)
	}

	r.result.Extracted = stats
	slog.Info("output extracted",
		"source", p.Source,
		"output", p.Output,
		"files", stats.Files,
		"bytes", stats.Bytes,
	)
	return nil
}

// Remembers the first read error other than EOF, which on a pipe can only
// come from the writing side.
type pipeReader struct {
	r   io.Reader
	err error
}

func (p *pipeReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if err != nil && err != io.EOF && p.err == nil {
		p.err = err
	}
	return n, err
}
