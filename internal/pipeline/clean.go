package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jitolabs/cbuild/internal/project"
	"github.com/jitolabs/cbuild/internal/runtime"
)

// Removes what a run leaves behind.
//
// The throwaway container is always removed; the image only when
// removeImage is set. Both removals are attempted and their failures joined.
func Clean(ctx context.Context, eng runtime.Engine, p project.Project, removeImage bool) error {
	var errs []error

	if err := eng.RemoveContainer(ctx, p.Container); err != nil {
		errs = append(errs, newStepError(StepRemove, err))
	} else {
		slog.Info("container removed", "container", p.Container)
	}

	if removeImage {
		if err := eng.RemoveImage(ctx, p.Image); err != nil {
			errs = append(errs, newStepError(StepRemoveImage, err))
		} else {
			slog.Info("image removed", "image", p.Image)
		}
	}

	return errors.Join(errs...)
}
