package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jitolabs/cbuild/internal"
	"github.com/jitolabs/cbuild/internal/metrics"
	"github.com/jitolabs/cbuild/internal/pipeline"
)

// Represents the 'cbuild run' command.
type RunCmd struct {
	ProjectFlags `embed:""`
	EngineFlags  `embed:""`

	RemoveImage bool   `env:"CBUILD_REMOVE_IMAGE" help:"Remove the image after extracting the output."`
	Archive     bool   `env:"CBUILD_ARCHIVE" help:"Pack the output directory into <output>.tar.zst."`
	SaveImage   string `env:"CBUILD_SAVE_IMAGE" help:"Write the image as a tarball to this path." placeholder:"PATH"`
	MetricsFile string `env:"CBUILD_METRICS_FILE" help:"Write Prometheus textfile metrics to this path." placeholder:"PATH"`
}

// Executes the run command.
//
// The metrics file, when requested, is written however the run ends,
// including when no engine could be set up.
func (c *RunCmd) Run(ctx context.Context) error {
	runID := uuid.NewString()
	slog.Debug("starting run", "id", runID)

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if c.MetricsFile != "" {
		textfile := metrics.NewTextfileRecorder()
		rec = textfile
		defer c.writeMetrics(textfile)
	}

	start := time.Now()

	eng, err := c.engine(ctx, runID)
	if err != nil {
		rec.ObserveStep(pipeline.StepEngine, time.Since(start), err)
		rec.SetOutcome(false, time.Now())
		return err
	}
	defer eng.Close()

	res, err := pipeline.Run(ctx, eng, c.options(rec))
	if err != nil {
		return err
	}

	slog.Info("build complete",
		"descriptor", res.Descriptor,
		"image", res.Image.Name,
		"output", res.Output,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func (c *RunCmd) writeMetrics(rec *metrics.TextfileRecorder) {
	if err := rec.WriteTo(c.MetricsFile); err != nil {
		slog.Warn("metrics not written", "path", c.MetricsFile, "error", err)
	}
}

func (c *RunCmd) options(rec metrics.Recorder) pipeline.Options {
	var progress io.Writer = os.Stderr
	if internal.IsQuiet() && !internal.IsVerbose() {
		progress = nil
	}

	return pipeline.Options{
		Project:     c.project(),
		Platform:    c.Platform,
		RemoveImage: c.RemoveImage,
		Archive:     c.Archive,
		SaveImage:   c.SaveImage,
		Progress:    progress,
		Recorder:    rec,
	}
}
