package cli

import (
	"context"

	"github.com/google/uuid"

	"github.com/jitolabs/cbuild/internal/pipeline"
	"github.com/jitolabs/cbuild/internal/project"
)

// Represents the 'cbuild clean' command.
type CleanCmd struct {
	EngineFlags `embed:""`

	Image       string `default:"${default_image}" env:"CBUILD_IMAGE" help:"Image tag." placeholder:"REF"`
	Container   string `default:"${default_container}" env:"CBUILD_CONTAINER" help:"Throwaway container name." placeholder:"NAME"`
	RemoveImage bool   `help:"Also remove the image."`
}

// Executes the clean command.
func (c *CleanCmd) Run(ctx context.Context) error {
	eng, err := c.engine(ctx, uuid.NewString())
	if err != nil {
		return err
	}
	defer eng.Close()

	p := project.Defaults()
	p.Image = c.Image
	p.Container = c.Container

	return pipeline.Clean(ctx, eng, p, c.RemoveImage)
}
