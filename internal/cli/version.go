package cli

import (
	"context"
	"fmt"

	"github.com/jitolabs/cbuild/internal"
)

// Represents the 'cbuild version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Println(internal.VersionString())
	return nil
}
