package cli

import (
	"context"
	"fmt"

	"github.com/jitolabs/cbuild/internal/vcs"
)

// Represents the 'cbuild describe' command.
type DescribeCmd struct {
	Dir         string `default:"${default_dir}" env:"CBUILD_DIR" help:"Directory inside the repository." placeholder:"DIR"`
	Abbrev      int    `default:"7" help:"Hex digits of abbreviated commit names."`
	DirtyMark   string `default:"-dirty" help:"Suffix appended when the worktree has changes."`
	IgnoreDirty bool   `help:"Never append the dirty suffix."`
}

// Executes the describe command.
func (c *DescribeCmd) Run(ctx context.Context) error {
	descriptor, err := vcs.Describe(c.Dir, vcs.Options{
		Abbrev:      c.Abbrev,
		DirtyMark:   c.DirtyMark,
		IgnoreDirty: c.IgnoreDirty,
	})
	if err != nil {
		return err
	}
	fmt.Println(descriptor)
	return nil
}
