package runtime

import (
	"context"
	"io"
	"path"
)

// Streams a path from the container's filesystem as a tar archive.
//
// Runs "tar cf - -C <dir> <base>" inside the container, so the archive
// entries are rooted at the base name of p.
func (c *Container) CopyFrom(ctx context.Context, w io.Writer, p string) error {
	p = path.Clean(p)
	return c.mustExec(ctx, w, "tar", "cf", "-", "-C", path.Dir(p), path.Base(p))
}
