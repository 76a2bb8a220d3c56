package extract

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jitolabs/cbuild/internal/fault"
	"github.com/mholt/archives"
)

// Extension of archives written by [Archive].
const ArchiveExt = ".tar.zst"

// Packs dir into a zstd-compressed tarball at dest.
//
// Entries are rooted at the base name of dir. The archive is written to a
// temporary file next to dest and renamed into place, so dest is never left
// half-written.
func Archive(ctx context.Context, dir, dest string) error {
	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		dir: filepath.Base(dir),
	})
	if err != nil {
		return fault.Wrap(ErrArchive, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+"-*")
	if err != nil {
		return fault.Wrap(ErrArchive, err)
	}
	defer os.Remove(tmp.Name())

	format := archives.CompressedArchive{
		Archival:    archives.Tar{},
		Compression: archives.Zstd{},
	}

	if err := format.Archive(ctx, tmp, files); err != nil {
		tmp.Close()
		return fault.Wrap(ErrArchive, err)
	}
	if err := tmp.Close(); err != nil {
		return fault.Wrap(ErrArchive, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fault.Wrap(ErrArchive, err)
	}

	slog.Info("archive written", "path", dest, "files", len(files))
	return nil
}
