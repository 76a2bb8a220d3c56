package extract

import (
	"archive/tar"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/jitolabs/cbuild/internal/fault"
	"github.com/jitolabs/cbuild/internal/paths"
	"github.com/mholt/archives"
)

// Totals of an extraction.
type Stats struct {
	Files int   // Regular files, links and symlinks written.
	Dirs  int   // Directories created, the destination excluded.
	Bytes int64 // Bytes of regular file content written.
}

// Unpacks the tar stream r into dir, stripping the first path component of
// every entry.
//
// dir must exist. Existing files are overwritten; other files in dir are
// left alone. Existing symlinks are replaced, never followed. A stream
// holding a single non-directory entry is written as dir/<base>. Absolute
// names and names climbing out of dir fail with [ErrUnsafePath].
func Untar(ctx context.Context, r io.Reader, dir string) (Stats, error) {
	var stats Stats

	err := archives.Tar{}.Extract(ctx, r, func(ctx context.Context, info archives.FileInfo) error {
		rel, ok, err := stripFirst(info.NameInArchive)
		if err != nil {
			return err
		}
		if !ok {
			if info.IsDir() {
				return nil
			}
			// The source is a single file.
			rel = path.Base(path.Clean(info.NameInArchive))
		}

		target, err := joinUnder(dir, rel)
		if err != nil {
			return err
		}

		return writeEntry(info, dir, target, &stats)
	})
	if err != nil {
		return stats, fault.Wrap(ErrExtract, err)
	}

	slog.Debug("extracted", "dir", dir, "files", stats.Files, "dirs", stats.Dirs, "bytes", stats.Bytes)
	return stats, nil
}

// Removes the leading component of an archive name.
//
// Returns false for the top-level entry itself, which maps onto the
// destination directory.
func stripFirst(name string) (string, bool, error) {
	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false, fault.Wrapf(ErrUnsafePath, "%q", name)
	}

	_, rest, found := strings.Cut(clean, "/")
	if !found || rest == "" || rest == "." {
		return "", false, nil
	}

	rel := filepath.FromSlash(rest)
	if !filepath.IsLocal(rel) {
		return "", false, fault.Wrapf(ErrUnsafePath, "%q", name)
	}
	return rel, true, nil
}

// Resolves rel under root. Symlinks in the parent directories are confined
// to root; the final component is left unresolved so that links written by
// an earlier extraction are replaced rather than followed.
func joinUnder(root, rel string) (string, error) {
	parent, err := securejoin.SecureJoin(root, filepath.Dir(rel))
	if err != nil {
		return "", err
	}
	return filepath.Join(parent, filepath.Base(rel)), nil
}

// Materializes one archive entry at target.
func writeEntry(info archives.FileInfo, root, target string, stats *Stats) error {
	if info.IsDir() {
		if fi, err := os.Lstat(target); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
			if err := os.Remove(target); err != nil {
				return err
			}
		}
		stats.Dirs++
		return os.MkdirAll(target, dirMode(info.Mode()))
	}

	if err := os.MkdirAll(filepath.Dir(target), paths.DefaultDirMode); err != nil {
		return err
	}

	if hdr, ok := info.Header.(*tar.Header); ok && hdr.Typeflag == tar.TypeLink {
		rel, _, err := stripFirst(hdr.Linkname)
		if err != nil {
			return err
		}
		source, err := joinUnder(root, rel)
		if err != nil {
			return err
		}
		if err := replace(target); err != nil {
			return err
		}
		stats.Files++
		return os.Link(source, target)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		if err := replace(target); err != nil {
			return err
		}
		stats.Files++
		return os.Symlink(info.LinkTarget, target)
	}

	if !info.Mode().IsRegular() {
		slog.Debug("skipping special file", "name", info.NameInArchive, "mode", info.Mode().String())
		return nil
	}

	n, err := writeFile(info, target)
	if err != nil {
		return err
	}
	stats.Files++
	stats.Bytes += n
	return nil
}

func writeFile(info archives.FileInfo, target string) (int64, error) {
	src, err := info.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	if err := replace(target); err != nil {
		return 0, err
	}

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Removes a non-directory at path so it can be recreated.
func replace(path string) error {
	fi, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fault.Wrapf(ErrExtract, "%s is a directory", path)
	}
	return os.Remove(path)
}

// Keeps directories traversable by their owner whatever the archive says.
func dirMode(m fs.FileMode) fs.FileMode {
	return m.Perm() | 0o700
}
