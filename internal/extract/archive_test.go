package extract

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Frame magic number of zstd streams.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func TestArchive(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "docker-output")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.so"), []byte("elf"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.json"), []byte("{}"), 0o644))

	dest := dir + ArchiveExt
	require.NoError(t, Archive(context.Background(), dir, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Greater(t, len(data), len(zstdMagic))
	assert.True(t, bytes.HasPrefix(data, zstdMagic), "archive is not zstd-compressed")

	leftovers, err := filepath.Glob(filepath.Join(root, ".docker-output*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temporary files left behind")
}

func TestArchiveMissingDirectory(t *testing.T) {
	root := t.TempDir()

	err := Archive(context.Background(), filepath.Join(root, "missing"), filepath.Join(root, "out"+ArchiveExt))
	assert.ErrorIs(t, err, ErrArchive)
}
