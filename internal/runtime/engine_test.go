package runtime

import (
	"context"
	"strings"
	"testing"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCLIEngine(t *testing.T) {
	eng, err := New(context.Background(), Config{CLI: "podman", Runner: &fakeRunner{}})
	require.NoError(t, err)

	cli, ok := eng.(*CLIEngine)
	require.True(t, ok, "engine is %T", eng)
	assert.Equal(t, "podman", cli.bin)
}

func TestNewUnknownEngine(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: "lxc", CLI: "docker"})
	assert.ErrorIs(t, err, ErrUnknownEngine)
}

func TestDefaultPlatform(t *testing.T) {
	p := defaultPlatform()
	parts := strings.Split(p, "/")
	require.Len(t, parts, 2, "defaultPlatform = %q", p)
	assert.Equal(t, "linux", parts[0])
	assert.NotEmpty(t, parts[1])
}

func TestNextExecID(t *testing.T) {
	a := nextExecID()
	b := nextExecID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestNormalizeRef(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"jitolabs/solana-accountsdb-connector", "docker.io/jitolabs/solana-accountsdb-connector:latest"},
		{"alpine", "docker.io/library/alpine:latest"},
		{"ghcr.io/org/app:v1", "ghcr.io/org/app:v1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeRef(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := normalizeRef("Not A Reference")
	assert.Error(t, err)
}

func TestIsIndex(t *testing.T) {
	assert.True(t, isIndex(ocispec.Descriptor{MediaType: ocispec.MediaTypeImageIndex}))
	assert.False(t, isIndex(ocispec.Descriptor{MediaType: ocispec.MediaTypeImageManifest}))
}
