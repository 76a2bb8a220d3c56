package runtime

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/containerd/v2/core/images/archive"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	"github.com/distribution/reference"
	"github.com/google/uuid"
	"github.com/jitolabs/cbuild/internal/fault"
	"github.com/jitolabs/cbuild/internal/paths"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// OCI runtime shim for containers.
const ociRuntime = "io.containerd.runc.v2"

// Configures a [ContainerdEngine].
type ContainerdConfig struct {
	Address     string // Containerd socket. Empty uses [DefaultContainerdAddress].
	Namespace   string // Containerd namespace. Empty uses [DefaultContainerdNamespace].
	Snapshotter string // Empty uses [DefaultSnapshotter].
	Platform    string // Empty uses the host platform.
	RunID       string // Names the intermediate OCI archive. Empty generates one.
	Builder     string // CLI providing "buildx build".
	Runner      Runner // Executes the builder.
}

// Builds with buildx and manages images and containers through containerd.
type ContainerdEngine struct {
	client      *containerd.Client // Containerd client for images and containers.
	builder     string             // CLI providing "buildx build".
	runner      Runner             // Executes the builder.
	platform    string             // OCI platform (e.g., "linux/amd64").
	snapshotter string             // Snapshotter for container filesystems.
	runID       string             // Names the intermediate OCI archive.
}

// Connects to containerd. The engine must be closed when no longer needed.
func NewContainerdEngine(ctx context.Context, cfg ContainerdConfig) (*ContainerdEngine, error) {
	address := cfg.Address
	if address == "" {
		address = DefaultContainerdAddress
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = DefaultContainerdNamespace
	}

	c, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fault.Wrap(ErrRuntime, err)
	}

	e := &ContainerdEngine{
		client:      c,
		builder:     cfg.Builder,
		runner:      cfg.Runner,
		platform:    cfg.Platform,
		snapshotter: cfg.Snapshotter,
		runID:       cfg.RunID,
	}
	if e.platform == "" {
		e.platform = defaultPlatform()
	}
	if e.snapshotter == "" {
		e.snapshotter = DefaultSnapshotter
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}
	if e.runner == nil {
		e.runner = ExecRunner{}
	}

	slog.Debug("connected to containerd", "address", address, "namespace", namespace, "platform", e.platform)
	return e, nil
}

// Closes the containerd client connection.
func (e *ContainerdEngine) Close() error {
	return e.client.Close()
}

// Builds an OCI archive with buildx and imports it.
//
// The archive is written to the cache directory and removed once imported.
// The imported image is tagged under the normalized form of opts.Tag and
// unpacked for the engine's platform.
func (e *ContainerdEngine) Build(ctx context.Context, opts BuildOptions) (Image, error) {
	tag, err := normalizeRef(opts.Tag)
	if err != nil {
		return Image{}, fault.Wrap(ErrRuntime, err)
	}

	path := paths.Archive(e.runID)
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return Image{}, fault.Wrap(ErrRuntime, err)
	}
	defer os.Remove(path)

	if opts.Platform == "" {
		opts.Platform = e.platform
	}
	args := append([]string{"buildx"}, buildArgs(opts)...)
	args = append(args[:len(args)-1], "--output", "type=oci,dest="+path, opts.Context)

	err = e.runner.Run(ctx, Command{
		Name:   e.builder,
		Args:   args,
		Dir:    opts.Dir,
		Stdout: opts.Progress,
		Stderr: opts.Progress,
	})
	if err != nil {
		return Image{}, err
	}

	source, err := e.importArchive(ctx, path)
	if err != nil {
		return Image{}, fault.Wrap(ErrRuntime, err)
	}

	if err := e.tagImage(ctx, source, tag); err != nil {
		return Image{}, fault.Wrap(ErrRuntime, err)
	}

	if err := e.unpackImage(ctx, tag); err != nil {
		return Image{}, fault.Wrap(ErrRuntime, err)
	}

	slog.Debug("image imported", "tag", tag, "digest", source.Target.Digest, "index", isIndex(source.Target))
	return Image{Name: tag, Digest: source.Target.Digest}, nil
}

// Imports an OCI archive into the content store.
//
// The archive must contain exactly one image. Multi-platform archives hold a
// single index entry and are supported.
func (e *ContainerdEngine) importArchive(ctx context.Context, path string) (images.Image, error) {
	fh, err := os.Open(path)
	if err != nil {
		return images.Image{}, err
	}
	defer fh.Close()

	imported, err := e.client.Import(ctx, fh)
	if err != nil {
		return images.Image{}, err
	}

	switch {
	case len(imported) == 0:
		return images.Image{}, ErrEmptyArchive
	case len(imported) > 1:
		return images.Image{}, ErrMultipleImages
	}
	return imported[0], nil
}

// Points tag at the imported image, replacing any previous target. The
// import record is dropped when its name differs from tag.
func (e *ContainerdEngine) tagImage(ctx context.Context, source images.Image, tag string) error {
	return retag(ctx, e.client.ImageService(), source, tag)
}

func retag(ctx context.Context, is images.Store, source images.Image, tag string) error {
	img := images.Image{
		Name:   tag,
		Target: source.Target,
	}

	if _, err := is.Create(ctx, img); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return err
		}
		if _, err := is.Update(ctx, img, "target"); err != nil {
			return err
		}
	}

	if source.Name != "" && source.Name != tag {
		if err := is.Delete(ctx, source.Name); err != nil {
			slog.Debug("import record not removed", "name", source.Name, "error", err)
		}
	}

	return nil
}

// Unpacks the image layers for the engine's platform into the snapshotter.
func (e *ContainerdEngine) unpackImage(ctx context.Context, tag string) error {
	image, err := e.resolveImage(ctx, tag)
	if err != nil {
		return err
	}
	return image.Unpack(ctx, e.snapshotter)
}

// Looks up a tagged image restricted to the engine's platform.
func (e *ContainerdEngine) resolveImage(ctx context.Context, tag string) (containerd.Image, error) {
	p, err := platforms.Parse(e.platform)
	if err != nil {
		return nil, err
	}

	img, err := e.client.ImageService().Get(ctx, tag)
	if err != nil {
		return nil, err
	}

	return containerd.NewImageWithPlatform(e.client, img, platforms.Only(p)), nil
}

// Deletes the container and its snapshot, killing any running task.
func (e *ContainerdEngine) RemoveContainer(ctx context.Context, name string) error {
	return e.container(name).Remove(ctx)
}

// Creates the container with a fresh snapshot. No task is started.
func (e *ContainerdEngine) CreateContainer(ctx context.Context, name, image string) error {
	tag, err := normalizeRef(image)
	if err != nil {
		return fault.Wrap(ErrRuntime, err)
	}

	img, err := e.resolveImage(ctx, tag)
	if err != nil {
		return fault.Wrap(ErrRuntime, err)
	}

	if _, err := e.container(name).create(ctx, img); err != nil {
		return fault.Wrap(ErrRuntime, err)
	}

	slog.Debug("container created", "id", name, "image", tag)
	return nil
}

// Streams path out of the container, starting its task if needed.
func (e *ContainerdEngine) CopyFrom(ctx context.Context, name, path string, w io.Writer) error {
	c := e.container(name)
	if err := c.ensureTask(ctx); err != nil {
		return err
	}
	return c.CopyFrom(ctx, w, path)
}

// Deletes the image record synchronously so its content can be collected.
func (e *ContainerdEngine) RemoveImage(ctx context.Context, image string) error {
	tag, err := normalizeRef(image)
	if err != nil {
		return fault.Wrap(ErrRuntime, err)
	}

	if err := e.client.ImageService().Delete(ctx, tag, images.SynchronousDelete()); err != nil {
		return fault.Wrap(ErrRuntime, err)
	}

	slog.Debug("image removed", "tag", tag)
	return nil
}

// Exports the image for the engine's platform as an OCI archive.
func (e *ContainerdEngine) SaveImage(ctx context.Context, image string, w io.Writer) error {
	tag, err := normalizeRef(image)
	if err != nil {
		return fault.Wrap(ErrRuntime, err)
	}

	p, err := platforms.Parse(e.platform)
	if err != nil {
		return fault.Wrap(ErrRuntime, err)
	}

	err = e.client.Export(ctx, w,
		archive.WithImage(e.client.ImageService(), tag),
		archive.WithPlatform(platforms.Only(p)),
	)
	return fault.Wrap(ErrRuntime, err)
}

// Returns a lazy handle for the container with the given ID.
func (e *ContainerdEngine) container(id string) *Container {
	return &Container{
		client:      e.client,
		id:          id,
		platform:    e.platform,
		snapshotter: e.snapshotter,
	}
}

// Expands a short image reference to the fully-qualified form containerd
// stores, e.g. "org/app" to "docker.io/org/app:latest".
func normalizeRef(ref string) (string, error) {
	named, err := reference.ParseDockerRef(ref)
	if err != nil {
		return "", err
	}
	return named.String(), nil
}

// Reports whether desc is a multi-platform image index.
func isIndex(desc ocispec.Descriptor) bool {
	return desc.MediaType == ocispec.MediaTypeImageIndex || images.IsIndexType(desc.MediaType)
}
