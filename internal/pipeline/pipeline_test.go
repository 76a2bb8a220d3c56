package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jitolabs/cbuild/internal/extract"
	"github.com/jitolabs/cbuild/internal/project"
	"github.com/jitolabs/cbuild/internal/runtime"
	"github.com/jitolabs/cbuild/internal/vcs"
)

const testDescriptor = "v1.2.0-3-gabc1234"

var (
	successCalls = []string{
		"build jitolabs/solana-accountsdb-connector",
		"rm temp",
		"create temp jitolabs/solana-accountsdb-connector",
		"cp temp:/solana-accountsdb-connector/docker-output",
		"rm temp",
	}
)

func testOptions(t *testing.T) Options {
	t.Helper()
	p := project.Defaults()
	p.Dir = t.TempDir()
	return Options{
		Project: p,
		Describe: func(dir string) (string, error) {
			return testDescriptor, nil
		},
	}
}

func outputDir(opts Options) string {
	return filepath.Join(opts.Project.Dir, project.DefaultOutput)
}

func requireStepError(t *testing.T, err error, step string) *StepError {
	t.Helper()
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, step, stepErr.Step)
	return stepErr
}

func TestRunSuccess(t *testing.T) {
	eng := newFakeEngine()
	opts := testOptions(t)

	res, err := Run(context.Background(), eng, opts)
	require.NoError(t, err)

	assert.Equal(t, successCalls, eng.calls)
	assert.Equal(t, testDescriptor, res.Descriptor)
	assert.Equal(t, outputDir(opts), res.Output)
	assert.Equal(t, "jitolabs/solana-accountsdb-connector", res.Image.Name)
	assert.NotEmpty(t, res.Image.Digest)
	assert.Equal(t, 2, res.Extracted.Files)

	body, err := os.ReadFile(filepath.Join(res.Output, "libplugin.so"))
	require.NoError(t, err)
	assert.Equal(t, "elf", string(body))

	body, err = os.ReadFile(filepath.Join(res.Output, "config", "plugin.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(body))

	_, err = os.Stat(filepath.Join(res.Output, "docker-output"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunBuildOptions(t *testing.T) {
	eng := newFakeEngine()
	opts := testOptions(t)
	opts.Project.BuildArgs = []string{"PROFILE=release"}
	opts.Platform = "linux/arm64"

	_, err := Run(context.Background(), eng, opts)
	require.NoError(t, err)

	dir := opts.Project.Dir
	assert.Equal(t, "jitolabs/solana-accountsdb-connector", eng.build.Tag)
	assert.Equal(t, filepath.Join(dir, "Dockerfile"), eng.build.Dockerfile)
	assert.Equal(t, dir, eng.build.Context)
	assert.Equal(t, dir, eng.build.Dir)
	assert.Equal(t, "linux/arm64", eng.build.Platform)
	assert.Equal(t, []runtime.BuildArg{
		{Name: "ci_commit", Value: testDescriptor},
		{Name: "PROFILE", Value: "release"},
	}, eng.build.Args)
}

func TestRunDescribesProjectDirectory(t *testing.T) {
	eng := newFakeEngine()
	opts := testOptions(t)

	var described string
	opts.Describe = func(dir string) (string, error) {
		described = dir
		return testDescriptor, nil
	}

	_, err := Run(context.Background(), eng, opts)
	require.NoError(t, err)
	assert.Equal(t, opts.Project.Dir, described)
}

func TestRunResolveFailure(t *testing.T) {
	eng := newFakeEngine()
	opts := testOptions(t)
	opts.Project.Image = ""

	_, err := Run(context.Background(), eng, opts)
	requireStepError(t, err, StepResolve)
	assert.ErrorIs(t, err, project.ErrProject)
	assert.Empty(t, eng.calls)
}

func TestRunDescribeFailure(t *testing.T) {
	eng := newFakeEngine()
	opts := testOptions(t)
	opts.Describe = func(string) (string, error) {
		return "", vcs.ErrNotRepository
	}

	_, err := Run(context.Background(), eng, opts)
	requireStepError(t, err, StepDescribe)
	assert.ErrorIs(t, err, vcs.ErrNotRepository)
	assert.Empty(t, eng.calls)
	assert.Equal(t, DefaultExitCode, ExitCode(err))
}

func TestRunBuildFailureLeavesNoOutput(t *testing.T) {
	eng := newFakeEngine()
	eng.errs["build"] = &runtime.ExitError{Command: "docker build", Code: 2}
	opts := testOptions(t)

	_, err := Run(context.Background(), eng, opts)
	stepErr := requireStepError(t, err, StepBuild)
	assert.Equal(t, 2, stepErr.ExitCode)
	assert.Equal(t, 2, ExitCode(err))

	assert.Equal(t, []string{"build jitolabs/solana-accountsdb-connector"}, eng.calls)

	_, statErr := os.Stat(outputDir(opts))
	assert.True(t, os.IsNotExist(statErr), "output directory must not be created")
}

func TestRunIgnoresPruneFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.rmErrs = []error{&runtime.ExitError{Command: "docker rm temp", Code: 1, Stderr: "No such container: temp"}}
	opts := testOptions(t)

	_, err := Run(context.Background(), eng, opts)
	require.NoError(t, err)
	assert.Equal(t, successCalls, eng.calls)
}

func TestRunFinalRemoveFailureIsFatal(t *testing.T) {
	eng := newFakeEngine()
	eng.rmErrs = []error{nil, &runtime.ExitError{Command: "docker rm temp", Code: 1}}
	opts := testOptions(t)

	_, err := Run(context.Background(), eng, opts)
	requireStepError(t, err, StepRemove)
	assert.Equal(t, successCalls, eng.calls)

	_, statErr := os.Stat(filepath.Join(outputDir(opts), "libplugin.so"))
	assert.NoError(t, statErr, "output must be populated before the failing removal")
}

func TestRunCreateFailureSkipsRemoval(t *testing.T) {
	eng := newFakeEngine()
	eng.errs["create"] = &runtime.ExitError{Command: "docker create", Code: 125}
	opts := testOptions(t)

	_, err := Run(context.Background(), eng, opts)
	stepErr := requireStepError(t, err, StepCreate)
	assert.Equal(t, 125, stepErr.ExitCode)
	assert.Equal(t, successCalls[:3], eng.calls)
}

func TestRunCopyFailureRemovesContainer(t *testing.T) {
	eng := newFakeEngine()
	copyErr := &runtime.ExitError{Command: "docker cp", Code: 1, Stderr: "Could not find the file"}
	eng.errs["cp"] = copyErr
	opts := testOptions(t)

	_, err := Run(context.Background(), eng, opts)
	requireStepError(t, err, StepCopy)
	assert.ErrorIs(t, err, copyErr)
	assert.Equal(t, 1, ExitCode(err))
	assert.Equal(t, successCalls, eng.calls)
}

func TestRunCopyFailureKeepsOriginalErrorWhenRemovalFails(t *testing.T) {
	eng := newFakeEngine()
	eng.errs["cp"] = &runtime.ExitError{Command: "docker cp", Code: 3}
	eng.rmErrs = []error{nil, errors.New("daemon unavailable")}
	opts := testOptions(t)

	_, err := Run(context.Background(), eng, opts)
	stepErr := requireStepError(t, err, StepCopy)
	assert.Equal(t, 3, stepErr.ExitCode)
	assert.Equal(t, successCalls, eng.calls)
}

func TestRunUnsafeArchiveRemovesContainer(t *testing.T) {
	eng := newFakeEngine()
	eng.files = map[string]string{"../../escape": "x"}
	opts := testOptions(t)

	_, err := Run(context.Background(), eng, opts)
	requireStepError(t, err, StepCopy)
	assert.ErrorIs(t, err, ErrCopy)
	assert.ErrorIs(t, err, extract.ErrUnsafePath)
	assert.Equal(t, successCalls, eng.calls)

	_, statErr := os.Stat(filepath.Join(opts.Project.Dir, "escape"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunIsRepeatable(t *testing.T) {
	opts := testOptions(t)

	_, err := Run(context.Background(), newFakeEngine(), opts)
	require.NoError(t, err)

	eng := newFakeEngine()
	eng.files["libplugin.so"] = "elf v2"
	_, err = Run(context.Background(), eng, opts)
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(outputDir(opts), "libplugin.so"))
	require.NoError(t, err)
	assert.Equal(t, "elf v2", string(body))
}

func TestRunRemoveImage(t *testing.T) {
	eng := newFakeEngine()
	opts := testOptions(t)
	opts.RemoveImage = true

	_, err := Run(context.Background(), eng, opts)
	require.NoError(t, err)
	assert.Equal(t, append(successCalls, "rmi jitolabs/solana-accountsdb-connector"), eng.calls)
}

func TestRunArchive(t *testing.T) {
	eng := newFakeEngine()
	opts := testOptions(t)
	opts.Archive = true

	res, err := Run(context.Background(), eng, opts)
	require.NoError(t, err)

	assert.Equal(t, outputDir(opts)+extract.ArchiveExt, res.Archive)
	info, err := os.Stat(res.Archive)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunSaveImage(t *testing.T) {
	eng := newFakeEngine()
	opts := testOptions(t)
	opts.SaveImage = "image.tar"

	_, err := Run(context.Background(), eng, opts)
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(opts.Project.Dir, "image.tar"))
	require.NoError(t, err)
	assert.Equal(t, "image:jitolabs/solana-accountsdb-connector", string(body))
}

func TestRunSaveImageFailureRemovesPartialFile(t *testing.T) {
	eng := newFakeEngine()
	eng.errs["save"] = &runtime.ExitError{Command: "docker save", Code: 1}
	opts := testOptions(t)
	opts.SaveImage = "image.tar"

	_, err := Run(context.Background(), eng, opts)
	requireStepError(t, err, StepSaveImage)

	_, statErr := os.Stat(filepath.Join(opts.Project.Dir, "image.tar"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunSaveImageSkippedAfterRemoval(t *testing.T) {
	eng := newFakeEngine()
	opts := testOptions(t)
	opts.RemoveImage = true
	opts.SaveImage = "image.tar"

	_, err := Run(context.Background(), eng, opts)
	require.NoError(t, err)
	assert.NotContains(t, eng.calls, "save jitolabs/solana-accountsdb-connector")
}

func TestRunRecordsMetrics(t *testing.T) {
	eng := newFakeEngine()
	rec := &fakeRecorder{}
	opts := testOptions(t)
	opts.Recorder = rec

	_, err := Run(context.Background(), eng, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{
		StepResolve, StepDescribe, StepBuild, StepPrune, StepCreate, StepMkdir, StepCopy, StepRemove,
	}, rec.steps)
	require.NotNil(t, rec.outcome)
	assert.True(t, *rec.outcome)
}

func TestRunRecordsFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.errs["build"] = errors.New("boom")
	rec := &fakeRecorder{}
	opts := testOptions(t)
	opts.Recorder = rec

	_, err := Run(context.Background(), eng, opts)
	require.Error(t, err)

	assert.Equal(t, []string{StepBuild}, rec.failed)
	require.NotNil(t, rec.outcome)
	assert.False(t, *rec.outcome)
}
