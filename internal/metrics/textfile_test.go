package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextfileRecorderObserveStep(t *testing.T) {
	rec := NewTextfileRecorder()
	rec.ObserveStep("build", 1500*time.Millisecond, nil)
	rec.ObserveStep("copy", 2*time.Second, errors.New("boom"))
	rec.ObserveStep("copy", 3*time.Second, errors.New("boom"))

	assert.InDelta(t, 1.5, testutil.ToFloat64(rec.stepDuration.WithLabelValues("build", ResultSuccess)), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(rec.stepDuration.WithLabelValues("copy", ResultFailed)), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(rec.stepResults.WithLabelValues("copy", ResultFailed)), 1e-9)
}

func TestTextfileRecorderSetOutcome(t *testing.T) {
	rec := NewTextfileRecorder()
	at := time.Unix(1700000000, 0)

	rec.SetOutcome(true, at)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.success))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(rec.timestamp))

	rec.SetOutcome(false, at)
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.success))
}

func TestTextfileRecorderWriteTo(t *testing.T) {
	rec := NewTextfileRecorder()
	rec.ObserveStep("describe", 10*time.Millisecond, nil)
	rec.SetOutcome(true, time.Now())

	path := filepath.Join(t.TempDir(), "cbuild.prom")
	require.NoError(t, rec.WriteTo(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `cbuild_step_duration_seconds{result="success",step="describe"}`), text)
	assert.Contains(t, text, "cbuild_last_run_success 1")
}

func TestTextfileRecorderWriteToMissingDirectory(t *testing.T) {
	rec := NewTextfileRecorder()

	err := rec.WriteTo(filepath.Join(t.TempDir(), "missing", "cbuild.prom"))
	assert.ErrorIs(t, err, ErrWrite)
}

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = NoopRecorder{}
	rec.ObserveStep("build", time.Second, nil)
	rec.SetOutcome(false, time.Now())
}
