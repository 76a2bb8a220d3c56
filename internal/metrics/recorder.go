package metrics

import "time"

// Result labels attached to step observations.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Observability hooks for a pipeline run.
type Recorder interface {
	ObserveStep(step string, d time.Duration, err error)
	SetOutcome(success bool, at time.Time)
}

// Discards everything. Used when no metrics file is configured.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStep(string, time.Duration, error) {}
func (NoopRecorder) SetOutcome(bool, time.Time)               {}

func result(err error) string {
	if err != nil {
		return ResultFailed
	}
	return ResultSuccess
}
