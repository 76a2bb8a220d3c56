package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/jitolabs/cbuild/internal/fault"
)

const namespace = "cbuild"

// Records into a private registry written out with [TextfileRecorder.WriteTo].
type TextfileRecorder struct {
	reg          *prom.Registry
	stepDuration *prom.GaugeVec
	stepResults  *prom.CounterVec
	success      prom.Gauge
	timestamp    prom.Gauge
}

// Creates a recorder with its own registry.
func NewTextfileRecorder() *TextfileRecorder {
	r := &TextfileRecorder{
		reg: prom.NewRegistry(),
		stepDuration: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of each pipeline step in the last run",
		}, []string{"step", "result"}),
		stepResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "step_results_total",
			Help:      "Step results by outcome",
		}, []string{"step", "result"}),
		success: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "Whether the last run succeeded (1) or failed (0)",
		}),
		timestamp: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last run finished",
		}),
	}
	r.reg.MustRegister(r.stepDuration, r.stepResults, r.success, r.timestamp)
	return r
}

func (r *TextfileRecorder) ObserveStep(step string, d time.Duration, err error) {
	if r == nil {
		return
	}
	res := result(err)
	r.stepDuration.WithLabelValues(step, res).Set(d.Seconds())
	r.stepResults.WithLabelValues(step, res).Inc()
}

func (r *TextfileRecorder) SetOutcome(success bool, at time.Time) {
	if r == nil {
		return
	}
	if success {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
	r.timestamp.Set(float64(at.Unix()))
}

// Registry backing the recorder.
func (r *TextfileRecorder) Registry() *prom.Registry {
	return r.reg
}

// Writes the registry to path atomically.
func (r *TextfileRecorder) WriteTo(path string) error {
	if err := prom.WriteToTextfile(path, r.reg); err != nil {
		return fault.Wrap(ErrWrite, err)
	}
	return nil
}
