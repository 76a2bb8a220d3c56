// Step timings and run outcomes.
//
// The pipeline reports through a [Recorder]. [NoopRecorder] is the default;
// [TextfileRecorder] keeps the values in a private Prometheus registry and
// writes them in the text exposition format for the node_exporter textfile
// collector:
//
//	rec := metrics.NewTextfileRecorder()
//	rec.ObserveStep("build", 42*time.Second, nil)
//	rec.SetOutcome(true, time.Now())
//	err := rec.WriteTo("/var/lib/node_exporter/cbuild.prom")
package metrics
