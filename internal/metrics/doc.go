// Package metrics records build metrics behind the Recorder interface.
//
// Components default to NoopRecorder, so callers never nil-check. When a
// metrics file is configured the build swaps in a PrometheusRecorder backed
// by its own registry and writes the registry in the Prometheus text format
// once the build finished (node_exporter textfile collector layout):
//
//	reg := prom.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	// ... build with rec ...
//	err := metrics.WriteTextfile(reg, "/var/lib/node_exporter/sitebuild.prom")
package metrics
