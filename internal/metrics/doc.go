// Package metrics provides the observability hooks for the crawl-and-package pipeline.
//
// Components receive a Recorder through their options. NoopRecorder is the default
// so metrics are optional everywhere; PrometheusRecorder is injected by the CLI when
// a metrics listen address is configured:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
