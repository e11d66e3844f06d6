package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "meteorspk"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	pageDuration     *prom.HistogramVec
	candidates       prom.Counter
	skipped          *prom.CounterVec
	stageDuration    *prom.HistogramVec
	attemptDuration  *prom.HistogramVec
	attemptResults   *prom.CounterVec
	ledgerPushRetry  prom.Counter
	runDuration      prom.Histogram
	lastRunTimestamp prom.Gauge
}

// NewPrometheusRecorder constructs and registers the pipeline metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		pageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_page_duration_seconds",
			Help:      "Duration of search page requests",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		candidates: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_discovered_total",
			Help:      "Distinct candidates yielded by discovery",
		}),
		skipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_skipped_total",
			Help:      "Candidates not dispatched, by reason",
		}, []string{"reason"}),
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_stage_duration_seconds",
			Help:      "Duration of packaging attempt stages",
			Buckets:   []float64{0.1, 1, 5, 15, 60, 300, 900, 1800, 3600},
		}, []string{"stage"}),
		attemptDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Total duration of packaging attempts",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"result"}),
		attemptResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Packaging attempts by result",
		}, []string{"result"}),
		ledgerPushRetry: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_push_retries_total",
			Help:      "Ledger pushes retried after a rejected push",
		}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.ExponentialBuckets(60, 2, 10),
		}),
		lastRunTimestamp: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
	reg.MustRegister(pr.pageDuration, pr.candidates, pr.skipped, pr.stageDuration, pr.attemptDuration,
		pr.attemptResults, pr.ledgerPushRetry, pr.runDuration, pr.lastRunTimestamp)
	return pr
}

func (p *PrometheusRecorder) ObservePageFetch(d time.Duration, ok bool) {
	if p == nil {
		return
	}
	res := "failed"
	if ok {
		res = "success"
	}
	p.pageDuration.WithLabelValues(res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddCandidatesDiscovered(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.candidates.Add(float64(n))
}

func (p *PrometheusRecorder) IncSkipped(reason SkipReason) {
	if p == nil {
		return
	}
	p.skipped.WithLabelValues(string(reason)).Inc()
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveAttempt(d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	p.attemptDuration.WithLabelValues(string(result)).Observe(d.Seconds())
	p.attemptResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncLedgerPushRetry() {
	if p == nil {
		return
	}
	p.ledgerPushRetry.Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
	p.lastRunTimestamp.SetToCurrentTime()
}
