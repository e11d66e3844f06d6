package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObservePageFetch(150*time.Millisecond, true)
	pr.AddCandidatesDiscovered(3)
	pr.IncSkipped(SkipLedger)
	pr.IncSkipped(SkipLedger)
	pr.ObserveStageDuration("clone", 2*time.Second)
	pr.ObserveAttempt(time.Minute, ResultSuccess)
	pr.ObserveAttempt(time.Minute, ResultFailure)
	pr.IncLedgerPushRetry()
	pr.ObserveRunDuration(10 * time.Minute)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := counterValue(mfs, "meteorspk_candidates_discovered_total", ""); got != 3 {
		t.Fatalf("expected 3 candidates, got %v", got)
	}
	if got := counterValue(mfs, "meteorspk_candidates_skipped_total", string(SkipLedger)); got != 2 {
		t.Fatalf("expected 2 ledger skips, got %v", got)
	}
	if got := counterValue(mfs, "meteorspk_attempts_total", string(ResultFailure)); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if got := counterValue(mfs, "meteorspk_ledger_push_retries_total", ""); got != 1 {
		t.Fatalf("expected 1 push retry, got %v", got)
	}
}

// counterValue returns the counter named name whose single label (if any) equals label.
func counterValue(mfs []*dto.MetricFamily, name, label string) float64 {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" {
				if len(m.GetLabel()) == 0 || m.GetLabel()[0].GetValue() != label {
					continue
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return -1
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObservePageFetch(time.Second, false)
	pr.AddCandidatesDiscovered(1)
	pr.IncSkipped(SkipClaimed)
	pr.ObserveAttempt(time.Second, ResultError)
	pr.ObserveRunDuration(time.Second)
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).AddCandidatesDiscovered(1)

	rr := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "meteorspk_candidates_discovered_total") {
		t.Fatalf("expected candidates metric in scrape output:\n%s", body)
	}
}

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)
