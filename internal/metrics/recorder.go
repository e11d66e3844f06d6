package metrics

import "time"

// ResultLabel enumerates attempt outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailure ResultLabel = "failure"
	// ResultError marks attempts whose worker returned an error (failure recorded or not).
	ResultError ResultLabel = "error"
)

// SkipReason explains why a candidate was not dispatched.
type SkipReason string

const (
	SkipLedger  SkipReason = "ledger"
	SkipClaimed SkipReason = "claimed"
)

// Recorder defines observability hooks for discovery, attempts and the ledger.
type Recorder interface {
	ObservePageFetch(d time.Duration, ok bool)
	AddCandidatesDiscovered(n int)
	IncSkipped(reason SkipReason)
	ObserveStageDuration(stage string, d time.Duration)
	ObserveAttempt(d time.Duration, result ResultLabel)
	IncLedgerPushRetry()
	ObserveRunDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePageFetch(time.Duration, bool)          {}
func (NoopRecorder) AddCandidatesDiscovered(int)                   {}
func (NoopRecorder) IncSkipped(SkipReason)                         {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration)    {}
func (NoopRecorder) ObserveAttempt(time.Duration, ResultLabel)     {}
func (NoopRecorder) IncLedgerPushRetry()                           {}
func (NoopRecorder) ObserveRunDuration(time.Duration)              {}
