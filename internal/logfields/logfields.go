package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyCandidate  = "candidate"
	KeyURL        = "url"
	KeyPath       = "path"
	KeyStage      = "stage"
	KeyPage       = "page"
	KeyOutcome    = "outcome"
	KeyDurationMS = "duration_ms"
	KeyCommand    = "command"
	KeyCategory   = "category"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Candidate(key string) slog.Attr  { return slog.String(KeyCandidate, key) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Page(n int) slog.Attr            { return slog.Int(KeyPage, n) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Duration converts d to milliseconds under the canonical duration key.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d) / float64(time.Millisecond))
}

// Outcome renders a boolean attempt result as success|failure.
func Outcome(succeeded bool) slog.Attr {
	if succeeded {
		return slog.String(KeyOutcome, "success")
	}
	return slog.String(KeyOutcome, "failure")
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
