package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulproteus/for-each-meteor-app/internal/config"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Mode != config.RetryBackoffExponential {
		t.Fatalf("expected exponential default mode got %s", p.Mode)
	}
	if p.Initial != time.Second || p.Max != 30*time.Second || p.MaxRetries != 3 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

// TestNewPolicyOverrides checks override precedence and clamping when initial > max.
func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 2*time.Second, 5)
	if p.Initial != 2*time.Second {
		t.Fatalf("expected clamped initial 2s got %v", p.Initial)
	}
	if p.Mode != config.RetryBackoffFixed || p.MaxRetries != 5 {
		t.Fatalf("unexpected policy: %+v", p)
	}
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(config.RetryConfig{MaxRetries: 1, InitialDelay: "10ms", MaxDelay: "40ms", Backoff: config.RetryBackoffLinear})
	if p.Initial != 10*time.Millisecond || p.Max != 40*time.Millisecond || p.MaxRetries != 1 || p.Mode != config.RetryBackoffLinear {
		t.Fatalf("unexpected policy from config: %+v", p)
	}
}

// TestDelayModes ensures fixed, linear, exponential behave and respect cap.
func TestDelayModes(t *testing.T) {
	cases := []struct {
		name    string
		policy  Policy
		attempt int
		want    time.Duration
	}{
		{"fixed", NewPolicy(config.RetryBackoffFixed, 100*time.Millisecond, 500*time.Millisecond, 3), 3, 100 * time.Millisecond},
		{"linear", NewPolicy(config.RetryBackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5), 2, 200 * time.Millisecond},
		{"linear capped", NewPolicy(config.RetryBackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5), 4, 250 * time.Millisecond},
		{"exponential", NewPolicy(config.RetryBackoffExponential, 50*time.Millisecond, 160*time.Millisecond, 5), 2, 100 * time.Millisecond},
		{"exponential capped", NewPolicy(config.RetryBackoffExponential, 50*time.Millisecond, 160*time.Millisecond, 5), 3, 160 * time.Millisecond},
		{"zero attempt", DefaultPolicy(), 0, 0},
	}
	for _, c := range cases {
		if got := c.policy.Delay(c.attempt); got != c.want {
			t.Errorf("%s attempt %d expected %v got %v", c.name, c.attempt, c.want, got)
		}
	}
}

func TestDo(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	errTransient := errors.New("transient")

	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		err := p.Do(context.Background(), nil, func(int) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Fatalf("expected success on third call, got err=%v calls=%d", err, calls)
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		calls := 0
		err := p.Do(context.Background(), nil, func(int) error { calls++; return errTransient })
		if !errors.Is(err, errTransient) || calls != 3 {
			t.Fatalf("expected wrapped transient error after 3 calls, got err=%v calls=%d", err, calls)
		}
	})

	t.Run("permanent stops immediately", func(t *testing.T) {
		permanent := errors.New("permanent")
		calls := 0
		err := p.Do(context.Background(), func(err error) bool { return !errors.Is(err, permanent) }, func(int) error {
			calls++
			return permanent
		})
		if !errors.Is(err, permanent) || calls != 1 {
			t.Fatalf("expected single call, got err=%v calls=%d", err, calls)
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := NewPolicy(config.RetryBackoffFixed, time.Hour, time.Hour, 3)
		err := slow.Do(ctx, nil, func(int) error { return errTransient })
		if !errors.Is(err, errTransient) {
			t.Fatalf("expected last error to be reported, got %v", err)
		}
	})
}
