package ledger

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Claimer reserves a candidate key before an attempt so concurrent workers sharing
// a ledger remote do not attempt the same project.
type Claimer interface {
	// Claim returns true when the caller now owns key.
	Claim(ctx context.Context, key string) (bool, error)
	Close() error
}

// NoopClaimer grants every claim. Used when no coordination backend is configured.
type NoopClaimer struct{}

func (NoopClaimer) Claim(context.Context, string) (bool, error) { return true, nil }
func (NoopClaimer) Close() error                                { return nil }

// ClaimKeyPrefix namespaces claim keys in Redis.
const ClaimKeyPrefix = "meteorspk:claim:"

type setNXer interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Close() error
}

// RedisClaimer claims keys with SET NX and a lease. Claims are never released early:
// they expire once the ledger entry has had time to reach every worker.
type RedisClaimer struct {
	client setNXer
	ttl    time.Duration
	owner  string
}

// NewRedisClaimer connects to redisURL and verifies the connection.
func NewRedisClaimer(ctx context.Context, redisURL string, ttl time.Duration) (*RedisClaimer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return newRedisClaimer(client, ttl), nil
}

func newRedisClaimer(client setNXer, ttl time.Duration) *RedisClaimer {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	host, _ := os.Hostname()
	return &RedisClaimer{client: client, ttl: ttl, owner: fmt.Sprintf("%s:%d", host, os.Getpid())}
}

func (r *RedisClaimer) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, ClaimKeyPrefix+key, r.owner, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

func (r *RedisClaimer) Close() error { return r.client.Close() }
