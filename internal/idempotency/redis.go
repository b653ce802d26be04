package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewRedisClient creates a go-redis client for addr.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Open returns a Redis-backed store when enabled and reachable, and a memory
// store otherwise. closeFn releases the Redis client, if one was kept.
func Open(ctx context.Context, enabled bool, addr string, ttl time.Duration, logger zerolog.Logger) (store Store, closeFn func() error) {
	noop := func() error { return nil }
	if !enabled {
		logger.Info().Msg("using in-memory checkout idempotency store (Redis disabled)")
		return NewMemoryStore(ttl), noop
	}

	rdb := NewRedisClient(addr)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().
			Err(err).
			Str("addr", addr).
			Msg("failed to reach Redis, falling back to in-memory idempotency store")
		_ = rdb.Close()
		return NewMemoryStore(ttl), noop
	}

	logger.Info().Str("addr", addr).Msg("using Redis checkout idempotency store")
	return NewRedisStore(rdb, ttl, logger), rdb.Close
}

// releaseScript deletes a key only while it still holds the pending marker.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// redisStore implements Store with SETNX claims.
type redisStore struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed store. A non-positive ttl uses
// DefaultTTL.
func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration, logger zerolog.Logger) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisStore{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "idempotency-redis").Logger(),
	}
}

func (s *redisStore) Begin(ctx context.Context, key string) (Claim, error) {
	ok, err := s.rdb.SetNX(ctx, key, pendingMarker, s.ttl).Result()
	if err != nil {
		return Claim{}, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if ok {
		return Claim{Acquired: true}, nil
	}

	value, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired or released between SETNX and GET; try once more.
		ok, err = s.rdb.SetNX(ctx, key, pendingMarker, s.ttl).Result()
		if err != nil {
			return Claim{}, fmt.Errorf("failed to claim idempotency key: %w", err)
		}
		if ok {
			return Claim{Acquired: true}, nil
		}
		return Claim{}, ErrInProgress
	}
	if err != nil {
		return Claim{}, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	if value == pendingMarker {
		return Claim{}, ErrInProgress
	}

	s.logger.Info().Str("key", key).Str("order_id", value).Msg("submission already completed")
	return Claim{OrderID: value}, nil
}

func (s *redisStore) Complete(ctx context.Context, key, orderID string) error {
	if err := s.rdb.Set(ctx, key, orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record order for idempotency key: %w", err)
	}
	return nil
}

func (s *redisStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, s.rdb, []string{key}, pendingMarker).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
