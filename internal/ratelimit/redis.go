package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "agl"

// RedisStore keeps limiter entries in Redis so several callers inside one
// process share a single throttling authority that survives process restarts.
// Entry TTL mirrors ResetTime, so Redis evicts expired entries on its own.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Store backed by the given Redis client.
func NewRedisStore(redisClient redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{redis: redisClient, prefix: prefix}
}

func (s *RedisStore) key(identifier string) string {
	return s.prefix + ":" + identifier
}

func (s *RedisStore) Get(ctx context.Context, identifier string) (*Entry, error) {
	raw, err := s.redis.Get(ctx, s.key(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: decode entry: %v", ErrStoreUnavailable, err)
	}
	return &e, nil
}

func (s *RedisStore) Put(ctx context.Context, entry *Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", ErrStoreUnavailable, err)
	}

	ttl := time.Until(entry.ResetTime)
	if ttl <= 0 {
		// Already expired; storing it would violate the treat-as-absent rule.
		return s.Delete(ctx, entry.Identifier)
	}

	if err := s.redis.Set(ctx, s.key(entry.Identifier), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, identifier string) error {
	if err := s.redis.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Entries(ctx context.Context) ([]*Entry, error) {
	var (
		out    []*Entry
		cursor uint64
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+":*", 128).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		for _, key := range keys {
			raw, err := s.redis.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			var e Entry
			if err := json.Unmarshal(raw, &e); err != nil {
				continue
			}
			out = append(out, &e)
		}

		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}
