// Package ratelimit implements sliding-window request limiting with an
// in-process store and a Redis store shared between instances.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store records hits for a key and reports whether one more is allowed.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

const sweepThreshold = 10000

// Memory is a Store local to one process.
type Memory struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// NewMemory creates an empty in-process Store.
func NewMemory() *Memory {
	return &Memory{hits: make(map[string][]time.Time), now: time.Now}
}

// Allow records a hit for key unless limit hits already fall inside window.
// Rejected requests are not recorded.
func (m *Memory) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	start := now.Add(-window)
	if len(m.hits) >= sweepThreshold {
		for k, ts := range m.hits {
			if len(ts) == 0 || !ts[len(ts)-1].After(start) {
				delete(m.hits, k)
			}
		}
	}

	recent := prune(m.hits[key], start)
	if len(recent) >= limit {
		m.hits[key] = recent
		return false, nil
	}
	m.hits[key] = append(recent, now)
	return true, nil
}

func prune(ts []time.Time, start time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(start) {
		i++
	}
	return ts[i:]
}

// Redis is a Store backed by one sorted set per key.
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedis parses url (redis://...) and returns a Store using it.
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisClient(redis.NewClient(opts)), nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "ratelimit:", now: time.Now}
}

// Ping checks connectivity.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Redis) Close() error {
	return s.client.Close()
}

// Allow records the hit and counts the window in one MULTI block, so
// concurrent callers each see the others' hits. A hit over the limit is
// removed again.
func (s *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := s.now()
	k := s.prefix + key
	start := strconv.FormatInt(now.Add(-window).UnixMicro(), 10)
	member := uuid.NewString()

	var card *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, k, "-inf", start)
		p.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMicro()), Member: member})
		card = p.ZCard(ctx, k)
		p.PExpire(ctx, k, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ratelimit record: %w", err)
	}
	if card.Val() <= int64(limit) {
		return true, nil
	}

	if err := s.client.ZRem(ctx, k, member).Err(); err != nil {
		return false, fmt.Errorf("ratelimit rollback: %w", err)
	}
	return false, nil
}
