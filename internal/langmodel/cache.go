package langmodel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheSize is the number of sequences kept by a Cached scorer.
const DefaultCacheSize = 4096

// Cached memoises a Scorer in a fixed-size LRU.
type Cached struct {
	next  Scorer
	cache *lru.Cache[string, float64]
}

// NewCached wraps next with an LRU of size entries.
func NewCached(next Scorer, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, float64](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &Cached{next: next, cache: c}, nil
}

func (c *Cached) Prob(ctx context.Context, chars string) (float64, error) {
	if p, ok := c.cache.Get(chars); ok {
		return p, nil
	}
	p, err := c.next.Prob(ctx, chars)
	if err != nil {
		return 0, err
	}
	c.cache.Add(chars, p)
	return p, nil
}

// Len returns the number of cached sequences.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Shared stores probabilities in Redis so repeated runs over the same model skip scoring.
type Shared struct {
	next   Scorer
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewShared wraps next with a Redis cache. Keys are namespaced by modelKey, usually the
// model file name.
func NewShared(next Scorer, client *redis.Client, modelKey string, ttl time.Duration) *Shared {
	return &Shared{next: next, client: client, prefix: "typeclass:lm:" + modelKey + ":", ttl: ttl}
}

func (s *Shared) Prob(ctx context.Context, chars string) (float64, error) {
	key := s.prefix + chars
	val, err := s.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if p, perr := strconv.ParseFloat(val, 64); perr == nil {
			return p, nil
		}
	case !errors.Is(err, redis.Nil):
		return 0, fmt.Errorf("failed to read cached probability: %w", err)
	}

	p, err := s.next.Prob(ctx, chars)
	if err != nil {
		return 0, err
	}
	if err := s.client.Set(ctx, key, strconv.FormatFloat(p, 'g', -1, 64), s.ttl).Err(); err != nil {
		return 0, fmt.Errorf("failed to cache probability: %w", err)
	}
	return p, nil
}

// Dial connects to Redis at addr and checks the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return client, nil
}
