package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"room-mapper/core/metrics"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// generationTTL bounds how long an invalidation is remembered. It only has to
// outlive a single load.
const generationTTL = 24 * time.Hour

// Cache is a JSON cache over Redis. Every Del bumps a per-key generation;
// Fetch writes a loaded value only if the generation it read before loading is
// still current, so a load that raced an invalidation is never cached.
type Cache struct {
	c      *redis.Client
	ttl    time.Duration
	prefix string
	sf     singleflight.Group
}

// New connects a cache from configuration.
func New(cfg Config) *Cache {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return NewWithClient(client, time.Duration(cfg.TTLSeconds)*time.Second, cfg.Prefix)
}

// NewWithClient wraps an existing client. A non-positive ttl means entries never expire.
func NewWithClient(client *redis.Client, ttl time.Duration, prefix string) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{c: client, ttl: ttl, prefix: prefix}
}

// Ping verifies the connection.
func (r *Cache) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Cache) Close() error {
	return r.c.Close()
}

// Get decodes the cached value of key into dst and reports whether it was present.
func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	metrics.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

// Set stores v under key.
func (r *Cache) Set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	metrics.ObserveCache("redis", "set")
	return r.c.Set(ctx, r.prefix+key, b, r.ttl).Err()
}

// Del removes keys and bumps their generations.
func (r *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	metrics.ObserveCache("redis", "del")
	_, err := r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Del(ctx, r.prefix+k)
			p.Incr(ctx, r.genKey(k))
			p.Expire(ctx, r.genKey(k), generationTTL)
		}
		return nil
	})
	return err
}

func (r *Cache) genKey(key string) string {
	return r.prefix + "gen:" + key
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *Cache) generation(ctx context.Context, c getter, key string) (int64, error) {
	g, err := c.Get(ctx, r.genKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return g, err
}

// setIfGeneration stores b under key unless key was invalidated after gen was read.
func (r *Cache) setIfGeneration(ctx context.Context, key string, gen int64, b []byte) error {
	err := r.c.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := r.generation(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, r.prefix+key, b, r.ttl)
			return nil
		})
		return err
	}, r.genKey(key))
	if errors.Is(err, errStale) || errors.Is(err, redis.TxFailedErr) {
		metrics.ObserveCache("redis", "stale")
		return nil
	}
	if err == nil {
		metrics.ObserveCache("redis", "set")
	}
	return err
}

var errStale = errors.New("cache generation moved")

// Fetch fills dst from the cache, or from load on a miss. Concurrent misses
// for the same key share one load. A nil value from load is not cached and
// Fetch reports false. A value loaded while the key was invalidated is
// returned to the caller but not cached.
func (r *Cache) Fetch(ctx context.Context, key string, dst any, load func(context.Context) (any, error)) (bool, error) {
	if ok, err := r.Get(ctx, key, dst); err == nil && ok {
		return true, nil
	}

	v, err, _ := r.sf.Do(key, func() (any, error) {
		gen, genErr := r.generation(ctx, r.c, key)
		v, err := load(ctx)
		if err != nil || v == nil {
			return v, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode cache value %s: %w", key, err)
		}
		// Without a generation the write could not be checked; a failed write
		// only costs a later miss.
		if genErr == nil {
			_ = r.setIfGeneration(ctx, key, gen, b)
		}
		return b, nil
	})
	if err != nil {
		return false, err
	}
	b, ok := v.([]byte)
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
