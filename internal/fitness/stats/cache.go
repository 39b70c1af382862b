package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fitlog/internal/fitness/calendar"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	generationKey    = "fitlog::stats::generation"
	megabyte         = 1024 * 1024
	defaultCacheTTL  = 10 * time.Minute

	// freecache rejects entries above 1/1024 of its size. A 90 day report with
	// every category trained is around 12KB of JSON, so 32MB leaves room for
	// long exercise names.
	minCacheSize = 32 * megabyte
)

// Cache keeps computed reports in process memory, keyed by the log generation,
// timezone and day. The generation is a counter in redis, bumped on every write,
// so all instances stop serving stale reports together.
type Cache struct {
	redis *redis.Client
	local *freecache.Cache
	ttl   time.Duration
}

// NewCache sizes the local cache in megabytes. Sizes below 32MB are raised
// to 32MB.
func NewCache(redisClient *redis.Client, sizeMB int, ttl time.Duration) *Cache {
	cacheSize := minCacheSize
	if sizeMB*megabyte > minCacheSize {
		cacheSize = sizeMB * megabyte
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{
		redis: redisClient,
		local: freecache.NewCache(cacheSize),
		ttl:   ttl,
	}
}

// Invalidate drops the local entries and bumps the shared generation.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.local.Clear()
	if err := c.redis.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("incr stats generation: %w", err)
	}
	return nil
}

// Key returns the cache key of the report for the given day, or an error
// when the generation can't be read, in which case the cache must be bypassed.
func (c *Cache) Key(ctx context.Context, timezone string, day calendar.Day) (string, error) {
	generation, err := c.redis.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		generation = 0
	} else if err != nil {
		return "", fmt.Errorf("get stats generation: %w", err)
	}
	return fmt.Sprintf("stats::%d::%s::%s", generation, timezone, day), nil
}

func (c *Cache) Get(key string) (*FitnessStats, bool) {
	statsBytes, err := c.local.Get([]byte(key))
	if err != nil {
		return nil, false
	}

	stats := &FitnessStats{}
	if err := json.Unmarshal(statsBytes, stats); err != nil {
		log.Errorf("failed to unmarshal cached stats %s: %s", key, err)
		return nil, false
	}
	return stats, true
}

func (c *Cache) Set(key string, stats *FitnessStats) error {
	statsBytes, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := c.local.Set([]byte(key), statsBytes, int(c.ttl.Seconds())); err != nil {
		return fmt.Errorf("write stats cache %s (%d bytes): %w", key, len(statsBytes), err)
	}
	return nil
}
