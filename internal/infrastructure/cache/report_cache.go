package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sangkips/movecrm-api/internal/config"
)

const generationKey = "pipeline:report:gen"

// NewRedisClient connects to Redis. It returns nil, nil when no address is
// configured, and nil with the error when the server cannot be reached, so
// callers can keep running without a cache.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// ReportCache stores serialized pipeline reports in Redis. Keys embed a
// generation counter; bumping the counter retires every cached report at once.
// A ReportCache with a nil client is a no-op.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache creates a report cache
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client is attached
func (c *ReportCache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Lookup decodes the cached report for key into dest. The returned generation
// must be passed to Store so a report computed before an invalidation is
// never stored under the new generation.
func (c *ReportCache) Lookup(ctx context.Context, key string, dest interface{}) (int64, bool) {
	if !c.Enabled() {
		return 0, false
	}

	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("Warning: report cache generation read failed: %v", err)
		return 0, false
	}

	data, err := c.client.Get(ctx, reportKey(gen, key)).Bytes()
	if err != nil {
		return gen, false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return gen, false
	}
	return gen, true
}

// Store caches value for key under generation gen
func (c *ReportCache) Store(ctx context.Context, gen int64, key string, value interface{}) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, reportKey(gen, key), data, c.ttl).Err(); err != nil {
		log.Printf("Warning: report cache write failed: %v", err)
	}
}

// Invalidate retires every cached report
func (c *ReportCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		log.Printf("Warning: report cache invalidation failed: %v", err)
	}
}

func reportKey(gen int64, key string) string {
	return "pipeline:report:" + strconv.FormatInt(gen, 10) + ":" + key
}
