package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/banking/activity-graph-service/internal/config"
	"github.com/banking/activity-graph-service/internal/domain"
	"github.com/banking/activity-graph-service/internal/pkg/logger"
)

const (
	reportKeyPrefix = "activity-graph:risk"
	generationKey   = "activity-graph:risk:gen"
)

// RiskCache caches generated risk reports in Redis. The cache is best
// effort: every failure degrades to a miss and is logged, never surfaced.
// Full invalidation bumps a generation counter baked into every key rather
// than scanning the keyspace; superseded entries age out via TTL.
type RiskCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New connects to Redis and verifies the connection
func New(cfg config.RedisConfig, log *logger.Logger) (*RiskCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RiskCache{
		client: client,
		ttl:    cfg.RiskCacheTTL,
		log:    log.Named("risk_cache"),
	}, nil
}

// GetReport returns a cached report, or a miss on any error
func (c *RiskCache) GetReport(ctx context.Context, entityID string) (*domain.RiskReport, bool) {
	key, err := c.reportKey(ctx, entityID)
	if err != nil {
		c.log.Warn("cache key lookup failed", logger.ErrorField(err))
		return nil, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("cache get failed", logger.ErrorField(err))
		return nil, false
	}

	var report domain.RiskReport
	if err := json.Unmarshal(raw, &report); err != nil {
		c.log.Warn("cached report corrupt", logger.ErrorField(err))
		return nil, false
	}
	return &report, true
}

// SetReport stores a report under the current generation
func (c *RiskCache) SetReport(ctx context.Context, report *domain.RiskReport) {
	key, err := c.reportKey(ctx, report.EntityID)
	if err != nil {
		c.log.Warn("cache key lookup failed", logger.ErrorField(err))
		return
	}

	raw, err := json.Marshal(report)
	if err != nil {
		c.log.Warn("cache encode failed", logger.ErrorField(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", logger.ErrorField(err))
	}
}

// Invalidate drops the cached reports for specific entities
func (c *RiskCache) Invalidate(ctx context.Context, entityIDs ...string) {
	keys := make([]string, 0, len(entityIDs))
	for _, id := range entityIDs {
		key, err := c.reportKey(ctx, id)
		if err != nil {
			c.log.Warn("cache key lookup failed", logger.ErrorField(err))
			return
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("cache invalidate failed", logger.ErrorField(err))
	}
}

// InvalidateAll bumps the generation, orphaning every cached report
func (c *RiskCache) InvalidateAll(ctx context.Context) {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.log.Warn("cache generation bump failed", logger.ErrorField(err))
	}
}

// Close releases the connection pool
func (c *RiskCache) Close() error {
	return c.client.Close()
}

func (c *RiskCache) reportKey(ctx context.Context, entityID string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%s", reportKeyPrefix, gen, entityID), nil
}
