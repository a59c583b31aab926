package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/config"
)

const (
	reportKeyPrefix     = "intel:report"
	reportScanBatchSize = 100
)

// ReportCache stores rendered reports keyed by report name, snapshot id and
// parameter fingerprint. A new snapshot id never hits an old entry.
type ReportCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	target *redisTarget
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	target, err := dialRedis(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{target: target}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := c.target.client.Get(ctx, c.target.key(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode report cache %s: %w", key, err)
	}
	return true, nil
}

func (c *redisReportCache) Set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode report cache %s: %w", key, err)
	}

	if err := c.target.client.Set(ctx, c.target.key(key), payload, c.target.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	removed, err := unlinkMatching(ctx, c.target.client, c.target.key(reportKeyPrefix), reportScanBatchSize)
	if err != nil {
		return err
	}
	log.Debug().Int("keys", removed).Msg("report cache cleared")
	return nil
}

func (n *noopReportCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (n *noopReportCache) Set(ctx context.Context, key string, value interface{}) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// ReportKey builds the cache key for one report. Parts are "name=value" pairs;
// their order does not matter.
func ReportKey(report, snapshotID string, parts ...string) string {
	return fmt.Sprintf("%s:%s:%s:%s", reportKeyPrefix, report, snapshotID, partsHash(parts))
}

func partsHash(parts []string) string {
	normalized := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		normalized = append(normalized, p)
	}
	if len(normalized) == 0 {
		return "default"
	}

	sort.Strings(normalized)
	sum := sha1.Sum([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:])
}
