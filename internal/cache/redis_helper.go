package cache

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/config"
)

const (
	defaultReportTTL = time.Minute
	redisPingTimeout = 5 * time.Second
	redisIOTimeout   = 2 * time.Second
)

// redisTarget is a live client plus the key namespace and expiry every report
// entry is written with.
type redisTarget struct {
	client    *redis.Client
	ttl       time.Duration
	namespace string
}

func dialRedis(cfg config.CacheConfig) (*redisTarget, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return &redisTarget{
		client:    client,
		ttl:       reportTTL(cfg),
		namespace: keyNamespace(cfg.KeyPrefix),
	}, nil
}

// reportTTL is the configured report expiry, or a minute when unset.
func reportTTL(cfg config.CacheConfig) time.Duration {
	ttl := time.Duration(cfg.ReportTTLSeconds) * time.Second
	if ttl <= 0 {
		return defaultReportTTL
	}
	return ttl
}

// keyNamespace turns "wms", "wms:" or " :wms: " into "wms:". An empty prefix
// leaves keys as built by ReportKey.
func keyNamespace(prefix string) string {
	p := strings.Trim(strings.TrimSpace(prefix), ":")
	if p == "" {
		return ""
	}
	return p + ":"
}

func (t *redisTarget) key(k string) string {
	return t.namespace + k
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	var opts *redis.Options
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		host := cfg.RedisHost
		if host == "" {
			host = "127.0.0.1"
		}
		port := cfg.RedisPort
		if port == "" {
			port = "6379"
		}
		opts = &redis.Options{
			Addr:     net.JoinHostPort(host, port),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	}

	// Cache errors degrade to misses, so round trips stay short.
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = redisIOTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = redisIOTimeout
	}
	return opts, nil
}

// unlinkMatching removes every key under prefix, batchSize keys per SCAN round.
func unlinkMatching(ctx context.Context, client *redis.Client, prefix string, batchSize int64) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, prefix+"*", batchSize).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan %s*: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := client.Unlink(ctx, keys...).Err(); err != nil {
				return removed, fmt.Errorf("redis unlink: %w", err)
			}
			removed += len(keys)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
