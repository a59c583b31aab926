package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/config"
)

func TestReportKey_OrderInsensitive(t *testing.T) {
	a := ReportKey("reorder", "snap1", "lead=7", "z=1.65")
	b := ReportKey("reorder", "snap1", "z=1.65", " lead=7 ")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "intel:report:reorder:snap1:"))
}

func TestReportKey_SnapshotAndParamsChangeKey(t *testing.T) {
	base := ReportKey("reorder", "snap1", "lead=7")
	assert.NotEqual(t, base, ReportKey("reorder", "snap2", "lead=7"))
	assert.NotEqual(t, base, ReportKey("reorder", "snap1", "lead=14"))
	assert.NotEqual(t, base, ReportKey("aging", "snap1", "lead=7"))
	assert.Equal(t, "intel:report:aging:s:default", ReportKey("aging", "s"))
}

func TestNewReportCache_DisabledIsNoop(t *testing.T) {
	c, err := NewReportCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}))

	var out map[string]int
	hit, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@cache:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	assert.Equal(t, redisIOTimeout, opts.ReadTimeout)
	assert.Equal(t, redisIOTimeout, opts.WriteTimeout)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "://bad"})
	assert.Error(t, err)
}

func TestKeyNamespace(t *testing.T) {
	assert.Equal(t, "", keyNamespace(""))
	assert.Equal(t, "", keyNamespace(" : "))
	assert.Equal(t, "wms:", keyNamespace("wms"))
	assert.Equal(t, "wms:", keyNamespace(" :wms: "))

	target := &redisTarget{namespace: keyNamespace("staging")}
	assert.Equal(t, "staging:intel:report:aging:s:default", target.key(ReportKey("aging", "s")))
}

func TestReportTTL(t *testing.T) {
	assert.Equal(t, defaultReportTTL, reportTTL(config.CacheConfig{}))
	assert.Equal(t, defaultReportTTL, reportTTL(config.CacheConfig{ReportTTLSeconds: -1}))
	assert.Equal(t, 5*time.Minute, reportTTL(config.CacheConfig{ReportTTLSeconds: 300}))
}
