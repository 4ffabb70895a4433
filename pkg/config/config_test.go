package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 30*time.Second, cfg.Reports.Cooldown)
	assert.Equal(t, 10, cfg.Reports.CooldownEvictFactor)
	assert.Equal(t, CooldownBackendMemory, cfg.Reports.CooldownBackend)
	assert.Equal(t, 5, cfg.Resolver.OfficialBonus)
	assert.Equal(t, 5, cfg.Resolver.MaxPasses)
	assert.Equal(t, 10*time.Minute, cfg.Timeline.CacheTTL)
	assert.Equal(t, 100, cfg.Assignment.BatchSize)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("REPORT_COOLDOWN", "45s")
	t.Setenv("REPORT_COOLDOWN_EVICT_FACTOR", "0")
	t.Setenv("REPORT_COOLDOWN_BACKEND", "REDIS")
	t.Setenv("RESOLVER_MAX_PASSES", "3")
	t.Setenv("TIMELINE_CACHE_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("EXPORT_PDF_FONT_PATH", " /fonts/NotoSansCJK.ttf ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Reports.Cooldown)
	assert.Equal(t, 10, cfg.Reports.CooldownEvictFactor)
	assert.Equal(t, CooldownBackendRedis, cfg.Reports.CooldownBackend)
	assert.Equal(t, 3, cfg.Resolver.MaxPasses)
	assert.Equal(t, 10*time.Minute, cfg.Timeline.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "/fonts/NotoSansCJK.ttf", cfg.Timeline.PDFFontPath)
}
