package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GIT_BASE_PATH", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.ServerAddr)
	assert.Equal(t, 1<<20, cfg.CacheMaxWeight)
	assert.Equal(t, 64, cfg.ReloadQueueDepth)
	assert.True(t, cfg.WatchRefs)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.False(t, cfg.Debug)
}

func TestLoadFromEnvironment(t *testing.T) {
	base := t.TempDir()
	t.Setenv("GIT_BASE_PATH", base)
	t.Setenv("SERVER_ADDR", "0.0.0.0:9090")
	t.Setenv("CACHE_MAX_WEIGHT", "4096")
	t.Setenv("RELOAD_QUEUE_DEPTH", "8")
	t.Setenv("WATCH_REFS", "false")
	t.Setenv("WATCH_DEBOUNCE", "2s")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, base, cfg.BasePath)
	assert.Equal(t, "0.0.0.0:9090", cfg.ServerAddr)
	assert.Equal(t, 4096, cfg.CacheMaxWeight)
	assert.Equal(t, 8, cfg.ReloadQueueDepth)
	assert.False(t, cfg.WatchRefs)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.True(t, cfg.Debug)
}

func TestLoadRequiresBasePath(t *testing.T) {
	t.Setenv("GIT_BASE_PATH", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsMissingBaseDir(t *testing.T) {
	t.Setenv("GIT_BASE_PATH", "/does/not/exist")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveWeight(t *testing.T) {
	t.Setenv("GIT_BASE_PATH", t.TempDir())
	t.Setenv("CACHE_MAX_WEIGHT", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("GIT_BASE_PATH", t.TempDir())
	t.Setenv("CACHE_MAX_WEIGHT", "lots")
	t.Setenv("WATCH_DEBOUNCE", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1<<20, cfg.CacheMaxWeight)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
}
