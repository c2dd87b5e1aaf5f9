package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rankgate/rankgate/gateway"
	"github.com/rankgate/rankgate/persona"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rankgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromYAML(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		path := writeConfigFile(t, `
app_config:
  app_id: 730
  leaderboard_name: survival
router_config:
  port: 8088
logger_config:
  level: debug
metrics_config:
  prometheus_addr: ":9999"
query_config:
  step_timeout: 5s
  leaderboard_name_wait: 1s
  lobby_name_wait: 2s
  lobby_owner_name_source: cache
  lobby_fetch_workers: 2
name_cache_config:
  backend: redis
  ttl: 30m
  redis:
    address: "127.0.0.1:6390"
predefined_filters:
  ranked:
    - mode: ranked
    - mode: ranked_hc
dev_mode: true
`)

		config, err := LoadFromYAML(path)
		require.NoError(t, err)

		require.Equal(t, uint32(730), config.App.AppID)
		require.Equal(t, "survival", config.App.LeaderboardName)
		require.Equal(t, 8088, config.Router.Port)
		require.Equal(t, "debug", config.Logger.Level)
		require.Equal(t, ":9999", config.Metrics.PrometheusAddr)
		require.Equal(t, 5*time.Second, config.Query.StepTimeout)
		require.Equal(t, time.Second, config.Query.LeaderboardNameWait)
		require.Equal(t, 2*time.Second, config.Query.LobbyNameWait)
		require.Equal(t, string(gateway.OwnerNameFromCache), config.Query.LobbyOwnerNameSource)
		require.Equal(t, 2, config.Query.LobbyFetchWorkers)
		require.Equal(t, NameCacheBackendRedis, config.NameCache.Backend)
		require.Equal(t, 30*time.Minute, config.NameCache.TTL)
		require.Equal(t, "127.0.0.1:6390", config.NameCache.Redis.Address)
		require.True(t, config.DevMode)

		require.Equal(t, []map[string]string{
			{"mode": "ranked"},
			{"mode": "ranked_hc"},
		}, config.PredefinedFilters["ranked"])
	})

	t.Run("minimal config hydrates defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
app_config:
  app_id: 730
`)

		config, err := LoadFromYAML(path)
		require.NoError(t, err)

		require.Equal(t, defaultLeaderboardName, config.App.LeaderboardName)
		require.Equal(t, "info", config.Logger.Level)
		require.Equal(t, ":9090", config.Metrics.PrometheusAddr)
		require.Equal(t, ":6060", config.Metrics.PprofAddr)
		require.Equal(t, 10*time.Second, config.Query.StepTimeout)
		require.Equal(t, 3*time.Second, config.Query.LeaderboardNameWait)
		require.Equal(t, 5*time.Second, config.Query.LobbyNameWait)
		require.Equal(t, string(gateway.OwnerNameFromMetadata), config.Query.LobbyOwnerNameSource)
		require.Equal(t, NameCacheBackendMemory, config.NameCache.Backend)
		require.Equal(t, time.Hour, config.NameCache.TTL)
		require.False(t, config.DevMode)
	})

	t.Run("missing app id", func(t *testing.T) {
		path := writeConfigFile(t, "logger_config:\n  level: info\n")

		_, err := LoadFromYAML(path)
		require.ErrorContains(t, err, "app_id")
	})

	t.Run("invalid log level", func(t *testing.T) {
		path := writeConfigFile(t, `
app_config:
  app_id: 730
logger_config:
  level: loud
`)

		_, err := LoadFromYAML(path)
		require.ErrorContains(t, err, "logger_config.level")
	})

	t.Run("invalid owner name source", func(t *testing.T) {
		path := writeConfigFile(t, `
app_config:
  app_id: 730
query_config:
  lobby_owner_name_source: psychic
`)

		_, err := LoadFromYAML(path)
		require.ErrorContains(t, err, "lobby_owner_name_source")
	})

	t.Run("redis backend requires redis section", func(t *testing.T) {
		path := writeConfigFile(t, `
app_config:
  app_id: 730
name_cache_config:
  backend: redis
`)

		_, err := LoadFromYAML(path)
		require.ErrorContains(t, err, "name_cache_config.redis")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromYAML(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("loads from environment variable", func(t *testing.T) {
		t.Setenv("RANKGATE_CONFIG", "app_config:\n  app_id: 730\n")

		config, err := LoadFromEnv()
		require.NoError(t, err)
		require.Equal(t, uint32(730), config.App.AppID)
	})

	t.Run("unset variable", func(t *testing.T) {
		t.Setenv("RANKGATE_CONFIG", "")

		_, err := LoadFromEnv()
		var envErr EnvConfigError
		require.ErrorAs(t, err, &envErr)
	})
}

func TestRedisConfigHydration(t *testing.T) {
	path := writeConfigFile(t, `
app_config:
  app_id: 730
name_cache_config:
  backend: redis
  redis:
    address: "10.0.0.5:6379"
`)

	config, err := LoadFromYAML(path)
	require.NoError(t, err)

	var want persona.RedisConfig
	want.Address = "10.0.0.5:6379"
	want.HydrateDefaults()
	require.Equal(t, &want, config.NameCache.Redis)
}
