package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeLegacyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadLegacySettings(t *testing.T) {
	t.Run("maps legacy fields", func(t *testing.T) {
		path := writeLegacyFile(t, `{
			"Port": 8088,
			"AppID": 730,
			"LeaderboardName": "survival",
			"Debug": true,
			"PredefinedFilters": {
				"ranked": [
					{"mode": "ranked"},
					{"mode": "ranked_hc", "region": "eu"}
				]
			}
		}`)

		config, err := LoadLegacySettings(path)
		require.NoError(t, err)

		require.Equal(t, 8088, config.Router.Port)
		require.Equal(t, uint32(730), config.App.AppID)
		require.Equal(t, "survival", config.App.LeaderboardName)
		require.Equal(t, "debug", config.Logger.Level)
		require.Equal(t, []map[string]string{
			{"mode": "ranked"},
			{"mode": "ranked_hc", "region": "eu"},
		}, config.PredefinedFilters["ranked"])
	})

	t.Run("unknown fields keep defaults", func(t *testing.T) {
		path := writeLegacyFile(t, `{"AppID": 730}`)

		config, err := LoadLegacySettings(path)
		require.NoError(t, err)

		require.Equal(t, defaultLeaderboardName, config.App.LeaderboardName)
		require.Equal(t, "info", config.Logger.Level)
		require.Equal(t, NameCacheBackendMemory, config.NameCache.Backend)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeLegacyFile(t, "{not json")

		_, err := LoadLegacySettings(path)
		require.ErrorContains(t, err, "invalid JSON")
	})

	t.Run("missing app id fails validation", func(t *testing.T) {
		path := writeLegacyFile(t, `{"Port": 8088}`)

		_, err := LoadLegacySettings(path)
		require.ErrorContains(t, err, "app_id")
	})
}
