package config

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// LoadLegacySettings reads a settings.json file in the PascalCase shape the
// original plugin deployments use, and maps it onto a Config. Fields the
// legacy format does not know keep their defaults.
func LoadLegacySettings(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if !gjson.ValidBytes(data) {
		return Config{}, fmt.Errorf("invalid JSON in %s", path)
	}
	root := gjson.ParseBytes(data)

	var config Config
	if v := root.Get("Port"); v.Exists() {
		config.Router.Port = int(v.Int())
	}
	if v := root.Get("AppID"); v.Exists() {
		config.App.AppID = uint32(v.Uint())
	}
	if v := root.Get("LeaderboardName"); v.Exists() {
		config.App.LeaderboardName = v.String()
	}
	if root.Get("Debug").Bool() {
		config.Logger.Level = "debug"
	}

	if v := root.Get("PredefinedFilters"); v.Exists() {
		config.PredefinedFilters = make(map[string][]map[string]string)
		v.ForEach(func(group, sets gjson.Result) bool {
			var parsed []map[string]string
			sets.ForEach(func(_, set gjson.Result) bool {
				filters := make(map[string]string)
				set.ForEach(func(key, value gjson.Result) bool {
					filters[key.String()] = value.String()
					return true
				})
				parsed = append(parsed, filters)
				return true
			})
			config.PredefinedFilters[group.String()] = parsed
			return true
		})
	}

	config.hydrateDefaults()
	return config, config.Validate()
}
