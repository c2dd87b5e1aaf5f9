// Package config loads and validates the rankgate YAML configuration.
// Every section hydrates its own defaults, so an empty file is a runnable
// configuration for a single-instance deployment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rankgate/rankgate/gateway"
	"github.com/rankgate/rankgate/persona"
	"github.com/rankgate/rankgate/router"
)

/* ---------------------------------  Config Struct -------------------------------- */

// Config contains all configuration needed to operate rankgate, parsed from
// a YAML config file.
type Config struct {
	App       AppConfig       `yaml:"app_config"`
	Router    router.Config   `yaml:"router_config"`
	Logger    LoggerConfig    `yaml:"logger_config"`
	Metrics   MetricsConfig   `yaml:"metrics_config"`
	Query     QueryConfig     `yaml:"query_config"`
	NameCache NameCacheConfig `yaml:"name_cache_config"`

	// PredefinedFilters maps a filter group name to the lobby filter sets
	// it expands to in filter expressions.
	PredefinedFilters map[string][]map[string]string `yaml:"predefined_filters,omitempty"`

	// DevMode serves canned data from the in-memory transport instead of a
	// platform session. For local development of downstream scrapers.
	DevMode bool `yaml:"dev_mode,omitempty"`
}

type EnvConfigError struct {
	Description string
}

func (c EnvConfigError) Error() string {
	return c.Description
}

// LoadFromYAML reads a YAML configuration file from the specified path and
// unmarshals its content into a Config instance.
func LoadFromYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return parse(data)
}

// LoadFromEnv reads the YAML configuration from the RANKGATE_CONFIG
// environment variable.
func LoadFromEnv() (Config, error) {
	conf := os.Getenv("RANKGATE_CONFIG")
	if conf == "" {
		return Config{}, EnvConfigError{Description: "failed to load config from RANKGATE_CONFIG environment variable"}
	}
	return parse([]byte(conf))
}

func parse(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, err
	}
	config.hydrateDefaults()
	return config, config.Validate()
}

/* --------------------------------- Config Hydration & Validation -------------------------------- */

func (c *Config) hydrateDefaults() {
	c.App.hydrateAppDefaults()
	c.Router.HydrateDefaults()
	c.Logger.hydrateLoggerDefaults()
	c.Metrics.hydrateMetricsDefaults()
	c.Query.hydrateQueryDefaults()
	c.NameCache.hydrateNameCacheDefaults()
}

func (c *Config) Validate() error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	if err := c.Query.validate(); err != nil {
		return err
	}
	return c.NameCache.validate()
}

/* --------------------------------- App Config -------------------------------- */

const defaultLeaderboardName = "Leaderboard_name"

// AppConfig identifies the game whose data is served.
type AppConfig struct {
	// AppID is the game's application id on the platform.
	AppID uint32 `yaml:"app_id"`

	// LeaderboardName is the board queried when a request names none.
	LeaderboardName string `yaml:"leaderboard_name"`
}

func (c *AppConfig) hydrateAppDefaults() {
	if c.LeaderboardName == "" {
		c.LeaderboardName = defaultLeaderboardName
	}
}

func (c *AppConfig) validate() error {
	if c.AppID == 0 {
		return fmt.Errorf("app_config.app_id must be set")
	}
	return nil
}

/* --------------------------------- Query Config -------------------------------- */

// Query timing defaults. The step timeout bounds each protocol round trip;
// the name waits bound the best-effort display name resolution per query.
const (
	defaultStepTimeout         = 10 * time.Second
	defaultLeaderboardNameWait = 3 * time.Second
	defaultLobbyNameWait       = 5 * time.Second
	defaultLobbyFetchWorkers   = 4
)

// QueryConfig contains the timing and concurrency settings of the query
// coordinators.
type QueryConfig struct {
	StepTimeout         time.Duration `yaml:"step_timeout"`
	LeaderboardNameWait time.Duration `yaml:"leaderboard_name_wait"`
	LobbyNameWait       time.Duration `yaml:"lobby_name_wait"`

	// LobbyOwnerNameSource selects where lobby owner display names come
	// from: "metadata" (game-advertised, cache fallback) or "cache".
	LobbyOwnerNameSource string `yaml:"lobby_owner_name_source"`

	// LobbyFetchWorkers caps concurrent filter set fetches per query.
	LobbyFetchWorkers int `yaml:"lobby_fetch_workers"`
}

func (c *QueryConfig) hydrateQueryDefaults() {
	if c.StepTimeout == 0 {
		c.StepTimeout = defaultStepTimeout
	}
	if c.LeaderboardNameWait == 0 {
		c.LeaderboardNameWait = defaultLeaderboardNameWait
	}
	if c.LobbyNameWait == 0 {
		c.LobbyNameWait = defaultLobbyNameWait
	}
	if c.LobbyOwnerNameSource == "" {
		c.LobbyOwnerNameSource = string(gateway.OwnerNameFromMetadata)
	}
	if c.LobbyFetchWorkers == 0 {
		c.LobbyFetchWorkers = defaultLobbyFetchWorkers
	}
}

func (c *QueryConfig) validate() error {
	switch gateway.OwnerNameSource(c.LobbyOwnerNameSource) {
	case gateway.OwnerNameFromMetadata, gateway.OwnerNameFromCache:
		return nil
	default:
		return fmt.Errorf("query_config.lobby_owner_name_source must be %q or %q, got %q",
			gateway.OwnerNameFromMetadata, gateway.OwnerNameFromCache, c.LobbyOwnerNameSource)
	}
}

/* --------------------------------- Name Cache Config -------------------------------- */

const (
	// NameCacheBackendMemory is the in-process sturdyc cache.
	NameCacheBackendMemory = "memory"

	// NameCacheBackendRedis is the shared Redis cache for multi-instance
	// deployments.
	NameCacheBackendRedis = "redis"

	defaultNameCacheTTL = time.Hour
)

// NameCacheConfig selects and configures the persona name cache backend.
type NameCacheConfig struct {
	Backend  string        `yaml:"backend"`
	TTL      time.Duration `yaml:"ttl"`
	Capacity int           `yaml:"capacity,omitempty"`

	// Redis is required when backend is "redis".
	Redis *persona.RedisConfig `yaml:"redis,omitempty"`
}

func (c *NameCacheConfig) hydrateNameCacheDefaults() {
	if c.Backend == "" {
		c.Backend = NameCacheBackendMemory
	}
	if c.TTL == 0 {
		c.TTL = defaultNameCacheTTL
	}
	if c.Redis != nil {
		c.Redis.HydrateDefaults()
	}
}

func (c *NameCacheConfig) validate() error {
	switch c.Backend {
	case NameCacheBackendMemory:
		return nil
	case NameCacheBackendRedis:
		if c.Redis == nil {
			return fmt.Errorf("name_cache_config.redis must be set when backend is %q", NameCacheBackendRedis)
		}
		return nil
	default:
		return fmt.Errorf("name_cache_config.backend must be %q or %q, got %q",
			NameCacheBackendMemory, NameCacheBackendRedis, c.Backend)
	}
}
