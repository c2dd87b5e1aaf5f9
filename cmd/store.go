package main

import (
	"context"
	"fmt"

	"github.com/pokt-network/poktroll/pkg/polylog"

	configpkg "github.com/rankgate/rankgate/config"
	"github.com/rankgate/rankgate/persona"
)

// buildNameStore creates the persona name cache selected by the config:
// the in-process cache by default, Redis for multi-instance deployments.
func buildNameStore(ctx context.Context, logger polylog.Logger, config configpkg.NameCacheConfig) (persona.Store, error) {
	switch config.Backend {
	case configpkg.NameCacheBackendRedis:
		store, err := persona.NewRedisStore(ctx, *config.Redis, config.TTL)
		if err != nil {
			return nil, fmt.Errorf("redis name cache: %w", err)
		}
		logger.Info().
			Str("address", config.Redis.Address).
			Dur("ttl", config.TTL).
			Msg("Using Redis name cache")
		return store, nil

	case configpkg.NameCacheBackendMemory:
		logger.Info().
			Dur("ttl", config.TTL).
			Int("capacity", config.Capacity).
			Msg("Using in-memory name cache")
		return persona.NewMemoryStore(config.Capacity, config.TTL), nil

	default:
		return nil, fmt.Errorf("unknown name cache backend %q", config.Backend)
	}
}
