package persona

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rankgate/rankgate/transport"
)

// Compile-time check that RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

/* --------------------------------- Redis Config -------------------------------- */

// Redis connection defaults.
const (
	defaultRedisAddress      = "localhost:6379"
	defaultRedisPoolSize     = 10
	defaultRedisDialTimeout  = 5 * time.Second
	defaultRedisReadTimeout  = 3 * time.Second
	defaultRedisWriteTimeout = 3 * time.Second
	defaultRedisKeyPrefix    = "rankgate:persona:"
)

// RedisConfig contains connection settings for the Redis-backed name cache.
type RedisConfig struct {
	Address      string        `yaml:"address"`
	Password     string        `yaml:"password,omitempty"`
	DB           int           `yaml:"db,omitempty"`
	PoolSize     int           `yaml:"pool_size,omitempty"`
	DialTimeout  time.Duration `yaml:"dial_timeout,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
	KeyPrefix    string        `yaml:"key_prefix,omitempty"`
}

// HydrateDefaults applies default values to unset RedisConfig fields.
func (c *RedisConfig) HydrateDefaults() {
	if c.Address == "" {
		c.Address = defaultRedisAddress
	}
	if c.PoolSize == 0 {
		c.PoolSize = defaultRedisPoolSize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultRedisDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultRedisReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultRedisWriteTimeout
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = defaultRedisKeyPrefix
	}
}

/* --------------------------------- Redis Store -------------------------------- */

// RedisStore implements Store using Redis, for multi-instance deployments
// where several rankgate processes share one name cache.
//
// Names are stored as plain string values under {keyPrefix}{steamID}, with an
// optional TTL.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore creates a Redis-backed name cache and validates the
// connection with a PING.
func NewRedisStore(ctx context.Context, config RedisConfig, ttl time.Duration) (*RedisStore, error) {
	config.HydrateDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:         config.Address,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", config.Address, err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: config.KeyPrefix,
		ttl:       ttl,
	}, nil
}

func (r *RedisStore) buildKey(id transport.SteamID) string {
	return r.keyPrefix + strconv.FormatUint(uint64(id), 10)
}

// Get returns the cached name for id, or ErrNotFound.
func (r *RedisStore) Get(ctx context.Context, id transport.SteamID) (string, error) {
	name, err := r.client.Get(ctx, r.buildKey(id)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get name from Redis: %w", err)
	}
	if !Usable(name) {
		return "", ErrNotFound
	}
	return name, nil
}

// GetMultiple returns the cached names for the given ids using a pipeline.
func (r *RedisStore) GetMultiple(ctx context.Context, ids []transport.SteamID) (map[transport.SteamID]string, error) {
	if len(ids) == 0 {
		return make(map[transport.SteamID]string), nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, r.buildKey(id))
	}

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	result := make(map[transport.SteamID]string, len(ids))
	for i, cmd := range cmds {
		name, err := cmd.Result()
		if err != nil || !Usable(name) {
			continue // Skip missing and placeholder entries
		}
		result[ids[i]] = name
	}
	return result, nil
}

// Set stores or replaces the name for id.
func (r *RedisStore) Set(ctx context.Context, id transport.SteamID, name string) error {
	if err := r.client.Set(ctx, r.buildKey(id), name, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set name in Redis: %w", err)
	}
	return nil
}

// SetMultiple stores or replaces names for a batch of ids using a pipeline.
func (r *RedisStore) SetMultiple(ctx context.Context, names map[transport.SteamID]string) error {
	if len(names) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for id, name := range names {
		pipe.Set(ctx, r.buildKey(id), name, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set multiple names in Redis: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
