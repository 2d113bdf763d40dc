package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/openstats/databank/pkg/model"
	"github.com/openstats/databank/pkg/storage"
)

// RedisClient handles caching operations
type RedisClient struct {
	client *redis.Client
	config storage.Config
}

// NewRedisClient creates a new Redis client
func NewRedisClient(config storage.Config) (*RedisClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	// Override with config values if provided
	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB >= 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisMaxRetries > 0 {
		opts.MaxRetries = config.RedisMaxRetries
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{
		client: client,
		config: config,
	}, nil
}

// GetDataSet retrieves a data set from cache. A nil result with nil error is
// a cache miss.
func (c *RedisClient) GetDataSet(ctx context.Context, id string) (*model.DataSet, error) {
	key := dataSetKey(id)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil // Cache miss
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var ds model.DataSet
	if err := json.Unmarshal([]byte(data), &ds); err != nil {
		// If unmarshal fails, delete corrupt data
		c.client.Del(ctx, key)
		return nil, fmt.Errorf("failed to unmarshal data set: %w", err)
	}

	return &ds, nil
}

// SetDataSet stores a data set in cache
func (c *RedisClient) SetDataSet(ctx context.Context, ds *model.DataSet) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to marshal data set: %w", err)
	}

	return c.client.Set(ctx, dataSetKey(ds.ID), data, c.config.CacheTTL["data_set"]).Err()
}

// InvalidateDataSet removes a data set from cache
func (c *RedisClient) InvalidateDataSet(ctx context.Context, id string) error {
	return c.client.Del(ctx, dataSetKey(id)).Err()
}

// GetVersion retrieves a data set version from cache
func (c *RedisClient) GetVersion(ctx context.Context, id string) (*model.DataSetVersion, error) {
	key := versionKey(id)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil // Cache miss
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var v model.DataSetVersion
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		c.client.Del(ctx, key)
		return nil, fmt.Errorf("failed to unmarshal version: %w", err)
	}

	return &v, nil
}

// SetVersion stores a data set version in cache
func (c *RedisClient) SetVersion(ctx context.Context, v *model.DataSetVersion) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal version: %w", err)
	}

	return c.client.Set(ctx, versionKey(v.ID), data, c.config.CacheTTL["version"]).Err()
}

// InvalidateVersion removes a version and its meta catalog from cache
func (c *RedisClient) InvalidateVersion(ctx context.Context, id string) error {
	return c.client.Del(ctx, versionKey(id), versionMetaKey(id)).Err()
}

// GetVersionMeta retrieves a version's meta catalog from cache
func (c *RedisClient) GetVersionMeta(ctx context.Context, versionID string) (*model.VersionMeta, error) {
	key := versionMetaKey(versionID)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil // Cache miss
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var meta model.VersionMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		c.client.Del(ctx, key)
		return nil, fmt.Errorf("failed to unmarshal version meta: %w", err)
	}

	return &meta, nil
}

// SetVersionMeta stores a version's meta catalog in cache
func (c *RedisClient) SetVersionMeta(ctx context.Context, meta *model.VersionMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal version meta: %w", err)
	}

	return c.client.Set(ctx, versionMetaKey(meta.DataSetVersionID), data, c.config.CacheTTL["meta"]).Err()
}

// InvalidatePatterns removes keys matching patterns
func (c *RedisClient) InvalidatePatterns(ctx context.Context, patterns ...string) error {
	for _, pattern := range patterns {
		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan failed for pattern %s: %w", pattern, err)
		}
	}
	return nil
}

// Ping checks Redis connectivity
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetClient returns the underlying Redis client for health checks
func (c *RedisClient) GetClient() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	return c.client.Close()
}

// GetPoolStats returns connection pool statistics
func (c *RedisClient) GetPoolStats() *redis.PoolStats {
	return c.client.PoolStats()
}

func dataSetKey(id string) string {
	return fmt.Sprintf("data_set:%s", id)
}

func versionKey(id string) string {
	return fmt.Sprintf("version:%s", id)
}

func versionMetaKey(id string) string {
	return fmt.Sprintf("version_meta:%s", id)
}
