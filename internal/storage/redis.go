package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hamlet/pkg/storage"
)

// RedisStorage implements the Storage interface using Redis for world
// entities and the filesystem for authored resources (rules, grammars).
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL accepts
// both redis:// URLs and bare host:port addresses.
func NewRedisStorage(redisURL string, dataDir string, logger *slog.Logger) *RedisStorage {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}

	if dataDir == "" {
		dataDir = "./data"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisStorage{
		client:  redis.NewClient(opts),
		logger:  logger,
		dataDir: dataDir,
	}
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Key layout: one JSON value per entity under a typed prefix, plus one
// index per world holding the entity IDs that belong to it.

const worldsIndexKey = "worlds"

func worldKey(id uuid.UUID) string      { return "world:" + id.String() }
func characterKey(id uuid.UUID) string  { return "character:" + id.String() }
func truthKey(id uuid.UUID) string      { return "truth:" + id.String() }
func settlementKey(id uuid.UUID) string { return "settlement:" + id.String() }
func businessKey(id uuid.UUID) string   { return "business:" + id.String() }

func charactersIndexKey(worldID uuid.UUID) string {
	return "world:" + worldID.String() + ":characters"
}

func truthsIndexKey(worldID uuid.UUID) string {
	return "world:" + worldID.String() + ":truths"
}

func settlementsIndexKey(worldID uuid.UUID) string {
	return "world:" + worldID.String() + ":settlements"
}

func businessesIndexKey(worldID uuid.UUID) string {
	return "world:" + worldID.String() + ":businesses"
}

func (r *RedisStorage) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("Failed to marshal value", "key", key, "error", err)
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		r.logger.Error("Failed to write value", "key", key, "error", err)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// getJSON loads one JSON value. A missing key reports found=false with no
// error, matching the interface's nil-for-not-found contract.
func (r *RedisStorage) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to read value", "key", key, "error", err)
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.logger.Error("Failed to unmarshal value", "key", key, "error", err)
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}
