package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"hamlet/pkg/world"
)

// Truth operations (Redis-backed). Truths are append-only: the per-world
// index is a list, so ListTruths preserves creation order.

func (r *RedisStorage) CreateTruth(ctx context.Context, t *world.Truth) error {
	if err := r.setJSON(ctx, truthKey(t.ID), t); err != nil {
		return err
	}
	if err := r.client.RPush(ctx, truthsIndexKey(t.WorldID), t.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index truth %s: %w", t.ID, err)
	}
	return nil
}

func (r *RedisStorage) ListTruths(ctx context.Context, worldID uuid.UUID) ([]*world.Truth, error) {
	raw, err := r.client.LRange(ctx, truthsIndexKey(worldID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list truths: %w", err)
	}

	truths := make([]*world.Truth, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(value)
		if err != nil {
			r.logger.Warn("Skipping malformed truth index entry", "value", value)
			continue
		}
		var t world.Truth
		found, err := r.getJSON(ctx, truthKey(id), &t)
		if err != nil {
			return nil, err
		}
		if found {
			truths = append(truths, &t)
		}
	}
	return truths, nil
}
