package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"hamlet/pkg/world"
)

// World operations (Redis-backed)

func (r *RedisStorage) SaveWorld(ctx context.Context, w *world.World) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	w.UpdatedAt = time.Now().UTC()

	if err := r.setJSON(ctx, worldKey(w.ID), w); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, worldsIndexKey, w.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index world %s: %w", w.ID, err)
	}
	return nil
}

func (r *RedisStorage) GetWorld(ctx context.Context, id uuid.UUID) (*world.World, error) {
	var w world.World
	found, err := r.getJSON(ctx, worldKey(id), &w)
	if err != nil || !found {
		return nil, err
	}
	return &w, nil
}

func (r *RedisStorage) ListWorlds(ctx context.Context) ([]*world.World, error) {
	ids, err := r.indexMembers(ctx, worldsIndexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list worlds: %w", err)
	}

	worlds := make([]*world.World, 0, len(ids))
	for _, id := range ids {
		w, err := r.GetWorld(ctx, id)
		if err != nil {
			return nil, err
		}
		if w != nil {
			worlds = append(worlds, w)
		}
	}

	sort.Slice(worlds, func(i, j int) bool { return worlds[i].Name < worlds[j].Name })
	return worlds, nil
}

// indexMembers reads a set of entity IDs, dropping entries that do not
// parse as UUIDs.
func (r *RedisStorage) indexMembers(ctx context.Context, key string) ([]uuid.UUID, error) {
	raw, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(value)
		if err != nil {
			r.logger.Warn("Skipping malformed index entry", "key", key, "value", value)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
