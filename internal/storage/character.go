package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"hamlet/pkg/world"
)

// Character operations (Redis-backed)

func (r *RedisStorage) SaveCharacter(ctx context.Context, c *world.Character) error {
	if err := r.setJSON(ctx, characterKey(c.ID), c); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, charactersIndexKey(c.WorldID), c.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index character %s: %w", c.ID, err)
	}
	return nil
}

func (r *RedisStorage) GetCharacter(ctx context.Context, id uuid.UUID) (*world.Character, error) {
	var c world.Character
	found, err := r.getJSON(ctx, characterKey(id), &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (r *RedisStorage) ListCharacters(ctx context.Context, worldID uuid.UUID) ([]*world.Character, error) {
	ids, err := r.indexMembers(ctx, charactersIndexKey(worldID))
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}

	characters := make([]*world.Character, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetCharacter(ctx, id)
		if err != nil {
			return nil, err
		}
		if c != nil {
			characters = append(characters, c)
		}
	}

	sort.Slice(characters, func(i, j int) bool {
		if characters[i].FullName() != characters[j].FullName() {
			return characters[i].FullName() < characters[j].FullName()
		}
		return characters[i].ID.String() < characters[j].ID.String()
	})
	return characters, nil
}
