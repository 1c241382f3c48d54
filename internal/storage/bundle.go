package storage

import (
	"context"
	"fmt"

	"hamlet/pkg/world"
)

// ImportBundle seeds a complete authored world into Redis.
func (r *RedisStorage) ImportBundle(ctx context.Context, b *world.Bundle) error {
	if err := b.Normalize(); err != nil {
		return fmt.Errorf("invalid bundle: %w", err)
	}

	if err := r.SaveWorld(ctx, b.World); err != nil {
		return err
	}
	for _, c := range b.Characters {
		if err := r.SaveCharacter(ctx, c); err != nil {
			return err
		}
	}
	for _, s := range b.Settlements {
		if err := r.SaveSettlement(ctx, s); err != nil {
			return err
		}
	}
	for _, biz := range b.Businesses {
		if err := r.SaveBusiness(ctx, biz); err != nil {
			return err
		}
	}

	r.logger.Info("World bundle imported",
		"world_id", b.World.ID,
		"world", b.World.Name,
		"characters", len(b.Characters),
		"settlements", len(b.Settlements),
		"businesses", len(b.Businesses))
	return nil
}
