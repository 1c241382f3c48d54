package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"hamlet/pkg/world"
)

// Settlement and business operations (Redis-backed)

func (r *RedisStorage) SaveSettlement(ctx context.Context, s *world.Settlement) error {
	if err := r.setJSON(ctx, settlementKey(s.ID), s); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, settlementsIndexKey(s.WorldID), s.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index settlement %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStorage) ListSettlements(ctx context.Context, worldID uuid.UUID) ([]*world.Settlement, error) {
	ids, err := r.indexMembers(ctx, settlementsIndexKey(worldID))
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}

	settlements := make([]*world.Settlement, 0, len(ids))
	for _, id := range ids {
		var s world.Settlement
		found, err := r.getJSON(ctx, settlementKey(id), &s)
		if err != nil {
			return nil, err
		}
		if found {
			settlements = append(settlements, &s)
		}
	}

	sort.Slice(settlements, func(i, j int) bool { return settlements[i].Name < settlements[j].Name })
	return settlements, nil
}

func (r *RedisStorage) SaveBusiness(ctx context.Context, b *world.Business) error {
	if err := r.setJSON(ctx, businessKey(b.ID), b); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, businessesIndexKey(b.WorldID), b.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index business %s: %w", b.ID, err)
	}
	return nil
}

func (r *RedisStorage) ListBusinesses(ctx context.Context, worldID uuid.UUID) ([]*world.Business, error) {
	ids, err := r.indexMembers(ctx, businessesIndexKey(worldID))
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}

	businesses := make([]*world.Business, 0, len(ids))
	for _, id := range ids {
		var b world.Business
		found, err := r.getJSON(ctx, businessKey(id), &b)
		if err != nil {
			return nil, err
		}
		if found {
			businesses = append(businesses, &b)
		}
	}

	sort.Slice(businesses, func(i, j int) bool { return businesses[i].Name < businesses[j].Name })
	return businesses, nil
}
