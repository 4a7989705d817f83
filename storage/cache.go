package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"kanban-api/domain"
)

type fieldBackend interface {
	GetFieldsByBoardID(ctx context.Context, boardID string) ([]domain.FieldDefinition, error)
}

// FieldCache wraps a field-definition lookup with a Redis read cache.
// Definitions are immutable from the write path's perspective but are read on
// every task create and update, which makes them the one collaborator worth
// caching; task lists change on every move and are always read fresh.
type FieldCache struct {
	base  fieldBackend
	redis *redis.Client
	ttl   time.Duration
}

// NewFieldCache creates a caching wrapper using the provided Redis client and
// TTL. A nil client or zero TTL degrades to a pass-through.
func NewFieldCache(base fieldBackend, client *redis.Client, ttl time.Duration) *FieldCache {
	if base == nil {
		panic("storage.NewFieldCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &FieldCache{base: base, redis: client, ttl: ttl}
}

// GetFieldsByBoardID returns the board's field definitions, serving from
// Redis when possible.
func (c *FieldCache) GetFieldsByBoardID(ctx context.Context, boardID string) ([]domain.FieldDefinition, error) {
	if defs, ok := c.loadFromCache(ctx, boardID); ok {
		return defs, nil
	}

	defs, err := c.base.GetFieldsByBoardID(ctx, boardID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, boardID, defs)
	return defs, nil
}

// Evict drops the cached definitions of a board. Callers that mutate
// definitions out of band invoke this to shorten staleness below the TTL.
func (c *FieldCache) Evict(ctx context.Context, boardID string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, fieldsCacheKey(boardID)).Err()
}

func (c *FieldCache) loadFromCache(ctx context.Context, boardID string) ([]domain.FieldDefinition, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, fieldsCacheKey(boardID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, fieldsCacheKey(boardID)).Err()
		}
		return nil, false
	}
	var defs []domain.FieldDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		_ = c.redis.Del(ctx, fieldsCacheKey(boardID)).Err()
		return nil, false
	}
	return defs, true
}

func (c *FieldCache) store(ctx context.Context, boardID string, defs []domain.FieldDefinition) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(defs)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, fieldsCacheKey(boardID), data, c.ttl).Err()
}

func fieldsCacheKey(boardID string) string {
	return "fields:" + boardID
}
