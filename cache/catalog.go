package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"billister-api/metrics"
	"billister-api/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	makesKey        = "billister:catalog:makes"
	modelsKeyPrefix = "billister:catalog:models:"
)

// CatalogSource is the authoritative make/model store.
type CatalogSource interface {
	ListMakes(ctx context.Context) ([]models.VehicleMake, error)
	ListModels(ctx context.Context, makeID uuid.UUID) ([]models.VehicleModel, error)
}

// VehicleCatalog is a read-through cache in front of CatalogSource.
// With a nil Redis client every call goes straight to the source.
// Redis failures are logged and served from the source.
type VehicleCatalog struct {
	source CatalogSource
	rdb    *redis.Client
	ttl    time.Duration
}

func NewVehicleCatalog(source CatalogSource, rdb *redis.Client, ttl time.Duration) *VehicleCatalog {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &VehicleCatalog{source: source, rdb: rdb, ttl: ttl}
}

func (c *VehicleCatalog) ListMakes(ctx context.Context) ([]models.VehicleMake, error) {
	return readThrough(ctx, c, makesKey, func() ([]models.VehicleMake, error) {
		return c.source.ListMakes(ctx)
	})
}

func (c *VehicleCatalog) ListModels(ctx context.Context, makeID uuid.UUID) ([]models.VehicleModel, error) {
	return readThrough(ctx, c, modelsKeyPrefix+makeID.String(), func() ([]models.VehicleModel, error) {
		return c.source.ListModels(ctx, makeID)
	})
}

// Invalidate drops every cached catalog entry.
func (c *VehicleCatalog) Invalidate(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	keys := []string{makesKey}
	iter := c.rdb.Scan(ctx, 0, modelsKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func readThrough[T any](ctx context.Context, c *VehicleCatalog, key string, load func() ([]T, error)) ([]T, error) {
	if c.rdb == nil {
		return load()
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []T
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
			return cached, nil
		}
		slog.Warn("discarding undecodable catalog cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		slog.Warn("catalog cache read failed", "key", key, "err", err)
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	items, err := load()
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(items); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			slog.Warn("catalog cache write failed", "key", key, "err", err)
		}
	}
	return items, nil
}
