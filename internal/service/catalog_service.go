package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"restaurant-order-service/internal/entity"

	"github.com/go-redis/redis/v8"
)

const catalogCacheTTL = 10 * time.Minute

// CatalogService is the read-only view of the menu. It is the ItemSource the
// server-side aggregator prices against.
type CatalogService struct {
	catalogRepo CatalogStore
	rdb         *redis.Client
	timeout     time.Duration
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(catalogRepo CatalogStore, rdb *redis.Client, timeout time.Duration) *CatalogService {
	return &CatalogService{
		catalogRepo: catalogRepo,
		rdb:         rdb,
		timeout:     timeout,
	}
}

func itemCacheKey(id string) string {
	return fmt.Sprintf("catalog:item:%s", id)
}

// GetItem reads through the redis cache. A broken cache degrades to the database.
func (s *CatalogService) GetItem(ctx context.Context, id string) (*entity.CatalogItem, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	key := itemCacheKey(id)
	cached, err := s.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var item entity.CatalogItem
		if err := json.Unmarshal([]byte(cached), &item); err == nil {
			return &item, nil
		}
		logger.Warn().Msgf("Dropping unreadable cache entry for item %s", id)
	case errors.Is(err, redis.Nil):
	default:
		logger.Error().Err(err).Msgf("Error getting item %s from cache", id)
	}

	item, err := s.catalogRepo.GetItemByID(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting item by ID %s", id)
		return nil, classify(err)
	}

	s.cacheItem(ctx, item)
	return item, nil
}

// ListItems lists items for the line picker, optionally filtered by category.
func (s *CatalogService) ListItems(ctx context.Context, filter entity.ItemFilter) ([]*entity.CatalogItem, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.catalogRepo.GetItems(ctx, filter)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing items")
		return nil, classify(err)
	}
	return items, nil
}

// WarmCache loads the whole catalog into redis and reports how many items were cached.
func (s *CatalogService) WarmCache(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.catalogRepo.GetAllItems(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting items")
		return 0, classify(err)
	}

	pipe := s.rdb.Pipeline()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			logger.Error().Err(err).Msgf("Error marshalling item %s", item.ID)
			continue
		}
		pipe.Set(ctx, itemCacheKey(item.ID), data, catalogCacheTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error().Err(err).Msg("Error warming item cache")
		return 0, classify(err)
	}

	logger.Info().Msgf("Warmed cache with %d items", len(items))
	return len(items), nil
}

func (s *CatalogService) InvalidateItem(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, itemCacheKey(id)).Err(); err != nil {
		logger.Error().Err(err).Msgf("Error deleting item %s from cache", id)
		return classify(err)
	}
	return nil
}

func (s *CatalogService) cacheItem(ctx context.Context, item *entity.CatalogItem) {
	data, err := json.Marshal(item)
	if err != nil {
		logger.Error().Err(err).Msgf("Error marshalling item %s", item.ID)
		return
	}
	if err := s.rdb.Set(ctx, itemCacheKey(item.ID), data, catalogCacheTTL).Err(); err != nil {
		logger.Error().Err(err).Msgf("Error setting item %s in cache", item.ID)
	}
}
