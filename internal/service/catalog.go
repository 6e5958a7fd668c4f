package service

import (
	"context"
	"encoding/json"
	"time"

	"mediahub-credits-api/internal/cache"
	"mediahub-credits-api/internal/model"
	"mediahub-credits-api/internal/repository"
)

// MediaLookup resolves media items for the settlement engine. Callers never
// supply the price directly; it always comes from this lookup.
type MediaLookup interface {
	GetMedia(ctx context.Context, mediaID string) (*model.MediaItem, error)
}

// CatalogService reads the external content catalog with a read-through
// cache. Media items are immutable for this core, so a short TTL is only a
// bound on staleness of external catalog edits.
type CatalogService struct {
	repo  repository.MediaRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewCatalogService creates a catalog service. cache may be nil to read the
// repository directly.
func NewCatalogService(repo repository.MediaRepository, c cache.Cache, ttl time.Duration) *CatalogService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogService{repo: repo, cache: c, ttl: ttl}
}

// GetMedia returns the media item, from cache when possible.
func (s *CatalogService) GetMedia(ctx context.Context, mediaID string) (*model.MediaItem, error) {
	if s.cache == nil {
		return s.repo.GetByID(ctx, mediaID)
	}

	data, err := s.cache.GetOrSet(ctx, "media:"+mediaID, s.ttl, func() ([]byte, error) {
		item, err := s.repo.GetByID(ctx, mediaID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(item)
	})
	if err != nil {
		return nil, err
	}

	var item model.MediaItem
	if err := json.Unmarshal(data, &item); err != nil {
		// Corrupt cache entry: drop it and read through.
		_ = s.cache.Delete(ctx, "media:"+mediaID)
		return s.repo.GetByID(ctx, mediaID)
	}
	return &item, nil
}

// Ensure CatalogService implements MediaLookup
var _ MediaLookup = (*CatalogService)(nil)
