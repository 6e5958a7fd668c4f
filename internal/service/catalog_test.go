package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"mediahub-credits-api/internal/cache"
	"mediahub-credits-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMediaRepo struct {
	mu    sync.Mutex
	items map[string]*model.MediaItem
	calls int
}

func (r *countingMediaRepo) GetByID(ctx context.Context, mediaID string) (*model.MediaItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	item, ok := r.items[mediaID]
	if !ok {
		return nil, model.ErrMediaNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *countingMediaRepo) Close() error { return nil }

func TestCatalogReadThrough(t *testing.T) {
	repo := &countingMediaRepo{items: map[string]*model.MediaItem{
		"media-1": {ID: "media-1", OwnerCreatorID: "creator-1", Price: 40, Kind: "photo", Title: "Sunset"},
	}}
	c := cache.NewMemoryCache()
	defer c.Close()

	svc := NewCatalogService(repo, c, time.Minute)
	ctx := context.Background()

	item, err := svc.GetMedia(ctx, "media-1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), item.Price)
	assert.Equal(t, 1, repo.calls)

	// Second read comes from cache.
	item, err = svc.GetMedia(ctx, "media-1")
	require.NoError(t, err)
	assert.Equal(t, "creator-1", item.OwnerCreatorID)
	assert.Equal(t, 1, repo.calls)
}

func TestCatalogNotFoundIsNotCached(t *testing.T) {
	repo := &countingMediaRepo{items: map[string]*model.MediaItem{}}
	c := cache.NewMemoryCache()
	defer c.Close()

	svc := NewCatalogService(repo, c, time.Minute)
	ctx := context.Background()

	_, err := svc.GetMedia(ctx, "missing")
	require.ErrorIs(t, err, model.ErrMediaNotFound)

	// The item appears later; the earlier miss must not stick.
	repo.items["missing"] = &model.MediaItem{ID: "missing", OwnerCreatorID: "creator-1", Price: 10}
	item, err := svc.GetMedia(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(10), item.Price)
}

func TestCatalogNilCacheReadsRepository(t *testing.T) {
	repo := &countingMediaRepo{items: map[string]*model.MediaItem{
		"media-1": {ID: "media-1", OwnerCreatorID: "creator-1", Price: 40},
	}}

	svc := NewCatalogService(repo, nil, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := svc.GetMedia(context.Background(), "media-1")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, repo.calls)
}

func TestCatalogCorruptCacheEntryFallsBack(t *testing.T) {
	repo := &countingMediaRepo{items: map[string]*model.MediaItem{
		"media-1": {ID: "media-1", OwnerCreatorID: "creator-1", Price: 40},
	}}
	c := cache.NewMemoryCache()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "media:media-1", []byte("not json"), time.Minute))

	svc := NewCatalogService(repo, c, time.Minute)
	item, err := svc.GetMedia(ctx, "media-1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), item.Price)
}
