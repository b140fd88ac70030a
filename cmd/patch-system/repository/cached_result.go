package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/cache"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

// ResultStore is the store contract the cache decorates
type ResultStore interface {
	GetResult(ctx context.Context, patch *models.Patch) (*models.PatchResult, error)
	CreateResult(ctx context.Context, result *models.PatchResult) error
	UpdateResult(ctx context.Context, result *models.PatchResult) error
}

// CachedResultRepository serves latest results from a cache and invalidates on write.
// Cache failures degrade to the underlying store.
type CachedResultRepository struct {
	store ResultStore
	cache cache.Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedResultRepository wraps store with c
func NewCachedResultRepository(store ResultStore, c cache.Cache, ttl time.Duration, log *logger.Logger) *CachedResultRepository {
	return &CachedResultRepository{
		store: store,
		cache: c,
		ttl:   ttl,
		log:   log,
	}
}

func resultCacheKey(path string) string {
	return "result:" + path
}

// GetResult returns the cached latest result, loading it on a miss.
// Only terminal results are cached; a RUNNING snapshot read during a run
// could otherwise outlive the invalidation done when the run finishes.
func (r *CachedResultRepository) GetResult(ctx context.Context, patch *models.Patch) (*models.PatchResult, error) {
	key := resultCacheKey(patch.ResultKey())

	data, found, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn("result cache read failed", "key", key, "error", err)
	} else if found {
		var cached models.PatchResult
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
		r.log.Warn("discarding undecodable cached result", "key", key)
	}

	result, err := r.store.GetResult(ctx, patch)
	if err != nil || result == nil || !result.Status.IsTerminal() {
		return result, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			r.log.Warn("result cache write failed", "key", key, "error", err)
		}
	}

	return result, nil
}

// CreateResult writes through and invalidates the patch's cache entry
func (r *CachedResultRepository) CreateResult(ctx context.Context, result *models.PatchResult) error {
	if err := r.store.CreateResult(ctx, result); err != nil {
		return err
	}
	r.invalidate(ctx, result.PatchPath)
	return nil
}

// UpdateResult writes through and invalidates the patch's cache entry
func (r *CachedResultRepository) UpdateResult(ctx context.Context, result *models.PatchResult) error {
	if err := r.store.UpdateResult(ctx, result); err != nil {
		return err
	}
	r.invalidate(ctx, result.PatchPath)
	return nil
}

func (r *CachedResultRepository) invalidate(ctx context.Context, path string) {
	key := resultCacheKey(path)
	if err := r.cache.Delete(ctx, key); err != nil {
		r.log.Warn("result cache invalidation failed", "key", key, "error", err)
	}
}
