package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/cache"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

type countingStore struct {
	*MemoryResultRepository
	gets int
}

func (s *countingStore) GetResult(ctx context.Context, patch *models.Patch) (*models.PatchResult, error) {
	s.gets++
	return s.MemoryResultRepository.GetResult(ctx, patch)
}

func TestCachedResultRepository(t *testing.T) {
	ctx := context.Background()
	log := logger.Discard()
	mem := cache.NewMemoryCache(log)
	defer mem.Close()

	inner := &countingStore{MemoryResultRepository: NewMemoryResultRepository()}
	repo := NewCachedResultRepository(inner, mem, time.Minute, log)
	patch := &models.Patch{Path: "/etc/patches/a/001.groovy", Fingerprint: "100"}

	// Misses on absent results are not cached
	got, err := repo.GetResult(ctx, patch)
	require.NoError(t, err)
	assert.Nil(t, got)

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	result := models.NewRunningResult(patch, start)
	require.NoError(t, repo.CreateResult(ctx, result))

	got, err = repo.GetResult(ctx, patch)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, got.Status)

	// RUNNING results are never cached
	got, err = repo.GetResult(ctx, patch)
	require.NoError(t, err)
	assert.Equal(t, result.ID, got.ID)
	assert.Equal(t, 3, inner.gets)

	// Update invalidates
	result.Finish(models.StatusError, start.Add(time.Second))
	result.SetOutput("boom")
	require.NoError(t, repo.UpdateResult(ctx, result))

	got, err = repo.GetResult(ctx, patch)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.Status)
	require.NotNil(t, got.Output)
	assert.Equal(t, "boom", *got.Output)
	assert.Equal(t, 4, inner.gets)

	// Terminal results are served from the cache
	got, err = repo.GetResult(ctx, patch)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.Status)
	assert.Equal(t, 4, inner.gets)
}

// finishingStore completes the run between loading a result and returning it,
// the interleaving of a list request racing a run
type finishingStore struct {
	*MemoryResultRepository
	finish func()
}

func (s *finishingStore) GetResult(ctx context.Context, patch *models.Patch) (*models.PatchResult, error) {
	result, err := s.MemoryResultRepository.GetResult(ctx, patch)
	if s.finish != nil {
		finish := s.finish
		s.finish = nil
		finish()
	}
	return result, err
}

func TestCachedResultRepository_ReadRacingRunDoesNotCacheRunning(t *testing.T) {
	ctx := context.Background()
	log := logger.Discard()
	mem := cache.NewMemoryCache(log)
	defer mem.Close()

	inner := &finishingStore{MemoryResultRepository: NewMemoryResultRepository()}
	repo := NewCachedResultRepository(inner, mem, time.Minute, log)
	patch := &models.Patch{Path: "/etc/patches/a/001.groovy", Fingerprint: "100"}

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	result := models.NewRunningResult(patch, start)
	require.NoError(t, repo.CreateResult(ctx, result))

	inner.finish = func() {
		done := result.Clone()
		done.Finish(models.StatusSuccess, start.Add(time.Second))
		require.NoError(t, repo.UpdateResult(ctx, done))
	}

	got, err := repo.GetResult(ctx, patch)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, got.Status)

	got, err = repo.GetResult(ctx, patch)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, got.Status)
}
