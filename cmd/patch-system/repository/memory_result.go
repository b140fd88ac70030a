package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

// MemoryResultRepository keeps results in process, used when no database is configured
type MemoryResultRepository struct {
	mu      sync.RWMutex
	results map[uuid.UUID]*models.PatchResult
	latest  map[string]uuid.UUID
}

// NewMemoryResultRepository creates an empty in-memory result store
func NewMemoryResultRepository() *MemoryResultRepository {
	return &MemoryResultRepository{
		results: make(map[uuid.UUID]*models.PatchResult),
		latest:  make(map[string]uuid.UUID),
	}
}

// GetResult returns a copy of the most recent result for patch, or nil
func (r *MemoryResultRepository) GetResult(ctx context.Context, patch *models.Patch) (*models.PatchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.latest[patch.ResultKey()]
	if !ok {
		return nil, nil
	}

	return r.results[id].Clone(), nil
}

// CreateResult stores a copy of result as the latest for its patch
func (r *MemoryResultRepository) CreateResult(ctx context.Context, result *models.PatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.results[result.ID]; exists {
		return fmt.Errorf("failed to create patch result: duplicate id %s", result.ID)
	}

	r.results[result.ID] = result.Clone()
	if current, ok := r.latest[result.PatchPath]; !ok || !r.results[current].StartDate.After(result.StartDate) {
		r.latest[result.PatchPath] = result.ID
	}
	return nil
}

// UpdateResult replaces the stored copy of an existing result
func (r *MemoryResultRepository) UpdateResult(ctx context.Context, result *models.PatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.results[result.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrResultNotFound, result.ID)
	}

	r.results[result.ID] = result.Clone()
	return nil
}

// Len returns the number of stored results
func (r *MemoryResultRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.results)
}
