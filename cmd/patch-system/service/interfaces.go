package service

import (
	"context"

	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/runner"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

// ErrPatchNotFound is returned when a run is requested for an unknown path
var ErrPatchNotFound = models.ErrPatchNotFound

// PatchCatalog enumerates patch scripts
type PatchCatalog interface {
	// GetPatches returns every patch in a stable order
	GetPatches(ctx context.Context) ([]*models.Patch, error)

	// GetPatch returns the patch at path or an error wrapping ErrPatchNotFound
	GetPatch(ctx context.Context, path string) (*models.Patch, error)
}

// ResultStore records patch results.
// GetResult returns nil, nil when the patch never ran.
type ResultStore interface {
	GetResult(ctx context.Context, patch *models.Patch) (*models.PatchResult, error)
	CreateResult(ctx context.Context, result *models.PatchResult) error
	UpdateResult(ctx context.Context, result *models.PatchResult) error
}

// ScriptRunner executes scripts; it may come and go at runtime
type ScriptRunner interface {
	IsAvailable() bool
	Execute(ctx context.Context, patch *models.Patch) (*runner.Outcome, error)
}

// EventPublisher announces persisted run results
type EventPublisher interface {
	PublishResult(ctx context.Context, source string, result *models.PatchResult) error
}
