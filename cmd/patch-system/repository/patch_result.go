package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/db"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

// ErrResultNotFound is returned when updating a result that was never created
var ErrResultNotFound = errors.New("patch result not found")

// PatchResultRepository stores patch results in Postgres
type PatchResultRepository struct {
	db *db.DB
}

// NewPatchResultRepository creates a new patch result repository
func NewPatchResultRepository(database *db.DB) *PatchResultRepository {
	return &PatchResultRepository{db: database}
}

// GetResult returns the most recent result recorded for patch, or nil if it never ran
func (r *PatchResultRepository) GetResult(ctx context.Context, patch *models.Patch) (*models.PatchResult, error) {
	query := `
		SELECT id, patch_path, status, start_date, end_date, output, running_time, fingerprint
		FROM patch_result
		WHERE patch_path = $1
		ORDER BY start_date DESC
		LIMIT 1
	`

	var (
		result models.PatchResult
		status string
	)
	err := r.db.QueryRow(ctx, query, patch.ResultKey()).Scan(
		&result.ID,
		&result.PatchPath,
		&status,
		&result.StartDate,
		&result.EndDate,
		&result.Output,
		&result.RunningTime,
		&result.Fingerprint,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patch result: %w", err)
	}

	if err := normalize(&result, status); err != nil {
		return nil, fmt.Errorf("failed to decode patch result %s: %w", result.ID, err)
	}

	return &result, nil
}

// CreateResult inserts a new result row
func (r *PatchResultRepository) CreateResult(ctx context.Context, result *models.PatchResult) error {
	query := `
		INSERT INTO patch_result (id, patch_path, status, start_date, end_date, output, running_time, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(
		ctx,
		query,
		result.ID,
		result.PatchPath,
		result.Status.String(),
		result.StartDate,
		result.EndDate,
		result.Output,
		result.RunningTime,
		result.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("failed to create patch result: %w", err)
	}

	return nil
}

// UpdateResult overwrites the mutable fields of an existing result
func (r *PatchResultRepository) UpdateResult(ctx context.Context, result *models.PatchResult) error {
	query := `
		UPDATE patch_result
		SET status = $2, end_date = $3, output = $4, running_time = $5, fingerprint = $6
		WHERE id = $1
	`

	tag, err := r.db.Exec(
		ctx,
		query,
		result.ID,
		result.Status.String(),
		result.EndDate,
		result.Output,
		result.RunningTime,
		result.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("failed to update patch result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrResultNotFound, result.ID)
	}

	return nil
}

// normalize maps the stored status onto the current vocabulary
func normalize(result *models.PatchResult, status string) error {
	parsed, err := models.ParseStoredStatus(status)
	if err != nil {
		return err
	}
	result.Status = parsed
	return nil
}
