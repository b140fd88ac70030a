package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/db"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

func TestNormalize(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	result := &models.PatchResult{StartDate: start, EndDate: &end}
	require.NoError(t, normalize(result, "fail"))
	assert.Equal(t, models.StatusError, result.Status)
	assert.Nil(t, result.RunningTime)

	reported := "3000"
	result = &models.PatchResult{StartDate: start, EndDate: &end, RunningTime: &reported}
	require.NoError(t, normalize(result, "SUCCESS"))
	assert.Equal(t, "3000", *result.RunningTime)

	result = &models.PatchResult{StartDate: start}
	require.NoError(t, normalize(result, "RUNNING"))
	assert.Nil(t, result.RunningTime)

	err := normalize(&models.PatchResult{}, "PENDING")
	assert.True(t, errors.Is(err, models.ErrUnknownStatus))
}

func TestPatchResultRepository_Integration(t *testing.T) {
	dsn := os.Getenv("PATCHSYSTEM_POSTGRES_DSN_INTEGRATION")
	if dsn == "" {
		t.Skip("PATCHSYSTEM_POSTGRES_DSN_INTEGRATION not set")
	}

	ctx := context.Background()
	database, err := db.Open(ctx, dsn, logger.Discard())
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, db.EnsureSchema(database))

	repo := NewPatchResultRepository(database)
	patch := &models.Patch{
		Path:        "/etc/patches/it/" + uuid.NewString() + ".groovy",
		Fingerprint: "100",
	}

	got, err := repo.GetResult(ctx, patch)
	require.NoError(t, err)
	assert.Nil(t, got)

	start := time.Now().UTC().Truncate(time.Millisecond)
	result := models.NewRunningResult(patch, start)
	require.NoError(t, repo.CreateResult(ctx, result))

	result.SetRunningTime("3000")
	result.SetOutput("output")
	result.Finish(models.StatusSuccess, start.Add(3*time.Second))
	require.NoError(t, repo.UpdateResult(ctx, result))

	got, err = repo.GetResult(ctx, patch)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, result.ID, got.ID)
	assert.Equal(t, models.StatusSuccess, got.Status)
	assert.Equal(t, "3000", *got.RunningTime)
	assert.Equal(t, "output", *got.Output)
	assert.Equal(t, "100", got.Fingerprint)

	missing := models.NewRunningResult(patch, start)
	assert.True(t, errors.Is(repo.UpdateResult(ctx, missing), ErrResultNotFound))
}
