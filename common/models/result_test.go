package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunningResult(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	patch := &Patch{Path: "/etc/patches/a/001.groovy", Fingerprint: "100"}

	result := NewRunningResult(patch, now)

	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", result.ID.String())
	assert.Equal(t, StatusRunning, result.Status)
	assert.Equal(t, now, result.StartDate)
	assert.Equal(t, "100", result.Fingerprint)
	assert.Equal(t, patch.Path, result.PatchPath)
	assert.Nil(t, result.EndDate)
	assert.Nil(t, result.Output)
	assert.Nil(t, result.RunningTime)
}

func TestNewRunningResult_UsesResultPath(t *testing.T) {
	patch := &Patch{Path: "/etc/patches/a/001.groovy", ResultPath: "/var/patches/groovy/a/001.groovy"}

	result := NewRunningResult(patch, time.Now())

	assert.Equal(t, "/var/patches/groovy/a/001.groovy", result.PatchPath)
}

func TestPatchResult_FinishKeepsID(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	result := NewRunningResult(&Patch{Path: "/p"}, start)
	id := result.ID

	result.Finish(StatusSuccess, start.Add(time.Second))

	assert.Equal(t, id, result.ID)
	assert.Equal(t, StatusSuccess, result.Status)
	require.NotNil(t, result.EndDate)
	assert.Equal(t, start.Add(time.Second), *result.EndDate)
}

func TestPatchResult_CloneIsDeep(t *testing.T) {
	result := NewRunningResult(&Patch{Path: "/p"}, time.Now())
	result.SetOutput("output")
	result.SetRunningTime("3000")
	result.Finish(StatusSuccess, time.Now())

	clone := result.Clone()
	*clone.Output = "changed"
	*clone.RunningTime = "1"

	assert.Equal(t, "output", *result.Output)
	assert.Equal(t, "3000", *result.RunningTime)
	assert.Nil(t, (*PatchResult)(nil).Clone())
}

func TestFormattedRunningTime(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(1*time.Hour + 2*time.Minute + 3*time.Second + 45*time.Millisecond)

	formatted := FormattedRunningTime(start, &end)
	require.NotNil(t, formatted)
	assert.Equal(t, "01:02:03.045", *formatted)

	assert.Nil(t, FormattedRunningTime(start, nil))

	before := start.Add(-time.Second)
	assert.Equal(t, "00:00:00.000", *FormattedRunningTime(start, &before))
}
