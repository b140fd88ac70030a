package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/runner"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

func newDataSource(t *testing.T, systems ...*PatchSystem) *DataSource {
	t.Helper()
	compiler, err := NewFilterCompiler()
	require.NoError(t, err)
	return NewDataSource(compiler, logger.Discard(), systems...)
}

func twoSystems(store *fakeStore, groovyRunner, deployRunner ScriptRunner) (*PatchSystem, *PatchSystem) {
	groovy := NewPatchSystem("groovy", &fakeCatalog{patches: []*models.Patch{
		patchAt("/etc/patches/a/001.groovy", "1"),
		patchAt("/etc/patches/a/002.groovy", "2"),
		patchAt("/etc/patches/b/001.groovy", "3"),
	}}, store, groovyRunner, logger.Discard())

	deploy := NewPatchSystem("ondeploy", &fakeCatalog{patches: []*models.Patch{
		patchAt("/etc/ondeploy/x/001.groovy", "4"),
	}}, store, deployRunner, logger.Discard())

	return groovy, deploy
}

func TestDataSource_Page(t *testing.T) {
	groovy, deploy := twoSystems(newFakeStore(), nil, nil)
	ds := newDataSource(t, groovy, nil, deploy)
	require.Len(t, ds.Systems(), 2)

	page, err := ds.Page(context.Background(), 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Items, 4)
	assert.Equal(t, "/etc/ondeploy/x/001.groovy", page.Items[3].Patch.Path)

	page, err = ds.Page(context.Background(), 1, 2, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "/etc/patches/a/002.groovy", page.Items[0].Patch.Path)
	assert.Equal(t, "/etc/patches/b/001.groovy", page.Items[1].Patch.Path)

	page, err = ds.Page(context.Background(), 10, 2, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 4, page.Total)

	page, err = ds.Page(context.Background(), -5, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 0, page.Offset)
	require.Len(t, page.Items, 1)
}

func TestDataSource_PageFilter(t *testing.T) {
	store := newFakeStore()
	groovy, deploy := twoSystems(store, nil, nil)
	first := patchAt("/etc/patches/a/001.groovy", "1")
	store.put(first, resultFor(first, "1", models.StatusSuccess))

	ds := newDataSource(t, groovy, deploy)

	page, err := ds.Page(context.Background(), 0, 10, `status == "NEW"`)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	_, err = ds.Page(context.Background(), 0, 10, `status ==`)
	assert.True(t, errors.Is(err, ErrInvalidFilter))
}

func TestDataSource_PageErrorYieldsEmptyPage(t *testing.T) {
	store := newFakeStore()
	store.getErr = errStore
	groovy, _ := twoSystems(store, nil, nil)
	ds := newDataSource(t, groovy)

	page, err := ds.Page(context.Background(), 0, 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)
}

func TestDataSource_RunRoutesToOwningSystem(t *testing.T) {
	groovyRunner := &fakeRunner{available: true, outcome: &runner.Outcome{Output: "g"}}
	deployRunner := &fakeRunner{available: true, outcome: &runner.Outcome{Output: "d"}}
	groovy, deploy := twoSystems(newFakeStore(), groovyRunner, deployRunner)
	ds := newDataSource(t, groovy, deploy)

	result, err := ds.Run(context.Background(), "/etc/ondeploy/x/001.groovy")
	require.NoError(t, err)
	assert.Equal(t, "d", *result.Output)
	assert.Equal(t, 0, groovyRunner.calls)
	assert.Equal(t, 1, deployRunner.calls)

	_, err = ds.Run(context.Background(), "/nowhere.groovy")
	assert.True(t, errors.Is(err, ErrPatchNotFound))

	view, err := ds.View(context.Background(), "/etc/ondeploy/x/001.groovy")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, view.Status)

	_, err = ds.View(context.Background(), "/nowhere.groovy")
	assert.True(t, errors.Is(err, ErrPatchNotFound))
}

func TestDataSource_RunExecutableSkipsUnreadySystems(t *testing.T) {
	groovyRunner := &fakeRunner{available: true, outcome: &runner.Outcome{}}
	deployRunner := &fakeRunner{available: false}
	groovy, deploy := twoSystems(newFakeStore(), groovyRunner, deployRunner)
	ds := newDataSource(t, groovy, deploy)

	assert.True(t, ds.IsReady())
	assert.Equal(t, map[string]bool{"groovy": true, "ondeploy": false}, ds.Readiness())

	executable, err := ds.ListExecutable(context.Background())
	require.NoError(t, err)
	assert.Len(t, executable, 4)

	results, err := ds.RunExecutable(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, 0, deployRunner.calls)

	executable, err = ds.ListExecutable(context.Background())
	require.NoError(t, err)
	require.Len(t, executable, 1)
	assert.Equal(t, "/etc/ondeploy/x/001.groovy", executable[0].Path)
}

func TestDataSource_Empty(t *testing.T) {
	ds := newDataSource(t)
	assert.False(t, ds.IsReady())

	page, err := ds.Page(context.Background(), 0, 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
