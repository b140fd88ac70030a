package container

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/repository"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/bootstrap"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/config"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Name: "patch-system", Port: 8080},
		Cache:   config.CacheConfig{Enabled: true, Backend: "memory", DefaultTTL: time.Minute},
		Queue:   config.QueueConfig{Type: "memory", BufferSize: 10},
		PatchSystem: config.PatchSystemConfig{
			ResultStore: "memory",
			ServiceUser: config.DefaultServiceUser,
			Sources: []config.SourceConfig{
				{Name: "groovy", Root: "/etc/patches", Extensions: []string{".groovy"}, ResultRoot: "/var/patches/groovy"},
				{Name: "ondeploy", Root: "/etc/ondeploy", Extensions: []string{".groovy"}, ResultRoot: "/var/patches/ondeploy"},
			},
		},
	}
}

func TestNewContainer_MemoryStack(t *testing.T) {
	ctx := context.Background()
	components, err := bootstrap.Setup(ctx, "patch-system",
		bootstrap.WithCustomConfig(testConfig()),
		bootstrap.WithCustomLogger(logger.Discard()),
	)
	require.NoError(t, err)
	defer components.Shutdown(ctx)

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/etc/patches/core/001.groovy", []byte("println 1"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/etc/ondeploy/site/001.groovy", []byte("println 2"), 0o644))

	c, err := NewContainer(ctx, components, fsys)
	require.NoError(t, err)

	assert.Len(t, c.Systems, 2)
	assert.Len(t, c.Catalogs, 2)
	assert.IsType(t, &repository.CachedResultRepository{}, c.ResultStore)
	assert.NotNil(t, c.Events)
	assert.NotNil(t, c.Stream)
	assert.Nil(t, c.RateLimiter)
	assert.False(t, c.Runner.IsAvailable())
	assert.False(t, c.DataSource.IsReady())

	page, err := c.DataSource.Page(ctx, 0, 0, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, models.StatusNew, page.Items[0].Status)
	assert.Equal(t, "ondeploy", page.Items[1].Patch.Source)

	result, err := c.DataSource.Run(ctx, "/etc/patches/core/001.groovy")
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, "/var/patches/groovy/core/001.groovy", result.PatchPath)
}

func TestNewContainer_PostgresWithoutDB(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.PatchSystem.ResultStore = "postgres"

	components, err := bootstrap.Setup(ctx, "patch-system",
		bootstrap.WithCustomConfig(cfg),
		bootstrap.WithCustomLogger(logger.Discard()),
		bootstrap.WithoutDB(),
	)
	require.NoError(t, err)
	defer components.Shutdown(ctx)

	_, err = NewContainer(ctx, components, afero.NewMemMapFs())
	assert.ErrorContains(t, err, "requires a database")
}
