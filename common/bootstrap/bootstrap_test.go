package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/config"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Name: "patch-system", Port: 8080},
		Cache:   config.CacheConfig{Enabled: true, Backend: "memory", DefaultTTL: time.Minute},
		Queue:   config.QueueConfig{Type: "memory", BufferSize: 10},
		PatchSystem: config.PatchSystemConfig{
			ResultStore: "memory",
			Sources: []config.SourceConfig{
				{Name: "groovy", Root: "/etc/patches", Extensions: []string{".groovy"}},
			},
		},
	}
}

func TestSetup_MemoryComponents(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	components, err := Setup(ctx, "patch-system",
		WithCustomConfig(memoryConfig()),
		WithCustomLogger(logger.Discard()),
	)
	require.NoError(t, err)

	assert.Nil(t, components.DB)
	assert.Nil(t, components.Redis)
	assert.NotNil(t, components.Queue)
	assert.NotNil(t, components.Cache)
	assert.Nil(t, components.Telemetry)
	assert.NoError(t, components.Health(ctx))

	stats := components.CacheStats()
	require.NotNil(t, stats)
	assert.Equal(t, "memory", stats.Backend)

	require.NoError(t, components.Shutdown(ctx))
}

func TestSetup_SkipOptions(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	components, err := Setup(ctx, "patchctl",
		WithCustomConfig(memoryConfig()),
		WithCustomLogger(logger.Discard()),
		WithoutQueue(),
		WithoutCache(),
		WithoutTelemetry(),
	)
	require.NoError(t, err)

	assert.Nil(t, components.Queue)
	assert.Nil(t, components.Cache)
	require.NoError(t, components.Shutdown(ctx))
}

func TestSetup_UnknownQueue(t *testing.T) {
	cfg := memoryConfig()
	cfg.Queue.Type = "kafka"

	_, err := Setup(context.Background(), "patch-system",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
	)
	assert.ErrorContains(t, err, "unknown queue type")
}
