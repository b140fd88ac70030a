package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/afero"

	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/repository"
	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/runner"
	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/service"
	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/stream"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/bootstrap"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/clients"
	cmiddleware "github.com/ida-mediafoundry/jetpack-patch-system/common/middleware"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/ratelimit"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Repositories
	Catalogs    []*repository.PatchFileRepository
	ResultStore service.ResultStore

	// Runner is the swappable script runner shared by every patch system
	Runner *runner.Handle

	// Services
	Events     *service.QueueEventPublisher
	Filters    *service.FilterCompiler
	Systems    []*service.PatchSystem
	DataSource *service.DataSource

	// Stream pushes run events to WebSocket subscribers
	Stream *stream.Hub

	// RateLimiter is nil when Redis or the run limit is disabled
	RateLimiter cmiddleware.UserLimiter
	RateLimits  map[ratelimit.Scope]ratelimit.ScopeConfig
}

// NewContainer initializes all services and repositories once.
// fsys is the filesystem patch sources are read from.
func NewContainer(ctx context.Context, components *bootstrap.Components, fsys afero.Fs) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	store, err := newResultStore(components)
	if err != nil {
		return nil, err
	}

	handle := runner.NewHandle(nil)
	if cfg.PatchSystem.GroovyConsoleURL != "" {
		httpClient := clients.NewHTTPClient(&http.Client{Timeout: cfg.PatchSystem.GroovyConsoleTimeout}, log).
			WithBasicAuth(cfg.PatchSystem.GroovyConsoleUser, cfg.PatchSystem.GroovyConsolePassword)
		handle.Bind(runner.NewGroovyConsole(httpClient, cfg.PatchSystem.GroovyConsoleURL, log))
		log.Info("groovy console bound", "url", cfg.PatchSystem.GroovyConsoleURL)
	} else {
		log.Warn("no groovy console configured, patches cannot be executed")
	}

	opts := []service.Option{
		service.WithServiceUser(cfg.PatchSystem.ServiceUser),
		service.WithTelemetry(components.Telemetry),
	}

	hub := stream.NewHub(log)
	go hub.Run(ctx)

	var events *service.QueueEventPublisher
	if components.Queue != nil {
		events = service.NewQueueEventPublisher(components.Queue, log)
		opts = append(opts, service.WithEvents(events))

		// With Redis, every instance streams events from the shared channel
		var sink service.EventSink = hub
		if components.Redis != nil {
			sink = components.Redis
			subscriber := stream.NewRedisSubscriber(components.Redis.GetUnderlying(), hub, service.EventChannel, log)
			go func() {
				if err := subscriber.Start(ctx); err != nil {
					log.Error("redis event subscriber failed", "error", err)
				}
			}()
		}
		if err := service.ForwardEvents(ctx, components.Queue, sink, log); err != nil {
			return nil, fmt.Errorf("failed to forward run events: %w", err)
		}
	}

	filters, err := service.NewFilterCompiler()
	if err != nil {
		return nil, fmt.Errorf("failed to create filter compiler: %w", err)
	}

	catalogs := make([]*repository.PatchFileRepository, 0, len(cfg.PatchSystem.Sources))
	systems := make([]*service.PatchSystem, 0, len(cfg.PatchSystem.Sources))
	for _, source := range cfg.PatchSystem.Sources {
		catalog := repository.NewPatchFileRepository(fsys, source, log)
		catalogs = append(catalogs, catalog)
		sourceOpts := opts
		if source.DeriveRunningTime {
			sourceOpts = append(append([]service.Option{}, opts...), service.WithDerivedRunningTime())
		}
		systems = append(systems, service.NewPatchSystem(source.Name, catalog, store, handle, log, sourceOpts...))
	}

	c := &Container{
		Components:  components,
		Catalogs:    catalogs,
		ResultStore: store,
		Runner:      handle,
		Events:      events,
		Filters:     filters,
		Systems:     systems,
		DataSource:  service.NewDataSource(filters, log, systems...),
		Stream:      hub,
		RateLimits:  ratelimit.DefaultScopeConfigs(cfg.PatchSystem.RunRateLimit),
	}

	if components.Redis != nil && cfg.PatchSystem.RunRateLimit > 0 {
		c.RateLimiter = ratelimit.NewRateLimiter(components.Redis.GetUnderlying(), log)
	}

	return c, nil
}

// newResultStore picks the result store and wraps it with the cache when one is configured
func newResultStore(components *bootstrap.Components) (service.ResultStore, error) {
	cfg := components.Config

	var store service.ResultStore
	switch cfg.PatchSystem.ResultStore {
	case "postgres":
		if components.DB == nil {
			return nil, fmt.Errorf("postgres result store requires a database connection")
		}
		store = repository.NewPatchResultRepository(components.DB)
	case "memory":
		store = repository.NewMemoryResultRepository()
	default:
		return nil, fmt.Errorf("unknown result store: %s", cfg.PatchSystem.ResultStore)
	}

	if components.Cache != nil {
		store = repository.NewCachedResultRepository(store, components.Cache, cfg.Cache.DefaultTTL, components.Logger)
	}

	return store, nil
}
