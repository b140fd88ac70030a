package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/afero"

	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/container"
	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/routes"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/bootstrap"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/db"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/server"
)

const serviceName = "patch-system"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bootstrap common components (DB, redis, logger, queue, cache, telemetry)
	components, err := bootstrap.Setup(ctx, serviceName, bootstrap.WithDBInitHook(db.EnsureSchema))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap %s: %v\n", serviceName, err)
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(ctx, components, afero.NewReadOnlyFs(afero.NewOsFs()))
	if err != nil {
		components.Logger.Error("failed to initialize service container", "error", err)
		return
	}

	if components.Config.PatchSystem.AutoRun {
		autoRun(ctx, serviceContainer)
	}

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e, components)
	routes.RegisterPatchRoutes(e, serviceContainer)

	srv := server.New(serviceName, components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(ctx); err != nil {
		components.Logger.Error("server error", "error", err)
	}
}

// autoRun executes every new or modified patch once before serving
func autoRun(ctx context.Context, c *container.Container) {
	log := c.Components.Logger
	results, err := c.DataSource.RunExecutable(ctx)
	if err != nil {
		log.Error("automatic patch run failed", "error", err, "completed", len(results))
		return
	}
	log.Info("automatic patch run complete", "count", len(results))
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		body := map[string]any{
			"status":  "ok",
			"service": serviceName,
		}
		if stats := components.CacheStats(); stats != nil {
			body["cache"] = stats
		}

		if err := components.Health(c.Request().Context()); err != nil {
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		return c.JSON(http.StatusOK, body)
	})
}
