package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/container"
	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/handlers"
	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/middleware"
	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/stream"
	cmiddleware "github.com/ida-mediafoundry/jetpack-patch-system/common/middleware"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/ratelimit"
)

// RegisterPatchRoutes registers all patch routes
func RegisterPatchRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewPatchHandler(c.DataSource, c.Components.Logger)

	runLimit := cmiddleware.UserRateLimitMiddleware(c.RateLimiter, c.RateLimits[ratelimit.ScopeRun])
	batchLimit := cmiddleware.UserRateLimitMiddleware(c.RateLimiter, c.RateLimits[ratelimit.ScopeRunBatch])

	patches := e.Group("/api/v1/patches")
	patches.Use(middleware.ExtractUsername()) // Extract X-User-ID into context
	{
		patches.GET("", h.ListPatches)                               // GET /api/v1/patches?offset=&limit=&filter=
		patches.GET("/executable", h.ListExecutable)                 // GET /api/v1/patches/executable
		patches.GET("/ready", h.Ready)                               // GET /api/v1/patches/ready
		patches.GET("/result", h.GetResult)                          // GET /api/v1/patches/result?path=
		patches.GET("/events", stream.NewHandler(c.Stream).Events)   // GET /api/v1/patches/events?source= (WebSocket)
		patches.POST("/run", h.RunPatch, runLimit)                   // POST /api/v1/patches/run
		patches.POST("/run-executable", h.RunExecutable, batchLimit) // POST /api/v1/patches/run-executable
	}
}
