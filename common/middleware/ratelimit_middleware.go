package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/ratelimit"
)

// UserLimiter checks a per-user counter; *ratelimit.RateLimiter satisfies it
type UserLimiter interface {
	CheckUserLimit(ctx context.Context, username string, cfg ratelimit.ScopeConfig) (*ratelimit.RateLimitResult, error)
}

// UserRateLimitMiddleware checks per-user rate limits for one scope.
// Requires username to be set in context by ExtractUsername middleware.
// A nil limiter disables the check.
func UserRateLimitMiddleware(limiter UserLimiter, cfg ratelimit.ScopeConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}

			username, ok := c.Get("username").(string)
			if !ok || username == "" {
				return next(c)
			}

			result, err := limiter.CheckUserLimit(c.Request().Context(), username, cfg)
			if err != nil {
				// Fail open
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "user_rate_limit_exceeded",
					"message": "You have exceeded your run quota. Please wait before trying again.",
					"details": map[string]interface{}{
						"username":            username,
						"scope":               string(cfg.Scope),
						"limit":               result.Limit,
						"window_seconds":      cfg.WindowSeconds,
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
