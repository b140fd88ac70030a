package ratelimit

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/redis/go-redis/v9"
)

//go:embed rate_limit.lua
var rateLimitScript string

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed           bool  // Whether the request is allowed
	CurrentCount      int64 // Current count in the window
	Limit             int64 // The limit that was checked
	RetryAfterSeconds int64 // Seconds until the limit resets (0 if allowed)
}

// RateLimiter counts per-user run requests in Redis with an atomic Lua script
type RateLimiter struct {
	redis  redis.Cmdable
	script *redis.Script
	logger Logger
}

// NewRateLimiter creates a new rate limiter with embedded Lua script
func NewRateLimiter(redisClient redis.Cmdable, logger Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		script: redis.NewScript(rateLimitScript),
		logger: logger,
	}
}

// UserKey returns the counter key for a user in a scope
func UserKey(username string, scope Scope) string {
	return fmt.Sprintf("patchsystem:rate_limit:user:%s:%s", username, scope)
}

// CheckUserLimit checks and increments the counter for username in scope
func (r *RateLimiter) CheckUserLimit(ctx context.Context, username string, cfg ScopeConfig) (*RateLimitResult, error) {
	return r.checkLimit(ctx, UserKey(username, cfg.Scope), cfg.Limit, cfg.WindowSeconds)
}

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int64, windowSec int) (*RateLimitResult, error) {
	result, err := r.script.Run(ctx, r.redis, []string{key}, limit, windowSec).Result()
	if err != nil {
		r.logger.Error("rate limit check failed", "key", key, "error", err)
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	parsed, err := parseScriptResult(result)
	if err != nil {
		return nil, err
	}

	if !parsed.Allowed {
		r.logger.Warn("rate limit exceeded",
			"key", key,
			"current", parsed.CurrentCount,
			"limit", limit,
			"retry_after", parsed.RetryAfterSeconds)
	} else {
		r.logger.Debug("rate limit check passed",
			"key", key,
			"current", parsed.CurrentCount,
			"limit", limit)
	}

	return parsed, nil
}

// parseScriptResult decodes {allowed, current_count, limit, retry_after}
func parseScriptResult(result interface{}) (*RateLimitResult, error) {
	values, ok := result.([]interface{})
	if !ok || len(values) != 4 {
		return nil, fmt.Errorf("unexpected script result format: %v", result)
	}

	ints := make([]int64, len(values))
	for i, v := range values {
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected script result element %d: %T", i, v)
		}
		ints[i] = n
	}

	return &RateLimitResult{
		Allowed:           ints[0] == 1,
		CurrentCount:      ints[1],
		Limit:             ints[2],
		RetryAfterSeconds: ints[3],
	}, nil
}

// ResetUserLimit clears a user's counter for scope
func (r *RateLimiter) ResetUserLimit(ctx context.Context, username string, scope Scope) error {
	if err := r.redis.Del(ctx, UserKey(username, scope)).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}
