package ratelimit

// Scope groups the endpoints that share a counter
type Scope string

const (
	ScopeRun      Scope = "run"       // single patch execution
	ScopeRunBatch Scope = "run-batch" // run every executable patch
)

// ScopeConfig defines the limit for one scope
type ScopeConfig struct {
	Scope         Scope
	Limit         int64 // Requests allowed per window
	WindowSeconds int   // Time window in seconds
}

// DefaultScopeConfigs returns per-scope limits derived from the per-user run limit.
// A batch run executes every stale patch, so it is allowed far less often.
func DefaultScopeConfigs(runLimit int64) map[Scope]ScopeConfig {
	if runLimit <= 0 {
		runLimit = 30
	}
	batch := runLimit / 10
	if batch < 1 {
		batch = 1
	}
	return map[Scope]ScopeConfig{
		ScopeRun:      {Scope: ScopeRun, Limit: runLimit, WindowSeconds: 60},
		ScopeRunBatch: {Scope: ScopeRunBatch, Limit: batch, WindowSeconds: 60},
	}
}
