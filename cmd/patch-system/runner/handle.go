package runner

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

// ErrUnavailable is returned by Handle.Execute when no runner is bound
var ErrUnavailable = errors.New("script runner unavailable")

// Runner executes a single patch script
type Runner interface {
	Execute(ctx context.Context, patch *models.Patch) (*Outcome, error)
}

type binding struct {
	runner Runner
}

// Handle is an optional, swappable reference to a Runner.
// Runners may be bound and unbound while executions are in flight; an
// execution keeps the runner it started with.
type Handle struct {
	current atomic.Pointer[binding]
}

// NewHandle returns a handle bound to r, or an empty handle when r is nil
func NewHandle(r Runner) *Handle {
	h := &Handle{}
	if r != nil {
		h.Bind(r)
	}
	return h
}

// Bind makes r the active runner
func (h *Handle) Bind(r Runner) {
	if r == nil {
		h.Unbind()
		return
	}
	h.current.Store(&binding{runner: r})
}

// Unbind removes the active runner
func (h *Handle) Unbind() {
	h.current.Store(nil)
}

// IsAvailable reports whether a runner is bound
func (h *Handle) IsAvailable() bool {
	return h.current.Load() != nil
}

// Execute delegates to the bound runner
func (h *Handle) Execute(ctx context.Context, patch *models.Patch) (*Outcome, error) {
	b := h.current.Load()
	if b == nil {
		return nil, ErrUnavailable
	}
	return b.runner.Execute(ctx, patch)
}
