package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/runner"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/config"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/telemetry"
)

// Outputs recorded when a run fails outside the script itself
const (
	MsgRunnerUnavailable = "Groovy Console is not installed."
	MsgExecutionError    = "Script Execution error, check log files"
)

// persistTimeout bounds recording a finished run once the caller has gone away
const persistTimeout = 10 * time.Second

// PatchSystem decides which patches need to run and runs them
type PatchSystem struct {
	name        string
	catalog     PatchCatalog
	store       ResultStore
	runner      ScriptRunner
	events      EventPublisher
	telemetry   *telemetry.Telemetry
	serviceUser string
	log         *logger.Logger
	now         func() time.Time

	// deriveRunningTime fills running time from the dates for results no runner timed
	deriveRunningTime bool
}

// Option configures a PatchSystem
type Option func(*PatchSystem)

// WithEvents publishes every persisted result
func WithEvents(events EventPublisher) Option {
	return func(s *PatchSystem) {
		s.events = events
	}
}

// WithTelemetry records run durations
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(s *PatchSystem) {
		s.telemetry = t
	}
}

// WithServiceUser overrides the user scripts run as
func WithServiceUser(user string) Option {
	return func(s *PatchSystem) {
		if user != "" {
			s.serviceUser = user
		}
	}
}

// WithDerivedRunningTime shows start to end duration as running time for
// results that carry none, as on-deploy script results do
func WithDerivedRunningTime() Option {
	return func(s *PatchSystem) {
		s.deriveRunningTime = true
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *PatchSystem) {
		s.now = now
	}
}

// NewPatchSystem creates a patch system over one catalog.
// scriptRunner may be nil, in which case the system is never ready.
func NewPatchSystem(name string, catalog PatchCatalog, store ResultStore, scriptRunner ScriptRunner, log *logger.Logger, opts ...Option) *PatchSystem {
	s := &PatchSystem{
		name:        name,
		catalog:     catalog,
		store:       store,
		runner:      scriptRunner,
		serviceUser: config.DefaultServiceUser,
		log:         log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name identifies the system, matching its source name
func (s *PatchSystem) Name() string {
	return s.name
}

// IsReady reports whether a script runner is currently available
func (s *PatchSystem) IsReady() bool {
	return s.runner != nil && s.runner.IsAvailable()
}

// ListExecutable returns the patches that never ran or changed since their
// last run, in catalog order
func (s *PatchSystem) ListExecutable(ctx context.Context) ([]*models.Patch, error) {
	patches, err := s.catalog.GetPatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patches: %w", err)
	}

	executable := make([]*models.Patch, 0, len(patches))
	for _, patch := range patches {
		result, err := s.store.GetResult(ctx, patch)
		if err != nil {
			return nil, fmt.Errorf("failed to get result for %s: %w", patch.Path, err)
		}
		if IsStale(patch, result) {
			executable = append(executable, patch)
		}
	}

	return executable, nil
}

// BuildView pairs every patch with its latest result, in catalog order
func (s *PatchSystem) BuildView(ctx context.Context) ([]*models.PatchView, error) {
	patches, err := s.catalog.GetPatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patches: %w", err)
	}

	views := make([]*models.PatchView, 0, len(patches))
	for _, patch := range patches {
		view, err := s.view(ctx, patch)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	return views, nil
}

// View returns the view of the patch at path
func (s *PatchSystem) View(ctx context.Context, path string) (*models.PatchView, error) {
	patch, err := s.catalog.GetPatch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to get patch: %w", err)
	}
	return s.view(ctx, patch)
}

func (s *PatchSystem) view(ctx context.Context, patch *models.Patch) (*models.PatchView, error) {
	result, err := s.store.GetResult(ctx, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to get result for %s: %w", patch.Path, err)
	}

	if s.deriveRunningTime && result != nil && result.RunningTime == nil {
		result = result.Clone()
		result.RunningTime = models.FormattedRunningTime(result.StartDate, result.EndDate)
	}

	stale := IsStale(patch, result)
	return &models.PatchView{
		Patch:    patch,
		Result:   result,
		NeedsRun: stale,
		Status:   models.DisplayStatus(result, stale),
	}, nil
}

// Run executes the patch at path and returns its persisted result.
// Runner problems and script failures are recorded in the result; only an
// unknown path or a store failure is returned as an error.
func (s *PatchSystem) Run(ctx context.Context, path string) (*models.PatchResult, error) {
	defer s.telemetry.RecordDuration("patch.run", time.Now())

	patch, err := s.catalog.GetPatch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to get patch: %w", err)
	}

	result := models.NewRunningResult(patch, s.now())
	if err := s.store.CreateResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to record running patch %s: %w", patch.Path, err)
	}

	log := s.log.WithPatchPath(patch.Path).WithResultID(result.ID.String())
	log.Info("patch run started", "system", s.name)

	status := s.execute(ctx, log, patch, result)
	result.Finish(status, s.now())

	// A cancelled caller must not leave the result RUNNING
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := s.store.UpdateResult(persistCtx, result); err != nil {
		return nil, fmt.Errorf("failed to record result of patch %s: %w", patch.Path, err)
	}

	log.Info("patch run finished", "status", result.Status)

	if s.events != nil {
		if err := s.events.PublishResult(persistCtx, s.name, result); err != nil {
			log.Warn("failed to publish run event", "error", err)
		}
	}

	return result, nil
}

// execute runs the script inside a service session and fills in output and
// running time, returning the terminal status
func (s *PatchSystem) execute(ctx context.Context, log *logger.Logger, patch *models.Patch, result *models.PatchResult) models.PatchStatus {
	sessionCtx, release := s.openSession(ctx)
	defer release()

	if !s.IsReady() {
		log.Error(MsgRunnerUnavailable)
		result.SetOutput(MsgRunnerUnavailable)
		return models.StatusError
	}

	outcome, err := s.invoke(sessionCtx, patch)
	if err != nil {
		log.Error("could not execute script", "error", err)
		result.SetOutput(MsgExecutionError)
		return models.StatusError
	}

	result.SetRunningTime(outcome.RunningTime)

	if strings.TrimSpace(outcome.ExceptionStackTrace) != "" {
		result.SetOutput(outcome.ExceptionStackTrace)
		return models.StatusError
	}

	if strings.TrimSpace(outcome.Output) != "" {
		result.SetOutput(outcome.Output)
	}
	return models.StatusSuccess
}

// invoke calls the runner, turning a panic or a missing outcome into an error
func (s *PatchSystem) invoke(ctx context.Context, patch *models.Patch) (outcome *runner.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			err = fmt.Errorf("script runner panicked: %v", r)
		}
	}()

	outcome, err = s.runner.Execute(ctx, patch)
	if err == nil && outcome == nil {
		err = errors.New("script runner returned no outcome")
	}
	return outcome, err
}

// RunExecutable runs every executable patch in catalog order.
// It stops at the first store failure and returns the results gathered so far.
func (s *PatchSystem) RunExecutable(ctx context.Context) ([]*models.PatchResult, error) {
	patches, err := s.ListExecutable(ctx)
	if err != nil {
		return nil, err
	}

	s.log.Info("running executable patches", "system", s.name, "count", len(patches))

	results := make([]*models.PatchResult, 0, len(patches))
	for _, patch := range patches {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := s.Run(ctx, patch.Path)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	s.telemetry.RecordEvent("patch.run_executable", map[string]any{
		"system": s.name,
		"count":  len(results),
	})

	return results, nil
}
