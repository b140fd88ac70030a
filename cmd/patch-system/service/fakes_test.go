package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/runner"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

type fakeCatalog struct {
	patches []*models.Patch
	err     error
}

func (c *fakeCatalog) GetPatches(ctx context.Context) ([]*models.Patch, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.patches, nil
}

func (c *fakeCatalog) GetPatch(ctx context.Context, path string) (*models.Patch, error) {
	for _, p := range c.patches {
		if p.Path == path {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrPatchNotFound, path)
}

type fakeStore struct {
	mu        sync.Mutex
	results   map[string]*models.PatchResult
	created   []*models.PatchResult
	updated   []*models.PatchResult
	getErr    error
	createErr error
	updateErr error

	// honorCtx makes writes fail once their context is done, like a database driver
	honorCtx bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{results: make(map[string]*models.PatchResult)}
}

func (s *fakeStore) put(patch *models.Patch, result *models.PatchResult) {
	s.results[patch.ResultKey()] = result
}

func (s *fakeStore) GetResult(ctx context.Context, patch *models.Patch) (*models.PatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.results[patch.ResultKey()].Clone(), nil
}

func (s *fakeStore) CreateResult(ctx context.Context, result *models.PatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if s.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	s.created = append(s.created, result.Clone())
	s.results[result.PatchPath] = result.Clone()
	return nil
}

func (s *fakeStore) UpdateResult(ctx context.Context, result *models.PatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	s.updated = append(s.updated, result.Clone())
	s.results[result.PatchPath] = result.Clone()
	return nil
}

type fakeRunner struct {
	available bool
	outcome   *runner.Outcome
	err       error
	panicWith interface{}
	onExecute func()

	calls  int
	gotCtx context.Context
}

func (r *fakeRunner) IsAvailable() bool {
	return r.available
}

func (r *fakeRunner) Execute(ctx context.Context, patch *models.Patch) (*runner.Outcome, error) {
	r.calls++
	r.gotCtx = ctx
	if r.onExecute != nil {
		r.onExecute()
	}
	if r.panicWith != nil {
		panic(r.panicWith)
	}
	return r.outcome, r.err
}

type recordingPublisher struct {
	events []*models.PatchResult
	err    error
}

func (p *recordingPublisher) PublishResult(ctx context.Context, source string, result *models.PatchResult) error {
	p.events = append(p.events, result.Clone())
	return p.err
}

var errStore = errors.New("store unavailable")
