package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

// Page is one slice of the merged patch list
type Page struct {
	Items  []*models.PatchView `json:"items"`
	Offset int                 `json:"offset"`
	Limit  int                 `json:"limit"`
	Total  int                 `json:"total"`
}

// DataSource merges several patch systems into the single list shown to users
type DataSource struct {
	systems []*PatchSystem
	filters *FilterCompiler
	log     *logger.Logger
}

// NewDataSource creates a data source over systems; nil systems are skipped
func NewDataSource(filters *FilterCompiler, log *logger.Logger, systems ...*PatchSystem) *DataSource {
	bound := make([]*PatchSystem, 0, len(systems))
	for _, s := range systems {
		if s != nil {
			bound = append(bound, s)
		}
	}
	return &DataSource{
		systems: bound,
		filters: filters,
		log:     log,
	}
}

// Systems returns the bound patch systems in merge order
func (d *DataSource) Systems() []*PatchSystem {
	return d.systems
}

// Views returns the views of every system, concatenated in system order
func (d *DataSource) Views(ctx context.Context) ([]*models.PatchView, error) {
	all := make([]*models.PatchView, 0)
	for _, s := range d.systems {
		views, err := s.BuildView(ctx)
		if err != nil {
			return nil, fmt.Errorf("patch system %s: %w", s.Name(), err)
		}
		all = append(all, views...)
	}
	return all, nil
}

// Page returns the views in [offset, offset+limit) after filtering.
// limit <= 0 means no limit. An invalid filter is returned as an error;
// failures reading patches or results yield an empty page.
func (d *DataSource) Page(ctx context.Context, offset, limit int, filter string) (*Page, error) {
	if offset < 0 {
		offset = 0
	}

	var vf *ViewFilter
	if filter != "" {
		var err error
		if vf, err = d.filters.Compile(filter); err != nil {
			return nil, err
		}
	}

	page := &Page{Items: []*models.PatchView{}, Offset: offset, Limit: limit}

	views, err := d.Views(ctx)
	if err != nil {
		d.log.Error("error while reading patches list", "error", err)
		return page, nil
	}

	if vf != nil {
		if views, err = vf.Apply(views); err != nil {
			if errors.Is(err, ErrInvalidFilter) {
				return nil, err
			}
			d.log.Error("error while filtering patches list", "filter", filter, "error", err)
			return page, nil
		}
	}

	page.Total = len(views)
	if offset >= len(views) {
		return page, nil
	}

	end := len(views)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page.Items = views[offset:end]

	return page, nil
}

// ListExecutable returns the executable patches of every system
func (d *DataSource) ListExecutable(ctx context.Context) ([]*models.Patch, error) {
	all := make([]*models.Patch, 0)
	for _, s := range d.systems {
		patches, err := s.ListExecutable(ctx)
		if err != nil {
			return nil, fmt.Errorf("patch system %s: %w", s.Name(), err)
		}
		all = append(all, patches...)
	}
	return all, nil
}

// View returns the view of the patch at path from the first system that knows it
func (d *DataSource) View(ctx context.Context, path string) (*models.PatchView, error) {
	for _, s := range d.systems {
		view, err := s.View(ctx, path)
		if errors.Is(err, ErrPatchNotFound) {
			continue
		}
		return view, err
	}
	return nil, fmt.Errorf("%w: %s", ErrPatchNotFound, path)
}

// Run runs the patch at path on the first system that knows it
func (d *DataSource) Run(ctx context.Context, path string) (*models.PatchResult, error) {
	for _, s := range d.systems {
		result, err := s.Run(ctx, path)
		if errors.Is(err, ErrPatchNotFound) {
			continue
		}
		return result, err
	}
	return nil, fmt.Errorf("%w: %s", ErrPatchNotFound, path)
}

// RunExecutable runs the executable patches of every ready system.
// Systems without a runner are skipped.
func (d *DataSource) RunExecutable(ctx context.Context) ([]*models.PatchResult, error) {
	all := make([]*models.PatchResult, 0)
	for _, s := range d.systems {
		if !s.IsReady() {
			d.log.Warn("skipping patch system without runner", "system", s.Name())
			continue
		}
		results, err := s.RunExecutable(ctx)
		all = append(all, results...)
		if err != nil {
			return all, fmt.Errorf("patch system %s: %w", s.Name(), err)
		}
	}
	return all, nil
}

// Readiness reports per system whether a runner is available
func (d *DataSource) Readiness() map[string]bool {
	ready := make(map[string]bool, len(d.systems))
	for _, s := range d.systems {
		ready[s.Name()] = s.IsReady()
	}
	return ready
}

// IsReady reports whether any system can run patches
func (d *DataSource) IsReady() bool {
	for _, s := range d.systems {
		if s.IsReady() {
			return true
		}
	}
	return false
}
