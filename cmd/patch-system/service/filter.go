package service

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

// ErrInvalidFilter is returned for filter expressions that do not compile
var ErrInvalidFilter = errors.New("invalid filter")

// ViewFilter is a compiled CEL predicate over patch views, e.g.
// status == "NEW" || projectName.startsWith("core")
type ViewFilter struct {
	expr string
	prg  cel.Program
}

// DefaultFilterCacheSize is the number of compiled filters kept by NewFilterCompiler
const DefaultFilterCacheSize = 256

// FilterCompiler compiles filter expressions and keeps the most recently used programs
type FilterCompiler struct {
	env   *cel.Env
	cache *lru.Cache[string, *ViewFilter]
}

// NewFilterCompiler creates a compiler with the view variables declared
func NewFilterCompiler() (*FilterCompiler, error) {
	return NewFilterCompilerSize(DefaultFilterCacheSize)
}

// NewFilterCompilerSize creates a compiler caching at most size programs
func NewFilterCompilerSize(size int) (*FilterCompiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("status", cel.StringType),
		cel.Variable("projectName", cel.StringType),
		cel.Variable("scriptName", cel.StringType),
		cel.Variable("path", cel.StringType),
		cel.Variable("source", cel.StringType),
		cel.Variable("output", cel.StringType),
		cel.Variable("needsRun", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	cache, err := lru.New[string, *ViewFilter](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter cache: %w", err)
	}

	return &FilterCompiler{
		env:   env,
		cache: cache,
	}, nil
}

// Compile returns the filter for expr, compiling it on first use
func (c *FilterCompiler) Compile(expr string) (*ViewFilter, error) {
	if f, ok := c.cache.Get(expr); ok {
		return f, nil
	}

	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, issues.Err())
	}

	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	f := &ViewFilter{expr: expr, prg: prg}
	c.cache.Add(expr, f)

	return f, nil
}

// CacheSize returns the number of cached filters
func (c *FilterCompiler) CacheSize() int {
	return c.cache.Len()
}

// String returns the source expression
func (f *ViewFilter) String() string {
	return f.expr
}

// Match evaluates the filter against view
func (f *ViewFilter) Match(view *models.PatchView) (bool, error) {
	output := ""
	if view.Result != nil && view.Result.Output != nil {
		output = *view.Result.Output
	}

	out, _, err := f.prg.Eval(map[string]interface{}{
		"status":      view.Status.String(),
		"projectName": view.Patch.ProjectName,
		"scriptName":  view.Patch.ScriptName,
		"path":        view.Patch.Path,
		"source":      view.Patch.Source,
		"output":      output,
		"needsRun":    view.NeedsRun,
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression did not return boolean, got %T", ErrInvalidFilter, out.Value())
	}
	return matched, nil
}

// Apply keeps the views the filter matches, preserving order
func (f *ViewFilter) Apply(views []*models.PatchView) ([]*models.PatchView, error) {
	kept := make([]*models.PatchView, 0, len(views))
	for _, view := range views {
		ok, err := f.Match(view)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, view)
		}
	}
	return kept, nil
}
