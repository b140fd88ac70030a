package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/middleware"
	"github.com/ida-mediafoundry/jetpack-patch-system/cmd/patch-system/service"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

// PatchService is what the handlers need from the merged patch systems;
// *service.DataSource satisfies it
type PatchService interface {
	Page(ctx context.Context, offset, limit int, filter string) (*service.Page, error)
	ListExecutable(ctx context.Context) ([]*models.Patch, error)
	View(ctx context.Context, path string) (*models.PatchView, error)
	Run(ctx context.Context, path string) (*models.PatchResult, error)
	RunExecutable(ctx context.Context) ([]*models.PatchResult, error)
	Readiness() map[string]bool
	IsReady() bool
}

// PatchHandler handles patch listing and execution requests
type PatchHandler struct {
	patches PatchService
	log     *logger.Logger
}

// NewPatchHandler creates a new patch handler
func NewPatchHandler(patches PatchService, log *logger.Logger) *PatchHandler {
	return &PatchHandler{
		patches: patches,
		log:     log,
	}
}

// patchItem is one row of the patch list
type patchItem struct {
	Path     string                 `json:"path"`
	Source   string                 `json:"source"`
	NeedsRun bool                   `json:"needs_run"`
	Values   map[string]interface{} `json:"values"`
}

func toItem(view *models.PatchView) patchItem {
	return patchItem{
		Path:     view.Patch.Path,
		Source:   view.Patch.Source,
		NeedsRun: view.NeedsRun,
		Values:   view.Values(),
	}
}

// ListPatches returns one page of the patch list
// GET /api/v1/patches?offset=0&limit=50&filter=status=="NEW"
func (h *PatchHandler) ListPatches(c echo.Context) error {
	ctx := c.Request().Context()

	offset, err := intParam(c, "offset", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "offset must be a non-negative integer",
		})
	}
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "limit must be a non-negative integer",
		})
	}

	page, err := h.patches.Page(ctx, offset, limit, c.QueryParam("filter"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidFilter) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": err.Error(),
			})
		}
		h.log.Error("failed to list patches", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to list patches",
		})
	}

	items := make([]patchItem, 0, len(page.Items))
	for _, view := range page.Items {
		items = append(items, toItem(view))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"items":  items,
		"offset": page.Offset,
		"limit":  page.Limit,
		"total":  page.Total,
	})
}

// ListExecutable returns the patches that are new or modified
// GET /api/v1/patches/executable
func (h *PatchHandler) ListExecutable(c echo.Context) error {
	patches, err := h.patches.ListExecutable(c.Request().Context())
	if err != nil {
		h.log.Error("failed to list executable patches", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to list executable patches",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"patches": patches,
		"count":   len(patches),
	})
}

// Ready reports whether patches can be executed
// GET /api/v1/patches/ready
func (h *PatchHandler) Ready(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ready":   h.patches.IsReady(),
		"systems": h.patches.Readiness(),
	})
}

// GetResult returns a patch with its latest result
// GET /api/v1/patches/result?path=/etc/patches/core/001-init.groovy
func (h *PatchHandler) GetResult(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "path is required",
		})
	}

	view, err := h.patches.View(c.Request().Context(), path)
	if err != nil {
		return h.patchError(c, path, "failed to get patch result", err)
	}

	return c.JSON(http.StatusOK, view)
}

// runRequest is the body of POST /api/v1/patches/run
type runRequest struct {
	Path string `json:"path"`
}

// RunPatch executes one patch synchronously
// POST /api/v1/patches/run
func (h *PatchHandler) RunPatch(c echo.Context) error {
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}
	if req.Path == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "path is required",
		})
	}

	h.log.Info("patch run requested",
		"patch_path", req.Path,
		"username", middleware.GetUsername(c))

	result, err := h.patches.Run(c.Request().Context(), req.Path)
	if err != nil {
		return h.patchError(c, req.Path, "failed to run patch", err)
	}

	return c.JSON(http.StatusOK, result)
}

// RunExecutable executes every new or modified patch
// POST /api/v1/patches/run-executable
func (h *PatchHandler) RunExecutable(c echo.Context) error {
	h.log.Info("batch patch run requested", "username", middleware.GetUsername(c))

	results, err := h.patches.RunExecutable(c.Request().Context())
	if err != nil {
		h.log.Error("batch patch run failed", "error", err, "completed", len(results))
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "failed to run executable patches",
			"results": results,
			"count":   len(results),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

func (h *PatchHandler) patchError(c echo.Context, path, msg string, err error) error {
	if errors.Is(err, service.ErrPatchNotFound) {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "patch not found",
			"path":  path,
		})
	}
	h.log.Error(msg, "patch_path", path, "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": msg,
	})
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}
