package repository

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/config"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
)

// PatchFileRepository discovers patch scripts below one source root
type PatchFileRepository struct {
	fs     afero.Fs
	source config.SourceConfig
	log    *logger.Logger
}

// NewPatchFileRepository creates a catalog for source on the given filesystem
func NewPatchFileRepository(fsys afero.Fs, source config.SourceConfig, log *logger.Logger) *PatchFileRepository {
	return &PatchFileRepository{
		fs:     fsys,
		source: source,
		log:    log,
	}
}

// Source returns the source this catalog scans
func (r *PatchFileRepository) Source() config.SourceConfig {
	return r.source
}

// GetPatches walks the source root and returns every script in lexical path order.
// A missing root yields an empty catalog.
func (r *PatchFileRepository) GetPatches(ctx context.Context) ([]*models.Patch, error) {
	root := filepath.Clean(r.source.Root)

	exists, err := afero.DirExists(r.fs, root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat patch root %s: %w", root, err)
	}
	if !exists {
		r.log.Warn("patch root does not exist", "source", r.source.Name, "root", root)
		return []*models.Patch{}, nil
	}

	patches := make([]*models.Patch, 0)
	err = afero.Walk(r.fs, root, func(path string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() || !r.accepts(path) {
			return nil
		}

		patch, err := r.load(root, path)
		if err != nil {
			return err
		}
		patches = append(patches, patch)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan patches in %s: %w", root, err)
	}

	r.log.Debug("patches scanned", "source", r.source.Name, "count", len(patches))
	return patches, nil
}

// GetPatch loads the patch at path, returning models.ErrPatchNotFound when
// the path is outside the root, has the wrong extension, or does not exist
func (r *PatchFileRepository) GetPatch(ctx context.Context, path string) (*models.Patch, error) {
	root := filepath.Clean(r.source.Root)
	clean := filepath.Clean(path)

	if !within(root, clean) || !r.accepts(clean) {
		return nil, fmt.Errorf("%w: %s", models.ErrPatchNotFound, path)
	}

	info, err := r.fs.Stat(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrPatchNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat patch %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", models.ErrPatchNotFound, path)
	}

	return r.load(root, clean)
}

func (r *PatchFileRepository) accepts(path string) bool {
	ext := filepath.Ext(path)
	for _, accepted := range r.source.Extensions {
		if strings.EqualFold(ext, accepted) {
			return true
		}
	}
	return false
}

func (r *PatchFileRepository) load(root, path string) (*models.Patch, error) {
	fingerprint, err := r.fingerprint(path)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve patch path %s: %w", path, err)
	}
	rel = filepath.ToSlash(rel)

	project := r.source.Name
	if i := strings.Index(rel, "/"); i > 0 {
		project = rel[:i]
	}

	resultPath := ""
	if r.source.ResultRoot != "" {
		resultPath = strings.TrimSuffix(r.source.ResultRoot, "/") + "/" + rel
	}

	return &models.Patch{
		Path:        path,
		ScriptName:  filepath.Base(path),
		ProjectName: project,
		Fingerprint: fingerprint,
		ResultPath:  resultPath,
		Source:      r.source.Name,
	}, nil
}

func (r *PatchFileRepository) fingerprint(path string) (string, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open patch %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read patch %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, "../")
}
