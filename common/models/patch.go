package models

import "errors"

// ErrPatchNotFound is returned when no patch exists at a path
var ErrPatchNotFound = errors.New("patch not found")

// Patch is a snapshot of a patch script as found by a patch catalog.
// It is rebuilt on every catalog query and never mutated afterwards.
type Patch struct {
	// Path uniquely identifies the patch (e.g. /etc/patches/project-a/001-init.groovy)
	Path string `json:"path"`

	// ScriptName is the display name, the file name of the script
	ScriptName string `json:"script_name"`

	// ProjectName is the owning project, the first directory below the source root
	ProjectName string `json:"project_name"`

	// Fingerprint is the md5 hex digest of the script content
	Fingerprint string `json:"fingerprint"`

	// ResultPath is the key under which results for this patch are recorded
	ResultPath string `json:"result_path"`

	// Source names the patch system that produced this patch ("groovy", "ondeploy", ...)
	Source string `json:"source,omitempty"`
}

// ResultKey is the key results of this patch are stored under.
// It falls back to Path for catalogs that do not assign result paths.
func (p *Patch) ResultKey() string {
	if p.ResultPath != "" {
		return p.ResultPath
	}
	return p.Path
}
