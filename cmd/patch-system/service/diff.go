package service

import "github.com/ida-mediafoundry/jetpack-patch-system/common/models"

// IsStale reports whether patch must (re)run: it never ran, or its content
// changed since the recorded run
func IsStale(patch *models.Patch, result *models.PatchResult) bool {
	if result == nil {
		return true
	}
	return patch.Fingerprint != result.Fingerprint
}
