package models

// PatchView pairs a patch with its latest result for presentation.
// It is never persisted.
type PatchView struct {
	Patch    *Patch       `json:"patch"`
	Result   *PatchResult `json:"result,omitempty"`
	NeedsRun bool         `json:"needs_run"`
	Status   PatchStatus  `json:"status"`
}

// DisplayStatus derives the status shown for a patch.
// No result means NEW, a stale result means RE-RUN, otherwise the
// persisted status of the result is shown as-is.
func DisplayStatus(result *PatchResult, stale bool) PatchStatus {
	switch {
	case result == nil:
		return StatusNew
	case stale:
		return StatusReRun
	default:
		return result.Status
	}
}

// Values flattens the view into the value map consumed by the patch list UI.
// Patches without a result only carry their identity fields.
func (v *PatchView) Values() map[string]interface{} {
	values := map[string]interface{}{
		"status":      v.Status.String(),
		"projectName": v.Patch.ProjectName,
		"scriptName":  v.Patch.ScriptName,
	}

	if v.Result == nil {
		return values
	}

	values["startDate"] = v.Result.StartDate
	values["endDate"] = v.Result.EndDate
	values["runningTime"] = v.Result.RunningTime
	values["output"] = v.Result.Output

	return values
}
