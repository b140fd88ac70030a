package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PatchResult records the outcome of one patch run.
// Maps to: patch_result table
//
// A result is created RUNNING when a run starts and mutated in place to a
// terminal status when the run completes; its ID never changes in between.
type PatchResult struct {
	ID uuid.UUID `db:"id" json:"id"`

	// PatchPath links the result to its patch, see Patch.ResultKey
	PatchPath string `db:"patch_path" json:"patch_path"`

	Status    PatchStatus `db:"status" json:"status"`
	StartDate time.Time   `db:"start_date" json:"start_date"`
	EndDate   *time.Time  `db:"end_date" json:"end_date,omitempty"`

	// Output holds captured script output, or the failure detail on ERROR
	Output *string `db:"output" json:"output,omitempty"`

	// RunningTime is reported by the script runner, nil if the runner never answered
	RunningTime *string `db:"running_time" json:"running_time,omitempty"`

	// Fingerprint of the patch content this result was produced for
	Fingerprint string `db:"fingerprint" json:"fingerprint"`
}

// NewRunningResult allocates a RUNNING result for the given patch
func NewRunningResult(patch *Patch, now time.Time) *PatchResult {
	return &PatchResult{
		ID:          uuid.New(),
		PatchPath:   patch.ResultKey(),
		Status:      StatusRunning,
		StartDate:   now,
		Fingerprint: patch.Fingerprint,
	}
}

// Finish moves the result to a terminal status and stamps the end date
func (r *PatchResult) Finish(status PatchStatus, now time.Time) {
	r.Status = status
	r.EndDate = &now
}

// SetOutput records output text
func (r *PatchResult) SetOutput(output string) {
	r.Output = &output
}

// SetRunningTime records the running time reported by the runner
func (r *PatchResult) SetRunningTime(runningTime string) {
	r.RunningTime = &runningTime
}

// Clone returns a deep copy, used by stores that must not share state with callers
func (r *PatchResult) Clone() *PatchResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.EndDate != nil {
		end := *r.EndDate
		c.EndDate = &end
	}
	if r.Output != nil {
		out := *r.Output
		c.Output = &out
	}
	if r.RunningTime != nil {
		rt := *r.RunningTime
		c.RunningTime = &rt
	}
	return &c
}

// FormattedRunningTime renders end-start as HH:MM:SS.mmm.
// Returns nil when the run has no end date.
func FormattedRunningTime(start time.Time, end *time.Time) *string {
	if end == nil {
		return nil
	}

	d := end.Sub(start)
	if d < 0 {
		d = 0
	}

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond

	formatted := fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
	return &formatted
}
