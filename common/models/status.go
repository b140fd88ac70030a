package models

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PatchStatus is the display status of a patch.
// Only RUNNING, SUCCESS and ERROR are ever persisted; NEW and RE-RUN are
// derived at read time by comparing fingerprints.
type PatchStatus string

const (
	StatusNew     PatchStatus = "NEW"
	StatusReRun   PatchStatus = "RE-RUN"
	StatusRunning PatchStatus = "RUNNING"
	StatusSuccess PatchStatus = "SUCCESS"
	StatusError   PatchStatus = "ERROR"
)

// legacyFail is written by older on-deploy script runs
const legacyFail = "fail"

// ErrUnknownStatus is returned when a persisted status cannot be decoded
var ErrUnknownStatus = errors.New("unknown patch status")

var upper = cases.Upper(language.Und)

// IsTerminal reports whether a run with this status has finished
func (s PatchStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

// IsPersisted reports whether the status may be written to a result store
func (s PatchStatus) IsPersisted() bool {
	return s == StatusRunning || s.IsTerminal()
}

// String returns the status label
func (s PatchStatus) String() string {
	return string(s)
}

// ParseStoredStatus decodes a status read back from a result store.
// The legacy "fail" value maps to ERROR, other values are matched
// case-insensitively against the persisted statuses.
func ParseStoredStatus(raw string) (PatchStatus, error) {
	value := strings.TrimSpace(raw)
	if value == legacyFail {
		return StatusError, nil
	}

	status := PatchStatus(upper.String(value))
	if !status.IsPersisted() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}

	return status, nil
}
