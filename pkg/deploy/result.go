// Package deploy applies rendered configuration to devices one at a time,
// with a durable backup before every mutating change.
package deploy

import (
	"time"

	"github.com/reflow-net/reflow/pkg/diff"
)

// Status is the terminal outcome of one device's deployment.
type Status string

const (
	StatusApplied Status = "applied"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Benign skip reasons. Any other reason means the device was passed
// over because something else went wrong, such as a halted rollout.
const (
	ReasonNoDelta  = "no configuration delta"
	ReasonDryRun   = "dry run"
	ReasonNoIntent = "no intent for device"
)

// Result records one device's deployment outcome.
type Result struct {
	Device string
	Status Status
	Err    error  // set for StatusFailed
	Reason string // set for StatusSkipped

	Diff      *diff.Diff // delta that was (or would be) applied
	BackupAt  time.Time  // when the pre-apply backup was captured
	AppliedAt time.Time  // when the apply was attempted; zero for dry-run/skip
	Duration  time.Duration
}

// Skip builds a skipped result with a reason.
func Skip(device, reason string) Result {
	return Result{Device: device, Status: StatusSkipped, Reason: reason}
}

// Failed reports whether the result is a failure.
func (r Result) Failed() bool {
	return r.Status == StatusFailed
}
