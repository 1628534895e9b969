// Package audit records configuration-changing operations as JSON-lines
// events: every backup, apply, and rollback, with outcome and timing.
package audit

import (
	"fmt"
	"time"
)

// Operation names recorded in audit events.
const (
	OpGenerate = "generate"
	OpBackup   = "backup"
	OpDeploy   = "deploy"
	OpRollback = "rollback"
)

// Event is one auditable operation against one device.
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	User      string        `json:"user"`
	Device    string        `json:"device"`
	Operation string        `json:"operation"`
	Phase     string        `json:"phase,omitempty"` // pipeline phase, if driven by the pipeline
	Diff      string        `json:"diff,omitempty"`  // compact diff summary
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	DryRun    bool          `json:"dry_run"`
	Duration  time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	User        string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(user, device, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		Device:    device,
		Operation: operation,
	}
}

// WithPhase sets the pipeline phase
func (e *Event) WithPhase(phase string) *Event {
	e.Phase = phase
	return e
}

// WithDiff sets the diff summary
func (e *Event) WithDiff(summary string) *Event {
	e.Diff = summary
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithDryRun marks whether the operation mutated anything
func (e *Event) WithDryRun(dryRun bool) *Event {
	e.DryRun = dryRun
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
