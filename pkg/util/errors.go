// Package util provides logging, common error types, and small helpers.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for reconciliation failures. Callers classify outcomes
// with errors.Is against these; the typed errors below carry the context.
var (
	ErrIntentNotFound   = errors.New("no intent for device")
	ErrTemplate         = errors.New("rendering template not found")
	ErrBackupFailed     = errors.New("backup failed")
	ErrApplyRejected    = errors.New("device rejected configuration")
	ErrSession          = errors.New("device session error")
	ErrNotConfigured    = errors.New("feature not configured on device")
	ErrCyclicDependency = errors.New("cyclic tier dependency")
	ErrValidationFailed = errors.New("validation failed")
)

// SessionError wraps a transport-level failure for one device operation.
type SessionError struct {
	Device string
	Op     string // "connect", "capture", "apply", "persist", "exec"
	Err    error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s on %s: %v", e.Op, e.Device, e.Err)
}

func (e *SessionError) Unwrap() error {
	return ErrSession
}

// NewSessionError creates a session error for a device operation.
func NewSessionError(device, op string, err error) *SessionError {
	return &SessionError{Device: device, Op: op, Err: err}
}

// BackupError indicates a live-config backup could not be persisted.
// An apply is never attempted after a BackupError.
type BackupError struct {
	Device string
	Err    error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup for %s: %v", e.Device, e.Err)
}

func (e *BackupError) Unwrap() error {
	return ErrBackupFailed
}

// ApplyError indicates the device refused a pushed configuration.
type ApplyError struct {
	Device string
	Detail string
}

func (e *ApplyError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s rejected configuration: %s", e.Device, e.Detail)
	}
	return fmt.Sprintf("%s rejected configuration", e.Device)
}

func (e *ApplyError) Unwrap() error {
	return ErrApplyRejected
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddError adds an error message unconditionally
func (v *ValidationBuilder) AddError(message string) *ValidationBuilder {
	v.errors = append(v.errors, message)
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
