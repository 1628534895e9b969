package util

import (
	"errors"
	"strings"
	"testing"
)

func TestSessionError(t *testing.T) {
	err := NewSessionError("core-1", "connect", errors.New("dial tcp: i/o timeout"))

	msg := err.Error()
	if !strings.Contains(msg, "core-1") {
		t.Errorf("Error message should contain device: %s", msg)
	}
	if !strings.Contains(msg, "connect") {
		t.Errorf("Error message should contain operation: %s", msg)
	}
	if !strings.Contains(msg, "i/o timeout") {
		t.Errorf("Error message should contain underlying cause: %s", msg)
	}

	if !errors.Is(err, ErrSession) {
		t.Error("SessionError should unwrap to ErrSession")
	}
}

func TestBackupError(t *testing.T) {
	err := &BackupError{Device: "edge-1", Err: errors.New("disk full")}

	msg := err.Error()
	if !strings.Contains(msg, "edge-1") || !strings.Contains(msg, "disk full") {
		t.Errorf("Error message incomplete: %s", msg)
	}
	if !errors.Is(err, ErrBackupFailed) {
		t.Error("BackupError should unwrap to ErrBackupFailed")
	}
}

func TestApplyError(t *testing.T) {
	t.Run("with detail", func(t *testing.T) {
		err := &ApplyError{Device: "agg-1", Detail: "invalid input at line 12"}
		msg := err.Error()
		if !strings.Contains(msg, "agg-1") || !strings.Contains(msg, "line 12") {
			t.Errorf("Error message incomplete: %s", msg)
		}
		if !errors.Is(err, ErrApplyRejected) {
			t.Error("ApplyError should unwrap to ErrApplyRejected")
		}
	})

	t.Run("without detail", func(t *testing.T) {
		err := &ApplyError{Device: "agg-1"}
		msg := err.Error()
		if !strings.Contains(msg, "agg-1") {
			t.Errorf("Error message should contain device: %s", msg)
		}
		if strings.HasSuffix(msg, ": ") {
			t.Errorf("Error message has dangling detail separator: %s", msg)
		}
	})
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := &ValidationError{Errors: []string{"mgmt_ip is required"}}
		msg := err.Error()
		if !strings.Contains(msg, "mgmt_ip is required") {
			t.Errorf("Error message should contain the error: %s", msg)
		}
		if strings.Contains(msg, "\n") {
			t.Errorf("single error should be one line: %s", msg)
		}
		if !errors.Is(err, ErrValidationFailed) {
			t.Error("ValidationError should unwrap to ErrValidationFailed")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := &ValidationError{Errors: []string{"mgmt_ip is required", "tier must be >= 0"}}
		msg := err.Error()
		if !strings.Contains(msg, "mgmt_ip is required") || !strings.Contains(msg, "tier must be >= 0") {
			t.Errorf("Error message should list every error: %s", msg)
		}
		if strings.Count(msg, "- ") != 2 {
			t.Errorf("multiple errors should be bulleted: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors builds nil", func(t *testing.T) {
		var v ValidationBuilder
		v.Add(true, "should not appear")
		if v.HasErrors() {
			t.Error("HasErrors() should be false")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() = %v, want nil", err)
		}
	})

	t.Run("accumulates failures", func(t *testing.T) {
		var v ValidationBuilder
		v.Add(false, "role is required").
			AddError("unknown partition").
			AddErrorf("peer %d: bad remote AS", 2)

		if !v.HasErrors() {
			t.Fatal("HasErrors() should be true")
		}
		err := v.Build()
		if err == nil {
			t.Fatal("Build() should return an error")
		}

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Build() should return *ValidationError, got %T", err)
		}
		if len(verr.Errors) != 3 {
			t.Errorf("expected 3 errors, got %d: %v", len(verr.Errors), verr.Errors)
		}
		if verr.Errors[2] != "peer 2: bad remote AS" {
			t.Errorf("AddErrorf not formatted: %q", verr.Errors[2])
		}
	})
}
