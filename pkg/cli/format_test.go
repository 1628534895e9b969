package cli

import (
	"strings"
	"testing"
)

func TestColorFunctions(t *testing.T) {
	orig := colorEnabled
	colorEnabled = true
	defer func() { colorEnabled = orig }()

	tests := []struct {
		name   string
		fn     func(string) string
		prefix string
	}{
		{"Green", Green, "\033[32m"},
		{"Yellow", Yellow, "\033[33m"},
		{"Red", Red, "\033[31m"},
		{"Bold", Bold, "\033[1m"},
		{"Dim", Dim, "\033[2m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn("hello")
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("%s should start with %q", tt.name, tt.prefix)
			}
			if !strings.Contains(got, "hello") {
				t.Errorf("%s should contain the input string", tt.name)
			}
			if !strings.HasSuffix(got, "\033[0m") {
				t.Errorf("%s should end with reset code", tt.name)
			}
		})
	}
}

func TestColorDisabled(t *testing.T) {
	orig := colorEnabled
	colorEnabled = false
	defer func() { colorEnabled = orig }()

	for name, fn := range map[string]func(string) string{
		"Green": Green, "Yellow": Yellow, "Red": Red, "Bold": Bold, "Dim": Dim,
	} {
		if got := fn("hello"); got != "hello" {
			t.Errorf("%s with color disabled = %q, want %q", name, got, "hello")
		}
	}
}

func TestStatus(t *testing.T) {
	orig := colorEnabled
	colorEnabled = true
	defer func() { colorEnabled = orig }()

	tests := []struct {
		input string
		code  string
	}{
		{"pass", "\033[32m"},
		{"applied", "\033[32m"},
		{"ok", "\033[32m"},
		{"skip", "\033[33m"},
		{"skipped", "\033[33m"},
		{"dry-run", "\033[33m"},
		{"fail", "\033[31m"},
		{"failed", "\033[31m"},
		{"aborted", "\033[31m"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Status(tt.input)
			if !strings.HasPrefix(got, tt.code) {
				t.Errorf("Status(%q) = %q, want prefix %q", tt.input, got, tt.code)
			}
		})
	}
}

func TestStatus_UnknownPassthrough(t *testing.T) {
	orig := colorEnabled
	colorEnabled = true
	defer func() { colorEnabled = orig }()

	if got := Status("pending"); got != "pending" {
		t.Errorf("Status(%q) = %q, want unchanged", "pending", got)
	}
}
