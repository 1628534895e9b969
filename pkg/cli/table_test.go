package cli

import (
	"strings"
	"testing"
)

func TestTable_EmptyProducesNoOutput(t *testing.T) {
	var buf strings.Builder
	table := NewTableTo(&buf, "DEVICE", "STATUS")
	table.Flush()

	if buf.Len() != 0 {
		t.Errorf("empty table produced output: %q", buf.String())
	}
}

func TestTable_HeadersAndDivider(t *testing.T) {
	var buf strings.Builder
	table := NewTableTo(&buf, "DEVICE", "STATUS")
	table.Row("core-1", "applied")
	table.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines (header, divider, row), got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "DEVICE") || !strings.Contains(lines[0], "STATUS") {
		t.Errorf("header line wrong: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "------") {
		t.Errorf("divider line wrong: %q", lines[1])
	}
	if !strings.Contains(lines[2], "core-1") || !strings.Contains(lines[2], "applied") {
		t.Errorf("row line wrong: %q", lines[2])
	}
}

func TestTable_HeadersWrittenOnce(t *testing.T) {
	var buf strings.Builder
	table := NewTableTo(&buf, "DEVICE")
	table.Row("core-1")
	table.Row("edge-1")
	table.Flush()

	if n := strings.Count(buf.String(), "DEVICE"); n != 1 {
		t.Errorf("headers written %d times, want 1", n)
	}
}

func TestTable_ColumnsAligned(t *testing.T) {
	var buf strings.Builder
	table := NewTableTo(&buf, "DEVICE", "TIER")
	table.Row("core-1", "0")
	table.Row("aggregation-router-7", "2")
	table.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// Second column starts at the same offset on every line.
	want := strings.Index(lines[0], "TIER")
	for i, col := range []string{"0", "2"} {
		line := lines[2+i]
		if idx := strings.LastIndex(line, col); idx != want {
			t.Errorf("line %d: column %q at offset %d, want %d (%q)", i, col, idx, want, line)
		}
	}
}

func TestTable_WithPrefix(t *testing.T) {
	var buf strings.Builder
	table := NewTableTo(&buf, "CHECK").WithPrefix("  ")
	table.Row("ospf")
	table.Flush()

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("line missing prefix: %q", line)
		}
	}
}
