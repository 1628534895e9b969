// Package diff computes the line-level delta between a captured live
// configuration and a rendered desired configuration.
//
// The comparison is deliberately context-free: both texts are reduced to
// unordered sets of significant lines and compared with set difference.
// A line that is byte-identical under two different parent blocks is
// therefore treated as unchanged even though it logically differs. That
// blind spot is a documented property of the algorithm, not a bug to
// special-case (see the package tests).
package diff

import (
	"fmt"
	"sort"
	"strings"
)

// Diff is the delta between two configuration snapshots. It is a pure
// function of its two inputs and is only valid for the instant those
// snapshots were captured. Recompute it after anything may have changed.
type Diff struct {
	ToAdd    []string // lines present in desired but not live, sorted
	ToRemove []string // lines present in live but not desired, sorted
}

// Compute returns the set-difference delta from live to desired.
func Compute(live, desired string) Diff {
	liveSet := lineSet(live)
	desiredSet := lineSet(desired)

	var d Diff
	for line := range desiredSet {
		if _, ok := liveSet[line]; !ok {
			d.ToAdd = append(d.ToAdd, line)
		}
	}
	for line := range liveSet {
		if _, ok := desiredSet[line]; !ok {
			d.ToRemove = append(d.ToRemove, line)
		}
	}
	sort.Strings(d.ToAdd)
	sort.Strings(d.ToRemove)
	return d
}

// Empty reports whether the two snapshots had no significant differences.
func (d Diff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// Summary returns a compact "+N/-M" count string.
func (d Diff) Summary() string {
	if d.Empty() {
		return "no changes"
	}
	return fmt.Sprintf("+%d/-%d", len(d.ToAdd), len(d.ToRemove))
}

// String renders the delta for preview display.
func (d Diff) String() string {
	if d.Empty() {
		return "No significant differences"
	}
	var sb strings.Builder
	if len(d.ToAdd) > 0 {
		sb.WriteString("Lines to ADD:\n")
		for _, line := range d.ToAdd {
			sb.WriteString("  + " + line + "\n")
		}
	}
	if len(d.ToRemove) > 0 {
		sb.WriteString("Lines to REMOVE:\n")
		for _, line := range d.ToRemove {
			sb.WriteString("  - " + line + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// lineSet splits text into its set of significant lines.
func lineSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if !significant(line) {
			continue
		}
		set[line] = struct{}{}
	}
	return set
}

// significant filters blank lines, comment lines, and the transient banner
// lines some devices prepend to captured configs.
func significant(line string) bool {
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "!") {
		return false
	}
	if strings.HasPrefix(line, "Building configuration") ||
		strings.HasPrefix(line, "Current configuration") {
		return false
	}
	return true
}
