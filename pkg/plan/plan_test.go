package plan

import (
	"errors"
	"testing"

	"github.com/reflow-net/reflow/pkg/intent"
	"github.com/reflow-net/reflow/pkg/util"
)

func dev(name, role string, deps ...string) *intent.Device {
	return &intent.Device{Name: name, Role: role, DependsOn: deps}
}

func names(devs []*intent.Device) []string {
	out := make([]string, len(devs))
	for i, d := range devs {
		out[i] = d.Name
	}
	return out
}

func assertOrder(t *testing.T, got []*intent.Device, want []string) {
	t.Helper()
	gotNames := names(got)
	if len(gotNames) != len(want) {
		t.Fatalf("order = %v, want %v", gotNames, want)
	}
	for i := range want {
		if gotNames[i] != want[i] {
			t.Fatalf("order = %v, want %v", gotNames, want)
		}
	}
}

func TestOrderByTier(t *testing.T) {
	devs := []*intent.Device{
		dev("edge-1", intent.RoleEdge),
		dev("agg-1", intent.RoleAggregation),
		dev("core-2", intent.RoleCore),
		dev("gw-1", intent.RoleGateway),
		dev("core-1", intent.RoleCore),
	}

	ordered, err := Order(devs)
	if err != nil {
		t.Fatal(err)
	}
	assertOrder(t, ordered, []string{"core-1", "core-2", "gw-1", "agg-1", "edge-1"})
}

func TestOrderExplicitTierOverride(t *testing.T) {
	zero := 0
	early := dev("edge-special", intent.RoleEdge)
	early.Tier = &zero

	ordered, err := Order([]*intent.Device{
		dev("core-1", intent.RoleCore),
		early,
	})
	if err != nil {
		t.Fatal(err)
	}
	// both tier 0, name order breaks the tie
	assertOrder(t, ordered, []string{"core-1", "edge-special"})
}

func TestOrderSameTierDependencies(t *testing.T) {
	ordered, err := Order([]*intent.Device{
		dev("edge-a", intent.RoleEdge, "edge-c"),
		dev("edge-b", intent.RoleEdge),
		dev("edge-c", intent.RoleEdge),
	})
	if err != nil {
		t.Fatal(err)
	}
	assertOrder(t, ordered, []string{"edge-b", "edge-c", "edge-a"})
}

func TestOrderIgnoresMissingDependency(t *testing.T) {
	ordered, err := Order([]*intent.Device{
		dev("edge-1", intent.RoleEdge, "edge-gone"),
	})
	if err != nil {
		t.Fatal(err)
	}
	assertOrder(t, ordered, []string{"edge-1"})
}

func TestOrderCrossTierCycle(t *testing.T) {
	_, err := Order([]*intent.Device{
		dev("core-1", intent.RoleCore, "edge-1"),
		dev("edge-1", intent.RoleEdge),
	})
	if err == nil {
		t.Fatal("expected cycle error")
	}
	var cerr *CycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("error %T does not match CycleError", err)
	}
	if cerr.Device != "core-1" {
		t.Errorf("CycleError.Device = %q", cerr.Device)
	}
	if !errors.Is(err, util.ErrCyclicDependency) {
		t.Error("does not unwrap to ErrCyclicDependency")
	}
}

func TestOrderSameTierLoop(t *testing.T) {
	_, err := Order([]*intent.Device{
		dev("edge-a", intent.RoleEdge, "edge-b"),
		dev("edge-b", intent.RoleEdge, "edge-a"),
		dev("edge-c", intent.RoleEdge),
	})
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !errors.Is(err, util.ErrCyclicDependency) {
		t.Errorf("error %v does not unwrap to ErrCyclicDependency", err)
	}
}

func TestReverse(t *testing.T) {
	ordered, err := Order([]*intent.Device{
		dev("core-1", intent.RoleCore),
		dev("edge-1", intent.RoleEdge),
		dev("gw-1", intent.RoleGateway),
	})
	if err != nil {
		t.Fatal(err)
	}
	assertOrder(t, Reverse(ordered), []string{"edge-1", "gw-1", "core-1"})
}
