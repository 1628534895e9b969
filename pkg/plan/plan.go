// Package plan orders devices into dependency tiers for staged rollout.
// Core and transit devices are touched before the edge devices that depend
// on them: changing the transit path last would leave edges expecting old
// behavior while their upstream shifts underneath them. Rollback order is
// the reverse of the plan.
package plan

import (
	"fmt"
	"sort"

	"github.com/reflow-net/reflow/pkg/intent"
	"github.com/reflow-net/reflow/pkg/util"
)

// CycleError indicates a contradictory dependency declaration: a device
// depends on something in a later tier, or same-tier dependencies form
// a loop.
type CycleError struct {
	Device string
	Detail string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic dependency at '%s': %s", e.Device, e.Detail)
}

func (e *CycleError) Unwrap() error {
	return util.ErrCyclicDependency
}

// Order returns the total deployment order for the given devices:
// tiers ascending, and within a tier a stable dependency-respecting order.
// depends_on references to devices outside the input set are ignored;
// partial fleets are normal.
func Order(devices []*intent.Device) ([]*intent.Device, error) {
	byName := make(map[string]*intent.Device, len(devices))
	for _, d := range devices {
		byName[d.Name] = d
	}

	// Cross-tier sanity: a dependency must never sit in a later tier.
	for _, d := range devices {
		for _, depName := range d.DependsOn {
			dep, ok := byName[depName]
			if !ok {
				continue
			}
			if dep.EffectiveTier() > d.EffectiveTier() {
				return nil, &CycleError{
					Device: d.Name,
					Detail: fmt.Sprintf("depends on '%s' in tier %d but is itself in tier %d",
						depName, dep.EffectiveTier(), d.EffectiveTier()),
				}
			}
		}
	}

	tiers := make(map[int][]*intent.Device)
	var tierNums []int
	for _, d := range devices {
		t := d.EffectiveTier()
		if _, seen := tiers[t]; !seen {
			tierNums = append(tierNums, t)
		}
		tiers[t] = append(tiers[t], d)
	}
	sort.Ints(tierNums)

	var ordered []*intent.Device
	for _, t := range tierNums {
		group, err := orderTier(tiers[t], byName)
		if err != nil {
			return nil, err
		}
		ordered = append(ordered, group...)
	}
	return ordered, nil
}

// Reverse returns the rollback order: the exact reverse of the plan.
func Reverse(ordered []*intent.Device) []*intent.Device {
	out := make([]*intent.Device, len(ordered))
	for i, d := range ordered {
		out[len(ordered)-1-i] = d
	}
	return out
}

// orderTier topologically sorts one tier's devices by their same-tier
// depends_on edges, using name order to break ties so the result is stable.
func orderTier(group []*intent.Device, byName map[string]*intent.Device) ([]*intent.Device, error) {
	sort.Slice(group, func(i, j int) bool { return group[i].Name < group[j].Name })

	inTier := make(map[string]bool, len(group))
	for _, d := range group {
		inTier[d.Name] = true
	}

	// Kahn's algorithm over same-tier edges only; cross-tier edges are
	// already satisfied by tier ordering.
	indegree := make(map[string]int, len(group))
	dependents := make(map[string][]string)
	for _, d := range group {
		indegree[d.Name] += 0
		for _, depName := range d.DependsOn {
			if !inTier[depName] || depName == d.Name {
				continue
			}
			indegree[d.Name]++
			dependents[depName] = append(dependents[depName], d.Name)
		}
	}

	var ready []string
	for _, d := range group {
		if indegree[d.Name] == 0 {
			ready = append(ready, d.Name)
		}
	}

	var ordered []*intent.Device
	for len(ready) > 0 {
		sort.Strings(ready)
		name := ready[0]
		ready = ready[1:]

		ordered = append(ordered, byName[name])
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(ordered) != len(group) {
		var stuck []string
		for _, d := range group {
			if indegree[d.Name] > 0 {
				stuck = append(stuck, d.Name)
			}
		}
		sort.Strings(stuck)
		return nil, &CycleError{
			Device: stuck[0],
			Detail: fmt.Sprintf("unresolvable dependency loop among %v", stuck),
		}
	}
	return ordered, nil
}
