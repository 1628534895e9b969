// Package validate runs operational health checks against devices,
// comparing observed state with the declared intent.
package validate

import (
	"fmt"

	"github.com/reflow-net/reflow/pkg/device"
	"github.com/reflow-net/reflow/pkg/intent"
)

// Phase distinguishes checks run before a deployment from checks run after.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// Status is the outcome of one check on one device.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	// StatusSkip means the check could not run, either because the
	// feature is not configured on the device or because the device
	// was unreachable.
	StatusSkip Status = "skip"
)

// Result is one check outcome for one device.
type Result struct {
	Check  string
	Device string
	Phase  Phase
	Status Status
	Detail string
}

// Check evaluates one aspect of a device's observed state against its
// intent. Checks are pure: the runner gathers state, checks judge it.
type Check interface {
	Name() string
	Category() device.Category
	Evaluate(dev *intent.Device, state *device.State) (Status, string)
}

// DefaultChecks returns the standard check set in evaluation order.
func DefaultChecks() []Check {
	return []Check{
		InterfacesCheck{},
		OSPFCheck{},
		BGPCheck{},
		LDPCheck{},
		PartitionsCheck{},
	}
}

// InterfacesCheck verifies that every interface the intent assigns an
// address to is present and up/up on the device.
type InterfacesCheck struct{}

func (InterfacesCheck) Name() string              { return "interfaces" }
func (InterfacesCheck) Category() device.Category { return device.CategoryInterfaces }

func (InterfacesCheck) Evaluate(dev *intent.Device, state *device.State) (Status, string) {
	if len(dev.Interfaces) == 0 {
		return StatusSkip, "no interfaces declared"
	}
	observed := make(map[string]device.InterfaceStatus, len(state.Interfaces))
	for _, ifc := range state.Interfaces {
		observed[ifc.Name] = ifc
	}
	for _, want := range dev.Interfaces {
		got, ok := observed[want.Name]
		if !ok {
			return StatusFail, fmt.Sprintf("interface %s not present", want.Name)
		}
		if got.Status != "up" || got.Protocol != "up" {
			return StatusFail, fmt.Sprintf("interface %s is %s/%s", want.Name, got.Status, got.Protocol)
		}
	}
	return StatusPass, fmt.Sprintf("%d interfaces up", len(dev.Interfaces))
}

// OSPFCheck verifies that every discovered OSPF adjacency is fully formed.
type OSPFCheck struct{}

func (OSPFCheck) Name() string              { return "ospf" }
func (OSPFCheck) Category() device.Category { return device.CategoryOSPF }

func (OSPFCheck) Evaluate(dev *intent.Device, state *device.State) (Status, string) {
	var down []string
	for _, n := range state.Neighbors {
		if !n.Established {
			down = append(down, fmt.Sprintf("%s (%s)", n.ID, n.State))
		}
	}
	if len(down) > 0 {
		return StatusFail, fmt.Sprintf("%d adjacency not full: %v", len(down), down)
	}
	return StatusPass, fmt.Sprintf("%d adjacencies full", len(state.Neighbors))
}

// BGPCheck verifies that every peer the intent declares has an
// established BGP session.
type BGPCheck struct{}

func (BGPCheck) Name() string              { return "bgp" }
func (BGPCheck) Category() device.Category { return device.CategoryBGP }

func (BGPCheck) Evaluate(dev *intent.Device, state *device.State) (Status, string) {
	if len(dev.Peers) == 0 {
		return StatusSkip, "no peers declared"
	}
	observed := make(map[string]device.Neighbor, len(state.Neighbors))
	for _, n := range state.Neighbors {
		observed[n.ID] = n
	}
	for _, peer := range dev.Peers {
		got, ok := observed[peer.IP]
		if !ok {
			return StatusFail, fmt.Sprintf("peer %s not present", peer.IP)
		}
		if !got.Established {
			return StatusFail, fmt.Sprintf("peer %s is %s", peer.IP, got.State)
		}
	}
	return StatusPass, fmt.Sprintf("%d peers established", len(dev.Peers))
}

// LDPCheck verifies that every discovered LDP session is operational.
// Devices without label switching skip at the parser level.
type LDPCheck struct{}

func (LDPCheck) Name() string              { return "ldp" }
func (LDPCheck) Category() device.Category { return device.CategoryLDP }

func (LDPCheck) Evaluate(dev *intent.Device, state *device.State) (Status, string) {
	var down []string
	for _, n := range state.Neighbors {
		if !n.Established {
			down = append(down, fmt.Sprintf("%s (%s)", n.ID, n.State))
		}
	}
	if len(down) > 0 {
		return StatusFail, fmt.Sprintf("%d session not operational: %v", len(down), down)
	}
	return StatusPass, fmt.Sprintf("%d sessions operational", len(state.Neighbors))
}

// PartitionsCheck verifies that every partition assigned to the device
// exists on it.
type PartitionsCheck struct{}

func (PartitionsCheck) Name() string              { return "partitions" }
func (PartitionsCheck) Category() device.Category { return device.CategoryPartitions }

func (PartitionsCheck) Evaluate(dev *intent.Device, state *device.State) (Status, string) {
	if len(dev.Partitions) == 0 {
		return StatusSkip, "no partitions declared"
	}
	observed := make(map[string]bool, len(state.Partitions))
	for _, p := range state.Partitions {
		observed[p] = true
	}
	for _, want := range dev.Partitions {
		if !observed[want] {
			return StatusFail, fmt.Sprintf("partition %s not present", want)
		}
	}
	return StatusPass, fmt.Sprintf("%d partitions present", len(dev.Partitions))
}
