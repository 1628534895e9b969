// Package device defines the external contracts the reconciliation
// pipeline consumes: a device session for capture/apply and an output
// parser for read-only protocol state. The pipeline never assumes more
// than these interfaces provide.
package device

import (
	"context"

	"github.com/reflow-net/reflow/pkg/intent"
)

// Session is an open connection to one device. Exactly one session per
// device is in use at a time, owned by whichever phase is operating on it.
type Session interface {
	// Capture returns the device's live running configuration text.
	Capture(ctx context.Context) (string, error)

	// Apply pushes configuration text to the device. An error means the
	// device rejected it or the transport failed.
	Apply(ctx context.Context, text string) error

	// Persist saves the device's running configuration to its own
	// durable startup state, if the device supports that.
	Persist(ctx context.Context) error

	// Run executes a read-only command and returns its raw output.
	Run(ctx context.Context, command string) (string, error)

	// Close releases the session.
	Close() error
}

// Provider establishes sessions. Implementations own transport,
// authentication, and command execution details.
type Provider interface {
	Connect(ctx context.Context, dev *intent.Device) (Session, error)
}

// Category identifies one class of device/protocol health queried during
// validation.
type Category string

const (
	CategoryInterfaces Category = "interfaces"
	CategoryOSPF       Category = "ospf"
	CategoryBGP        Category = "bgp"
	CategoryLDP        Category = "ldp"
	CategoryPartitions Category = "partitions"
)

// InterfaceStatus is the parsed state of one routed interface.
type InterfaceStatus struct {
	Name     string
	IP       string // "unassigned" for unconfigured interfaces
	Status   string // "up", "down", "administratively down"
	Protocol string // "up", "down"
}

// Neighbor is one parsed protocol peering (OSPF neighbor, BGP peer, or
// LDP session).
type Neighbor struct {
	ID          string
	State       string
	Established bool
}

// State is the structured protocol state for one category on one device.
// Only the field for the requested category is populated.
type State struct {
	Interfaces []InterfaceStatus
	Neighbors  []Neighbor
	Partitions []string
}

// Parser turns raw device output into structured state. A category that is
// not configured on the device maps to util.ErrNotConfigured, never to a
// parse failure.
type Parser interface {
	Parse(ctx context.Context, s Session, category Category) (*State, error)
}
