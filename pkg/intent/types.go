// Package intent holds the declarative desired state for a device fleet.
// The repository is the single source of truth for a run: loaded once,
// validated, and never mutated afterwards.
package intent

// Fleet holds enterprise-wide settings shared by every device plus the
// partition (VRF) catalog that device intents reference by name.
type Fleet struct {
	Domain      string   `yaml:"domain"`
	DNSServers  []string `yaml:"dns_servers"`
	NTPServers  []string `yaml:"ntp_servers"`
	SNMP        SNMP     `yaml:"snmp"`
	Credentials Auth     `yaml:"credentials"`

	Partitions map[string]*Partition `yaml:"partitions"`
}

// SNMP holds fleet-wide SNMP settings rendered into every config.
type SNMP struct {
	Community string `yaml:"community"`
	Location  string `yaml:"location"`
	Contact   string `yaml:"contact"`
}

// Auth holds device login credentials.
type Auth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Partition is a logical routing partition (a VRF) with its route-target
// import/export pair. RD suffix is combined with the device loopback by
// the rendering template.
type Partition struct {
	Name        string `yaml:"-"`
	RDSuffix    string `yaml:"rd_suffix"`
	RouteTarget string `yaml:"route_target"`
	Description string `yaml:"description,omitempty"`
}

// Interface is one routed interface declaration.
type Interface struct {
	Name        string `yaml:"name"`
	IP          string `yaml:"ip"`
	Mask        string `yaml:"mask"`
	Description string `yaml:"description,omitempty"`
}

// Peer is one routing (BGP) neighbor declaration.
type Peer struct {
	IP          string `yaml:"ip"`
	RemoteAS    int    `yaml:"remote_as"`
	Description string `yaml:"description,omitempty"`
}

// Device is the full declarative record for one device.
type Device struct {
	Name string `yaml:"-"`

	Role     string `yaml:"role"`
	Tier     *int   `yaml:"tier,omitempty"` // explicit tier overrides the role default
	Template string `yaml:"template"`

	MgmtIP     string `yaml:"mgmt_ip"`
	LoopbackIP string `yaml:"loopback_ip"`

	ASN            int    `yaml:"asn,omitempty"`
	RouteReflector bool   `yaml:"route_reflector,omitempty"`
	RRClusterID    string `yaml:"rr_cluster_id,omitempty"`

	Interfaces []Interface `yaml:"interfaces,omitempty"`
	Peers      []Peer      `yaml:"peers,omitempty"`
	Partitions []string    `yaml:"partitions,omitempty"`

	// DependsOn lists devices that must be deployed before this one,
	// in addition to the tier ordering.
	DependsOn []string `yaml:"depends_on,omitempty"`
}

// Role names with implied tiers. A device may override with an explicit tier.
const (
	RoleCore        = "core"
	RoleGateway     = "gateway"
	RoleAggregation = "aggregation"
	RoleEdge        = "edge"
)

var roleTiers = map[string]int{
	RoleCore:        0,
	RoleGateway:     1,
	RoleAggregation: 2,
	RoleEdge:        3,
}

// EffectiveTier returns the device's deployment tier: the explicit tier if
// set, otherwise the default for its role. Unknown roles sort last.
func (d *Device) EffectiveTier() int {
	if d.Tier != nil {
		return *d.Tier
	}
	if t, ok := roleTiers[d.Role]; ok {
		return t
	}
	return roleTiers[RoleEdge] + 1
}
