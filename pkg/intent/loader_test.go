package intent

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reflow-net/reflow/pkg/util"
)

const testFleet = `domain: example.net
dns_servers:
  - 10.255.255.1
  - 10.255.255.2
ntp_servers:
  - 10.255.255.10
snmp:
  community: mon-ro
  location: Test Lab
  contact: noc@example.net
credentials:
  username: admin
  password: admin
partitions:
  STUDENT-NET:
    rd_suffix: "100"
    route_target: "65000:100"
    description: Student network
  STAFF-NET:
    rd_suffix: "200"
    route_target: "65000:200"
`

const testCore = `role: core
template: core_router
mgmt_ip: 192.168.68.11
loopback_ip: 10.255.1.1
asn: 65000
route_reflector: true
rr_cluster_id: 10.255.1.1
peers:
  - ip: 10.255.1.2
    remote_as: 65000
`

const testEdge = `role: edge
template: edge_router
mgmt_ip: 192.168.68.21
loopback_ip: 10.255.2.1
asn: 65000
partitions:
  - STUDENT-NET
  - STAFF-NET
depends_on:
  - core-1
interfaces:
  - name: GigabitEthernet2
    ip: 10.0.0.1
    mask: 255.255.255.252
    description: uplink to core-1
`

func writeIntent(t *testing.T, fleet string, devices map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fleet.yaml"), []byte(fleet), 0644); err != nil {
		t.Fatal(err)
	}
	devDir := filepath.Join(dir, "devices")
	if err := os.MkdirAll(devDir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, body := range devices {
		if err := os.WriteFile(filepath.Join(devDir, name+".yaml"), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeIntent(t, testFleet, map[string]string{
		"core-1": testCore,
		"edge-1": testEdge,
	})

	repo, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got := repo.Names(); len(got) != 2 || got[0] != "core-1" || got[1] != "edge-1" {
		t.Errorf("Names() = %v", got)
	}

	fleet := repo.Fleet()
	if fleet.Domain != "example.net" {
		t.Errorf("Domain = %q", fleet.Domain)
	}
	if fleet.Partitions["STUDENT-NET"].Name != "STUDENT-NET" {
		t.Errorf("partition name not backfilled: %q", fleet.Partitions["STUDENT-NET"].Name)
	}

	core, err := repo.Get("core-1")
	if err != nil {
		t.Fatal(err)
	}
	if !core.RouteReflector || core.ASN != 65000 {
		t.Errorf("core-1 = %+v", core)
	}
	if core.Name != "core-1" {
		t.Errorf("device name from filename = %q", core.Name)
	}

	edge, _ := repo.Get("edge-1")
	if len(edge.Partitions) != 2 || len(edge.DependsOn) != 1 {
		t.Errorf("edge-1 = %+v", edge)
	}
}

func TestLoadNotFound(t *testing.T) {
	dir := writeIntent(t, testFleet, map[string]string{"core-1": testCore})
	repo, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatal(err)
	}

	_, err = repo.Get("edge-99")
	if err == nil {
		t.Fatal("expected error for unknown device")
	}
	if !errors.Is(err, util.ErrIntentNotFound) {
		t.Errorf("error %v does not unwrap to ErrIntentNotFound", err)
	}
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	t.Setenv("REFLOW_DEVICE_USERNAME", "oper")
	t.Setenv("REFLOW_DEVICE_PASSWORD", "secret")

	dir := writeIntent(t, testFleet, map[string]string{"core-1": testCore})
	repo, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatal(err)
	}
	creds := repo.Fleet().Credentials
	if creds.Username != "oper" || creds.Password != "secret" {
		t.Errorf("credentials = %+v, want env override", creds)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		device  string
		wantErr string
	}{
		{
			name:    "missing role",
			device:  "template: core_router\nmgmt_ip: 192.168.68.11\n",
			wantErr: "role is required",
		},
		{
			name:    "bad mgmt ip",
			device:  "role: core\ntemplate: core_router\nmgmt_ip: 999.1.1.1\n",
			wantErr: "invalid management IP",
		},
		{
			name:    "negative tier",
			device:  "role: core\ntemplate: core_router\nmgmt_ip: 192.168.68.11\ntier: -1\n",
			wantErr: "tier must be >= 0",
		},
		{
			name: "bad interface mask",
			device: "role: core\ntemplate: core_router\nmgmt_ip: 192.168.68.11\n" +
				"interfaces:\n  - name: Gi2\n    ip: 10.0.0.1\n    mask: 255.0.255.0\n",
			wantErr: "invalid mask",
		},
		{
			name: "bad peer AS",
			device: "role: core\ntemplate: core_router\nmgmt_ip: 192.168.68.11\n" +
				"peers:\n  - ip: 10.0.0.2\n    remote_as: 0\n",
			wantErr: "invalid remote AS",
		},
		{
			name: "unknown partition",
			device: "role: edge\ntemplate: edge_router\nmgmt_ip: 192.168.68.11\n" +
				"partitions:\n  - NO-SUCH-NET\n",
			wantErr: "unknown partition",
		},
		{
			name: "unknown dependency",
			device: "role: edge\ntemplate: edge_router\nmgmt_ip: 192.168.68.11\n" +
				"depends_on:\n  - ghost-1\n",
			wantErr: "unknown device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeIntent(t, testFleet, map[string]string{"dev-1": tt.device})
			_, err := NewLoader(dir).Load()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestEffectiveTier(t *testing.T) {
	two := 2
	tests := []struct {
		name string
		dev  Device
		want int
	}{
		{"core role", Device{Role: RoleCore}, 0},
		{"gateway role", Device{Role: RoleGateway}, 1},
		{"aggregation role", Device{Role: RoleAggregation}, 2},
		{"edge role", Device{Role: RoleEdge}, 3},
		{"unknown role sorts last", Device{Role: "firewall"}, 4},
		{"explicit tier wins", Device{Role: RoleEdge, Tier: &two}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dev.EffectiveTier(); got != tt.want {
				t.Errorf("EffectiveTier() = %d, want %d", got, tt.want)
			}
		})
	}
}
