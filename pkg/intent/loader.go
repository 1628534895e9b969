package intent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reflow-net/reflow/pkg/util"
)

// IntentDir is the default intent directory
var IntentDir = "/etc/reflow/intent"

// NotFoundError is returned when a referenced device has no intent entry.
// Callers treat this as a skip, not a fatal error; partial fleets are a
// normal operating mode.
type NotFoundError struct {
	Device string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no intent for device '%s'", e.Device)
}

func (e *NotFoundError) Unwrap() error {
	return util.ErrIntentNotFound
}

// Repository is the loaded, immutable desired state for the fleet.
type Repository struct {
	fleet   *Fleet
	devices map[string]*Device
	names   []string // sorted
}

// Loader reads and validates intent files from a directory:
// fleet.yaml plus devices/<name>.yaml per device.
type Loader struct {
	dir string
}

// NewLoader creates a loader for the given intent directory.
func NewLoader(dir string) *Loader {
	if dir == "" {
		dir = IntentDir
	}
	return &Loader{dir: dir}
}

// Load reads all intent files and returns the validated repository.
func (l *Loader) Load() (*Repository, error) {
	fleet, err := l.loadFleet()
	if err != nil {
		return nil, fmt.Errorf("loading fleet intent: %w", err)
	}

	devices, err := l.loadDevices()
	if err != nil {
		return nil, err
	}

	repo := &Repository{
		fleet:   fleet,
		devices: devices,
	}
	for name := range devices {
		repo.names = append(repo.names, name)
	}
	sort.Strings(repo.names)

	if err := repo.validate(); err != nil {
		return nil, fmt.Errorf("intent validation failed: %w", err)
	}
	return repo, nil
}

func (l *Loader) loadFleet() (*Fleet, error) {
	path := filepath.Join(l.dir, "fleet.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fleet Fleet
	if err := yaml.Unmarshal(data, &fleet); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for name, p := range fleet.Partitions {
		p.Name = name
	}

	// Credentials may come from the environment instead of the file.
	if v := os.Getenv("REFLOW_DEVICE_USERNAME"); v != "" {
		fleet.Credentials.Username = v
	}
	if v := os.Getenv("REFLOW_DEVICE_PASSWORD"); v != "" {
		fleet.Credentials.Password = v
	}

	return &fleet, nil
}

func (l *Loader) loadDevices() (map[string]*Device, error) {
	dir := filepath.Join(l.dir, "devices")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading device intent directory %s: %w", dir, err)
	}

	devices := make(map[string]*Device)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		path := filepath.Join(dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading device intent %s: %w", name, err)
		}

		var dev Device
		if err := yaml.Unmarshal(data, &dev); err != nil {
			return nil, fmt.Errorf("parsing device intent %s: %w", name, err)
		}
		dev.Name = name
		devices[name] = &dev
	}
	return devices, nil
}

// validate cross-checks every device intent against the fleet catalog.
func (r *Repository) validate() error {
	v := &util.ValidationBuilder{}

	for _, name := range r.names {
		dev := r.devices[name]

		v.Add(dev.Role != "", fmt.Sprintf("device '%s': role is required", name))
		v.Add(dev.Template != "", fmt.Sprintf("device '%s': template is required", name))
		v.Add(dev.MgmtIP != "", fmt.Sprintf("device '%s': mgmt_ip is required", name))

		if dev.MgmtIP != "" && !util.IsValidIPv4(dev.MgmtIP) {
			v.AddErrorf("device '%s': invalid management IP '%s'", name, dev.MgmtIP)
		}
		if dev.LoopbackIP != "" && !util.IsValidIPv4(dev.LoopbackIP) {
			v.AddErrorf("device '%s': invalid loopback IP '%s'", name, dev.LoopbackIP)
		}
		if dev.Tier != nil && *dev.Tier < 0 {
			v.AddErrorf("device '%s': tier must be >= 0", name)
		}

		for _, intf := range dev.Interfaces {
			if intf.Name == "" {
				v.AddErrorf("device '%s': interface with empty name", name)
				continue
			}
			if intf.IP != "" && !util.IsValidIPv4(intf.IP) {
				v.AddErrorf("device '%s' interface '%s': invalid IP '%s'", name, intf.Name, intf.IP)
			}
			if intf.Mask != "" && !util.IsValidIPv4Mask(intf.Mask) {
				v.AddErrorf("device '%s' interface '%s': invalid mask '%s'", name, intf.Name, intf.Mask)
			}
		}

		for _, peer := range dev.Peers {
			if !util.IsValidIPv4(peer.IP) {
				v.AddErrorf("device '%s': invalid peer IP '%s'", name, peer.IP)
			}
			if peer.RemoteAS <= 0 || int64(peer.RemoteAS) > 4294967295 {
				v.AddErrorf("device '%s' peer '%s': invalid remote AS %d", name, peer.IP, peer.RemoteAS)
			}
		}

		for _, part := range dev.Partitions {
			if _, ok := r.fleet.Partitions[part]; !ok {
				v.AddErrorf("device '%s' references unknown partition '%s'", name, part)
			}
		}

		for _, dep := range dev.DependsOn {
			if _, ok := r.devices[dep]; !ok {
				v.AddErrorf("device '%s' depends on unknown device '%s'", name, dep)
			}
		}
	}

	return v.Build()
}

// Fleet returns the fleet-wide settings.
func (r *Repository) Fleet() *Fleet {
	return r.fleet
}

// Get returns the intent for one device, or a *NotFoundError.
func (r *Repository) Get(name string) (*Device, error) {
	dev, ok := r.devices[name]
	if !ok {
		return nil, &NotFoundError{Device: name}
	}
	return dev, nil
}

// Devices returns all device intents, sorted by name.
func (r *Repository) Devices() []*Device {
	out := make([]*Device, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.devices[name])
	}
	return out
}

// Names returns all device names, sorted.
func (r *Repository) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Partition resolves a partition name from the fleet catalog.
func (r *Repository) Partition(name string) (*Partition, error) {
	p, ok := r.fleet.Partitions[name]
	if !ok {
		return nil, fmt.Errorf("partition '%s' not found", name)
	}
	return p, nil
}
