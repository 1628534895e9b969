// Package render turns device intent into configuration text via templates.
// Rendering is deterministic: the same intent always produces byte-identical
// output, so diffs against it are stable across runs.
package render

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/reflow-net/reflow/pkg/intent"
	"github.com/reflow-net/reflow/pkg/util"
)

// TemplateError indicates a device intent references a template that does
// not exist. This is a configuration-authoring error: only that device's
// generation is aborted.
type TemplateError struct {
	Device   string
	Template string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("device '%s': template '%s' not found", e.Device, e.Template)
}

func (e *TemplateError) Unwrap() error {
	return util.ErrTemplate
}

// Context is the data handed to a rendering template. Multi-valued fields
// are sorted copies of the intent so output ordering never depends on map
// or file ordering.
type Context struct {
	Hostname string
	Domain   string

	DNSServers []string
	NTPServers []string
	SNMP       intent.SNMP

	Role           string
	LoopbackIP     string
	ASN            int
	RouteReflector bool
	RRClusterID    string

	Interfaces []intent.Interface
	Peers      []intent.Peer
	Partitions []intent.Partition
}

// Renderer renders device intent through templates loaded at construction.
type Renderer struct {
	templates *template.Template
}

// New parses all *.tmpl files in templateDir and returns a Renderer.
func New(templateDir string) (*Renderer, error) {
	glob := filepath.Join(templateDir, "*.tmpl")
	tmpl, err := template.New("reflow").ParseGlob(glob)
	if err != nil {
		return nil, fmt.Errorf("parsing templates in %s: %w", templateDir, err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render produces configuration text for one device. It performs no I/O and
// never touches a device; identical intent yields byte-identical text.
func (r *Renderer) Render(repo *intent.Repository, dev *intent.Device) (string, error) {
	name := dev.Template + ".tmpl"
	tmpl := r.templates.Lookup(name)
	if tmpl == nil {
		return "", &TemplateError{Device: dev.Name, Template: dev.Template}
	}

	ctx, err := buildContext(repo, dev)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "! reflow generated configuration for %s\n", dev.Name)
	if err := tmpl.Execute(&sb, ctx); err != nil {
		return "", fmt.Errorf("rendering %s with template '%s': %w", dev.Name, dev.Template, err)
	}

	out := sb.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out, nil
}

// Templates returns the names of all loaded templates, sorted.
func (r *Renderer) Templates() []string {
	var names []string
	for _, t := range r.templates.Templates() {
		if strings.HasSuffix(t.Name(), ".tmpl") {
			names = append(names, strings.TrimSuffix(t.Name(), ".tmpl"))
		}
	}
	sort.Strings(names)
	return names
}

func buildContext(repo *intent.Repository, dev *intent.Device) (*Context, error) {
	fleet := repo.Fleet()

	ctx := &Context{
		Hostname:       dev.Name,
		Domain:         fleet.Domain,
		DNSServers:     sortedCopy(fleet.DNSServers),
		NTPServers:     sortedCopy(fleet.NTPServers),
		SNMP:           fleet.SNMP,
		Role:           dev.Role,
		LoopbackIP:     dev.LoopbackIP,
		ASN:            dev.ASN,
		RouteReflector: dev.RouteReflector,
		RRClusterID:    dev.RRClusterID,
	}

	ctx.Interfaces = append([]intent.Interface(nil), dev.Interfaces...)
	sort.Slice(ctx.Interfaces, func(i, j int) bool {
		return ctx.Interfaces[i].Name < ctx.Interfaces[j].Name
	})

	ctx.Peers = append([]intent.Peer(nil), dev.Peers...)
	sort.Slice(ctx.Peers, func(i, j int) bool {
		return ctx.Peers[i].IP < ctx.Peers[j].IP
	})

	for _, name := range dev.Partitions {
		p, err := repo.Partition(name)
		if err != nil {
			return nil, fmt.Errorf("device '%s': %w", dev.Name, err)
		}
		ctx.Partitions = append(ctx.Partitions, *p)
	}
	sort.Slice(ctx.Partitions, func(i, j int) bool {
		return ctx.Partitions[i].Name < ctx.Partitions[j].Name
	})

	return ctx, nil
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
