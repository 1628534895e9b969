package device

import (
	"context"
	"strconv"
	"strings"

	"github.com/reflow-net/reflow/pkg/util"
)

// showCommands maps each validation category to the read-only command
// whose output carries that category's state.
var showCommands = map[Category]string{
	CategoryInterfaces: "show ip interface brief",
	CategoryOSPF:       "show ip ospf neighbor",
	CategoryBGP:        "show ip bgp summary",
	CategoryLDP:        "show mpls ldp neighbor",
	CategoryPartitions: "show vrf",
}

// categoryParser populates a State from one command's raw output. It
// returns util.ErrNotConfigured when the output shows the feature is
// absent rather than unhealthy.
type categoryParser func(out string) (*State, error)

var categoryParsers = map[Category]categoryParser{
	CategoryInterfaces: parseInterfaceBrief,
	CategoryOSPF:       parseOSPFNeighbors,
	CategoryBGP:        parseBGPSummary,
	CategoryLDP:        parseLDPNeighbors,
	CategoryPartitions: parseVRFList,
}

// ShowParser derives structured protocol state from show-command output.
type ShowParser struct{}

// NewShowParser returns a parser for line-oriented show output.
func NewShowParser() *ShowParser {
	return &ShowParser{}
}

// Parse runs the category's show command over the session and parses the
// result.
func (p *ShowParser) Parse(ctx context.Context, s Session, category Category) (*State, error) {
	cmd, ok := showCommands[category]
	if !ok {
		return nil, util.ErrNotConfigured
	}
	out, err := s.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return categoryParsers[category](out)
}

func parseInterfaceBrief(out string) (*State, error) {
	state := &State{}
	for _, line := range outputRows(out) {
		if strings.HasPrefix(line, "Interface") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		// Status may be multi-word ("administratively down"); protocol is
		// always the final column.
		state.Interfaces = append(state.Interfaces, InterfaceStatus{
			Name:     fields[0],
			IP:       fields[1],
			Status:   strings.Join(fields[4:len(fields)-1], " "),
			Protocol: fields[len(fields)-1],
		})
	}
	if len(state.Interfaces) == 0 {
		return nil, util.ErrNotConfigured
	}
	return state, nil
}

func parseOSPFNeighbors(out string) (*State, error) {
	if notConfigured(out, "OSPF") {
		return nil, util.ErrNotConfigured
	}

	state := &State{}
	for _, line := range outputRows(out) {
		if strings.HasPrefix(line, "Neighbor") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 || !util.IsValidIPv4(fields[0]) {
			continue
		}
		adjState := fields[2]
		state.Neighbors = append(state.Neighbors, Neighbor{
			ID:          fields[0],
			State:       adjState,
			Established: strings.HasPrefix(strings.ToUpper(adjState), "FULL"),
		})
	}
	if len(state.Neighbors) == 0 {
		return nil, util.ErrNotConfigured
	}
	return state, nil
}

func parseBGPSummary(out string) (*State, error) {
	if notConfigured(out, "BGP") {
		return nil, util.ErrNotConfigured
	}

	state := &State{}
	for _, line := range outputRows(out) {
		fields := strings.Fields(line)
		if len(fields) < 2 || !util.IsValidIPv4(fields[0]) {
			continue
		}
		// The final column is a received-prefix count for established
		// sessions and a state name otherwise.
		last := fields[len(fields)-1]
		_, numeric := parseUint(last)
		nbr := Neighbor{ID: fields[0], Established: numeric}
		if numeric {
			nbr.State = "Established"
		} else {
			nbr.State = last
		}
		state.Neighbors = append(state.Neighbors, nbr)
	}
	if len(state.Neighbors) == 0 {
		return nil, util.ErrNotConfigured
	}
	return state, nil
}

// parseLDPNeighbors reads the block-per-peer neighbor listing. The peer
// identity line opens a block; the State line inside it carries the
// session state, "Oper" once the session is operational.
func parseLDPNeighbors(out string) (*State, error) {
	if notConfigured(out, "LDP") {
		return nil, util.ErrNotConfigured
	}

	state := &State{}
	for _, line := range outputRows(out) {
		switch {
		case strings.HasPrefix(line, "Peer LDP Ident:"):
			ident := strings.TrimSpace(strings.TrimPrefix(line, "Peer LDP Ident:"))
			if i := strings.Index(ident, ";"); i >= 0 {
				ident = ident[:i]
			}
			// drop the label-space suffix: "10.255.0.2:0" -> "10.255.0.2"
			if i := strings.LastIndex(ident, ":"); i >= 0 {
				ident = ident[:i]
			}
			state.Neighbors = append(state.Neighbors, Neighbor{ID: strings.TrimSpace(ident)})
		case strings.HasPrefix(line, "State:"):
			if len(state.Neighbors) == 0 {
				continue
			}
			ss := strings.TrimSpace(strings.TrimPrefix(line, "State:"))
			if i := strings.Index(ss, ";"); i >= 0 {
				ss = ss[:i]
			}
			nbr := &state.Neighbors[len(state.Neighbors)-1]
			nbr.State = ss
			nbr.Established = strings.EqualFold(ss, "Oper")
		}
	}
	if len(state.Neighbors) == 0 {
		return nil, util.ErrNotConfigured
	}
	return state, nil
}

func parseVRFList(out string) (*State, error) {
	state := &State{}
	for _, line := range outputRows(out) {
		if strings.HasPrefix(line, "Name") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		state.Partitions = append(state.Partitions, fields[0])
	}
	if len(state.Partitions) == 0 {
		return nil, util.ErrNotConfigured
	}
	return state, nil
}

// outputRows splits command output into trimmed, non-empty lines.
func outputRows(out string) []string {
	var rows []string
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		if line != "" {
			rows = append(rows, line)
		}
	}
	return rows
}

// notConfigured detects the error banners devices print when a protocol
// is absent ("% OSPF: no router process", "% BGP not active", ...).
func notConfigured(out, proto string) bool {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return true
	}
	upper := strings.ToUpper(trimmed)
	return strings.HasPrefix(upper, "%") && strings.Contains(upper, strings.ToUpper(proto))
}

func parseUint(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
