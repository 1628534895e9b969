package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/reflow-net/reflow/pkg/cli"
	"github.com/reflow-net/reflow/pkg/deploy"
	"github.com/reflow-net/reflow/pkg/diff"
	"github.com/reflow-net/reflow/pkg/intent"
	"github.com/reflow-net/reflow/pkg/validate"
)

// DeviceReport collects everything the run learned about one device.
type DeviceReport struct {
	Device string
	Tier   int

	Rendered  string
	RenderErr error

	Diff   *diff.Diff
	Deploy *deploy.Result

	Pre  []validate.Result
	Post []validate.Result

	dev *intent.Device
}

// Report is the outcome of one pipeline run, devices in plan order.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool
	Phase     string

	Devices []*DeviceReport

	byName map[string]*DeviceReport
}

// NewReport returns an empty report.
func NewReport(dryRun bool) *Report {
	return &Report{
		StartedAt: time.Now(),
		DryRun:    dryRun,
		byName:    make(map[string]*DeviceReport),
	}
}

func (r *Report) add(dev *intent.Device) {
	dr := &DeviceReport{Device: dev.Name, Tier: dev.EffectiveTier(), dev: dev}
	r.Devices = append(r.Devices, dr)
	r.byName[dev.Name] = dr
}

// addSkipped records a device that never entered the run, such as a
// target name with no intent behind it.
func (r *Report) addSkipped(name, reason string) {
	res := deploy.Skip(name, reason)
	dr := &DeviceReport{Device: name, Deploy: &res}
	r.Devices = append(r.Devices, dr)
	r.byName[name] = dr
}

func (r *Report) device(name string) *DeviceReport {
	return r.byName[name]
}

// renderable returns, in plan order, the devices whose configuration
// rendered successfully.
func (r *Report) renderable() []*intent.Device {
	var devs []*intent.Device
	for _, dr := range r.Devices {
		if dr.dev != nil && dr.RenderErr == nil {
			devs = append(devs, dr.dev)
		}
	}
	return devs
}

// deployable returns, in plan order, the devices with a non-empty delta
// and no failure recorded yet.
func (r *Report) deployable() []*intent.Device {
	var devs []*intent.Device
	for _, dr := range r.Devices {
		if dr.Deploy != nil { // preview already failed it
			continue
		}
		if dr.Diff != nil && !dr.Diff.Empty() {
			devs = append(devs, dr.dev)
		}
	}
	return devs
}

func (r *Report) record(results []validate.Result) {
	for _, res := range results {
		dr := r.byName[res.Device]
		if dr == nil {
			continue
		}
		switch res.Phase {
		case validate.PhasePre:
			dr.Pre = append(dr.Pre, res)
		case validate.PhasePost:
			dr.Post = append(dr.Post, res)
		}
	}
}

// Success reports whether the run is clean: it reached the report
// phase, every render succeeded, no deploy failed or was skipped by a
// halt, and no post-validation check failed.
func (r *Report) Success() bool {
	if r.Phase != PhaseReport {
		return false
	}
	for _, dr := range r.Devices {
		if dr.RenderErr != nil {
			return false
		}
		if dr.Deploy != nil {
			switch dr.Deploy.Status {
			case deploy.StatusFailed:
				return false
			case deploy.StatusSkipped:
				switch dr.Deploy.Reason {
				case deploy.ReasonNoDelta, deploy.ReasonDryRun, deploy.ReasonNoIntent:
				default:
					return false
				}
			}
		}
		if failCount(dr.Post) > 0 {
			return false
		}
	}
	return true
}

func failCount(results []validate.Result) int {
	n := 0
	for _, res := range results {
		if res.Status == validate.StatusFail {
			n++
		}
	}
	return n
}

func validationCell(results []validate.Result) string {
	if len(results) == 0 {
		return "-"
	}
	s := validate.Summarize(results)
	cell := fmt.Sprintf("%dP/%dF/%dS", s.Pass, s.Fail, s.Skip)
	if s.Fail > 0 {
		return cli.Red(cell)
	}
	return cell
}

// Render writes the per-device outcome table followed by a run summary.
func (r *Report) Render(w io.Writer) {
	t := cli.NewTableTo(w, "DEVICE", "TIER", "DIFF", "DEPLOY", "PRE", "POST")
	for _, dr := range r.Devices {
		diffCell := "-"
		if dr.RenderErr != nil {
			diffCell = cli.Red("render error")
		} else if dr.Diff != nil {
			diffCell = dr.Diff.Summary()
		}

		deployCell := "-"
		switch {
		case dr.Deploy == nil && r.DryRun && dr.Diff != nil && !dr.Diff.Empty():
			deployCell = cli.Status("dry-run")
		case dr.Deploy != nil:
			deployCell = cli.Status(string(dr.Deploy.Status))
		}

		t.Row(dr.Device,
			fmt.Sprintf("%d", dr.Tier),
			diffCell,
			deployCell,
			validationCell(dr.Pre),
			validationCell(dr.Post),
		)
	}
	t.Flush()

	fmt.Fprintln(w)
	verdict := cli.Green("SUCCESS")
	if !r.Success() {
		verdict = cli.Red("FAILURE")
	}
	if r.Phase == PhaseAborted {
		verdict = cli.Yellow("ABORTED")
	}
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "%s%s in %s\n", verdict, mode, r.Duration.Round(time.Millisecond))

	var rollbackable []string
	for _, dr := range r.Devices {
		if dr.Deploy != nil && dr.Deploy.Err != nil {
			fmt.Fprintf(w, "  %s: %v\n", dr.Device, dr.Deploy.Err)
		}
		if dr.RenderErr != nil {
			fmt.Fprintf(w, "  %s: %v\n", dr.Device, dr.RenderErr)
		}
		if dr.Deploy != nil && dr.Deploy.Status == deploy.StatusFailed && !dr.Deploy.BackupAt.IsZero() {
			rollbackable = append(rollbackable, dr.Device)
		}
	}
	// Rollback is always a deliberate operator action, never automatic.
	for _, name := range rollbackable {
		fmt.Fprintf(w, "  to restore %s: reflow rollback %s -x\n", name, name)
	}
}
