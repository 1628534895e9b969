package validate

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/reflow-net/reflow/pkg/device"
	"github.com/reflow-net/reflow/pkg/intent"
	"github.com/reflow-net/reflow/pkg/util"
)

// ReachabilityCheck is the name under which the runner reports whether
// the device could be reached at all. It is the session establishment
// itself, not a separate probe.
const ReachabilityCheck = "reachability"

// DefaultOpTimeout bounds each show command issued during validation.
const DefaultOpTimeout = 30 * time.Second

// Runner executes a check set against a fleet, bounding the number of
// concurrent device sessions.
type Runner struct {
	Provider device.Provider
	Parser   device.Parser
	Checks   []Check

	// Parallel is the maximum number of devices validated at once.
	// Values below one mean sequential.
	Parallel int

	// OpTimeout bounds each device command. Zero means DefaultOpTimeout.
	OpTimeout time.Duration
}

// NewRunner returns a runner with the default check set.
func NewRunner(provider device.Provider, parser device.Parser, parallel int) *Runner {
	return &Runner{
		Provider:  provider,
		Parser:    parser,
		Checks:    DefaultChecks(),
		Parallel:  parallel,
		OpTimeout: DefaultOpTimeout,
	}
}

// Run validates every device and returns all results grouped by device,
// devices in input order, checks in check-set order. An unreachable
// device fails reachability and has every other check skipped.
func (r *Runner) Run(ctx context.Context, devs []*intent.Device, phase Phase) []Result {
	parallel := r.Parallel
	if parallel < 1 {
		parallel = 1
	}

	perDevice := make([][]Result, len(devs))
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	for i, dev := range devs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, dev *intent.Device) {
			defer wg.Done()
			defer func() { <-sem }()
			perDevice[i] = r.runDevice(ctx, dev, phase)
		}(i, dev)
	}
	wg.Wait()

	var all []Result
	for _, results := range perDevice {
		all = append(all, results...)
	}
	return all
}

func (r *Runner) runDevice(ctx context.Context, dev *intent.Device, phase Phase) []Result {
	results := make([]Result, 0, len(r.Checks)+1)

	opctx, cancel := r.opCtx(ctx)
	sess, err := r.Provider.Connect(opctx, dev)
	cancel()
	if err != nil {
		util.WithDevice(dev.Name).Warnf("unreachable: %v", err)
		results = append(results, Result{
			Check:  ReachabilityCheck,
			Device: dev.Name,
			Phase:  phase,
			Status: StatusFail,
			Detail: err.Error(),
		})
		for _, check := range r.Checks {
			results = append(results, Result{
				Check:  check.Name(),
				Device: dev.Name,
				Phase:  phase,
				Status: StatusSkip,
				Detail: "device unreachable",
			})
		}
		return results
	}
	defer sess.Close()

	results = append(results, Result{
		Check:  ReachabilityCheck,
		Device: dev.Name,
		Phase:  phase,
		Status: StatusPass,
	})

	for _, check := range r.Checks {
		results = append(results, r.runCheck(ctx, sess, dev, check, phase))
	}
	return results
}

func (r *Runner) runCheck(ctx context.Context, sess device.Session, dev *intent.Device, check Check, phase Phase) Result {
	res := Result{Check: check.Name(), Device: dev.Name, Phase: phase}

	opctx, cancel := r.opCtx(ctx)
	state, err := r.Parser.Parse(opctx, sess, check.Category())
	cancel()
	if err != nil {
		if errors.Is(err, util.ErrNotConfigured) {
			res.Status = StatusSkip
			res.Detail = "not configured"
			return res
		}
		res.Status = StatusFail
		res.Detail = err.Error()
		return res
	}

	res.Status, res.Detail = check.Evaluate(dev, state)
	return res
}

func (r *Runner) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.OpTimeout
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// Summary aggregates results by status.
type Summary struct {
	Pass int
	Fail int
	Skip int
}

// Summarize tallies a result set.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			s.Pass++
		case StatusFail:
			s.Fail++
		case StatusSkip:
			s.Skip++
		}
	}
	return s
}

// FailedDevices lists, in sorted order, the devices with at least one
// failed check.
func FailedDevices(results []Result) []string {
	seen := make(map[string]bool)
	for _, r := range results {
		if r.Status == StatusFail {
			seen[r.Device] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
