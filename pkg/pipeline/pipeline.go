// Package pipeline orchestrates the full reconciliation run: render,
// pre-validate, preview, staged deploy, post-validate, report. Each
// phase consumes the previous phase's survivors, so one device's
// problem never widens the blast radius.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reflow-net/reflow/pkg/deploy"
	"github.com/reflow-net/reflow/pkg/intent"
	"github.com/reflow-net/reflow/pkg/plan"
	"github.com/reflow-net/reflow/pkg/render"
	"github.com/reflow-net/reflow/pkg/store"
	"github.com/reflow-net/reflow/pkg/util"
	"github.com/reflow-net/reflow/pkg/validate"
)

// Phase names, in run order.
const (
	PhaseGenerate     = "generate"
	PhasePreValidate  = "pre-validate"
	PhasePreview      = "preview"
	PhaseDeploy       = "deploy"
	PhasePostValidate = "post-validate"
	PhaseReport       = "report"

	// PhaseAborted marks a run stopped at a gate or by a planning error.
	PhaseAborted = "aborted"
)

// Pipeline wires the reconciliation stages together.
type Pipeline struct {
	Repo      *intent.Repository
	Renderer  *render.Renderer
	Store     store.Store
	Executor  *deploy.Executor
	Validator *validate.Runner
	Gate      Gate

	// Parallel bounds concurrent sessions in render-adjacent phases.
	// Deploy itself is always sequential in plan order.
	Parallel int

	// Targets restricts the run to the named devices. Empty means the
	// whole fleet.
	Targets []string
}

// Run executes the pipeline over the whole fleet. With dryRun set no
// device is modified: the run stops after preview and reports the
// deltas it would have applied.
//
// The returned error covers pipeline mechanics (planning, gating);
// per-device failures are carried in the report, not the error.
func (p *Pipeline) Run(ctx context.Context, dryRun bool) (*Report, error) {
	start := time.Now()
	report := NewReport(dryRun)
	defer func() { report.Duration = time.Since(start) }()

	devices := p.Repo.Devices()
	var unknown []string
	if len(p.Targets) > 0 {
		devices = devices[:0:0]
		for _, name := range p.Targets {
			dev, err := p.Repo.Get(name)
			if err != nil {
				// Unknown names are skipped, not fatal. They still show
				// up in the report so a typo is visible to the operator.
				util.WithDevice(name).Warnf("no intent for device, skipping")
				unknown = append(unknown, name)
				continue
			}
			devices = append(devices, dev)
		}
		if len(devices) == 0 {
			report.Phase = PhaseAborted
			return report, fmt.Errorf("none of the %d target(s) has intent: %w", len(p.Targets), util.ErrIntentNotFound)
		}
	}

	ordered, err := plan.Order(devices)
	if err != nil {
		report.Phase = PhaseAborted
		return report, err
	}
	for _, dev := range ordered {
		report.add(dev)
	}
	for _, name := range unknown {
		report.addSkipped(name, deploy.ReasonNoIntent)
	}

	p.generate(report, ordered)

	survivors := report.renderable()
	if len(survivors) == 0 {
		report.Phase = PhaseAborted
		return report, fmt.Errorf("no device rendered successfully")
	}

	if err := p.preValidate(ctx, report, survivors); err != nil {
		return report, err
	}

	p.preview(ctx, report, survivors)

	if dryRun {
		report.Phase = PhaseReport
		return report, nil
	}

	pending := report.deployable()
	if len(pending) == 0 {
		report.Phase = PhaseReport
		return report, nil
	}

	ok, err := p.Gate.Confirm(fmt.Sprintf("Deploy to %d device(s)", len(pending)))
	if err != nil {
		report.Phase = PhaseAborted
		return report, err
	}
	if !ok {
		report.Phase = PhaseAborted
		util.Infof("deployment declined at gate")
		return report, nil
	}

	p.deploy(ctx, report, pending)
	p.postValidate(ctx, report)

	report.Phase = PhaseReport
	return report, nil
}

// generate renders every device concurrently and stores the results.
// A template failure drops only that device from the run.
func (p *Pipeline) generate(report *Report, ordered []*intent.Device) {
	report.Phase = PhaseGenerate

	parallel := p.Parallel
	if parallel < 1 {
		parallel = 1
	}
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, dev := range ordered {
		wg.Add(1)
		sem <- struct{}{}
		go func(dev *intent.Device) {
			defer wg.Done()
			defer func() { <-sem }()

			text, err := p.Renderer.Render(p.Repo, dev)
			if err == nil {
				err = p.Store.SaveRendered(dev.Name, text)
			}

			mu.Lock()
			defer mu.Unlock()
			dr := report.device(dev.Name)
			if err != nil {
				util.WithDevice(dev.Name).Errorf("render: %v", err)
				dr.RenderErr = err
				return
			}
			dr.Rendered = text
		}(dev)
	}
	wg.Wait()
}

// preValidate runs the pre-deployment check set. Failures gate the run
// rather than aborting it outright: the operator may accept a known-bad
// baseline, for example when deploying the fix for it.
func (p *Pipeline) preValidate(ctx context.Context, report *Report, devs []*intent.Device) error {
	report.Phase = PhasePreValidate

	results := p.Validator.Run(ctx, devs, validate.PhasePre)
	report.record(results)

	failed := validate.FailedDevices(results)
	if len(failed) == 0 {
		return nil
	}

	ok, err := p.Gate.Confirm(fmt.Sprintf("Pre-validation failed on %v; continue anyway", failed))
	if err != nil {
		report.Phase = PhaseAborted
		return err
	}
	if !ok {
		report.Phase = PhaseAborted
		return fmt.Errorf("pre-validation failed on %d device(s): %w", len(failed), util.ErrValidationFailed)
	}
	return nil
}

// preview captures each surviving device's live configuration and
// computes the delta it would receive. A device that cannot be reached
// here is marked failed and excluded from deploy.
func (p *Pipeline) preview(ctx context.Context, report *Report, devs []*intent.Device) {
	report.Phase = PhasePreview

	parallel := p.Parallel
	if parallel < 1 {
		parallel = 1
	}
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, dev := range devs {
		wg.Add(1)
		sem <- struct{}{}
		go func(dev *intent.Device) {
			defer wg.Done()
			defer func() { <-sem }()

			dr := report.device(dev.Name)
			d, err := p.Executor.Preview(ctx, dev, dr.Rendered)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				util.WithDevice(dev.Name).Errorf("preview: %v", err)
				dr.Deploy = &deploy.Result{Device: dev.Name, Status: deploy.StatusFailed, Err: err}
				return
			}
			dr.Diff = &d
		}(dev)
	}
	wg.Wait()
}

// deploy applies the pending deltas strictly in plan order. The first
// failure halts the phase; devices not yet reached are marked skipped
// so a broken core change never cascades into the tiers behind it.
func (p *Pipeline) deploy(ctx context.Context, report *Report, pending []*intent.Device) {
	report.Phase = PhaseDeploy

	halted := ""
	for _, dev := range pending {
		dr := report.device(dev.Name)
		if halted != "" {
			res := deploy.Skip(dev.Name, "halted after failure on "+halted)
			dr.Deploy = &res
			continue
		}

		res := p.Executor.Apply(ctx, dev, dr.Rendered, false)
		dr.Deploy = &res
		if res.Failed() {
			util.WithDevice(dev.Name).Errorf("deploy failed, halting rollout: %v", res.Err)
			halted = dev.Name
		}
	}
}

// postValidate re-checks every surviving device, not just the ones
// that were changed. A core-tier change can break adjacencies on
// downstream devices whose own configuration never moved.
func (p *Pipeline) postValidate(ctx context.Context, report *Report) {
	report.Phase = PhasePostValidate

	devs := report.renderable()
	if len(devs) == 0 {
		return
	}
	report.record(p.Validator.Run(ctx, devs, validate.PhasePost))
}
