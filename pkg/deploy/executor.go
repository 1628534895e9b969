package deploy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/reflow-net/reflow/pkg/audit"
	"github.com/reflow-net/reflow/pkg/device"
	"github.com/reflow-net/reflow/pkg/diff"
	"github.com/reflow-net/reflow/pkg/intent"
	"github.com/reflow-net/reflow/pkg/store"
	"github.com/reflow-net/reflow/pkg/util"
)

// DefaultOpTimeout bounds each individual device operation (capture,
// apply, persist). The overall deployment is bounded by the caller's
// context.
const DefaultOpTimeout = 60 * time.Second

// Executor deploys rendered configuration to devices. Every mutating
// path captures and stores a backup of the live configuration before
// the first change command is sent.
type Executor struct {
	Provider device.Provider
	Store    store.Store

	// OpTimeout bounds each device operation. Zero means DefaultOpTimeout.
	OpTimeout time.Duration

	// User is recorded on audit events.
	User string
}

// NewExecutor returns an executor with the default operation timeout.
func NewExecutor(provider device.Provider, st store.Store) *Executor {
	return &Executor{Provider: provider, Store: st, OpTimeout: DefaultOpTimeout}
}

func (e *Executor) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := e.OpTimeout
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// Apply deploys desired configuration to a single device.
//
// The sequence is connect, capture, backup, apply, persist. A backup
// failure aborts the deployment before any change command is sent.
// With dryRun set, the method stops after computing the delta and the
// device is left untouched.
func (e *Executor) Apply(ctx context.Context, dev *intent.Device, desired string, dryRun bool) Result {
	start := time.Now()
	res := Result{Device: dev.Name}

	ev := audit.NewEvent(e.User, dev.Name, audit.OpDeploy).WithDryRun(dryRun)
	defer func() {
		res.Duration = time.Since(start)
		ev.WithDuration(res.Duration)
		if res.Status == StatusFailed {
			ev.WithError(res.Err)
		} else {
			ev.WithSuccess()
		}
		if res.Diff != nil {
			ev.WithDiff(res.Diff.Summary())
		}
		audit.Log(ev)
	}()

	sess, err := e.connect(ctx, dev)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	defer sess.Close()

	live, err := e.capture(ctx, sess)
	if err != nil {
		res.Status = StatusFailed
		res.Err = util.NewSessionError(dev.Name, "capture", err)
		return res
	}

	backup, err := e.Store.SaveBackup(dev.Name, live)
	if err != nil {
		res.Status = StatusFailed
		res.Err = &util.BackupError{Device: dev.Name, Err: err}
		return res
	}
	res.BackupAt = backup.TakenAt
	util.WithDevice(dev.Name).Debugf("backup captured at %s", backup.TakenAt.Format(store.BackupTimestampFormat))

	d := diff.Compute(live, desired)
	res.Diff = &d
	if d.Empty() {
		res.Status = StatusSkipped
		res.Reason = ReasonNoDelta
		return res
	}
	if dryRun {
		res.Status = StatusSkipped
		res.Reason = ReasonDryRun
		return res
	}

	res.AppliedAt = time.Now()
	if err := e.apply(ctx, sess, desired); err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	if err := e.persist(ctx, sess); err != nil {
		res.Status = StatusFailed
		res.Err = util.NewSessionError(dev.Name, "persist", err)
		return res
	}

	res.Status = StatusApplied
	return res
}

// Preview computes the delta between the device's live configuration
// and desired without changing anything, and without taking a backup.
func (e *Executor) Preview(ctx context.Context, dev *intent.Device, desired string) (diff.Diff, error) {
	sess, err := e.connect(ctx, dev)
	if err != nil {
		return diff.Diff{}, err
	}
	defer sess.Close()

	live, err := e.capture(ctx, sess)
	if err != nil {
		return diff.Diff{}, util.NewSessionError(dev.Name, "capture", err)
	}
	return diff.Compute(live, desired), nil
}

// Rollback restores the device's most recent backup byte for byte and
// persists it. No fresh backup is taken first, so the configuration on
// the device afterwards is exactly the stored backup text.
func (e *Executor) Rollback(ctx context.Context, dev *intent.Device) (*store.Backup, error) {
	backup, err := e.Store.LatestBackup(dev.Name)
	if err != nil {
		return nil, err
	}

	ev := audit.NewEvent(e.User, dev.Name, audit.OpRollback)
	start := time.Now()

	sess, err := e.connect(ctx, dev)
	if err != nil {
		audit.Log(ev.WithError(err).WithDuration(time.Since(start)))
		return nil, err
	}
	defer sess.Close()

	if err := e.apply(ctx, sess, backup.Text); err != nil {
		audit.Log(ev.WithError(err).WithDuration(time.Since(start)))
		return nil, err
	}
	if err := e.persist(ctx, sess); err != nil {
		err = util.NewSessionError(dev.Name, "persist", err)
		audit.Log(ev.WithError(err).WithDuration(time.Since(start)))
		return nil, err
	}

	audit.Log(ev.WithSuccess().WithDuration(time.Since(start)))
	util.WithDevice(dev.Name).Infof("rolled back to backup from %s", backup.TakenAt.Format(store.BackupTimestampFormat))
	return backup, nil
}

// BackupOne captures and stores the device's live configuration.
func (e *Executor) BackupOne(ctx context.Context, dev *intent.Device) (*store.Backup, error) {
	ev := audit.NewEvent(e.User, dev.Name, audit.OpBackup)
	start := time.Now()

	sess, err := e.connect(ctx, dev)
	if err != nil {
		audit.Log(ev.WithError(err).WithDuration(time.Since(start)))
		return nil, err
	}
	defer sess.Close()

	live, err := e.capture(ctx, sess)
	if err != nil {
		err = util.NewSessionError(dev.Name, "capture", err)
		audit.Log(ev.WithError(err).WithDuration(time.Since(start)))
		return nil, err
	}
	backup, err := e.Store.SaveBackup(dev.Name, live)
	if err != nil {
		err = &util.BackupError{Device: dev.Name, Err: err}
		audit.Log(ev.WithError(err).WithDuration(time.Since(start)))
		return nil, err
	}

	audit.Log(ev.WithSuccess().WithDuration(time.Since(start)))
	return backup, nil
}

// BackupAll backs up every device with at most parallel sessions open
// at once. Failures do not stop other devices; the returned map holds
// one error per failed device, keyed by device name.
func (e *Executor) BackupAll(ctx context.Context, devs []*intent.Device, parallel int) map[string]error {
	if parallel < 1 {
		parallel = 1
	}

	var mu sync.Mutex
	failures := make(map[string]error)

	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	for _, dev := range devs {
		wg.Add(1)
		sem <- struct{}{}
		go func(dev *intent.Device) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := e.BackupOne(ctx, dev); err != nil {
				mu.Lock()
				failures[dev.Name] = err
				mu.Unlock()
			}
		}(dev)
	}
	wg.Wait()
	return failures
}

// FailedDevices lists the keys of a failure map in sorted order.
func FailedDevices(failures map[string]error) []string {
	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Executor) connect(ctx context.Context, dev *intent.Device) (device.Session, error) {
	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	return e.Provider.Connect(opctx, dev)
}

func (e *Executor) capture(ctx context.Context, sess device.Session) (string, error) {
	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	return sess.Capture(opctx)
}

func (e *Executor) apply(ctx context.Context, sess device.Session, text string) error {
	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	return sess.Apply(opctx, text)
}

func (e *Executor) persist(ctx context.Context, sess device.Session) error {
	opctx, cancel := e.opCtx(ctx)
	defer cancel()
	return sess.Persist(opctx)
}
