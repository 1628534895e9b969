package deploy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/reflow-net/reflow/pkg/device"
	"github.com/reflow-net/reflow/pkg/intent"
	"github.com/reflow-net/reflow/pkg/store"
	"github.com/reflow-net/reflow/pkg/util"
)

// fakeSession records operations in order so tests can assert sequencing.
type fakeSession struct {
	p        *fakeProvider
	live     string
	applyErr error
}

func (s *fakeSession) Capture(context.Context) (string, error) {
	s.p.record("capture")
	return s.live, nil
}

func (s *fakeSession) Apply(_ context.Context, text string) error {
	s.p.record("apply")
	return s.applyErr
}

func (s *fakeSession) Persist(context.Context) error {
	s.p.record("persist")
	return nil
}

func (s *fakeSession) Run(context.Context, string) (string, error) {
	return "", nil
}

func (s *fakeSession) Close() error {
	s.p.record("close")
	return nil
}

type fakeProvider struct {
	live       string
	applyErr   error
	connectErr error

	mu  sync.Mutex
	ops []string
}

func (p *fakeProvider) record(op string) {
	p.mu.Lock()
	p.ops = append(p.ops, op)
	p.mu.Unlock()
}

func (p *fakeProvider) Connect(_ context.Context, dev *intent.Device) (device.Session, error) {
	p.record("connect")
	if p.connectErr != nil {
		return nil, p.connectErr
	}
	return &fakeSession{p: p, live: p.live, applyErr: p.applyErr}, nil
}

// fakeStore is an in-memory store.Store with injectable backup failure.
type fakeStore struct {
	mu        sync.Mutex
	rendered  map[string]string
	backups   map[string][]string
	backupErr error
	ops       *[]string
}

func newFakeStore(ops *[]string) *fakeStore {
	return &fakeStore{
		rendered: make(map[string]string),
		backups:  make(map[string][]string),
		ops:      ops,
	}
}

func (s *fakeStore) SaveRendered(dev, text string) error {
	s.rendered[dev] = text
	return nil
}

func (s *fakeStore) ReadRendered(dev string) (string, error) {
	text, ok := s.rendered[dev]
	if !ok {
		return "", store.ErrNoRendered
	}
	return text, nil
}

func (s *fakeStore) SaveBackup(dev, text string) (*store.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ops != nil {
		*s.ops = append(*s.ops, "backup")
	}
	if s.backupErr != nil {
		return nil, s.backupErr
	}
	s.backups[dev] = append(s.backups[dev], text)
	return &store.Backup{Device: dev, Text: text, TakenAt: time.Now()}, nil
}

func (s *fakeStore) LatestBackup(dev string) (*store.Backup, error) {
	list := s.backups[dev]
	if len(list) == 0 {
		return nil, store.ErrNoBackup
	}
	return &store.Backup{Device: dev, Text: list[len(list)-1], TakenAt: time.Now()}, nil
}

func (s *fakeStore) ListBackups(dev string) ([]*store.Backup, error) {
	var out []*store.Backup
	for range s.backups[dev] {
		out = append(out, &store.Backup{Device: dev})
	}
	return out, nil
}

func testDevice(name string) *intent.Device {
	return &intent.Device{Name: name, Role: intent.RoleCore, MgmtIP: "192.168.68.11"}
}

func assertOps(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("operations = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("operations = %v, want %v", got, want)
		}
	}
}

func TestApplySequence(t *testing.T) {
	provider := &fakeProvider{live: "hostname core-1\nold line\n"}
	st := newFakeStore(&provider.ops)
	ex := NewExecutor(provider, st)

	res := ex.Apply(context.Background(), testDevice("core-1"), "hostname core-1\nnew line\n", false)

	if res.Status != StatusApplied {
		t.Fatalf("Status = %s (%v), want applied", res.Status, res.Err)
	}
	// Backup must land before the first change command.
	assertOps(t, provider.ops, "connect", "capture", "backup", "apply", "persist", "close")

	if len(st.backups["core-1"]) != 1 || st.backups["core-1"][0] != "hostname core-1\nold line\n" {
		t.Errorf("backup = %v, want captured live config", st.backups["core-1"])
	}
	if res.Diff == nil || res.Diff.Summary() != "+1/-1" {
		t.Errorf("Diff = %v", res.Diff)
	}
	if res.BackupAt.IsZero() || res.AppliedAt.IsZero() {
		t.Error("timestamps not recorded")
	}
	if res.AppliedAt.Before(res.BackupAt) {
		t.Errorf("apply at %v precedes backup at %v", res.AppliedAt, res.BackupAt)
	}
}

func TestApplyBackupFailureAborts(t *testing.T) {
	provider := &fakeProvider{live: "old\n"}
	st := newFakeStore(&provider.ops)
	st.backupErr = fmt.Errorf("disk full")
	ex := NewExecutor(provider, st)

	res := ex.Apply(context.Background(), testDevice("core-1"), "new\n", false)

	if res.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", res.Status)
	}
	if !errors.Is(res.Err, util.ErrBackupFailed) {
		t.Errorf("Err = %v, want ErrBackupFailed", res.Err)
	}
	// No change command may reach the device after a failed backup.
	assertOps(t, provider.ops, "connect", "capture", "backup", "close")
}

func TestApplyDryRun(t *testing.T) {
	provider := &fakeProvider{live: "old\n"}
	st := newFakeStore(&provider.ops)
	ex := NewExecutor(provider, st)

	res := ex.Apply(context.Background(), testDevice("core-1"), "new\n", true)

	if res.Status != StatusSkipped || res.Reason != ReasonDryRun {
		t.Fatalf("Status = %s/%s, want skipped/dry run", res.Status, res.Reason)
	}
	if res.Diff == nil || res.Diff.Empty() {
		t.Error("dry run should still report the delta")
	}
	assertOps(t, provider.ops, "connect", "capture", "backup", "close")
}

func TestApplyNoDelta(t *testing.T) {
	provider := &fakeProvider{live: "hostname core-1\n"}
	st := newFakeStore(&provider.ops)
	ex := NewExecutor(provider, st)

	res := ex.Apply(context.Background(), testDevice("core-1"), "hostname core-1\n", false)

	if res.Status != StatusSkipped || res.Reason != ReasonNoDelta {
		t.Fatalf("Status = %s/%s, want skipped/no delta", res.Status, res.Reason)
	}
	assertOps(t, provider.ops, "connect", "capture", "backup", "close")
}

func TestApplyRejected(t *testing.T) {
	provider := &fakeProvider{
		live:     "old\n",
		applyErr: &util.ApplyError{Device: "core-1", Detail: "% Invalid input"},
	}
	st := newFakeStore(&provider.ops)
	ex := NewExecutor(provider, st)

	res := ex.Apply(context.Background(), testDevice("core-1"), "new\n", false)

	if res.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", res.Status)
	}
	if !errors.Is(res.Err, util.ErrApplyRejected) {
		t.Errorf("Err = %v, want ErrApplyRejected", res.Err)
	}
	// Persist must not run after a rejected apply.
	assertOps(t, provider.ops, "connect", "capture", "backup", "apply", "close")
}

func TestApplyConnectFailure(t *testing.T) {
	provider := &fakeProvider{connectErr: util.NewSessionError("core-1", "dial", fmt.Errorf("timeout"))}
	st := newFakeStore(&provider.ops)
	ex := NewExecutor(provider, st)

	res := ex.Apply(context.Background(), testDevice("core-1"), "new\n", false)

	if res.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", res.Status)
	}
	if len(st.backups["core-1"]) != 0 {
		t.Error("backup stored despite connect failure")
	}
}

func TestRollbackAppliesLatestBackupExactly(t *testing.T) {
	provider := &fakeProvider{live: "current broken config\n"}
	st := newFakeStore(&provider.ops)
	st.backups["core-1"] = []string{"older\n", "known good config\n"}
	ex := NewExecutor(provider, st)

	backup, err := ex.Rollback(context.Background(), testDevice("core-1"))
	if err != nil {
		t.Fatal(err)
	}
	if backup.Text != "known good config\n" {
		t.Errorf("restored %q, want newest backup", backup.Text)
	}
	// Rollback must not capture a fresh backup first: the stored text is
	// what ends up on the device, byte for byte.
	assertOps(t, provider.ops, "connect", "apply", "persist", "close")
	if len(st.backups["core-1"]) != 2 {
		t.Error("rollback created a new backup")
	}
}

func TestRollbackNoBackup(t *testing.T) {
	provider := &fakeProvider{}
	st := newFakeStore(&provider.ops)
	ex := NewExecutor(provider, st)

	_, err := ex.Rollback(context.Background(), testDevice("core-1"))
	if !errors.Is(err, store.ErrNoBackup) {
		t.Errorf("err = %v, want ErrNoBackup", err)
	}
	if len(provider.ops) != 0 {
		t.Errorf("connected despite missing backup: %v", provider.ops)
	}
}

func TestBackupAll(t *testing.T) {
	provider := &fakeProvider{live: "config\n"}
	st := newFakeStore(nil)
	ex := NewExecutor(provider, st)

	devs := []*intent.Device{testDevice("core-1"), testDevice("core-2"), testDevice("edge-1")}
	failures := ex.BackupAll(context.Background(), devs, 2)

	if len(failures) != 0 {
		t.Fatalf("failures = %v", failures)
	}
	for _, dev := range devs {
		if len(st.backups[dev.Name]) != 1 {
			t.Errorf("%s: %d backups, want 1", dev.Name, len(st.backups[dev.Name]))
		}
	}
}

func TestBackupAllPartialFailure(t *testing.T) {
	provider := &fakeProvider{connectErr: fmt.Errorf("unreachable")}
	st := newFakeStore(nil)
	ex := NewExecutor(provider, st)

	failures := ex.BackupAll(context.Background(), []*intent.Device{testDevice("core-1")}, 1)
	if len(failures) != 1 || failures["core-1"] == nil {
		t.Fatalf("failures = %v", failures)
	}
	if got := FailedDevices(failures); len(got) != 1 || got[0] != "core-1" {
		t.Errorf("FailedDevices = %v", got)
	}
}
