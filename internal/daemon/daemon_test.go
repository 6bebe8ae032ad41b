package daemon

import (
	"context"
	"path/filepath"
	"testing"

	"mixdown/internal/jobs"
	"mixdown/internal/queue"
	"mixdown/internal/testsupport"
	"mixdown/internal/workflow"
)

func newTestDaemon(t *testing.T) (*Daemon, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	env, err := jobs.NewEnvironment(cfg, nil)
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	manager := workflow.NewManager(cfg, store, jobs.NewRegistry(env), nil)
	d, err := New(cfg, store, nil, manager)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	d, _ := newTestDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !d.Status(context.Background()).Running {
		t.Fatal("daemon should report running")
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second start should fail")
	}
	d.Stop()
	if d.Status(context.Background()).Running {
		t.Fatal("daemon should report stopped")
	}
	d.Stop()
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	env, err := jobs.NewEnvironment(cfg, nil)
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}

	first, err := New(cfg, store, nil, workflow.NewManager(cfg, store, jobs.NewRegistry(env), nil))
	if err != nil {
		t.Fatalf("new first daemon: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, store, nil, workflow.NewManager(cfg, store, jobs.NewRegistry(env), nil))
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance should not acquire the lock")
	}
}

func TestDaemonAddJobValidation(t *testing.T) {
	d, _ := newTestDaemon(t)
	ctx := context.Background()

	if _, err := d.AddJob(ctx, queue.KindProbe, "", "", ""); err == nil {
		t.Fatal("empty source should be rejected")
	}
	if _, err := d.AddJob(ctx, queue.KindProbe, "/definitely/missing.wav", "", ""); err == nil {
		t.Fatal("missing source should be rejected")
	}

	source := filepath.Join(t.TempDir(), "in.wav")
	testsupport.WriteFile(t, source, 64)
	if _, err := d.AddJob(ctx, queue.KindMix, source, "", ""); err == nil {
		t.Fatal("mix without background should be rejected")
	}

	item, err := d.AddJob(ctx, queue.KindProbe, source, "", "")
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("status = %s", item.Status)
	}
	if !filepath.IsAbs(item.SourcePath) {
		t.Fatalf("source not absolute: %q", item.SourcePath)
	}
}

func TestDaemonQueueOperations(t *testing.T) {
	d, store := newTestDaemon(t)
	ctx := context.Background()

	source := filepath.Join(t.TempDir(), "in.wav")
	testsupport.WriteFile(t, source, 64)

	item, err := d.AddJob(ctx, queue.KindProbe, source, "", "")
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if err := store.MarkFailure(ctx, item.ID, queue.StatusFailed, "boom"); err != nil {
		t.Fatalf("mark failure: %v", err)
	}

	updated, err := d.RetryFailed(ctx, []int64{item.ID})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if updated != 1 {
		t.Fatalf("retried = %d", updated)
	}
	got, err := d.GetQueueItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Status != queue.StatusPending {
		t.Fatalf("status after retry = %s", got.Status)
	}

	health, err := d.QueueHealth(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Total != 1 || health.Pending != 1 {
		t.Fatalf("health = %+v", health)
	}

	items, err := d.ListQueue(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
}

func TestDaemonStatusIncludesDependencies(t *testing.T) {
	d, _ := newTestDaemon(t)
	status := d.Status(context.Background())
	if len(status.Dependencies) != 2 {
		t.Fatalf("dependencies = %d, want 2", len(status.Dependencies))
	}
	if status.PID <= 0 {
		t.Fatalf("pid = %d", status.PID)
	}
	if status.QueueDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("paths missing: %+v", status)
	}
}
