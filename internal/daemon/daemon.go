package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mixdown/internal/config"
	"mixdown/internal/deps"
	"mixdown/internal/logging"
	"mixdown/internal/queue"
	"mixdown/internal/workflow"
	"mixdown/internal/workspace"
)

// staleWorkspaceAge bounds how long an abandoned staging directory survives
// before the startup sweep removes it.
const staleWorkspaceAge = 24 * time.Hour

// Daemon coordinates the queue worker and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDBPath  string
	LockFilePath string
	QueueStats   map[string]int
	LastError    string
	LastItem     *queue.Item
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "mixdownd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		workflow: wf,
		logPath:  filepath.Join(cfg.Paths.LogDir, "mixdown.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, sweeps abandoned workspaces, resets jobs
// left running by a previous crash, and launches the queue worker.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mixdown daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	swept := workspace.CleanStale(d.cfg.Paths.StagingDir, staleWorkspaceAge, d.logger)
	if len(swept.Removed) > 0 {
		d.logger.Info("swept stale workspaces", logging.Int("count", len(swept.Removed)))
	}
	reset, err := d.store.ResetRunning(d.ctx, queue.DaemonStopReason)
	if err != nil {
		d.logger.Warn("failed to reset interrupted jobs", logging.Error(err))
	} else if reset > 0 {
		d.logger.Info("reset interrupted jobs", logging.Int64("count", reset))
	}

	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("mixdown daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("mixdown daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// AddJob validates inputs and enqueues a new job. Enqueueing is refused
// while a required external tool is unavailable.
func (d *Daemon) AddJob(ctx context.Context, kind queue.Kind, sourcePath, backgroundPath, paramsJSON string) (*queue.Item, error) {
	if missing := deps.MissingRequired(deps.CheckBinaries(ctx, deps.ForConfig(d.cfg))); len(missing) > 0 {
		return nil, fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
	}

	source, err := resolveInput("source", sourcePath)
	if err != nil {
		return nil, err
	}
	background := ""
	if kind == queue.KindMix {
		background, err = resolveInput("background", backgroundPath)
		if err != nil {
			return nil, err
		}
	}

	item, err := d.store.NewJob(ctx, kind, source, background, paramsJSON)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	d.logger.Info("job queued",
		logging.Int64(logging.FieldJobID, item.ID),
		logging.String(logging.FieldJobKind, string(kind)),
		logging.String("source", source))
	return item, nil
}

func resolveInput(role, path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("%s path is required", role)
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve %s path: %w", role, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat %s file: %w", role, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s path %q is a directory", role, abs)
	}
	return abs, nil
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	return d.store.List(ctx, statuses...)
}

// GetQueueItem returns a single queue item by id.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*queue.Item, error) {
	return d.store.GetByID(ctx, id)
}

// ClearQueue removes all queue items.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed queue items.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.store.ClearCompleted(ctx)
}

// RetryFailed resets failed items (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return d.store.RetryFailed(ctx)
	}
	var updated int64
	for _, id := range ids {
		if _, err := d.store.Retry(ctx, id); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  filepath.Join(d.cfg.Paths.LogDir, "queue.db"),
		LockFilePath: d.lockPath,
		Dependencies: deps.CheckBinaries(ctx, deps.ForConfig(d.cfg)),
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.QueueStats = stats
	}
	if err := d.workflow.LastError(); err != nil {
		status.LastError = err.Error()
	}
	status.LastItem = d.workflow.LastItem()
	return status
}
