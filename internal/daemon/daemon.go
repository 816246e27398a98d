package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"lexsync/internal/config"
	"lexsync/internal/coordinator"
	"lexsync/internal/logging"
	"lexsync/internal/manager"
	"lexsync/internal/queue"
)

// Daemon enforces single-instance execution and owns the lifecycles of the
// queue manager and the connectivity watcher.
type Daemon struct {
	cfg    *config.Config
	store  *queue.Store
	mgr    *manager.Manager
	coord  *coordinator.Coordinator
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running     bool
	PID         int
	QueueDBPath string
	LockPath    string
	SocketPath  string
	Stats       queue.Stats
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, mgr *manager.Manager, coord *coordinator.Coordinator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || mgr == nil || coord == nil {
		return nil, errors.New("daemon requires config, store, manager, and coordinator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "lexsyncd.lock")
	return &Daemon{
		cfg:      cfg,
		store:    store,
		mgr:      mgr,
		coord:    coord,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, repairs interrupted state, and launches
// the connectivity watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lexsync daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.mgr.Recover(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	if err := d.coord.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start coordinator: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("lexsync daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the watcher and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.coord.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("lexsync daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// EnqueueQuery adds a pending query to the queue.
func (d *Daemon) EnqueueQuery(ctx context.Context, payload string, qctx *queue.QueryContext, maxRetries int) (*queue.QueuedQuery, error) {
	return d.mgr.EnqueueQuery(ctx, payload, qctx, maxRetries)
}

// EnqueueDocument adds a pending document upload to the queue.
func (d *Daemon) EnqueueDocument(ctx context.Context, filename string, content io.Reader, options *queue.DocumentOptions) (*queue.QueuedDocument, error) {
	return d.mgr.EnqueueDocument(ctx, filename, content, options)
}

// ListPending returns pending items for the given kind, or both when empty.
func (d *Daemon) ListPending(ctx context.Context, kind queue.Kind) ([]queue.PendingItem, error) {
	return d.mgr.ListPending(ctx, kind)
}

// Stats returns per-status counts for both collections.
func (d *Daemon) Stats(ctx context.Context) (queue.Stats, error) {
	return d.mgr.Stats(ctx)
}

// Drain processes one collection's pending items.
func (d *Daemon) Drain(ctx context.Context, kind queue.Kind) (manager.DrainSummary, error) {
	return d.mgr.Drain(ctx, kind)
}

// SyncNow drains both collections if the host is online.
func (d *Daemon) SyncNow(ctx context.Context) ([]manager.DrainSummary, error) {
	return d.coord.SyncNow(ctx)
}

// ClearCompleted removes completed items from both collections.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.mgr.ClearCompleted(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:     d.running.Load(),
		PID:         os.Getpid(),
		QueueDBPath: d.store.Path(),
		LockPath:    d.lockPath,
		SocketPath:  d.cfg.Paths.SocketPath,
	}
	if stats, err := d.mgr.Stats(ctx); err == nil {
		status.Stats = stats
	}
	return status
}
