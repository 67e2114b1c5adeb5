package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"encore/internal/config"
	"encore/internal/logging"
	"encore/internal/scheduler"
	"encore/internal/store"
)

// Daemon coordinates the scheduler and API server and enforces
// single-instance execution via a file lock.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	scheduler *scheduler.Manager
	api       *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Scheduler    scheduler.StatusSummary
	DatabasePath string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, sched *scheduler.Manager) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil || sched == nil {
		return nil, errors.New("daemon requires config, store, logger, and scheduler")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "encored.lock")
	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		scheduler: sched,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches the scheduler and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another encore daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.scheduler.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start scheduler: %w", err)
	}
	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.scheduler.Stop()
			_ = d.lock.Unlock()
			cancel()
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("encore daemon started", logging.String("lock", d.lockPath))
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
	d.api.stop()
	d.scheduler.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("encore daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports daemon runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Scheduler:    d.scheduler.Status(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
