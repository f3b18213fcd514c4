package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"gantry/internal/bridge"
	"gantry/internal/config"
	"gantry/internal/deps"
	"gantry/internal/jobs"
	"gantry/internal/logging"
	"gantry/internal/sdapi"
	"gantry/internal/supervise"
)

// Daemon owns the supervised service and the job bridge, and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *jobs.Store
	client *sdapi.Client
	worker *bridge.Worker
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	service *supervise.Handle
	ready   atomic.Bool

	running    atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc
	workerDone chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	Ready          bool
	ServicePID     int
	ServiceURL     string
	ServiceLogPath string
	JobsDBPath     string
	LockFilePath   string
	Stats          map[jobs.Status]int
	Dependencies   []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	client := sdapi.New(cfg.LocalAPIBase())
	uploader := bridge.NewUploader(
		cfg.Upload.BlobBase,
		cfg.Upload.BlobToken,
		time.Duration(cfg.Upload.TimeoutSeconds)*time.Second,
	)

	lockPath := filepath.Join(cfg.Paths.LogDir, "gantryd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		client:   client,
		worker:   bridge.NewWorker(cfg, store, client, uploader, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, runs the bootstrap sequence, and launches
// the API server and the job bridge worker.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another gantry daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.bootstrap(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("bootstrap: %w", err)
	}

	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	d.workerDone = make(chan struct{})
	go func() {
		defer close(d.workerDone)
		if err := d.worker.Run(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("job bridge stopped", logging.Error(err))
		}
	}()

	d.running.Store(true)
	d.logger.Info("gantry daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the bridge worker, the API server, and the supervised service,
// then releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.workerDone != nil {
		select {
		case <-d.workerDone:
		case <-time.After(10 * time.Second):
			d.logger.Warn("job bridge did not stop in time")
		}
		d.workerDone = nil
	}
	d.api.stop()

	if d.service.Running() {
		if err := d.service.Signal(syscall.SIGTERM); err != nil {
			d.logger.Warn("failed to signal service", logging.Error(err))
		} else {
			select {
			case <-d.service.Done():
			case <-time.After(15 * time.Second):
				d.logger.Warn("service ignored SIGTERM; killing process group")
				_ = d.service.Signal(syscall.SIGKILL)
			}
		}
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.ready.Store(false)
	d.running.Store(false)
	d.logger.Info("gantry daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the bound API listener address, empty until Start.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Ready reports whether the supervised service passed its readiness probe.
func (d *Daemon) Ready() bool {
	return d.ready.Load()
}

// ListJobs returns jobs filtered by optional statuses.
func (d *Daemon) ListJobs(ctx context.Context, statuses []jobs.Status) ([]*jobs.Job, error) {
	if d.store == nil {
		return nil, errors.New("job store unavailable")
	}
	return d.store.List(ctx, statuses...)
}

// SubmitJob persists a settings document as a pending job.
func (d *Daemon) SubmitJob(ctx context.Context, settingsJSON string) (*jobs.Job, error) {
	if d.store == nil {
		return nil, errors.New("job store unavailable")
	}
	return d.store.Submit(ctx, settingsJSON)
}

// JobByID fetches one job, or nil when absent.
func (d *Daemon) JobByID(ctx context.Context, id string) (*jobs.Job, error) {
	if d.store == nil {
		return nil, errors.New("job store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// JobsHealth returns aggregate job store diagnostics.
func (d *Daemon) JobsHealth(ctx context.Context) (jobs.HealthSummary, error) {
	if d.store == nil {
		return jobs.HealthSummary{}, errors.New("job store unavailable")
	}
	return d.store.Health(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		Ready:        d.ready.Load(),
		ServiceURL:   d.client.BaseURL(),
		JobsDBPath:   d.store.Path(),
		LockFilePath: d.lockPath,
		Dependencies: deps.CheckBinaries(d.requirements()),
	}
	if d.service != nil {
		status.ServicePID = d.service.PID
		status.ServiceLogPath = d.service.LogPath
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.Stats = stats
	}
	return status
}
