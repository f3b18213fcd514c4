package bridge

import (
	"context"
	"log/slog"
	"time"

	"gantry/internal/config"
	"gantry/internal/jobs"
	"gantry/internal/logging"
	"gantry/internal/sdapi"
	"gantry/internal/services"
)

// Worker relays persisted jobs to the supervised service.
type Worker struct {
	cfg      *config.Config
	store    *jobs.Store
	client   *sdapi.Client
	uploader *Uploader
	logger   *slog.Logger

	pollInterval time.Duration
	jobTimeout   time.Duration
	resultPoll   time.Duration
}

// NewWorker constructs the bridge worker. The uploader may be nil when blob
// storage is not configured.
func NewWorker(cfg *config.Config, store *jobs.Store, client *sdapi.Client, uploader *Uploader, logger *slog.Logger) *Worker {
	return &Worker{
		cfg:          cfg,
		store:        store,
		client:       client,
		uploader:     uploader,
		logger:       logging.WithComponent(logger, "bridge"),
		pollInterval: time.Duration(cfg.Bridge.PollInterval) * time.Second,
		jobTimeout:   time.Duration(cfg.Bridge.JobTimeout) * time.Second,
		resultPoll:   time.Duration(cfg.Bridge.ResultPollInterval) * time.Second,
	}
}

// Run blocks, processing jobs until the context is cancelled. Jobs left
// running by a previous process are failed on entry rather than resumed.
func (w *Worker) Run(ctx context.Context) error {
	if reset, err := w.store.ResetStuckRunning(ctx); err != nil {
		w.logger.Warn("failed to reset stuck jobs", logging.Error(err))
	} else if reset > 0 {
		w.logger.Info("reset stuck jobs from previous run", logging.Int64("count", reset))
	}

	w.logger.Info("job bridge serving", logging.String("service", w.client.BaseURL()))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("job bridge stopping")
			return ctx.Err()
		default:
		}

		job, err := w.store.NextPending(ctx)
		if err != nil {
			w.logger.Error("failed to fetch next job", logging.Error(err))
			w.sleep(ctx, w.pollInterval)
			continue
		}
		if job == nil {
			w.sleep(ctx, w.pollInterval)
			continue
		}

		w.processJob(ctx, job)
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// processJob relays one job and records its outcome. Every failure path
// lands on the job row; nothing here escalates to the worker loop.
func (w *Worker) processJob(ctx context.Context, job *jobs.Job) {
	jobCtx := services.WithJobID(ctx, job.ID)
	log := w.logger.With(logging.String("job", job.ID))

	now := time.Now().UTC()
	job.Status = jobs.StatusRunning
	job.StartedAt = &now
	if err := w.store.Update(jobCtx, job); err != nil {
		log.Error("failed to mark job running", logging.Error(err))
		return
	}

	relayCtx, cancel := context.WithTimeout(jobCtx, w.jobTimeout)
	defer cancel()

	timer := newStepTimer()
	relayErr := w.relay(relayCtx, log, job, timer)

	finished := time.Now().UTC()
	job.FinishedAt = &finished
	if relayErr != nil {
		job.Status = jobs.StatusFailed
		job.ErrorMessage = relayErr.Error()
		log.Warn("job failed", logging.Error(relayErr), logging.Duration("elapsed", finished.Sub(now)))
	} else {
		job.Status = jobs.StatusCompleted
		job.ErrorMessage = ""
		log.Info("job completed", logging.Duration("elapsed", finished.Sub(now)))
	}
	job.ResultJSON = encodeResult(job, timer, relayErr)

	// jobCtx is cancelled during shutdown; the outcome still has to land.
	persistCtx, persistCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer persistCancel()
	if err := w.store.Update(persistCtx, job); err != nil {
		log.Error("failed to persist job outcome", logging.Error(err))
	}
}

// relay forwards the job's settings, waits for a terminal service-side
// status, then locates and optionally uploads the rendered video. The
// per-job context bounds every outbound call.
func (w *Worker) relay(ctx context.Context, log *slog.Logger, job *jobs.Job, timer *stepTimer) error {
	stop := timer.step("submit")
	batch, err := w.client.SubmitBatch(ctx, []byte(job.SettingsJSON))
	stop()
	if err != nil {
		return err
	}
	job.BatchID = batch.BatchID
	job.RemoteJobID = batch.JobIDs[0]
	log.Info("batch accepted",
		logging.String("batch", batch.BatchID),
		logging.String("remote_job", job.RemoteJobID))

	stop = timer.step("render")
	state, err := w.awaitTerminal(ctx, job.RemoteJobID)
	stop()
	if err != nil {
		return err
	}
	if state.Status != sdapi.StatusSucceeded {
		return services.Wrap(services.ErrExternalTool, "bridge", "render",
			"service reported "+state.Status+": "+state.Message, nil)
	}

	stop = timer.step("pick_video")
	video, found := NewestVideo(w.cfg.Paths.OutputDirs)
	stop()
	if found {
		job.VideoPath = video
	} else {
		log.Warn("no rendered video found", logging.String("remote_job", job.RemoteJobID))
	}

	if w.uploader != nil && found {
		stop = timer.step("upload")
		upload := w.uploader.Upload(ctx, video, job.ID)
		stop()
		if upload.OK {
			job.UploadURL = upload.URL
		} else {
			// Upload failure is part of the result, never fatal to the job.
			log.Warn("video upload failed", logging.String("reason", upload.Reason))
		}
	}
	return nil
}

func (w *Worker) awaitTerminal(ctx context.Context, remoteJobID string) (*sdapi.JobState, error) {
	for {
		state, err := w.client.JobStatus(ctx, remoteJobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, services.Wrap(services.ErrTimeout, "bridge", "await render",
					"job budget exhausted", ctx.Err())
			}
			return nil, err
		}
		if state.Terminal() {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return nil, services.Wrap(services.ErrTimeout, "bridge", "await render",
				"job budget exhausted", ctx.Err())
		case <-time.After(w.resultPoll):
		}
	}
}
