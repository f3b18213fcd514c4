package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gantry/internal/deps"
	"gantry/internal/fileutil"
	"gantry/internal/logging"
	"gantry/internal/patch"
	"gantry/internal/probe"
	"gantry/internal/provision"
	"gantry/internal/supervise"
)

// bootstrap runs the one-shot startup sequence: provision the model
// artifact, patch the extension source, preflight external binaries, spawn
// the service, and wait for it to answer. Only a fatal readiness timeout
// aborts startup; every other failure is logged and the daemon continues
// degraded.
func (d *Daemon) bootstrap(ctx context.Context) error {
	cfg := d.cfg

	provisioner := provision.New(
		d.logger,
		time.Duration(cfg.Provision.DownloadTimeout)*time.Second,
		cfg.Provision.MinFreeGiB,
	)
	result := provisioner.Ensure(ctx, provision.Artifact{
		Name:         cfg.Provision.ModelName,
		Dir:          cfg.Paths.ModelsDir,
		PrimaryExt:   ".safetensors",
		AlternateExt: ".ckpt",
		SourceURL:    cfg.Provision.ModelURL,
	})
	checkpoint := cfg.WebUI.CheckpointPath
	if checkpoint == "" {
		checkpoint = result.Path
	}

	if cfg.Patch.Enabled {
		patcher := patch.New(d.logger)
		patcher.ApplyAll(patch.Rules(cfg))
	}

	// Missing binaries surface through the spawn and the readiness probe;
	// the preflight only names them up front.
	for _, status := range deps.CheckBinaries(d.requirements()) {
		if status.Available {
			continue
		}
		d.logger.Warn("dependency missing",
			logging.String("dependency", status.Name),
			logging.Bool("optional", status.Optional),
			logging.String("detail", status.Detail))
	}

	handle, err := supervise.Spawn(d.logger, supervise.Spec{
		Executable: cfg.WebUI.Python,
		Args:       d.launchArgs(checkpoint),
		WorkDir:    cfg.Paths.WebUIDir,
		LogPath:    filepath.Join(cfg.Paths.LogDir, "webui.log"),
	})
	if err != nil {
		// The probe below reports the absent service; readiness policy
		// decides whether that is fatal.
		d.logger.Warn("failed to spawn service", logging.Error(err))
	}
	d.service = handle

	outcome := probe.WaitReady(ctx, d.logger, d.client.HealthURL(),
		time.Duration(cfg.Probe.IntervalSeconds)*time.Second,
		cfg.Probe.MaxAttempts,
	)
	if outcome == probe.Ready {
		d.ready.Store(true)
		return nil
	}
	if cfg.Probe.FatalOnTimeout {
		return fmt.Errorf("service at %s not ready within %d probes", d.client.BaseURL(), cfg.Probe.MaxAttempts)
	}
	d.logger.Warn("continuing without a ready service; queued jobs will fail until it answers",
		logging.String("url", d.client.HealthURL()))
	return nil
}

// launchArgs assembles the service command line from the configured extra
// arguments, the API port, and the checkpoint resolved during provisioning.
func (d *Daemon) launchArgs(checkpoint string) []string {
	cfg := d.cfg

	args := []string{cfg.WebUI.LaunchScript}
	args = append(args, strings.Fields(cfg.WebUI.ExtraArgs)...)
	args = append(args, "--port", strconv.Itoa(cfg.WebUI.Port))
	if checkpoint != "" && fileutil.Exists(checkpoint) {
		args = append(args, "--no-download-sd-model", "--ckpt", checkpoint, "--skip-install")
	}
	return args
}

func (d *Daemon) requirements() []deps.Requirement {
	return []deps.Requirement{
		{
			Name:        "python",
			Command:     d.cfg.WebUI.Python,
			Description: "WebUI interpreter (usually the venv python)",
		},
		{
			Name:        "ffmpeg",
			Command:     "ffmpeg",
			Description: "video assembly for rendered frames",
			Optional:    true,
		},
	}
}
