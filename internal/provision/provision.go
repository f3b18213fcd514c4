package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"gantry/internal/fileutil"
	"gantry/internal/logging"
)

// Artifact names an external file with two accepted filename variants.
type Artifact struct {
	Name         string
	Dir          string
	PrimaryExt   string
	AlternateExt string
	SourceURL    string
}

// Outcome classifies the result of provisioning one artifact.
type Outcome string

const (
	OutcomePresent    Outcome = "present"
	OutcomeDownloaded Outcome = "downloaded"
	OutcomeSkipped    Outcome = "skipped"
)

// Result reports where an artifact ended up, or why provisioning was skipped.
type Result struct {
	Outcome Outcome
	Path    string
	Reason  string
}

// statfs is swapped in tests to simulate full disks.
var statfs = unix.Statfs

// Provisioner fetches absent artifacts and maintains filename aliases.
type Provisioner struct {
	client       *http.Client
	logger       *slog.Logger
	minFreeBytes uint64
}

// New constructs a Provisioner. downloadTimeout bounds the whole transfer.
func New(logger *slog.Logger, downloadTimeout time.Duration, minFreeGiB int) *Provisioner {
	if downloadTimeout <= 0 {
		downloadTimeout = 10 * time.Minute
	}
	return &Provisioner{
		client:       &http.Client{Timeout: downloadTimeout},
		logger:       logging.WithComponent(logger, "provision"),
		minFreeBytes: uint64(minFreeGiB) << 30,
	}
}

// Ensure resolves the artifact under one of its accepted names, downloading
// it when absent and a source URL is configured. Failures surface as
// Skipped; the caller continues without the artifact.
func (p *Provisioner) Ensure(ctx context.Context, artifact Artifact) Result {
	primary := filepath.Join(artifact.Dir, artifact.Name+artifact.PrimaryExt)
	alternate := filepath.Join(artifact.Dir, artifact.Name+artifact.AlternateExt)

	if path, other, ok := firstExisting(primary, alternate); ok {
		p.logger.Info("artifact already present", logging.String("artifact", artifact.Name), logging.String("path", path))
		p.ensureAlias(path, other)
		return Result{Outcome: OutcomePresent, Path: path}
	}

	if strings.TrimSpace(artifact.SourceURL) == "" {
		p.logger.Warn("artifact absent and no source url configured; continuing without it",
			logging.String("artifact", artifact.Name))
		return Result{Outcome: OutcomeSkipped, Reason: "no source url"}
	}

	if err := p.checkFreeSpace(artifact.Dir); err != nil {
		p.logger.Warn("skipping artifact download", logging.String("artifact", artifact.Name), logging.Error(err))
		return Result{Outcome: OutcomeSkipped, Reason: err.Error()}
	}

	if err := os.MkdirAll(artifact.Dir, 0o755); err != nil {
		p.logger.Warn("skipping artifact download", logging.String("artifact", artifact.Name), logging.Error(err))
		return Result{Outcome: OutcomeSkipped, Reason: err.Error()}
	}

	start := time.Now()
	if err := p.download(ctx, artifact.SourceURL, primary); err != nil {
		p.logger.Warn("artifact download failed; continuing without it",
			logging.String("artifact", artifact.Name),
			logging.String("url", artifact.SourceURL),
			logging.Error(err))
		return Result{Outcome: OutcomeSkipped, Reason: err.Error()}
	}
	p.logger.Info("artifact downloaded",
		logging.String("artifact", artifact.Name),
		logging.String("path", primary),
		logging.Duration("elapsed", time.Since(start)))

	p.ensureAlias(primary, alternate)
	return Result{Outcome: OutcomeDownloaded, Path: primary}
}

func firstExisting(primary, alternate string) (found, other string, ok bool) {
	if fileutil.Exists(primary) {
		return primary, alternate, true
	}
	if fileutil.Exists(alternate) {
		return alternate, primary, true
	}
	return "", "", false
}

func (p *Provisioner) ensureAlias(target, alias string) {
	if err := fileutil.EnsureAlias(target, alias); err != nil {
		p.logger.Warn("failed to create artifact alias",
			logging.String("target", target),
			logging.String("alias", alias),
			logging.Error(err))
	}
}

func (p *Provisioner) checkFreeSpace(dir string) error {
	if p.minFreeBytes == 0 {
		return nil
	}
	probe := dir
	for probe != "" && !fileutil.Exists(probe) {
		probe = filepath.Dir(probe)
	}
	if probe == "" {
		return nil
	}
	var stat unix.Statfs_t
	if err := statfs(probe, &stat); err != nil {
		return nil
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < p.minFreeBytes {
		return fmt.Errorf("insufficient disk space: %d GiB free, %d GiB required",
			free>>30, p.minFreeBytes>>30)
	}
	return nil
}

// download streams the URL to path via a temporary file so a partial
// transfer never masquerades as a complete artifact.
func (p *Provisioner) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	tmp := path + ".partial"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
