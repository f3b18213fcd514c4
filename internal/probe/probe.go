package probe

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gantry/internal/logging"
)

// Outcome is the terminal state of a readiness wait.
type Outcome string

const (
	Ready    Outcome = "ready"
	TimedOut Outcome = "timed_out"
)

const requestTimeout = 5 * time.Second

// WaitReady polls url with a short-timeout GET until a 2xx response or the
// attempt budget is exhausted. The first success returns Ready immediately
// with no trailing sleep. Exactly maxAttempts probes are issued before
// TimedOut. Context cancellation aborts the wait and reports TimedOut.
func WaitReady(ctx context.Context, logger *slog.Logger, url string, interval time.Duration, maxAttempts int) Outcome {
	log := logging.WithComponent(logger, "probe")
	client := &http.Client{Timeout: requestTimeout}

	start := time.Now()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return TimedOut
		}
		if probeOnce(ctx, client, url) {
			log.Info("service ready",
				logging.Int("attempts", attempt),
				logging.Duration("elapsed", time.Since(start)))
			return Ready
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return TimedOut
		case <-time.After(interval):
		}
	}

	log.Warn("service not ready within attempt budget",
		logging.Int("attempts", maxAttempts),
		logging.Duration("elapsed", time.Since(start)),
		logging.String("url", url))
	return TimedOut
}

func probeOnce(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
