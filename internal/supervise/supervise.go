package supervise

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"gantry/internal/logging"
)

// Spec describes the process to launch.
type Spec struct {
	Executable string
	Args       []string
	WorkDir    string
	LogPath    string
}

// Handle owns one spawned service process.
type Handle struct {
	PID     int
	LogPath string

	cmd    *exec.Cmd
	exited atomic.Bool
	done   chan struct{}
}

// Spawn starts the service in its own session with stdout and stderr
// redirected to the spec's log file. Failure to spawn is returned to the
// caller, who treats it as advisory; subsequent readiness probes surface
// the missing service.
func Spawn(logger *slog.Logger, spec Spec) (*Handle, error) {
	log := logging.WithComponent(logger, "supervise")

	if spec.Executable == "" {
		return nil, errors.New("executable required")
	}

	var output *os.File
	if spec.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(spec.LogPath), 0o755); err != nil {
			return nil, fmt.Errorf("ensure service log directory: %w", err)
		}
		file, err := os.OpenFile(spec.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open service log: %w", err)
		}
		output = file
	}

	cmd := exec.Command(spec.Executable, spec.Args...) //nolint:gosec
	cmd.Dir = spec.WorkDir
	cmd.Env = os.Environ()
	if output != nil {
		cmd.Stdout = output
		cmd.Stderr = output
	}
	// Own session: the child survives supervisor signals and can be torn
	// down as a group at shutdown.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		if output != nil {
			_ = output.Close()
		}
		return nil, fmt.Errorf("start service: %w", err)
	}

	handle := &Handle{
		PID:     cmd.Process.Pid,
		LogPath: spec.LogPath,
		cmd:     cmd,
		done:    make(chan struct{}),
	}

	log.Info("service spawned",
		logging.Int("pid", handle.PID),
		logging.String("executable", spec.Executable),
		logging.String("log", spec.LogPath))

	go func() {
		defer close(handle.done)
		err := cmd.Wait()
		if output != nil {
			_ = output.Close()
		}
		handle.exited.Store(true)
		if err != nil {
			log.Warn("service exited; probes and relays will fail until restart",
				logging.Int("pid", handle.PID), logging.Error(err))
			return
		}
		log.Info("service exited cleanly", logging.Int("pid", handle.PID))
	}()

	return handle, nil
}

// Running reports whether the child has not yet been reaped.
func (h *Handle) Running() bool {
	if h == nil {
		return false
	}
	return !h.exited.Load()
}

// Done is closed once the child exits.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Signal delivers sig to the service's whole process group.
func (h *Handle) Signal(sig syscall.Signal) error {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return errors.New("no process")
	}
	if h.exited.Load() {
		return nil
	}
	return unix.Kill(-h.PID, sig)
}
