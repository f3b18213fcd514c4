package supervise_test

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"gantry/internal/logging"
	"gantry/internal/supervise"
)

func TestSpawnRedirectsOutputAndReapsChild(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "service.log")

	handle, err := supervise.Spawn(logging.NewNop(), supervise.Spec{
		Executable: "/bin/sh",
		Args:       []string{"-c", "echo service-started; exit 0"},
		WorkDir:    dir,
		LogPath:    logPath,
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if handle.PID <= 0 {
		t.Fatalf("expected a positive pid, got %d", handle.PID)
	}

	select {
	case <-handle.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("child did not exit")
	}
	if handle.Running() {
		t.Fatal("handle still reports running after exit")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read service log: %v", err)
	}
	if !strings.Contains(string(data), "service-started") {
		t.Fatalf("child output not redirected to log: %q", string(data))
	}
}

func TestSpawnRejectsEmptyExecutable(t *testing.T) {
	if _, err := supervise.Spawn(logging.NewNop(), supervise.Spec{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}

func TestSpawnMissingExecutable(t *testing.T) {
	if _, err := supervise.Spawn(logging.NewNop(), supervise.Spec{
		Executable: filepath.Join(t.TempDir(), "absent"),
	}); err == nil {
		t.Fatal("expected error for missing executable")
	}
}

func TestSignalTerminatesProcessGroup(t *testing.T) {
	handle, err := supervise.Spawn(logging.NewNop(), supervise.Spec{
		Executable: "/bin/sh",
		Args:       []string{"-c", "sleep 60"},
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if !handle.Running() {
		t.Fatal("expected child to be running")
	}

	if err := handle.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("Signal: %v", err)
	}

	select {
	case <-handle.Done():
	case <-time.After(10 * time.Second):
		_ = handle.Signal(syscall.SIGKILL)
		t.Fatal("child ignored SIGTERM")
	}
}

func TestSignalAfterExitIsNoop(t *testing.T) {
	handle, err := supervise.Spawn(logging.NewNop(), supervise.Spec{
		Executable: "/bin/sh",
		Args:       []string{"-c", "exit 0"},
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	<-handle.Done()

	if err := handle.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("Signal after exit: %v", err)
	}
}
