package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WebUIDir   string   `toml:"webui_dir"`
	ModelsDir  string   `toml:"models_dir"`
	OutputDirs []string `toml:"output_dirs"`
	LogDir     string   `toml:"log_dir"`
	APIBind    string   `toml:"api_bind"`
}

// WebUI describes how the supervised Stable Diffusion WebUI process is launched.
type WebUI struct {
	Python         string `toml:"python"`
	LaunchScript   string `toml:"launch_script"`
	Port           int    `toml:"port"`
	ExtraArgs      string `toml:"extra_args"`
	CheckpointPath string `toml:"checkpoint_path"`
}

// Provision configures model artifact provisioning.
type Provision struct {
	ModelName       string `toml:"model_name"`
	ModelURL        string `toml:"model_url"`
	DownloadTimeout int    `toml:"download_timeout"`
	MinFreeGiB      int    `toml:"min_free_gib"`
}

// Patch configures the source patch rules applied before launch.
type Patch struct {
	Enabled           bool `toml:"enabled"`
	DisableControlNet bool `toml:"disable_controlnet"`
}

// Probe configures the readiness probe against the WebUI API.
type Probe struct {
	IntervalSeconds int  `toml:"interval_seconds"`
	MaxAttempts     int  `toml:"max_attempts"`
	FatalOnTimeout  bool `toml:"fatal_on_timeout"`
}

// Bridge configures the job bridge worker.
type Bridge struct {
	PollInterval       int `toml:"poll_interval"`
	JobTimeout         int `toml:"job_timeout"`
	ResultPollInterval int `toml:"result_poll_interval"`
}

// Upload configures optional blob storage for rendered videos.
type Upload struct {
	BlobBase       string `toml:"blob_base"`
	BlobToken      string `toml:"blob_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for gantry.
//
// Configuration sections by subsystem:
//   - Paths: WebUI installation layout, output scan roots, API bind address
//   - WebUI: interpreter, launch script, port, and relaunch arguments
//   - Provision: model artifact name, source URL, and download limits
//   - Patch: source patch toggles applied before launch
//   - Probe: readiness polling interval, attempt budget, and timeout policy
//   - Bridge: job polling and per-job relay timeouts
//   - Upload: optional blob storage for rendered videos
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	WebUI     WebUI     `toml:"webui"`
	Provision Provision `toml:"provision"`
	Patch     Patch     `toml:"patch"`
	Probe     Probe     `toml:"probe"`
	Bridge    Bridge    `toml:"bridge"`
	Upload    Upload    `toml:"upload"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/gantry/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("gantry.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, c.Paths.ModelsDir}
	dirs = append(dirs, c.Paths.OutputDirs...)
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LocalAPIBase returns the base URL of the supervised WebUI REST API.
func (c *Config) LocalAPIBase() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.WebUI.Port)
}

// ExtensionsDir returns the WebUI extensions directory.
func (c *Config) ExtensionsDir() string {
	return filepath.Join(c.Paths.WebUIDir, "extensions")
}

// DeforumDir returns the install directory of the Deforum extension.
func (c *Config) DeforumDir() string {
	return filepath.Join(c.ExtensionsDir(), "sd-webui-deforum")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
