package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWebUI(); err != nil {
		return err
	}
	c.normalizeProvision()
	c.normalizePatch()
	c.normalizeBridge()
	c.normalizeUpload()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WebUIDir, err = expandPath(c.Paths.WebUIDir); err != nil {
		return fmt.Errorf("paths.webui_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ModelsDir) == "" {
		c.Paths.ModelsDir = filepath.Join(c.Paths.WebUIDir, "models", "Stable-diffusion")
	}
	if c.Paths.ModelsDir, err = expandPath(c.Paths.ModelsDir); err != nil {
		return fmt.Errorf("paths.models_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if len(c.Paths.OutputDirs) == 0 {
		c.Paths.OutputDirs = []string{
			defaultOutputDir,
			filepath.Join(c.Paths.WebUIDir, "outputs", "deforum"),
		}
	}
	for i, dir := range c.Paths.OutputDirs {
		if c.Paths.OutputDirs[i], err = expandPath(dir); err != nil {
			return fmt.Errorf("paths.output_dirs: %w", err)
		}
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeWebUI() error {
	var err error
	if strings.TrimSpace(c.WebUI.Python) == "" {
		c.WebUI.Python = filepath.Join(c.Paths.WebUIDir, "venv", "bin", "python")
	}
	if c.WebUI.Python, err = expandPath(c.WebUI.Python); err != nil {
		return fmt.Errorf("webui.python: %w", err)
	}
	c.WebUI.LaunchScript = strings.TrimSpace(c.WebUI.LaunchScript)
	if c.WebUI.LaunchScript == "" {
		c.WebUI.LaunchScript = defaultLaunchScript
	}
	if value, ok := os.LookupEnv("A1111_PORT"); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && port > 0 {
			c.WebUI.Port = port
		}
	}
	if c.WebUI.Port == 0 {
		c.WebUI.Port = defaultWebUIPort
	}
	if value, ok := os.LookupEnv("COMMANDLINE_ARGS"); ok && strings.TrimSpace(value) != "" {
		c.WebUI.ExtraArgs = strings.TrimSpace(value)
	}
	c.WebUI.CheckpointPath = strings.TrimSpace(c.WebUI.CheckpointPath)
	if c.WebUI.CheckpointPath == "" {
		if value, ok := os.LookupEnv("CKPT_PATH"); ok {
			c.WebUI.CheckpointPath = strings.TrimSpace(value)
		}
	}
	if c.WebUI.CheckpointPath != "" {
		if c.WebUI.CheckpointPath, err = expandPath(c.WebUI.CheckpointPath); err != nil {
			return fmt.Errorf("webui.checkpoint_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeProvision() {
	c.Provision.ModelName = strings.TrimSpace(c.Provision.ModelName)
	if c.Provision.ModelName == "" {
		c.Provision.ModelName = defaultModelName
	}
	c.Provision.ModelURL = strings.TrimSpace(c.Provision.ModelURL)
	if c.Provision.ModelURL == "" {
		if value, ok := os.LookupEnv("MODEL_URL"); ok {
			c.Provision.ModelURL = strings.TrimSpace(value)
		}
	}
	if c.Provision.DownloadTimeout <= 0 {
		c.Provision.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Provision.MinFreeGiB < 0 {
		c.Provision.MinFreeGiB = 0
	}
}

func (c *Config) normalizePatch() {
	if value, ok := os.LookupEnv("DISABLE_CONTROLNET"); ok {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes":
			c.Patch.DisableControlNet = true
		}
	}
}

func (c *Config) normalizeBridge() {
	if c.Bridge.PollInterval <= 0 {
		c.Bridge.PollInterval = defaultBridgePollInterval
	}
	if c.Bridge.JobTimeout <= 0 {
		c.Bridge.JobTimeout = defaultBridgeJobTimeout
	}
	if value, ok := os.LookupEnv("DEFORUM_JOB_TIMEOUT"); ok {
		if secs, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && secs > 0 {
			c.Bridge.JobTimeout = secs
		}
	}
	if c.Bridge.ResultPollInterval <= 0 {
		c.Bridge.ResultPollInterval = defaultResultPollInterval
	}
}

func (c *Config) normalizeUpload() {
	c.Upload.BlobBase = strings.TrimSpace(c.Upload.BlobBase)
	if c.Upload.BlobBase == "" {
		for _, key := range []string{"VERCEL_BLOB_BASE", "BLOB_BASE"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.Upload.BlobBase = strings.TrimSpace(value)
				break
			}
		}
	}
	c.Upload.BlobToken = strings.TrimSpace(c.Upload.BlobToken)
	if c.Upload.BlobToken == "" {
		for _, key := range []string{"VERCEL_BLOB_RW_TOKEN", "VERCEL_BLOB_READ_WRITE_TOKEN", "VERCEL_BLOB_TOKEN"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.Upload.BlobToken = strings.TrimSpace(value)
				break
			}
		}
	}
	if c.Upload.TimeoutSeconds <= 0 {
		c.Upload.TimeoutSeconds = defaultUploadTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
