package config

const (
	defaultWebUIDir           = "/workspace/stable-diffusion-webui"
	defaultLogDir             = "/workspace/logs"
	defaultOutputDir          = "/workspace/outputs/deforum"
	defaultAPIBind            = "127.0.0.1:7878"
	defaultLaunchScript       = "launch.py"
	defaultWebUIPort          = 3001
	defaultWebUIExtraArgs     = "--nowebui --xformers --api --enable-insecure-extension-access"
	defaultModelName          = "sd-v1-5"
	defaultDownloadTimeout    = 600
	defaultMinFreeGiB         = 5
	defaultProbeInterval      = 1
	defaultProbeMaxAttempts   = 300
	defaultBridgePollInterval = 2
	defaultBridgeJobTimeout   = 900
	defaultResultPollInterval = 5
	defaultUploadTimeout      = 180
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WebUIDir:   defaultWebUIDir,
			OutputDirs: []string{defaultOutputDir},
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		WebUI: WebUI{
			LaunchScript: defaultLaunchScript,
			Port:         defaultWebUIPort,
			ExtraArgs:    defaultWebUIExtraArgs,
		},
		Provision: Provision{
			ModelName:       defaultModelName,
			DownloadTimeout: defaultDownloadTimeout,
			MinFreeGiB:      defaultMinFreeGiB,
		},
		Patch: Patch{
			Enabled: true,
		},
		Probe: Probe{
			IntervalSeconds: defaultProbeInterval,
			MaxAttempts:     defaultProbeMaxAttempts,
		},
		Bridge: Bridge{
			PollInterval:       defaultBridgePollInterval,
			JobTimeout:         defaultBridgeJobTimeout,
			ResultPollInterval: defaultResultPollInterval,
		},
		Upload: Upload{
			TimeoutSeconds: defaultUploadTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
