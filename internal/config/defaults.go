package config

const (
	defaultDataDir    = "~/.local/share/lexsync"
	defaultLogDir     = "~/.local/share/lexsync/logs"
	defaultBlobDir    = "~/.local/share/lexsync/blobs"
	defaultSocketPath = "~/.local/share/lexsync/lexsyncd.sock"

	defaultMaxRetries = 3

	defaultProcessorRequestTimeout = 120
	defaultProcessorUploadTimeout  = 300

	defaultSyncProbeAddress = "1.1.1.1:443"
	defaultSyncProbeTimeout = 3
	defaultSyncPollInterval = 15

	defaultWebhookTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			BlobDir:    defaultBlobDir,
			SocketPath: defaultSocketPath,
		},
		Queue: Queue{
			DefaultMaxRetries: defaultMaxRetries,
		},
		Processor: Processor{
			RequestTimeout: defaultProcessorRequestTimeout,
			UploadTimeout:  defaultProcessorUploadTimeout,
		},
		Sync: Sync{
			ProbeAddress: defaultSyncProbeAddress,
			ProbeTimeout: defaultSyncProbeTimeout,
			PollInterval: defaultSyncPollInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultWebhookTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
