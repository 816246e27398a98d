package config

import "strings"

// normalize expands path fields and backfills zero values with defaults so
// partial config files behave predictably.
func (c *Config) normalize() error {
	defaults := Default()

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaults.Paths.DataDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaults.Paths.LogDir
	}
	if strings.TrimSpace(c.Paths.BlobDir) == "" {
		c.Paths.BlobDir = defaults.Paths.BlobDir
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = defaults.Paths.SocketPath
	}

	for _, field := range []*string{
		&c.Paths.DataDir,
		&c.Paths.LogDir,
		&c.Paths.BlobDir,
		&c.Paths.SocketPath,
	} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	if c.Queue.DefaultMaxRetries == 0 {
		c.Queue.DefaultMaxRetries = defaults.Queue.DefaultMaxRetries
	}
	if c.Processor.RequestTimeout == 0 {
		c.Processor.RequestTimeout = defaults.Processor.RequestTimeout
	}
	if c.Processor.UploadTimeout == 0 {
		c.Processor.UploadTimeout = defaults.Processor.UploadTimeout
	}
	c.Processor.BaseURL = strings.TrimRight(strings.TrimSpace(c.Processor.BaseURL), "/")

	if strings.TrimSpace(c.Sync.ProbeAddress) == "" {
		c.Sync.ProbeAddress = defaults.Sync.ProbeAddress
	}
	if c.Sync.ProbeTimeout == 0 {
		c.Sync.ProbeTimeout = defaults.Sync.ProbeTimeout
	}
	if c.Sync.PollInterval == 0 {
		c.Sync.PollInterval = defaults.Sync.PollInterval
	}

	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaults.Notifications.RequestTimeout
	}
	c.Notifications.WebhookURL = strings.TrimSpace(c.Notifications.WebhookURL)

	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}

	return nil
}
