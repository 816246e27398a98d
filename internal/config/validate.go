package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	if c.Queue.DefaultMaxRetries < 1 {
		problems = append(problems, "queue.default_max_retries must be at least 1")
	}
	if c.Processor.RequestTimeout < 1 {
		problems = append(problems, "processor.request_timeout must be at least 1 second")
	}
	if c.Processor.UploadTimeout < 1 {
		problems = append(problems, "processor.upload_timeout must be at least 1 second")
	}
	if c.Processor.BaseURL != "" {
		if u, err := url.Parse(c.Processor.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("processor.base_url %q is not a valid URL", c.Processor.BaseURL))
		}
	}
	if c.Sync.ProbeTimeout < 1 {
		problems = append(problems, "sync.probe_timeout must be at least 1 second")
	}
	if c.Sync.PollInterval < 1 {
		problems = append(problems, "sync.poll_interval must be at least 1 second")
	}
	if !strings.Contains(c.Sync.ProbeAddress, ":") {
		problems = append(problems, fmt.Sprintf("sync.probe_address %q must be host:port", c.Sync.ProbeAddress))
	}
	if c.Notifications.WebhookURL != "" {
		if u, err := url.Parse(c.Notifications.WebhookURL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("notifications.webhook_url %q is not a valid URL", c.Notifications.WebhookURL))
		}
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
