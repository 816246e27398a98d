package platform

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"lexsync/internal/config"
)

// HostServices implements Services for a regular OS process. Connectivity
// is decided by dialing a probe endpoint; registered tags are held in
// memory for the coordinator's watcher to consume.
type HostServices struct {
	probeAddress string
	probeTimeout time.Duration
	dialer       *net.Dialer

	mu   sync.Mutex
	tags map[string]struct{}
}

// NewHostServices builds host services from configuration.
func NewHostServices(cfg *config.Config) *HostServices {
	return &HostServices{
		probeAddress: cfg.Sync.ProbeAddress,
		probeTimeout: time.Duration(cfg.Sync.ProbeTimeout) * time.Second,
		dialer:       &net.Dialer{},
		tags:         make(map[string]struct{}),
	}
}

// IsOnline dials the probe endpoint with a short timeout.
func (h *HostServices) IsOnline(ctx context.Context) bool {
	dialCtx, cancel := context.WithTimeout(ctx, h.probeTimeout)
	defer cancel()

	conn, err := h.dialer.DialContext(dialCtx, "tcp", h.probeAddress)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// RegisterSyncInterest records the tag for the connectivity watcher.
func (h *HostServices) RegisterSyncInterest(_ context.Context, tag string) error {
	if tag == "" {
		return errors.New("sync tag must not be empty")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tags[tag] = struct{}{}
	return nil
}

// RegisteredTags returns the tags registered so far, sorted for stable output.
func (h *HostServices) RegisteredTags() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	tags := make([]string, 0, len(h.tags))
	for tag := range h.tags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
