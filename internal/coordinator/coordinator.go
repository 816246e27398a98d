// Package coordinator watches host connectivity and triggers queue drains
// when the host comes back online.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"lexsync/internal/config"
	"lexsync/internal/logging"
	"lexsync/internal/manager"
	"lexsync/internal/platform"
	"lexsync/internal/queue"
)

// ErrOffline is returned by SyncNow when the host has no connectivity.
var ErrOffline = errors.New("host is offline")

// Coordinator polls connectivity and drains the queue on the offline to
// online transition. Registered sync tags narrow the drain to the kinds
// that actually have interest; with no registrations every kind drains.
type Coordinator struct {
	mgr          *manager.Manager
	host         platform.Services
	pollInterval time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// tagRegistry is implemented by hosts that track registered sync interest.
type tagRegistry interface {
	RegisteredTags() []string
}

// New builds a coordinator. It does nothing until Start is called.
func New(cfg *config.Config, mgr *manager.Manager, host platform.Services, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := time.Duration(cfg.Sync.PollInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Coordinator{
		mgr:          mgr,
		host:         host,
		pollInterval: interval,
		logger:       logging.NewComponentLogger(logger, "coordinator"),
	}
}

// Start launches the connectivity watcher. The first poll treats the host
// as previously offline, so starting up with connectivity drains whatever
// accumulated while the process was down.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("coordinator already started")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.started = true

	go c.watch(watchCtx)
	return nil
}

// Stop halts the watcher and waits for the in-flight poll to finish.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.done
	c.started = false
	c.mu.Unlock()

	cancel()
	<-done
}

func (c *Coordinator) watch(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	wasOnline := false
	for {
		online := c.host.IsOnline(ctx)
		if online && !wasOnline {
			c.logger.Info("connectivity restored",
				logging.String(logging.FieldEventType, "online"),
			)
			c.drain(ctx)
		}
		wasOnline = online

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncNow drains immediately when online and returns ErrOffline otherwise.
func (c *Coordinator) SyncNow(ctx context.Context) ([]manager.DrainSummary, error) {
	if !c.host.IsOnline(ctx) {
		return nil, ErrOffline
	}
	return c.drainKinds(ctx, queue.Kinds())
}

func (c *Coordinator) drain(ctx context.Context) {
	kinds := c.interestedKinds()
	if len(kinds) == 0 {
		return
	}
	if _, err := c.drainKinds(ctx, kinds); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("background drain failed", logging.Error(err))
	}
}

func (c *Coordinator) drainKinds(ctx context.Context, kinds []queue.Kind) ([]manager.DrainSummary, error) {
	var summaries []manager.DrainSummary
	for _, kind := range kinds {
		summary, err := c.mgr.Drain(ctx, kind)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// interestedKinds maps registered sync tags back to kinds. Hosts without a
// tag registry drain every kind on each wake-up.
func (c *Coordinator) interestedKinds() []queue.Kind {
	registry, ok := c.host.(tagRegistry)
	if !ok {
		return queue.Kinds()
	}
	tags := registry.RegisteredTags()
	if len(tags) == 0 {
		return queue.Kinds()
	}
	var kinds []queue.Kind
	for _, tag := range tags {
		switch tag {
		case platform.QuerySyncTag:
			kinds = append(kinds, queue.KindQuery)
		case platform.DocumentSyncTag:
			kinds = append(kinds, queue.KindDocument)
		}
	}
	if len(kinds) == 0 {
		return queue.Kinds()
	}
	return kinds
}
