package main

import (
	"context"
	"fmt"

	"lexsync/internal/logging"
	"lexsync/internal/manager"
	"lexsync/internal/notify"
	"lexsync/internal/platform"
	"lexsync/internal/processor"
	"lexsync/internal/queue"
)

// withLocalManager runs fn against a manager backed directly by the queue
// store, bypassing the daemon. Enqueue, list, and stats need no remote
// processor; pass needProcessors for operations that drain.
func (c *commandContext) withLocalManager(needProcessors bool, fn func(ctx context.Context, mgr *manager.Manager) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	logger := logging.NewNop()
	var queries processor.QueryProcessor
	var docs processor.DocumentProcessor
	if needProcessors {
		client, err := processor.NewClient(cfg, logger)
		if err != nil {
			return err
		}
		queries = client
		docs = client
	}

	host := platform.NewHostServices(cfg)
	notifier := notify.NewService(cfg, logger)
	mgr := manager.New(cfg, store, queries, docs, notifier, host, logger)
	return fn(context.Background(), mgr)
}
