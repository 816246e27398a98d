// Command lexsyncd runs the offline queue daemon: it owns the queue store,
// watches connectivity, drains pending actions against the remote
// processor, and serves the CLI over a Unix socket.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"lexsync/internal/config"
	"lexsync/internal/coordinator"
	"lexsync/internal/daemon"
	"lexsync/internal/ipc"
	"lexsync/internal/logging"
	"lexsync/internal/manager"
	"lexsync/internal/notify"
	"lexsync/internal/platform"
	"lexsync/internal/processor"
	"lexsync/internal/queue"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	procClient, err := processor.NewClient(cfg, logger)
	if err != nil {
		logger.Error("configure processor client", logging.Error(err))
		store.Close()
		return
	}

	host := platform.NewHostServices(cfg)
	notifier := notify.NewService(cfg, logger)
	mgr := manager.New(cfg, store, procClient, procClient, notifier, host, logger)
	coord := coordinator.New(cfg, mgr, host, logger)

	d, err := daemon.New(cfg, store, mgr, coord, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		store.Close()
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("lexsyncd shutting down")
}
