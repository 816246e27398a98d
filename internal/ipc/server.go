package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"lexsync/internal/coordinator"
	"lexsync/internal/daemon"
	"lexsync/internal/logging"
	"lexsync/internal/queue"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("LexSync", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the socket file manually before the next start"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) EnqueueQuery(req EnqueueQueryRequest, resp *EnqueueQueryResponse) error {
	item, err := s.daemon.EnqueueQuery(s.ctx, req.Payload, req.Context, req.MaxRetries)
	if err != nil {
		return err
	}
	resp.ID = item.ID
	resp.EnqueuedAt = item.EnqueuedAt
	return nil
}

func (s *service) EnqueueDocument(req EnqueueDocumentRequest, resp *EnqueueDocumentResponse) error {
	sourcePath := strings.TrimSpace(req.SourcePath)
	if sourcePath == "" {
		return errors.New("source path is required")
	}
	file, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer file.Close()

	item, err := s.daemon.EnqueueDocument(s.ctx, filepath.Base(sourcePath), file, req.Options)
	if err != nil {
		return err
	}
	resp.ID = item.ID
	resp.Filename = item.Filename
	resp.EnqueuedAt = item.EnqueuedAt
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	var kind queue.Kind
	if req.Kind != "" {
		parsed, ok := queue.ParseKind(req.Kind)
		if !ok {
			return fmt.Errorf("unknown kind %q", req.Kind)
		}
		kind = parsed
	}
	items, err := s.daemon.ListPending(s.ctx, kind)
	if err != nil {
		return err
	}
	resp.Items = items
	return nil
}

func (s *service) Stats(_ StatsRequest, resp *StatsResponse) error {
	stats, err := s.daemon.Stats(s.ctx)
	if err != nil {
		return err
	}
	resp.Stats = stats
	return nil
}

func (s *service) Drain(req DrainRequest, resp *DrainResponse) error {
	kind, ok := queue.ParseKind(req.Kind)
	if !ok {
		return fmt.Errorf("unknown kind %q", req.Kind)
	}
	summary, err := s.daemon.Drain(s.ctx, kind)
	if err != nil {
		return err
	}
	resp.Summary = summary
	return nil
}

func (s *service) Sync(_ SyncRequest, resp *SyncResponse) error {
	summaries, err := s.daemon.SyncNow(s.ctx)
	if err != nil {
		if errors.Is(err, coordinator.ErrOffline) {
			resp.Offline = true
			return nil
		}
		return err
	}
	resp.Summaries = summaries
	return nil
}

func (s *service) ClearCompleted(_ ClearCompletedRequest, resp *ClearCompletedResponse) error {
	removed, err := s.daemon.ClearCompleted(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.logger.Info("completed items cleared via IPC",
		logging.String(logging.FieldEventType, "clear_completed"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.QueueDBPath = status.QueueDBPath
	resp.LockPath = status.LockPath
	resp.SocketPath = status.SocketPath
	resp.Stats = status.Stats
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}
