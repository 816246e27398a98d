package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"lexsync/internal/config"
	"lexsync/internal/logging"
	"lexsync/internal/notify"
	"lexsync/internal/platform"
	"lexsync/internal/processor"
	"lexsync/internal/queue"
)

// Validation failures returned by the enqueue operations.
var (
	ErrEmptyPayload  = errors.New("query payload must not be empty")
	ErrEmptyFilename = errors.New("document filename must not be empty")
	ErrNilContent    = errors.New("document content must not be nil")
)

// Manager coordinates the two offline collections. All dependencies are
// injected so tests can swap the processors and notifier.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	queries  processor.QueryProcessor
	docs     processor.DocumentProcessor
	notifier notify.Service
	host     platform.Services
	logger   *slog.Logger

	queryDrain    sync.Mutex
	documentDrain sync.Mutex
}

// New builds a manager over the given store and collaborators.
func New(
	cfg *config.Config,
	store *queue.Store,
	queries processor.QueryProcessor,
	docs processor.DocumentProcessor,
	notifier notify.Service,
	host platform.Services,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		queries:  queries,
		docs:     docs,
		notifier: notifier,
		host:     host,
		logger:   logging.NewComponentLogger(logger, "manager"),
	}
}

// EnqueueQuery persists a new pending query. The payload is normalized to
// NFC before storage so retrieval returns a canonical form regardless of
// how the text was composed. maxRetries <= 0 selects the configured
// default.
func (m *Manager) EnqueueQuery(ctx context.Context, payload string, qctx *queue.QueryContext, maxRetries int) (*queue.QueuedQuery, error) {
	payload = norm.NFC.String(payload)
	if strings.TrimSpace(payload) == "" {
		return nil, ErrEmptyPayload
	}
	if maxRetries <= 0 {
		maxRetries = m.cfg.Queue.DefaultMaxRetries
	}

	item := queue.NewQuery(payload, qctx, maxRetries)
	if err := m.store.InsertQuery(ctx, item); err != nil {
		return nil, fmt.Errorf("enqueue query: %w", err)
	}

	m.logger.Info("query enqueued",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldEventType, "enqueued"),
		logging.Int("max_retries", maxRetries),
	)
	m.registerInterest(ctx, platform.QuerySyncTag)
	return item, nil
}

// EnqueueDocument spools the content into the blob directory and persists
// a new pending document. The blob outlives the calling process so the
// upload can happen on a later drain.
func (m *Manager) EnqueueDocument(ctx context.Context, filename string, content io.Reader, options *queue.DocumentOptions) (*queue.QueuedDocument, error) {
	filename = norm.NFC.String(strings.TrimSpace(filename))
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	if content == nil {
		return nil, ErrNilContent
	}

	blobPath, err := m.spoolBlob(filename, content)
	if err != nil {
		return nil, err
	}

	item := queue.NewDocument(filename, blobPath, options)
	if err := m.store.InsertDocument(ctx, item); err != nil {
		_ = os.Remove(blobPath)
		return nil, fmt.Errorf("enqueue document: %w", err)
	}

	m.logger.Info("document enqueued",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldEventType, "enqueued"),
		logging.String("filename", filename),
	)
	m.registerInterest(ctx, platform.DocumentSyncTag)
	return item, nil
}

func (m *Manager) spoolBlob(filename string, content io.Reader) (string, error) {
	if err := os.MkdirAll(m.cfg.Paths.BlobDir, 0o755); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}
	blobPath := filepath.Join(m.cfg.Paths.BlobDir, uuid.NewString()+filepath.Ext(filename))
	file, err := os.Create(blobPath)
	if err != nil {
		return "", fmt.Errorf("create blob file: %w", err)
	}
	if _, err := io.Copy(file, content); err != nil {
		file.Close()
		_ = os.Remove(blobPath)
		return "", fmt.Errorf("spool document content: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(blobPath)
		return "", fmt.Errorf("close blob file: %w", err)
	}
	return blobPath, nil
}

// registerInterest asks the host to wake us when connectivity returns.
// Registration failures are logged and otherwise ignored; the poll loop
// still finds the items.
func (m *Manager) registerInterest(ctx context.Context, tag string) {
	if m.host == nil {
		return
	}
	if err := m.host.RegisterSyncInterest(ctx, tag); err != nil {
		m.logger.Warn("sync interest registration failed",
			logging.Error(err),
			logging.String(logging.FieldSyncTag, tag),
			logging.String(logging.FieldErrorHint, "background drain falls back to polling"),
		)
	}
}

// ListPending returns pending items for the given kind, or for both kinds
// when kind is empty, oldest first.
func (m *Manager) ListPending(ctx context.Context, kind queue.Kind) ([]queue.PendingItem, error) {
	var items []queue.PendingItem

	if kind == "" || kind == queue.KindQuery {
		pending, err := m.store.QueriesByStatus(ctx, queue.StatusPending)
		if err != nil {
			return nil, err
		}
		for _, q := range pending {
			items = append(items, queue.PendingItem{
				ID:         q.ID,
				Kind:       queue.KindQuery,
				Summary:    summarizePayload(q.Payload),
				RetryCount: q.RetryCount,
				MaxRetries: q.MaxRetries,
				EnqueuedAt: q.EnqueuedAt,
			})
		}
	}

	if kind == "" || kind == queue.KindDocument {
		pending, err := m.store.DocumentsByStatus(ctx, queue.StatusPending)
		if err != nil {
			return nil, err
		}
		for _, d := range pending {
			items = append(items, queue.PendingItem{
				ID:         d.ID,
				Kind:       queue.KindDocument,
				Summary:    d.Filename,
				EnqueuedAt: d.EnqueuedAt,
			})
		}
	}

	return items, nil
}

const summaryLimit = 80

func summarizePayload(payload string) string {
	runes := []rune(payload)
	if len(runes) <= summaryLimit {
		return payload
	}
	return string(runes[:summaryLimit]) + "…"
}

// Stats returns per-status counts for both collections.
func (m *Manager) Stats(ctx context.Context) (queue.Stats, error) {
	return m.store.Stats(ctx)
}

// ClearCompleted removes completed items from both collections and returns
// how many were deleted. Calling it again immediately removes nothing.
func (m *Manager) ClearCompleted(ctx context.Context) (int64, error) {
	removed, err := m.store.ClearCompleted(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		m.logger.Info("completed items cleared", logging.Int64("removed", removed))
	}
	return removed, nil
}

// Recover repairs state left behind by an unclean shutdown: items stuck in
// syncing go back to pending and stale drain flags are cleared. Call once
// at startup before any drain.
func (m *Manager) Recover(ctx context.Context) error {
	reset, err := m.store.ResetStuckSyncing(ctx)
	if err != nil {
		return fmt.Errorf("recover queue: %w", err)
	}
	for _, kind := range queue.Kinds() {
		if err := m.store.DeleteMetadata(ctx, drainFlagKey(kind)); err != nil {
			return fmt.Errorf("recover queue: %w", err)
		}
	}
	if reset > 0 {
		m.logger.Warn("recovered items stuck in syncing", logging.Int64("reset", reset))
	}
	return nil
}
