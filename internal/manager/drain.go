package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lexsync/internal/logging"
	"lexsync/internal/processor"
	"lexsync/internal/queue"
)

// DrainSummary reports the outcome of one drain pass over one collection.
type DrainSummary struct {
	Kind      queue.Kind `json:"kind"`
	DrainID   string     `json:"drain_id"`
	Processed int        `json:"processed"`
	Completed int        `json:"completed"`
	Failed    int        `json:"failed"`
	Requeued  int        `json:"requeued"`
	Skipped   bool       `json:"skipped"`
}

func drainFlagKey(kind queue.Kind) string {
	return string(kind) + "_drain_in_progress"
}

func (m *Manager) drainLock(kind queue.Kind) *sync.Mutex {
	if kind == queue.KindDocument {
		return &m.documentDrain
	}
	return &m.queryDrain
}

// Drain processes the pending items of one collection, oldest first. At
// most one drain per kind runs at a time; a second call while one is in
// flight returns a skipped summary instead of waiting. Items are handled
// one at a time so each terminal transition is durable before the next
// processor call starts.
func (m *Manager) Drain(ctx context.Context, kind queue.Kind) (DrainSummary, error) {
	summary := DrainSummary{Kind: kind, DrainID: uuid.NewString()}

	lock := m.drainLock(kind)
	if !lock.TryLock() {
		summary.Skipped = true
		return summary, nil
	}
	defer lock.Unlock()

	flagKey := drainFlagKey(kind)
	acquired, err := m.store.TryAcquireMetadata(ctx, flagKey, summary.DrainID)
	if err != nil {
		return summary, err
	}
	if !acquired {
		// Another process owns the drain. Stale flags from a crash are
		// cleared by Recover at startup.
		summary.Skipped = true
		return summary, nil
	}
	defer func() {
		if err := m.store.DeleteMetadata(context.WithoutCancel(ctx), flagKey); err != nil {
			m.logger.Error("failed to clear drain flag",
				logging.Error(err),
				logging.String(logging.FieldKind, string(kind)),
			)
		}
	}()

	logger := m.logger.With(
		logging.String(logging.FieldKind, string(kind)),
		logging.String(logging.FieldDrainID, summary.DrainID),
	)
	logger.Debug("drain started")

	switch kind {
	case queue.KindDocument:
		err = m.drainDocuments(ctx, logger, &summary)
	default:
		err = m.drainQueries(ctx, logger, &summary)
	}

	logger.Info("drain finished",
		logging.Int("processed", summary.Processed),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Int("requeued", summary.Requeued),
	)
	return summary, err
}

// DrainAll drains both collections concurrently, one goroutine per kind.
func (m *Manager) DrainAll(ctx context.Context) ([]DrainSummary, error) {
	summaries := make([]DrainSummary, len(queue.Kinds()))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, kind := range queue.Kinds() {
		group.Go(func() error {
			summary, err := m.Drain(groupCtx, kind)
			summaries[i] = summary
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return summaries, err
	}
	return summaries, nil
}

func (m *Manager) drainQueries(ctx context.Context, logger *slog.Logger, summary *DrainSummary) error {
	pending, err := m.store.QueriesByStatus(ctx, queue.StatusPending)
	if err != nil {
		return fmt.Errorf("load pending queries: %w", err)
	}

	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Retry budget is checked before the attempt: an exhausted item
		// fails without another processor call.
		if item.RetriesExhausted() {
			summary.Processed++
			item.SetFailed(queue.Failure{
				Message: fmt.Sprintf("retry limit reached after %d attempts", item.RetryCount),
				Code:    "retries_exhausted",
			})
			if err := m.store.UpdateQuery(ctx, item); err != nil {
				return fmt.Errorf("fail exhausted query %s: %w", item.ID, err)
			}
			summary.Failed++
			m.notifier.QueryFailed(ctx, item.ID, *item.Error)
			continue
		}

		claimed, err := m.store.ClaimQuerySyncing(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("mark query %s syncing: %w", item.ID, err)
		}
		if !claimed {
			// Row moved since the listing; leave it to whoever took it.
			continue
		}
		summary.Processed++
		item.Status = queue.StatusSyncing

		result, procErr := m.queries.ProcessQuery(ctx, item)
		if procErr != nil {
			if err := ctx.Err(); err != nil {
				// Shutdown mid-attempt. Leave the item in syncing for the
				// next startup's Recover to return to pending.
				return err
			}
			item.RetryCount++
			if item.RetriesExhausted() {
				item.SetFailed(queue.Failure{
					Message: procErr.Error(),
					Code:    processor.ErrorCode(procErr),
				})
				if err := m.store.UpdateQuery(ctx, item); err != nil {
					return fmt.Errorf("fail query %s: %w", item.ID, err)
				}
				summary.Failed++
				m.notifier.QueryFailed(ctx, item.ID, *item.Error)
			} else {
				// Back to pending for a later pass; never retried within
				// the same drain.
				item.Status = queue.StatusPending
				if err := m.store.UpdateQuery(ctx, item); err != nil {
					return fmt.Errorf("requeue query %s: %w", item.ID, err)
				}
				summary.Requeued++
				logger.Warn("query attempt failed, will retry",
					logging.String(logging.FieldItemID, item.ID),
					logging.Error(procErr),
					logging.Int("retry_count", item.RetryCount),
					logging.Int("max_retries", item.MaxRetries),
				)
			}
			continue
		}

		item.SetCompleted(*result)
		if err := m.store.UpdateQuery(ctx, item); err != nil {
			return fmt.Errorf("complete query %s: %w", item.ID, err)
		}
		summary.Completed++
		m.notifier.QueryCompleted(ctx, item.ID, item.Result)
		logger.Debug("query completed", logging.String(logging.FieldItemID, item.ID))
	}
	return nil
}

func (m *Manager) drainDocuments(ctx context.Context, logger *slog.Logger, summary *DrainSummary) error {
	pending, err := m.store.DocumentsByStatus(ctx, queue.StatusPending)
	if err != nil {
		return fmt.Errorf("load pending documents: %w", err)
	}

	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		claimed, err := m.store.ClaimDocumentSyncing(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("mark document %s syncing: %w", item.ID, err)
		}
		if !claimed {
			// Row moved since the listing; leave it to whoever took it.
			continue
		}
		summary.Processed++
		item.Status = queue.StatusSyncing

		result, procErr := m.docs.ProcessDocument(ctx, item)
		if procErr != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Documents carry no retry budget: one failed upload is
			// terminal so the user can re-submit deliberately.
			item.SetFailed(queue.Failure{
				Message: procErr.Error(),
				Code:    processor.ErrorCode(procErr),
			})
			if err := m.store.UpdateDocument(ctx, item); err != nil {
				return fmt.Errorf("fail document %s: %w", item.ID, err)
			}
			summary.Failed++
			m.notifier.DocumentFailed(ctx, item.ID, *item.Error)
			logger.Warn("document upload failed",
				logging.String(logging.FieldItemID, item.ID),
				logging.Error(procErr),
			)
			continue
		}

		item.SetCompleted(*result)
		if err := m.store.UpdateDocument(ctx, item); err != nil {
			return fmt.Errorf("complete document %s: %w", item.ID, err)
		}
		summary.Completed++
		m.notifier.DocumentCompleted(ctx, item.ID, item.Result)
		logger.Debug("document completed", logging.String(logging.FieldItemID, item.ID))
	}
	return nil
}
