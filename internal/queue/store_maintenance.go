package queue

import (
	"context"
	"fmt"
	"time"
)

// Stats returns per-status counts for both collections using indexed
// aggregate queries; no rows are scanned.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	queries, err := s.collectionStats(ctx, "offline_queries")
	if err != nil {
		return Stats{}, err
	}
	documents, err := s.collectionStats(ctx, "offline_documents")
	if err != nil {
		return Stats{}, err
	}
	return Stats{Queries: queries, Documents: documents}, nil
}

func (s *Store) collectionStats(ctx context.Context, table string) (CollectionStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM `+table+` GROUP BY status`)
	if err != nil {
		return CollectionStats{}, fmt.Errorf("stats for %s: %w", table, err)
	}
	defer rows.Close()

	var stats CollectionStats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return CollectionStats{}, err
		}
		switch status {
		case StatusPending:
			stats.Pending = count
		case StatusSyncing:
			stats.Syncing = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// ClearCompleted removes completed items from both collections. Pending and
// failed items are never touched.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	var removed int64
	for _, table := range []string{"offline_queries", "offline_documents"} {
		res, err := s.execWithRetry(ctx, `DELETE FROM `+table+` WHERE status = ?`, StatusCompleted)
		if err != nil {
			return removed, fmt.Errorf("clear completed from %s: %w", table, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return removed, fmt.Errorf("rows affected: %w", err)
		}
		removed += affected
	}
	return removed, nil
}

// ResetStuckSyncing returns items left in syncing by a crashed or killed
// process back to pending so the next drain picks them up again.
func (s *Store) ResetStuckSyncing(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var reset int64
	for _, table := range []string{"offline_queries", "offline_documents"} {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE `+table+` SET status = ?, updated_at = ? WHERE status = ?`,
			StatusPending,
			now,
			StatusSyncing,
		)
		if err != nil {
			return reset, fmt.Errorf("reset stuck syncing in %s: %w", table, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return reset, fmt.Errorf("rows affected: %w", err)
		}
		reset += affected
	}
	return reset, nil
}
