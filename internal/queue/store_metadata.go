package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetMetadata upserts a coordination flag in sync_metadata.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("metadata key must not be empty")
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO sync_metadata (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// TryAcquireMetadata inserts a coordination flag only when the key is
// absent and reports whether this call won it. The insert is a single
// statement so two processes racing for the same key cannot both win.
// Holders release with DeleteMetadata.
func (s *Store) TryAcquireMetadata(ctx context.Context, key, value string) (bool, error) {
	if key == "" {
		return false, errors.New("metadata key must not be empty")
	}
	result, err := s.execWithRetry(
		ctx,
		`INSERT INTO sync_metadata (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO NOTHING`,
		key,
		value,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("acquire metadata %q: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire metadata %q: %w", key, err)
	}
	return affected > 0, nil
}

// GetMetadata reads a coordination flag. The second return reports presence.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, bool, error) {
	var value string
	row := s.db.QueryRowContext(ctx, `SELECT value FROM sync_metadata WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get metadata %q: %w", key, err)
	}
	return value, true, nil
}

// DeleteMetadata removes a coordination flag. Missing keys are not an error.
func (s *Store) DeleteMetadata(ctx context.Context, key string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM sync_metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete metadata %q: %w", key, err)
	}
	return nil
}
