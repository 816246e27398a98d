package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const queryColumns = "id, payload, context_json, status, retry_count, max_retries, enqueued_at, updated_at, result_json, error_message, error_code, failed_at"

// InsertQuery persists a newly constructed query.
func (s *Store) InsertQuery(ctx context.Context, q *QueuedQuery) error {
	if q == nil {
		return errors.New("query is nil")
	}
	contextJSON, err := marshalOptional(q.Context)
	if err != nil {
		return fmt.Errorf("marshal query context: %w", err)
	}
	resultJSON, err := marshalOptional(q.Result)
	if err != nil {
		return fmt.Errorf("marshal query result: %w", err)
	}

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO offline_queries (`+queryColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID,
		q.Payload,
		contextJSON,
		q.Status,
		q.RetryCount,
		q.MaxRetries,
		formatTime(q.EnqueuedAt),
		formatTime(q.UpdatedAt),
		resultJSON,
		failureMessage(q.Error),
		failureCode(q.Error),
		failureTime(q.Error),
	)
	if err != nil {
		return fmt.Errorf("insert query: %w", err)
	}
	return nil
}

// GetQuery fetches a query by id. Returns nil when no row matches.
func (s *Store) GetQuery(ctx context.Context, id string) (*QueuedQuery, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+queryColumns+` FROM offline_queries WHERE id = ?`, id)
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get query: %w", err)
	}
	return q, nil
}

// UpdateQuery persists changes to an existing query.
func (s *Store) UpdateQuery(ctx context.Context, q *QueuedQuery) error {
	if q == nil {
		return errors.New("query is nil")
	}
	q.UpdatedAt = time.Now().UTC()

	contextJSON, err := marshalOptional(q.Context)
	if err != nil {
		return fmt.Errorf("marshal query context: %w", err)
	}
	resultJSON, err := marshalOptional(q.Result)
	if err != nil {
		return fmt.Errorf("marshal query result: %w", err)
	}

	_, err = s.execWithRetry(
		ctx,
		`UPDATE offline_queries
         SET payload = ?, context_json = ?, status = ?, retry_count = ?, max_retries = ?,
             updated_at = ?, result_json = ?, error_message = ?, error_code = ?, failed_at = ?
         WHERE id = ?`,
		q.Payload,
		contextJSON,
		q.Status,
		q.RetryCount,
		q.MaxRetries,
		formatTime(q.UpdatedAt),
		resultJSON,
		failureMessage(q.Error),
		failureCode(q.Error),
		failureTime(q.Error),
		q.ID,
	)
	if err != nil {
		return fmt.Errorf("update query: %w", err)
	}
	return nil
}

// ClaimQuerySyncing moves a query from pending to syncing and reports
// whether the row was still pending. A false return means another drain
// already took the item.
func (s *Store) ClaimQuerySyncing(ctx context.Context, id string) (bool, error) {
	result, err := s.execWithRetry(
		ctx,
		`UPDATE offline_queries SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusSyncing,
		formatTime(time.Now().UTC()),
		id,
		StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim query %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim query %s: %w", id, err)
	}
	return affected > 0, nil
}

// QueriesByStatus returns queries matching a status, oldest first.
func (s *Store) QueriesByStatus(ctx context.Context, status Status) ([]*QueuedQuery, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+queryColumns+` FROM offline_queries WHERE status = ? ORDER BY enqueued_at`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	var queries []*QueuedQuery
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

func scanQuery(scanner interface{ Scan(dest ...any) error }) (*QueuedQuery, error) {
	var (
		id          string
		payload     string
		contextRaw  sql.NullString
		statusStr   string
		retryCount  int
		maxRetries  int
		enqueuedRaw string
		updatedRaw  string
		resultRaw   sql.NullString
		errMessage  sql.NullString
		errCode     sql.NullString
		failedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&payload,
		&contextRaw,
		&statusStr,
		&retryCount,
		&maxRetries,
		&enqueuedRaw,
		&updatedRaw,
		&resultRaw,
		&errMessage,
		&errCode,
		&failedRaw,
	); err != nil {
		return nil, err
	}

	q := &QueuedQuery{
		ID:         id,
		Payload:    payload,
		Status:     Status(statusStr),
		RetryCount: retryCount,
		MaxRetries: maxRetries,
	}
	if contextRaw.Valid && contextRaw.String != "" {
		var qc QueryContext
		if err := json.Unmarshal([]byte(contextRaw.String), &qc); err != nil {
			return nil, fmt.Errorf("decode query context: %w", err)
		}
		q.Context = &qc
	}
	if resultRaw.Valid && resultRaw.String != "" {
		var res QueryResult
		if err := json.Unmarshal([]byte(resultRaw.String), &res); err != nil {
			return nil, fmt.Errorf("decode query result: %w", err)
		}
		q.Result = &res
	}
	q.Error = scanFailure(errMessage, errCode, failedRaw)

	if enqueued, err := parseTimeString(enqueuedRaw); err == nil {
		q.EnqueuedAt = enqueued
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		q.UpdatedAt = updated
	}
	return q, nil
}

func marshalOptional(value any) (any, error) {
	switch v := value.(type) {
	case *QueryContext:
		if v == nil {
			return nil, nil
		}
	case *QueryResult:
		if v == nil {
			return nil, nil
		}
	case *DocumentOptions:
		if v == nil {
			return nil, nil
		}
	case *DocumentResult:
		if v == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func failureMessage(f *Failure) any {
	if f == nil {
		return nil
	}
	return f.Message
}

func failureCode(f *Failure) any {
	if f == nil || f.Code == "" {
		return nil
	}
	return f.Code
}

func failureTime(f *Failure) any {
	if f == nil {
		return nil
	}
	return formatTime(f.FailedAt)
}

func scanFailure(message, code, failedAt sql.NullString) *Failure {
	if !message.Valid {
		return nil
	}
	f := &Failure{Message: message.String, Code: code.String}
	if failedAt.Valid {
		if t, err := parseTimeString(failedAt.String); err == nil {
			f.FailedAt = t
		}
	}
	return f
}
