package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const documentColumns = "id, filename, blob_path, options_json, status, enqueued_at, updated_at, result_json, error_message, error_code, failed_at"

// InsertDocument persists a newly constructed document.
func (s *Store) InsertDocument(ctx context.Context, d *QueuedDocument) error {
	if d == nil {
		return errors.New("document is nil")
	}
	optionsJSON, err := marshalOptional(d.Options)
	if err != nil {
		return fmt.Errorf("marshal document options: %w", err)
	}
	resultJSON, err := marshalOptional(d.Result)
	if err != nil {
		return fmt.Errorf("marshal document result: %w", err)
	}

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO offline_documents (`+documentColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.Filename,
		d.BlobPath,
		optionsJSON,
		d.Status,
		formatTime(d.EnqueuedAt),
		formatTime(d.UpdatedAt),
		resultJSON,
		failureMessage(d.Error),
		failureCode(d.Error),
		failureTime(d.Error),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetDocument fetches a document by id. Returns nil when no row matches.
func (s *Store) GetDocument(ctx context.Context, id string) (*QueuedDocument, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM offline_documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// UpdateDocument persists changes to an existing document.
func (s *Store) UpdateDocument(ctx context.Context, d *QueuedDocument) error {
	if d == nil {
		return errors.New("document is nil")
	}
	d.UpdatedAt = time.Now().UTC()

	optionsJSON, err := marshalOptional(d.Options)
	if err != nil {
		return fmt.Errorf("marshal document options: %w", err)
	}
	resultJSON, err := marshalOptional(d.Result)
	if err != nil {
		return fmt.Errorf("marshal document result: %w", err)
	}

	_, err = s.execWithRetry(
		ctx,
		`UPDATE offline_documents
         SET filename = ?, blob_path = ?, options_json = ?, status = ?,
             updated_at = ?, result_json = ?, error_message = ?, error_code = ?, failed_at = ?
         WHERE id = ?`,
		d.Filename,
		d.BlobPath,
		optionsJSON,
		d.Status,
		formatTime(d.UpdatedAt),
		resultJSON,
		failureMessage(d.Error),
		failureCode(d.Error),
		failureTime(d.Error),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// ClaimDocumentSyncing moves a document from pending to syncing and
// reports whether the row was still pending.
func (s *Store) ClaimDocumentSyncing(ctx context.Context, id string) (bool, error) {
	result, err := s.execWithRetry(
		ctx,
		`UPDATE offline_documents SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusSyncing,
		formatTime(time.Now().UTC()),
		id,
		StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim document %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim document %s: %w", id, err)
	}
	return affected > 0, nil
}

// DocumentsByStatus returns documents matching a status, oldest first.
func (s *Store) DocumentsByStatus(ctx context.Context, status Status) ([]*QueuedDocument, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+documentColumns+` FROM offline_documents WHERE status = ? ORDER BY enqueued_at`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("documents by status: %w", err)
	}
	defer rows.Close()

	var documents []*QueuedDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*QueuedDocument, error) {
	var (
		id          string
		filename    string
		blobPath    string
		optionsRaw  sql.NullString
		statusStr   string
		enqueuedRaw string
		updatedRaw  string
		resultRaw   sql.NullString
		errMessage  sql.NullString
		errCode     sql.NullString
		failedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&filename,
		&blobPath,
		&optionsRaw,
		&statusStr,
		&enqueuedRaw,
		&updatedRaw,
		&resultRaw,
		&errMessage,
		&errCode,
		&failedRaw,
	); err != nil {
		return nil, err
	}

	d := &QueuedDocument{
		ID:       id,
		Filename: filename,
		BlobPath: blobPath,
		Status:   Status(statusStr),
	}
	if optionsRaw.Valid && optionsRaw.String != "" {
		var opts DocumentOptions
		if err := json.Unmarshal([]byte(optionsRaw.String), &opts); err != nil {
			return nil, fmt.Errorf("decode document options: %w", err)
		}
		d.Options = &opts
	}
	if resultRaw.Valid && resultRaw.String != "" {
		var res DocumentResult
		if err := json.Unmarshal([]byte(resultRaw.String), &res); err != nil {
			return nil, fmt.Errorf("decode document result: %w", err)
		}
		d.Result = &res
	}
	d.Error = scanFailure(errMessage, errCode, failedRaw)

	if enqueued, err := parseTimeString(enqueuedRaw); err == nil {
		d.EnqueuedAt = enqueued
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		d.UpdatedAt = updated
	}
	return d, nil
}
