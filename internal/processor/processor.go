package processor

import (
	"context"
	"errors"
	"fmt"

	"lexsync/internal/queue"
)

// QueryProcessor performs the remote action for one queued query.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, q *queue.QueuedQuery) (*queue.QueryResult, error)
}

// DocumentProcessor performs the remote action for one queued document.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, d *queue.QueuedDocument) (*queue.DocumentResult, error)
}

// Error is a typed processing failure carrying a stable code the queue can
// persist alongside the message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a typed processing failure.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Common failure codes reported by the HTTP processors.
const (
	CodeUnavailable = "processor_unavailable"
	CodeRejected    = "processor_rejected"
	CodeBadResponse = "processor_bad_response"
	CodeBlobMissing = "blob_missing"
)

// ErrorCode extracts the code from a typed failure, or empty for plain errors.
func ErrorCode(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ""
}
