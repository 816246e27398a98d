package queue

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies one of the two independent item collections.
type Kind string

const (
	KindQuery    Kind = "query"
	KindDocument Kind = "document"
)

// Kinds returns the known kinds in drain order.
func Kinds() []Kind {
	return []Kind{KindQuery, KindDocument}
}

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindQuery:
		return KindQuery, true
	case KindDocument:
		return KindDocument, true
	default:
		return "", false
	}
}

// Status represents the lifecycle of a queued item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSyncing   Status = "syncing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusSyncing, StatusCompleted, StatusFailed}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further automatic transitions occur.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// QueryContext carries optional structured hints for the processor. The
// queue stores it verbatim and never interprets it.
type QueryContext struct {
	Domain        string `json:"domain,omitempty"`
	CaseID        string `json:"case_id,omitempty"`
	Priority      string `json:"priority,omitempty"`
	ResponseShape string `json:"response_shape,omitempty"`
}

// QueryResult holds processor output for a completed query.
type QueryResult struct {
	Answer      string    `json:"answer"`
	Sources     []string  `json:"sources,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// DocumentOptions toggles remote processing steps for an uploaded document.
type DocumentOptions struct {
	ExtractText   bool `json:"extract_text"`
	Summarize     bool `json:"summarize"`
	LegalAnalysis bool `json:"legal_analysis"`
}

// DocumentResult holds processor output for a completed document upload.
type DocumentResult struct {
	ProcessedID string    `json:"processed_id"`
	Summary     string    `json:"summary,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Failure describes a terminal processing error.
type Failure struct {
	Message  string    `json:"message"`
	Code     string    `json:"code,omitempty"`
	FailedAt time.Time `json:"failed_at"`
}

// QueuedQuery is a legal query captured while offline.
type QueuedQuery struct {
	ID         string
	Payload    string
	Context    *QueryContext
	Status     Status
	RetryCount int
	MaxRetries int
	EnqueuedAt time.Time
	UpdatedAt  time.Time
	Result     *QueryResult
	Error      *Failure
}

// NewQuery constructs a pending query with a fresh id. The id is assigned
// here, before first persistence, and never changes.
func NewQuery(payload string, context *QueryContext, maxRetries int) *QueuedQuery {
	now := time.Now().UTC()
	return &QueuedQuery{
		ID:         uuid.NewString(),
		Payload:    payload,
		Context:    context,
		Status:     StatusPending,
		RetryCount: 0,
		MaxRetries: maxRetries,
		EnqueuedAt: now,
		UpdatedAt:  now,
	}
}

// RetriesExhausted reports whether the query has used its retry budget.
func (q *QueuedQuery) RetriesExhausted() bool {
	return q.RetryCount >= q.MaxRetries
}

// SetCompleted marks the query completed with the given result. Result and
// error are mutually exclusive; any previous error is cleared.
func (q *QueuedQuery) SetCompleted(result QueryResult) {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now().UTC()
	}
	q.Status = StatusCompleted
	q.Result = &result
	q.Error = nil
}

// SetFailed marks the query terminally failed. Any previous result is
// cleared.
func (q *QueuedQuery) SetFailed(failure Failure) {
	if failure.FailedAt.IsZero() {
		failure.FailedAt = time.Now().UTC()
	}
	q.Status = StatusFailed
	q.Error = &failure
	q.Result = nil
}

// QueuedDocument is a document upload captured while offline. Documents
// carry no retry budget: a single processor failure is terminal.
type QueuedDocument struct {
	ID         string
	Filename   string
	BlobPath   string
	Options    *DocumentOptions
	Status     Status
	EnqueuedAt time.Time
	UpdatedAt  time.Time
	Result     *DocumentResult
	Error      *Failure
}

// NewDocument constructs a pending document with a fresh id.
func NewDocument(filename, blobPath string, options *DocumentOptions) *QueuedDocument {
	now := time.Now().UTC()
	return &QueuedDocument{
		ID:         uuid.NewString(),
		Filename:   filename,
		BlobPath:   blobPath,
		Options:    options,
		Status:     StatusPending,
		EnqueuedAt: now,
		UpdatedAt:  now,
	}
}

// SetCompleted marks the document completed with the given result.
func (d *QueuedDocument) SetCompleted(result DocumentResult) {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now().UTC()
	}
	d.Status = StatusCompleted
	d.Result = &result
	d.Error = nil
}

// SetFailed marks the document terminally failed.
func (d *QueuedDocument) SetFailed(failure Failure) {
	if failure.FailedAt.IsZero() {
		failure.FailedAt = time.Now().UTC()
	}
	d.Status = StatusFailed
	d.Error = &failure
	d.Result = nil
}

// CollectionStats aggregates item counts per status for one collection.
type CollectionStats struct {
	Pending   int `json:"pending"`
	Syncing   int `json:"syncing"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Total returns the number of items in the collection.
func (c CollectionStats) Total() int {
	return c.Pending + c.Syncing + c.Completed + c.Failed
}

// Stats aggregates counts for both collections.
type Stats struct {
	Queries   CollectionStats `json:"queries"`
	Documents CollectionStats `json:"documents"`
}

// PendingItem is a kind-agnostic view of a pending action for display.
type PendingItem struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Summary    string    `json:"summary"`
	RetryCount int       `json:"retry_count"`
	MaxRetries int       `json:"max_retries,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
