package ipc

import (
	"time"

	"lexsync/internal/manager"
	"lexsync/internal/queue"
)

// EnqueueQueryRequest adds a legal query to the offline queue.
type EnqueueQueryRequest struct {
	Payload    string              `json:"payload"`
	Context    *queue.QueryContext `json:"context,omitempty"`
	MaxRetries int                 `json:"max_retries,omitempty"`
}

// EnqueueQueryResponse reports the persisted query.
type EnqueueQueryResponse struct {
	ID         string    `json:"id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// EnqueueDocumentRequest adds a document upload to the offline queue. The
// daemon reads the file at SourcePath and spools it into its blob store,
// so the original file can be moved afterwards.
type EnqueueDocumentRequest struct {
	SourcePath string                 `json:"source_path"`
	Options    *queue.DocumentOptions `json:"options,omitempty"`
}

// EnqueueDocumentResponse reports the persisted document.
type EnqueueDocumentResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// ListRequest asks for pending items, optionally narrowed to one kind.
type ListRequest struct {
	Kind string `json:"kind,omitempty"`
}

// ListResponse carries pending items oldest first.
type ListResponse struct {
	Items []queue.PendingItem `json:"items"`
}

// StatsRequest asks for per-status counts.
type StatsRequest struct{}

// StatsResponse carries per-status counts for both collections.
type StatsResponse struct {
	Stats queue.Stats `json:"stats"`
}

// DrainRequest triggers a drain of one collection.
type DrainRequest struct {
	Kind string `json:"kind"`
}

// DrainResponse reports the drain outcome.
type DrainResponse struct {
	Summary manager.DrainSummary `json:"summary"`
}

// SyncRequest triggers an immediate drain of both collections.
type SyncRequest struct{}

// SyncResponse reports the outcome per collection. Offline is set when the
// host had no connectivity and nothing was drained.
type SyncResponse struct {
	Offline   bool                   `json:"offline"`
	Summaries []manager.DrainSummary `json:"summaries,omitempty"`
}

// ClearCompletedRequest removes completed items from both collections.
type ClearCompletedRequest struct{}

// ClearCompletedResponse reports how many items were removed.
type ClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// StatusRequest asks for daemon runtime information.
type StatusRequest struct{}

// StatusResponse carries daemon runtime information.
type StatusResponse struct {
	Running     bool        `json:"running"`
	PID         int         `json:"pid"`
	QueueDBPath string      `json:"queue_db_path"`
	LockPath    string      `json:"lock_path"`
	SocketPath  string      `json:"socket_path"`
	Stats       queue.Stats `json:"stats"`
}

// StopRequest asks the daemon to stop background processing.
type StopRequest struct{}

// StopResponse acknowledges the stop.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
