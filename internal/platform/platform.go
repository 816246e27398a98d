package platform

import "context"

// Services is the host surface the sync machinery needs.
type Services interface {
	// IsOnline reports whether the host currently has connectivity.
	IsOnline(ctx context.Context) bool

	// RegisterSyncInterest asks the host to remember that the given tag
	// wants a drain when connectivity returns. Registration is best-effort;
	// callers must not depend on it for correctness.
	RegisterSyncInterest(ctx context.Context, tag string) error
}

// Sync tag strings, one per kind. These names are part of the contract with
// the background watcher that drains the matching collection on wake-up.
const (
	QuerySyncTag    = "offline-queries-sync"
	DocumentSyncTag = "offline-documents-sync"
)
