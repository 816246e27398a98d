package testsupport

import (
	"context"
	"testing"

	"lexsync/internal/config"
	"lexsync/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewQuery inserts a pending query for tests using the provided store.
func NewQuery(t testing.TB, store *queue.Store, payload string, maxRetries int) *queue.QueuedQuery {
	t.Helper()

	item := queue.NewQuery(payload, nil, maxRetries)
	if err := store.InsertQuery(context.Background(), item); err != nil {
		t.Fatalf("store.InsertQuery: %v", err)
	}
	return item
}

// NewDocument inserts a pending document for tests using the provided store.
func NewDocument(t testing.TB, store *queue.Store, filename, blobPath string) *queue.QueuedDocument {
	t.Helper()

	item := queue.NewDocument(filename, blobPath, nil)
	if err := store.InsertDocument(context.Background(), item); err != nil {
		t.Fatalf("store.InsertDocument: %v", err)
	}
	return item
}
