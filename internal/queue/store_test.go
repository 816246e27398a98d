package queue_test

import (
	"context"
	"testing"
	"time"

	"lexsync/internal/queue"
	"lexsync/internal/testsupport"
)

func TestQueryRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := queue.NewQuery("¿Qué dice el artículo 123?", &queue.QueryContext{
		Domain:   "labor",
		CaseID:   "case-42",
		Priority: "high",
	}, 3)
	if err := store.InsertQuery(ctx, item); err != nil {
		t.Fatalf("InsertQuery: %v", err)
	}

	got, err := store.GetQuery(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if got == nil {
		t.Fatal("expected query, got nil")
	}
	if got.Payload != item.Payload {
		t.Fatalf("payload = %q, want %q", got.Payload, item.Payload)
	}
	if got.Context == nil || got.Context.CaseID != "case-42" {
		t.Fatalf("context = %+v, want case-42", got.Context)
	}
	if got.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
	if got.RetryCount != 0 || got.MaxRetries != 3 {
		t.Fatalf("retries = %d/%d, want 0/3", got.RetryCount, got.MaxRetries)
	}
	if got.Result != nil || got.Error != nil {
		t.Fatal("fresh query must carry neither result nor error")
	}
}

func TestQueryResultSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}

	item := queue.NewQuery("statute of limitations for breach of contract", nil, 3)
	if err := store.InsertQuery(ctx, item); err != nil {
		t.Fatalf("InsertQuery: %v", err)
	}
	item.SetCompleted(queue.QueryResult{
		Answer:  "six years in most jurisdictions",
		Sources: []string{"doc-1", "doc-2"},
	})
	if err := store.UpdateQuery(ctx, item); err != nil {
		t.Fatalf("UpdateQuery: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetQuery(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetQuery after reopen: %v", err)
	}
	if got.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.Result == nil || got.Result.Answer != "six years in most jurisdictions" {
		t.Fatalf("result = %+v", got.Result)
	}
	if len(got.Result.Sources) != 2 {
		t.Fatalf("sources = %v", got.Result.Sources)
	}
	if got.Error != nil {
		t.Fatal("completed query must not carry an error")
	}
}

func TestQueryFailureClearsResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewQuery(t, store, "payload", 1)
	item.SetCompleted(queue.QueryResult{Answer: "tentative"})
	item.SetFailed(queue.Failure{Message: "processor rejected", Code: "processor_rejected"})
	if err := store.UpdateQuery(ctx, item); err != nil {
		t.Fatalf("UpdateQuery: %v", err)
	}

	got, err := store.GetQuery(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if got.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.Result != nil {
		t.Fatal("failed query must not carry a result")
	}
	if got.Error == nil || got.Error.Code != "processor_rejected" {
		t.Fatalf("error = %+v", got.Error)
	}
	if got.Error.FailedAt.IsZero() {
		t.Fatal("failure timestamp not persisted")
	}
}

func TestGetQueryMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	got, err := store.GetQuery(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestQueriesByStatusOrdersByEnqueueTime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		item := queue.NewQuery("payload", nil, 3)
		item.EnqueuedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.InsertQuery(ctx, item); err != nil {
			t.Fatalf("InsertQuery: %v", err)
		}
		ids = append(ids, item.ID)
	}

	pending, err := store.QueriesByStatus(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("QueriesByStatus: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("len = %d, want 3", len(pending))
	}
	for i, item := range pending {
		if item.ID != ids[i] {
			t.Fatalf("position %d = %s, want %s", i, item.ID, ids[i])
		}
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := queue.NewDocument("contrato.pdf", "/tmp/blob-1", &queue.DocumentOptions{
		ExtractText: true,
		Summarize:   true,
	})
	if err := store.InsertDocument(ctx, item); err != nil {
		t.Fatalf("InsertDocument: %v", err)
	}

	got, err := store.GetDocument(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Filename != "contrato.pdf" || got.BlobPath != "/tmp/blob-1" {
		t.Fatalf("got %+v", got)
	}
	if got.Options == nil || !got.Options.Summarize || got.Options.LegalAnalysis {
		t.Fatalf("options = %+v", got.Options)
	}

	got.SetCompleted(queue.DocumentResult{ProcessedID: "remote-9", Summary: "lease agreement"})
	if err := store.UpdateDocument(ctx, got); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	reread, err := store.GetDocument(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if reread.Result == nil || reread.Result.ProcessedID != "remote-9" {
		t.Fatalf("result = %+v", reread.Result)
	}
}

func TestStatsCountsPerStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewQuery(t, store, "a", 3)
	completed := testsupport.NewQuery(t, store, "b", 3)
	completed.SetCompleted(queue.QueryResult{Answer: "done"})
	if err := store.UpdateQuery(ctx, completed); err != nil {
		t.Fatalf("UpdateQuery: %v", err)
	}
	failed := testsupport.NewDocument(t, store, "x.pdf", "/tmp/x")
	failed.SetFailed(queue.Failure{Message: "boom"})
	if err := store.UpdateDocument(ctx, failed); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Queries.Pending != 1 || stats.Queries.Completed != 1 {
		t.Fatalf("query stats = %+v", stats.Queries)
	}
	if stats.Documents.Failed != 1 || stats.Documents.Total() != 1 {
		t.Fatalf("document stats = %+v", stats.Documents)
	}
}

func TestClearCompletedIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	pending := testsupport.NewQuery(t, store, "keep me", 3)
	done := testsupport.NewQuery(t, store, "clear me", 3)
	done.SetCompleted(queue.QueryResult{Answer: "done"})
	if err := store.UpdateQuery(ctx, done); err != nil {
		t.Fatalf("UpdateQuery: %v", err)
	}
	doneDoc := testsupport.NewDocument(t, store, "d.pdf", "/tmp/d")
	doneDoc.SetCompleted(queue.DocumentResult{ProcessedID: "p-1"})
	if err := store.UpdateDocument(ctx, doneDoc); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}

	removed, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	again, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("second ClearCompleted: %v", err)
	}
	if again != 0 {
		t.Fatalf("second pass removed %d, want 0", again)
	}

	kept, err := store.GetQuery(ctx, pending.ID)
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if kept == nil {
		t.Fatal("pending item must survive clear-completed")
	}
}

func TestResetStuckSyncing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stuck := testsupport.NewQuery(t, store, "interrupted", 3)
	stuck.Status = queue.StatusSyncing
	if err := store.UpdateQuery(ctx, stuck); err != nil {
		t.Fatalf("UpdateQuery: %v", err)
	}

	reset, err := store.ResetStuckSyncing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckSyncing: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}

	got, err := store.GetQuery(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if got.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
}

func TestTryAcquireMetadataIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	won, err := store.TryAcquireMetadata(ctx, "query_drain_in_progress", "drain-1")
	if err != nil {
		t.Fatalf("TryAcquireMetadata: %v", err)
	}
	if !won {
		t.Fatal("first acquire must win")
	}

	won, err = store.TryAcquireMetadata(ctx, "query_drain_in_progress", "drain-2")
	if err != nil {
		t.Fatalf("second TryAcquireMetadata: %v", err)
	}
	if won {
		t.Fatal("second acquire must lose while the key is held")
	}
	value, found, err := store.GetMetadata(ctx, "query_drain_in_progress")
	if err != nil || !found {
		t.Fatalf("GetMetadata: found=%v err=%v", found, err)
	}
	if value != "drain-1" {
		t.Fatalf("value = %q, holder must not be overwritten", value)
	}

	if err := store.DeleteMetadata(ctx, "query_drain_in_progress"); err != nil {
		t.Fatalf("DeleteMetadata: %v", err)
	}
	won, err = store.TryAcquireMetadata(ctx, "query_drain_in_progress", "drain-3")
	if err != nil {
		t.Fatalf("TryAcquireMetadata after release: %v", err)
	}
	if !won {
		t.Fatal("acquire after release must win")
	}
}

func TestClaimSyncingRequiresPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewQuery(t, store, "claim me", 3)

	claimed, err := store.ClaimQuerySyncing(ctx, item.ID)
	if err != nil {
		t.Fatalf("ClaimQuerySyncing: %v", err)
	}
	if !claimed {
		t.Fatal("pending query must be claimable")
	}
	got, _ := store.GetQuery(ctx, item.ID)
	if got.Status != queue.StatusSyncing {
		t.Fatalf("status = %s, want syncing", got.Status)
	}

	claimed, err = store.ClaimQuerySyncing(ctx, item.ID)
	if err != nil {
		t.Fatalf("second ClaimQuerySyncing: %v", err)
	}
	if claimed {
		t.Fatal("claim must fail once the row left pending")
	}

	doc := testsupport.NewDocument(t, store, "d.pdf", "/tmp/d")
	doc.SetFailed(queue.Failure{Message: "boom"})
	if err := store.UpdateDocument(ctx, doc); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	claimed, err = store.ClaimDocumentSyncing(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ClaimDocumentSyncing: %v", err)
	}
	if claimed {
		t.Fatal("failed document must not be claimable")
	}
}

func TestMetadataUpsertAndDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, found, err := store.GetMetadata(ctx, "query_drain_in_progress"); err != nil || found {
		t.Fatalf("unexpected initial metadata: found=%v err=%v", found, err)
	}

	if err := store.SetMetadata(ctx, "query_drain_in_progress", "drain-1"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := store.SetMetadata(ctx, "query_drain_in_progress", "drain-2"); err != nil {
		t.Fatalf("SetMetadata upsert: %v", err)
	}
	value, found, err := store.GetMetadata(ctx, "query_drain_in_progress")
	if err != nil || !found {
		t.Fatalf("GetMetadata: found=%v err=%v", found, err)
	}
	if value != "drain-2" {
		t.Fatalf("value = %q, want drain-2", value)
	}

	if err := store.DeleteMetadata(ctx, "query_drain_in_progress"); err != nil {
		t.Fatalf("DeleteMetadata: %v", err)
	}
	if _, found, _ := store.GetMetadata(ctx, "query_drain_in_progress"); found {
		t.Fatal("metadata not deleted")
	}
}
