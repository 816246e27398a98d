package manager_test

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"lexsync/internal/config"
	"lexsync/internal/manager"
	"lexsync/internal/notify"
	"lexsync/internal/processor"
	"lexsync/internal/queue"
	"lexsync/internal/testsupport"
)

type harness struct {
	cfg      *config.Config
	store    *queue.Store
	queries  *testsupport.ScriptedQueryProcessor
	docs     *testsupport.ScriptedDocumentProcessor
	notifier *testsupport.RecordingNotifier
	mgr      *manager.Manager
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	queries := testsupport.NewScriptedQueryProcessor()
	docs := testsupport.NewScriptedDocumentProcessor()
	notifier := testsupport.NewRecordingNotifier()
	mgr := manager.New(cfg, store, queries, docs, notifier, nil, nil)
	return &harness{cfg: cfg, store: store, queries: queries, docs: docs, notifier: notifier, mgr: mgr}
}

func TestEnqueueQueryNormalizesAndDefaults(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// NFD-composed payload must come back in NFC.
	decomposed := "Que\u0301 dice el arti\u0301culo 123"
	item, err := h.mgr.EnqueueQuery(ctx, decomposed, nil, 0)
	if err != nil {
		t.Fatalf("EnqueueQuery: %v", err)
	}
	if item.Payload != "Qué dice el artículo 123" {
		t.Fatalf("payload = %q, not NFC normalized", item.Payload)
	}
	if item.MaxRetries != h.cfg.Queue.DefaultMaxRetries {
		t.Fatalf("max retries = %d, want default %d", item.MaxRetries, h.cfg.Queue.DefaultMaxRetries)
	}

	stored, err := h.store.GetQuery(ctx, item.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetQuery: %v %v", stored, err)
	}
	if stored.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", stored.Status)
	}
}

func TestEnqueueQueryRejectsEmptyPayload(t *testing.T) {
	h := newHarness(t)
	if _, err := h.mgr.EnqueueQuery(context.Background(), "   ", nil, 0); err != manager.ErrEmptyPayload {
		t.Fatalf("err = %v, want ErrEmptyPayload", err)
	}
}

func TestEnqueueDocumentSpoolsBlob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	content := bytes.NewReader([]byte("%PDF-1.7 fake"))
	item, err := h.mgr.EnqueueDocument(ctx, "contrato.pdf", content, &queue.DocumentOptions{Summarize: true})
	if err != nil {
		t.Fatalf("EnqueueDocument: %v", err)
	}
	if !strings.HasPrefix(item.BlobPath, h.cfg.Paths.BlobDir) {
		t.Fatalf("blob path %q outside blob dir %q", item.BlobPath, h.cfg.Paths.BlobDir)
	}
	data, err := os.ReadFile(item.BlobPath)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(data) != "%PDF-1.7 fake" {
		t.Fatalf("blob content = %q", data)
	}
}

func TestDrainCompletesQueryAndNotifies(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	item, err := h.mgr.EnqueueQuery(ctx, "what is the filing deadline", nil, 3)
	if err != nil {
		t.Fatalf("EnqueueQuery: %v", err)
	}

	summary, err := h.mgr.Drain(ctx, queue.KindQuery)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if summary.Processed != 1 || summary.Completed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	stored, err := h.store.GetQuery(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if stored.Status != queue.StatusCompleted || stored.Result == nil {
		t.Fatalf("stored = %+v", stored)
	}

	events := h.notifier.EventsNamed(notify.EventQueryCompleted)
	if len(events) != 1 || events[0].ID != item.ID {
		t.Fatalf("events = %+v", events)
	}
}

func TestDrainRequeuesFailedQueryUntilExhausted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	item, err := h.mgr.EnqueueQuery(ctx, "¿Qué dice el artículo 123?", nil, 2)
	if err != nil {
		t.Fatalf("EnqueueQuery: %v", err)
	}
	h.queries.Script(item.ID, processor.NewError(processor.CodeUnavailable, "processor down"))

	// First pass: attempt fails, item goes back to pending with one retry
	// used. No in-pass retry.
	summary, err := h.mgr.Drain(ctx, queue.KindQuery)
	if err != nil {
		t.Fatalf("first Drain: %v", err)
	}
	if summary.Requeued != 1 || summary.Failed != 0 {
		t.Fatalf("first summary = %+v", summary)
	}
	if got := h.queries.Attempts(item.ID); got != 1 {
		t.Fatalf("attempts after first drain = %d, want 1", got)
	}
	stored, _ := h.store.GetQuery(ctx, item.ID)
	if stored.Status != queue.StatusPending || stored.RetryCount != 1 {
		t.Fatalf("after first drain: %+v", stored)
	}

	// Second pass: attempt fails again, budget of 2 is now spent, item
	// fails terminally.
	summary, err = h.mgr.Drain(ctx, queue.KindQuery)
	if err != nil {
		t.Fatalf("second Drain: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("second summary = %+v", summary)
	}
	stored, _ = h.store.GetQuery(ctx, item.ID)
	if stored.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", stored.Status)
	}
	if stored.RetryCount != 2 {
		t.Fatalf("retry count = %d, want 2", stored.RetryCount)
	}
	if stored.Error == nil || stored.Error.Code != processor.CodeUnavailable {
		t.Fatalf("error = %+v", stored.Error)
	}

	events := h.notifier.EventsNamed(notify.EventQueryFailed)
	if len(events) != 1 || events[0].ID != item.ID {
		t.Fatalf("failure events = %+v", events)
	}
}

func TestDrainFailsExhaustedQueryWithoutProcessorCall(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	item := testsupport.NewQuery(t, h.store, "stale", 2)
	item.RetryCount = 2
	if err := h.store.UpdateQuery(ctx, item); err != nil {
		t.Fatalf("UpdateQuery: %v", err)
	}

	summary, err := h.mgr.Drain(ctx, queue.KindQuery)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if got := h.queries.Attempts(item.ID); got != 0 {
		t.Fatalf("processor called %d times for exhausted item", got)
	}
	stored, _ := h.store.GetQuery(ctx, item.ID)
	if stored.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", stored.Status)
	}
}

func TestDrainProcessesQueriesInEnqueueOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, _ := h.mgr.EnqueueQuery(ctx, "first", nil, 3)
	second, _ := h.mgr.EnqueueQuery(ctx, "second", nil, 3)
	third, _ := h.mgr.EnqueueQuery(ctx, "third", nil, 3)

	if _, err := h.mgr.Drain(ctx, queue.KindQuery); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	want := []string{first.ID, second.ID, third.ID}
	if len(h.queries.Order) != 3 {
		t.Fatalf("order = %v", h.queries.Order)
	}
	for i, id := range want {
		if h.queries.Order[i] != id {
			t.Fatalf("order[%d] = %s, want %s", i, h.queries.Order[i], id)
		}
	}
}

func TestDocumentFailureIsTerminal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	item, err := h.mgr.EnqueueDocument(ctx, "escritura.pdf", strings.NewReader("content"), nil)
	if err != nil {
		t.Fatalf("EnqueueDocument: %v", err)
	}
	h.docs.Script(item.ID, processor.NewError(processor.CodeRejected, "unsupported format"))

	summary, err := h.mgr.Drain(ctx, queue.KindDocument)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if summary.Failed != 1 || summary.Requeued != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	stored, _ := h.store.GetDocument(ctx, item.ID)
	if stored.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", stored.Status)
	}

	// A second drain must not touch the failed document.
	if _, err := h.mgr.Drain(ctx, queue.KindDocument); err != nil {
		t.Fatalf("second Drain: %v", err)
	}
	if got := h.docs.Attempts(item.ID); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
}

func TestDocumentCompletionCarriesProcessedID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.mgr.EnqueueDocument(ctx, "demanda.pdf", strings.NewReader("content"), nil)
	if err != nil {
		t.Fatalf("EnqueueDocument: %v", err)
	}

	if _, err := h.mgr.Drain(ctx, queue.KindDocument); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	events := h.notifier.EventsNamed(notify.EventDocumentCompleted)
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	result, ok := events[0].Result.(*queue.DocumentResult)
	if !ok || result.ProcessedID == "" {
		t.Fatalf("event result = %+v", events[0].Result)
	}
}

func TestDrainSkipsWhenFlagHeldByAnotherProcess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	item := testsupport.NewQuery(t, h.store, "payload", 3)
	if err := h.store.SetMetadata(ctx, "query_drain_in_progress", "other-process"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}

	summary, err := h.mgr.Drain(ctx, queue.KindQuery)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if !summary.Skipped {
		t.Fatalf("summary = %+v, want skipped", summary)
	}
	if got := h.queries.Attempts(item.ID); got != 0 {
		t.Fatal("processor must not run while the flag is held")
	}
}

func TestConcurrentDrainsProcessEachItemOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	item, err := h.mgr.EnqueueQuery(ctx, "racing payload", nil, 3)
	if err != nil {
		t.Fatalf("EnqueueQuery: %v", err)
	}

	release := make(chan struct{})
	h.queries.HoldUntil(release)

	var first manager.DrainSummary
	var firstErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		first, firstErr = h.mgr.Drain(ctx, queue.KindQuery)
	}()

	// Wait until the first drain is inside the processor call.
	deadline := time.Now().Add(5 * time.Second)
	for h.queries.Attempts(item.ID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first drain never reached the processor")
		}
		time.Sleep(5 * time.Millisecond)
	}

	second, err := h.mgr.Drain(ctx, queue.KindQuery)
	if err != nil {
		t.Fatalf("second Drain: %v", err)
	}
	if !second.Skipped {
		t.Fatalf("second summary = %+v, want skipped", second)
	}

	close(release)
	<-done
	if firstErr != nil {
		t.Fatalf("first Drain: %v", firstErr)
	}
	if first.Completed != 1 {
		t.Fatalf("first summary = %+v", first)
	}
	if got := h.queries.Attempts(item.ID); got != 1 {
		t.Fatalf("attempts = %d, want exactly 1", got)
	}
}

func TestDrainClearsFlagAfterPass(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	testsupport.NewQuery(t, h.store, "payload", 3)
	if _, err := h.mgr.Drain(ctx, queue.KindQuery); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if _, found, _ := h.store.GetMetadata(ctx, "query_drain_in_progress"); found {
		t.Fatal("drain flag left behind")
	}
}

func TestDrainAllCoversBothKinds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mgr.EnqueueQuery(ctx, "q", nil, 3)
	h.mgr.EnqueueDocument(ctx, "d.pdf", strings.NewReader("x"), nil)

	summaries, err := h.mgr.DrainAll(ctx)
	if err != nil {
		t.Fatalf("DrainAll: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %+v", summaries)
	}
	total := 0
	for _, s := range summaries {
		total += s.Completed
	}
	if total != 2 {
		t.Fatalf("completed total = %d, want 2", total)
	}
}

func TestRecoverResetsSyncingAndClearsFlags(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	stuck := testsupport.NewQuery(t, h.store, "interrupted", 3)
	stuck.Status = queue.StatusSyncing
	if err := h.store.UpdateQuery(ctx, stuck); err != nil {
		t.Fatalf("UpdateQuery: %v", err)
	}
	if err := h.store.SetMetadata(ctx, "query_drain_in_progress", "stale"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}

	if err := h.mgr.Recover(ctx); err != nil {
		t.Fatalf("Recover: %v", err)
	}

	stored, _ := h.store.GetQuery(ctx, stuck.ID)
	if stored.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", stored.Status)
	}
	if _, found, _ := h.store.GetMetadata(ctx, "query_drain_in_progress"); found {
		t.Fatal("stale drain flag not cleared")
	}

	// After recovery the previously stuck item drains normally.
	summary, err := h.mgr.Drain(ctx, queue.KindQuery)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if summary.Completed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestListPendingMergesKinds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	q, _ := h.mgr.EnqueueQuery(ctx, strings.Repeat("long payload ", 20), nil, 3)
	d, _ := h.mgr.EnqueueDocument(ctx, "d.pdf", strings.NewReader("x"), nil)

	items, err := h.mgr.ListPending(ctx, "")
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	byID := map[string]queue.PendingItem{}
	for _, item := range items {
		byID[item.ID] = item
	}
	if got := byID[q.ID]; got.Kind != queue.KindQuery || len([]rune(got.Summary)) > 81 {
		t.Fatalf("query item = %+v", got)
	}
	if got := byID[d.ID]; got.Kind != queue.KindDocument || got.Summary != "d.pdf" {
		t.Fatalf("document item = %+v", got)
	}

	onlyDocs, err := h.mgr.ListPending(ctx, queue.KindDocument)
	if err != nil {
		t.Fatalf("ListPending(document): %v", err)
	}
	if len(onlyDocs) != 1 || onlyDocs[0].ID != d.ID {
		t.Fatalf("onlyDocs = %+v", onlyDocs)
	}
}
