package queue_test

import (
	"testing"

	"lexsync/internal/queue"
)

func TestParseKind(t *testing.T) {
	if kind, ok := queue.ParseKind(" Document "); !ok || kind != queue.KindDocument {
		t.Fatalf("ParseKind = %v %v", kind, ok)
	}
	if _, ok := queue.ParseKind("blob"); ok {
		t.Fatal("unknown kind accepted")
	}
}

func TestStatusTerminality(t *testing.T) {
	for _, status := range []queue.Status{queue.StatusPending, queue.StatusSyncing} {
		if status.IsTerminal() {
			t.Fatalf("%s must not be terminal", status)
		}
	}
	for _, status := range []queue.Status{queue.StatusCompleted, queue.StatusFailed} {
		if !status.IsTerminal() {
			t.Fatalf("%s must be terminal", status)
		}
	}
}

func TestQueryResultAndErrorAreExclusive(t *testing.T) {
	item := queue.NewQuery("payload", nil, 3)

	item.SetCompleted(queue.QueryResult{Answer: "a"})
	if item.Error != nil || item.Result == nil {
		t.Fatalf("after SetCompleted: %+v", item)
	}
	if item.Result.CompletedAt.IsZero() {
		t.Fatal("completion timestamp not defaulted")
	}

	item.SetFailed(queue.Failure{Message: "boom"})
	if item.Result != nil || item.Error == nil {
		t.Fatalf("after SetFailed: %+v", item)
	}
	if item.Status != queue.StatusFailed {
		t.Fatalf("status = %s", item.Status)
	}
}

func TestRetriesExhausted(t *testing.T) {
	item := queue.NewQuery("payload", nil, 2)
	if item.RetriesExhausted() {
		t.Fatal("fresh item cannot be exhausted")
	}
	item.RetryCount = 2
	if !item.RetriesExhausted() {
		t.Fatal("item with spent budget must be exhausted")
	}
}
