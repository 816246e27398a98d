package testsupport

import (
	"context"
	"sync"

	"lexsync/internal/notify"
	"lexsync/internal/queue"
)

// RecordingNotifier captures published events for assertions.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

// NewRecordingNotifier builds an empty recorder.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (r *RecordingNotifier) record(event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// QueryCompleted records the event.
func (r *RecordingNotifier) QueryCompleted(_ context.Context, id string, result *queue.QueryResult) {
	r.record(notify.Event{Name: notify.EventQueryCompleted, Kind: queue.KindQuery, ID: id, Result: result})
}

// QueryFailed records the event.
func (r *RecordingNotifier) QueryFailed(_ context.Context, id string, failure queue.Failure) {
	r.record(notify.Event{Name: notify.EventQueryFailed, Kind: queue.KindQuery, ID: id, Error: &failure})
}

// DocumentCompleted records the event.
func (r *RecordingNotifier) DocumentCompleted(_ context.Context, id string, result *queue.DocumentResult) {
	r.record(notify.Event{Name: notify.EventDocumentCompleted, Kind: queue.KindDocument, ID: id, Result: result})
}

// DocumentFailed records the event.
func (r *RecordingNotifier) DocumentFailed(_ context.Context, id string, failure queue.Failure) {
	r.record(notify.Event{Name: notify.EventDocumentFailed, Kind: queue.KindDocument, ID: id, Error: &failure})
}

// Subscribe is a stub; recorded events are inspected via Events.
func (r *RecordingNotifier) Subscribe() (<-chan notify.Event, func()) {
	ch := make(chan notify.Event)
	close(ch)
	return ch, func() {}
}

// Events returns a copy of the recorded events in publish order.
func (r *RecordingNotifier) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Event, len(r.events))
	copy(out, r.events)
	return out
}

// EventsNamed returns recorded events with the given name.
func (r *RecordingNotifier) EventsNamed(name string) []notify.Event {
	var out []notify.Event
	for _, event := range r.Events() {
		if event.Name == name {
			out = append(out, event)
		}
	}
	return out
}
