package notify

import (
	"context"
	"log/slog"
	"sync"

	"lexsync/internal/config"
	"lexsync/internal/logging"
	"lexsync/internal/queue"
)

// Event names delivered to consumers. Failure names mirror the completion
// names so listeners can pair them up.
const (
	EventQueryCompleted    = "offline-queryCompleted"
	EventQueryFailed       = "offline-queryFailed"
	EventDocumentCompleted = "offline-documentCompleted"
	EventDocumentFailed    = "offline-documentFailed"
)

// Event is one terminal transition. Exactly one of Result and Error is set.
type Event struct {
	Name   string         `json:"name"`
	Kind   queue.Kind     `json:"kind"`
	ID     string         `json:"id"`
	Result any            `json:"result,omitempty"`
	Error  *queue.Failure `json:"error,omitempty"`
}

// Service is the notification surface the manager publishes to.
type Service interface {
	QueryCompleted(ctx context.Context, id string, result *queue.QueryResult)
	QueryFailed(ctx context.Context, id string, failure queue.Failure)
	DocumentCompleted(ctx context.Context, id string, result *queue.DocumentResult)
	DocumentFailed(ctx context.Context, id string, failure queue.Failure)

	// Subscribe returns a channel of future events and a cancel function.
	// Slow subscribers lose events rather than blocking the queue.
	Subscribe() (<-chan Event, func())
}

// NewService builds the notification service. When a webhook URL is
// configured events are additionally POSTed there; webhook delivery is
// best-effort and never fails a queue transition.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	svc := &service{
		subscribers: make(map[int]chan Event),
		logger:      logging.NewComponentLogger(logger, "notify"),
	}
	if cfg != nil && cfg.Notifications.WebhookURL != "" {
		svc.webhook = newWebhookClient(cfg)
	}
	return svc
}

type service struct {
	mu          sync.Mutex
	nextID      int
	subscribers map[int]chan Event
	webhook     *webhookClient
	logger      *slog.Logger
}

const subscriberBuffer = 16

func (s *service) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Event, subscriberBuffer)
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
	}
	return ch, cancel
}

func (s *service) QueryCompleted(ctx context.Context, id string, result *queue.QueryResult) {
	s.publish(ctx, Event{Name: EventQueryCompleted, Kind: queue.KindQuery, ID: id, Result: result})
}

func (s *service) QueryFailed(ctx context.Context, id string, failure queue.Failure) {
	s.publish(ctx, Event{Name: EventQueryFailed, Kind: queue.KindQuery, ID: id, Error: &failure})
}

func (s *service) DocumentCompleted(ctx context.Context, id string, result *queue.DocumentResult) {
	s.publish(ctx, Event{Name: EventDocumentCompleted, Kind: queue.KindDocument, ID: id, Result: result})
}

func (s *service) DocumentFailed(ctx context.Context, id string, failure queue.Failure) {
	s.publish(ctx, Event{Name: EventDocumentFailed, Kind: queue.KindDocument, ID: id, Error: &failure})
}

func (s *service) publish(ctx context.Context, event Event) {
	s.mu.Lock()
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full; the UI can recover via stats().
		}
	}
	s.mu.Unlock()

	if s.webhook != nil {
		if err := s.webhook.send(ctx, event); err != nil {
			s.logger.Warn("webhook delivery failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "webhook_failed"),
				logging.String("event", event.Name),
				logging.String(logging.FieldItemID, event.ID),
			)
		}
	}
}
