// Package audit records significant admin actions — type and field
// mutations, entry writes, logins — asynchronously in the audit_log table,
// so that logging never blocks or fails an API request.
package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// eventChannelSize is the buffer for the async event channel. When the
// channel is full, events are dropped with a warning log.
const eventChannelSize = 256

// Event is one audit event to record.
type Event struct {
	Action     string         // e.g. "content_type.create", "entry.update"
	ActorID    string         // admin UUID, empty for login failures
	Resource   string         // e.g. "content_types", "ct_article"
	ResourceID string         // machine name or uuid of the affected resource
	Payload    map[string]any // additional context data
}

// Service provides asynchronous audit logging: events go to a buffered
// channel and a background goroutine persists them.
type Service struct {
	repo         *Repository
	eventCh      chan Event
	done         chan struct{}
	droppedCount atomic.Uint64
}

// NewService creates an audit Service. Call Start to begin processing
// events and Shutdown to drain and stop.
func NewService(repo *Repository) *Service {
	return &Service{
		repo:    repo,
		eventCh: make(chan Event, eventChannelSize),
		done:    make(chan struct{}),
	}
}

// Log queues an event for persistence without ever blocking the caller.
// If the channel is full the event is dropped and counted.
func (s *Service) Log(ctx context.Context, event Event) {
	select {
	case s.eventCh <- event:
	default:
		dropped := s.droppedCount.Add(1)
		slog.Warn("audit event channel full, dropping event",
			"action", event.Action,
			"actor_id", event.ActorID,
			"resource", event.Resource,
			"resource_id", event.ResourceID,
			"total_dropped", dropped,
		)
	}
}

// Start begins the background writer goroutine. Must be called once after
// NewService.
func (s *Service) Start() {
	go s.processEvents()
}

// Shutdown closes the channel, drains remaining events, and waits for the
// writer to finish. The context bounds how long the wait is silent; on
// timeout a warning is logged but Shutdown still waits, so no write races
// the process exit.
func (s *Service) Shutdown(ctx context.Context) {
	close(s.eventCh)

	select {
	case <-s.done:
		slog.Info("audit service shutdown complete")
	case <-ctx.Done():
		slog.Warn("audit service shutdown timeout, still waiting for drain")
		<-s.done
	}
}

func (s *Service) processEvents() {
	defer close(s.done)

	for event := range s.eventCh {
		s.writeEvent(event)
	}
}

// writeEvent persists one event. Errors are logged, never propagated.
func (s *Service) writeEvent(event Event) {
	// The originating request context may already be cancelled by the time
	// the event is processed.
	ctx := context.Background()

	if err := s.repo.Insert(ctx, event); err != nil {
		slog.Error("failed to write audit event",
			"action", event.Action,
			"actor_id", event.ActorID,
			"resource", event.Resource,
			"resource_id", event.ResourceID,
			"error", err,
		)
	}
}

// DroppedCount returns the number of events dropped since start.
func (s *Service) DroppedCount() uint64 {
	return s.droppedCount.Load()
}

// List returns a filtered page of audit entries, newest first.
func (s *Service) List(ctx context.Context, filters Filters, page, perPage int) ([]*Entry, int, error) {
	return s.repo.List(ctx, filters, page, perPage)
}
