package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
	"github.com/fulfillment-platform/fulfillment-service/pkg/logging"
	"github.com/fulfillment-platform/fulfillment-service/pkg/metrics"
)

// EventLog appends to the per-order activity log and fans entries out to
// live subscribers. The persisted log is the source of truth; a failed
// publish is logged and swallowed.
type EventLog struct {
	repo     domain.EventRepository
	notifier domain.Notifier
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewEventLog creates an EventLog. notifier and metrics may be nil.
func NewEventLog(repo domain.EventRepository, notifier domain.Notifier, logger *logging.Logger, m *metrics.Metrics) *EventLog {
	return &EventLog{
		repo:     repo,
		notifier: notifier,
		logger:   logger.WithComponent("event-log"),
		metrics:  m,
	}
}

// Append persists one or more entries for an order, then publishes them
// best effort. Entries appended together share one clock reading so
// replay order matches append order, with the event ID as tiebreak.
func (l *EventLog) Append(ctx context.Context, orderID, actorID, correlationID string, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	events := make([]*domain.FulfillmentEvent, 0, len(entries))
	for _, entry := range entries {
		event, err := domain.NewFulfillmentEvent(
			uuid.New().String(), orderID, entry.Type, entry.Payload, actorID, correlationID, now)
		if err != nil {
			return fmt.Errorf("building %s event: %w", entry.Type, err)
		}
		events = append(events, event)
	}

	if err := l.repo.Append(ctx, events...); err != nil {
		return fmt.Errorf("appending events for order %s: %w", orderID, err)
	}

	for _, event := range events {
		if l.metrics != nil {
			l.metrics.RecordEventAppended(string(event.Type))
		}
		if l.notifier == nil {
			continue
		}
		if err := l.notifier.Publish(ctx, event); err != nil {
			l.logger.WithError(err).Warn("Live event publish failed",
				"orderId", orderID, "eventType", event.Type)
			if l.metrics != nil {
				l.metrics.RecordEventPublishFailure(string(event.Type))
			}
		}
	}

	return nil
}

// Entry is one pending log entry: a type plus its typed payload
type Entry struct {
	Type    domain.FulfillmentEventType
	Payload any
}

// EventsSince returns an order's log entries strictly after the anchor
// event, oldest first. An empty anchor returns the full history.
func (l *EventLog) EventsSince(ctx context.Context, orderID, sinceEventID string) ([]*domain.FulfillmentEvent, error) {
	var anchor *domain.FulfillmentEvent
	if sinceEventID != "" {
		found, err := l.repo.FindByEventID(ctx, sinceEventID)
		if err != nil {
			if errors.Is(err, domain.ErrEventNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("resolving anchor event %s: %w", sinceEventID, err)
		}
		if found == nil || found.OrderID != orderID {
			return nil, domain.ErrEventNotFound
		}
		anchor = found
	}

	events, err := l.repo.FindByOrderSince(ctx, orderID, anchor)
	if err != nil {
		return nil, fmt.Errorf("replaying events for order %s: %w", orderID, err)
	}
	return events, nil
}

// Recent returns the newest entries for an order, oldest first
func (l *EventLog) Recent(ctx context.Context, orderID string, limit int) ([]*domain.FulfillmentEvent, error) {
	events, err := l.repo.FindRecentByOrder(ctx, orderID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading recent events for order %s: %w", orderID, err)
	}
	return events, nil
}
