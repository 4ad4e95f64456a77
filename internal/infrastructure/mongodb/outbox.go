package mongodb

import (
	"context"
	"fmt"

	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
	"github.com/fulfillment-platform/fulfillment-service/pkg/cloudevents"
	"github.com/fulfillment-platform/fulfillment-service/pkg/kafka"
	"github.com/fulfillment-platform/fulfillment-service/pkg/outbox"
	outboxMongo "github.com/fulfillment-platform/fulfillment-service/pkg/outbox/mongodb"
)

// stageDomainEvents converts an aggregate's pending domain events into
// outbox rows under the caller's session so they commit with the
// aggregate write. The topic is derived from the event type.
func stageDomainEvents(
	ctx context.Context,
	outboxRepo *outboxMongo.OutboxRepository,
	factory *cloudevents.EventFactory,
	aggregateID, aggregateType, subject string,
	events []domain.DomainEvent,
) error {
	if len(events) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		cloudEvent := factory.CreateEvent(ctx, event.EventType(), subject, event)
		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			aggregateID, aggregateType, kafka.TopicForEventType(event.EventType()), cloudEvent)
		if err != nil {
			return fmt.Errorf("staging %s for outbox: %w", event.EventType(), err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}
	return outboxRepo.SaveAll(ctx, outboxEvents)
}
