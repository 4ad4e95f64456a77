package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
	"github.com/fulfillment-platform/fulfillment-service/pkg/cloudevents"
	"github.com/fulfillment-platform/fulfillment-service/pkg/kafka"
	"github.com/fulfillment-platform/fulfillment-service/pkg/logging"
)

// LiveNotifier streams activity log entries to the live fulfillment
// topic for trackers. Delivery is best effort; the persisted log is the
// source of truth, so callers swallow errors from Publish. The circuit
// breaker in the producer keeps a down broker from stalling request
// handling.
type LiveNotifier struct {
	producer     *kafka.CircuitBreakerProducer
	eventFactory *cloudevents.EventFactory
}

func NewLiveNotifier(producer *kafka.InstrumentedProducer, eventFactory *cloudevents.EventFactory, logger *logging.Logger) *LiveNotifier {
	return &LiveNotifier{
		producer:     kafka.NewCircuitBreakerProducer(producer, logger),
		eventFactory: eventFactory,
	}
}

func (n *LiveNotifier) Publish(ctx context.Context, event *domain.FulfillmentEvent) error {
	var payload json.RawMessage = event.Payload

	cloudEvent := n.eventFactory.CreateEventWithCorrelation(
		ctx,
		"fulfillment.live."+string(event.Type),
		"order/"+event.OrderID,
		payload,
		event.CorrelationID,
		event.OrderID,
	)
	cloudEvent.ID = event.EventID
	cloudEvent.Time = event.CreatedAt

	if err := n.producer.PublishEvent(ctx, kafka.Topics.FulfillmentLive, cloudEvent); err != nil {
		return fmt.Errorf("publishing live event %s: %w", event.EventID, err)
	}
	return nil
}
