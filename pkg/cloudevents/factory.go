package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for fulfillment integration events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new FulfillmentCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *FulfillmentCloudEvent {
	return &FulfillmentCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// CreateEventWithCorrelation creates an event with correlation tracking
func (f *EventFactory) CreateEventWithCorrelation(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	correlationID string,
	orderID string,
) *FulfillmentCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.CorrelationID = correlationID
	event.OrderID = orderID
	return event
}

// CreateAllocationResultEvent creates an allocation outcome event
func (f *EventFactory) CreateAllocationResultEvent(
	ctx context.Context,
	eventType string,
	orderID string,
	data AllocationResultData,
) *FulfillmentCloudEvent {
	event := f.CreateEvent(ctx, eventType, "order/"+orderID, data)
	event.OrderID = orderID
	return event
}

// CreateTaskLifecycleEvent creates a pick/pack task lifecycle event
func (f *EventFactory) CreateTaskLifecycleEvent(
	ctx context.Context,
	eventType string,
	data TaskLifecycleData,
) *FulfillmentCloudEvent {
	event := f.CreateEvent(ctx, eventType, "task/"+data.TaskID, data)
	event.OrderID = data.OrderID
	return event
}

// CreateItemConfirmedEvent creates a per-item pick/pack event
func (f *EventFactory) CreateItemConfirmedEvent(
	ctx context.Context,
	eventType string,
	data ItemConfirmedData,
) *FulfillmentCloudEvent {
	event := f.CreateEvent(ctx, eventType, "task/"+data.TaskID, data)
	event.OrderID = data.OrderID
	return event
}

// CreateOrderStatusEvent creates an order lifecycle event
func (f *EventFactory) CreateOrderStatusEvent(
	ctx context.Context,
	eventType string,
	data OrderStatusData,
) *FulfillmentCloudEvent {
	event := f.CreateEvent(ctx, eventType, "order/"+data.OrderID, data)
	event.OrderID = data.OrderID
	return event
}
