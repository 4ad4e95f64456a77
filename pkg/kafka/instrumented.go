package kafka

import (
	"context"
	"time"

	"github.com/fulfillment-platform/fulfillment-service/pkg/cloudevents"
	"github.com/fulfillment-platform/fulfillment-service/pkg/logging"
	"github.com/fulfillment-platform/fulfillment-service/pkg/metrics"
)

// InstrumentedProducer wraps Producer with metrics and logging
type InstrumentedProducer struct {
	producer *Producer
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewInstrumentedProducer creates a producer that records metrics per publish
func NewInstrumentedProducer(producer *Producer, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{
		producer: producer,
		metrics:  m,
		logger:   logger,
	}
}

// PublishEvent publishes a CloudEvent and records the outcome
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.FulfillmentCloudEvent) error {
	start := time.Now()
	err := p.producer.PublishEvent(ctx, topic, event)
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, duration)
	}
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, duration)
	}

	return err
}

// PublishBatch publishes multiple events and records the outcome
func (p *InstrumentedProducer) PublishBatch(ctx context.Context, topic string, events []*cloudevents.FulfillmentCloudEvent) error {
	start := time.Now()
	err := p.producer.PublishBatch(ctx, topic, events)
	duration := time.Since(start)

	for _, event := range events {
		if p.metrics != nil {
			p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, duration)
		}
	}

	return err
}

// Close closes the underlying producer
func (p *InstrumentedProducer) Close() error {
	return p.producer.Close()
}

// InstrumentedConsumer wraps Consumer with metrics per handled event
type InstrumentedConsumer struct {
	consumer *Consumer
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewInstrumentedConsumer creates a consumer that records metrics per event
func NewInstrumentedConsumer(consumer *Consumer, m *metrics.Metrics, logger *logging.Logger) *InstrumentedConsumer {
	return &InstrumentedConsumer{
		consumer: consumer,
		metrics:  m,
		logger:   logger,
	}
}

func (c *InstrumentedConsumer) wrap(topic string, handler EventHandler) EventHandler {
	return func(ctx context.Context, event *cloudevents.FulfillmentCloudEvent) error {
		err := handler(ctx, event)
		if c.metrics != nil {
			c.metrics.RecordKafkaConsume(topic, event.Type, err == nil)
		}
		return err
	}
}

// Subscribe registers an instrumented handler for an event type
func (c *InstrumentedConsumer) Subscribe(topic string, eventType string, handler EventHandler) {
	c.consumer.Subscribe(topic, eventType, c.wrap(topic, handler))
}

// SubscribeAll registers an instrumented handler for all event types
func (c *InstrumentedConsumer) SubscribeAll(topic string, handler EventHandler) {
	c.consumer.SubscribeAll(topic, c.wrap(topic, handler))
}

// Start starts the underlying consumer
func (c *InstrumentedConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close closes the underlying consumer
func (c *InstrumentedConsumer) Close() error {
	return c.consumer.Close()
}
