package kafka

import (
	"time"
)

// Config holds Kafka configuration
type Config struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string

	// Producer settings
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack

	// Consumer settings
	MinBytes      int
	MaxBytes      int
	MaxWait       time.Duration
	CommitTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:       []string{"localhost:9092"},
		ConsumerGroup: "fulfillment-service",
		ClientID:      "fulfillment-client",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,

		MinBytes:      1,
		MaxBytes:      10e6,
		MaxWait:       500 * time.Millisecond,
		CommitTimeout: 5 * time.Second,
	}
}

// Topics contains all fulfillment Kafka topic names
var Topics = struct {
	// Outbound domain event topics fed by the outbox publisher
	AllocationEvents string
	PickingEvents    string
	PackingEvents    string
	OrdersEvents     string

	// Best-effort live stream for fulfillment trackers
	FulfillmentLive string

	// Inbound topics consumed by the worker
	InventoryEvents string
	ShippingEvents  string
}{
	AllocationEvents: "fulfillment.allocation.events",
	PickingEvents:    "fulfillment.picking.events",
	PackingEvents:    "fulfillment.packing.events",
	OrdersEvents:     "fulfillment.orders.events",

	FulfillmentLive: "fulfillment.live",

	InventoryEvents: "wms.inventory.events",
	ShippingEvents:  "wms.shipping.events",
}

// TopicForEventType routes an integration event type to its topic
func TopicForEventType(eventType string) string {
	switch {
	case hasPrefix(eventType, "fulfillment.allocation."):
		return Topics.AllocationEvents
	case hasPrefix(eventType, "fulfillment.picking."):
		return Topics.PickingEvents
	case hasPrefix(eventType, "fulfillment.packing."), hasPrefix(eventType, "fulfillment.bin."):
		return Topics.PackingEvents
	default:
		return Topics.OrdersEvents
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
