package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FulfillmentEventType names an entry in the per-order activity log
type FulfillmentEventType string

const (
	EventPickListGenerated   FulfillmentEventType = "picklist:generated"
	EventPickItemConfirmed   FulfillmentEventType = "picklist:item_picked"
	EventPickListCompleted   FulfillmentEventType = "picklist:completed"
	EventOrderPicked         FulfillmentEventType = "order:picked"
	EventPackingStarted      FulfillmentEventType = "packing:started"
	EventPackItemVerified    FulfillmentEventType = "packing:item_verified"
	EventBinCreated          FulfillmentEventType = "bin:created"
	EventBinItemVerified     FulfillmentEventType = "bin:item_verified"
	EventBinVerified         FulfillmentEventType = "bin:verified"
	EventPackingCompleted    FulfillmentEventType = "packing:completed"
	EventOrderPacked         FulfillmentEventType = "order:packed"
	EventOrderShipped        FulfillmentEventType = "order:shipped"
	EventOrderAllocated      FulfillmentEventType = "order:allocated"
	EventOrderPartiallyAlloc FulfillmentEventType = "order:partially_allocated"
	EventOrderBackordered    FulfillmentEventType = "order:backordered"
	EventOrderOnHold         FulfillmentEventType = "order:on_hold"
	EventAllocationsReleased FulfillmentEventType = "order:allocations_released"
)

// FulfillmentEvent is one append-only entry in an order's activity log.
// The log is the durable record shown to operators; integration events
// flow through the outbox separately.
type FulfillmentEvent struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"-"`
	EventID       string               `bson:"eventId" json:"eventId"`
	OrderID       string               `bson:"orderId" json:"orderId"`
	Type          FulfillmentEventType `bson:"type" json:"type"`
	Payload       json.RawMessage      `bson:"payload,omitempty" json:"payload,omitempty"`
	ActorID       string               `bson:"actorId,omitempty" json:"actorId,omitempty"`
	CorrelationID string               `bson:"correlationId,omitempty" json:"correlationId,omitempty"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
}

// NewFulfillmentEvent builds a log entry, marshalling the payload
func NewFulfillmentEvent(eventID, orderID string, eventType FulfillmentEventType, payload any, actorID, correlationID string, at time.Time) (*FulfillmentEvent, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshalling %s payload: %w", eventType, err)
		}
		raw = data
	}
	return &FulfillmentEvent{
		EventID:       eventID,
		OrderID:       orderID,
		Type:          eventType,
		Payload:       raw,
		ActorID:       actorID,
		CorrelationID: correlationID,
		CreatedAt:     at,
	}, nil
}

// PickListGeneratedPayload accompanies picklist:generated
type PickListGeneratedPayload struct {
	TaskID    string `json:"taskId"`
	ItemCount int    `json:"itemCount"`
}

// PickItemConfirmedPayload accompanies picklist:item_picked
type PickItemConfirmedPayload struct {
	TaskID      string `json:"taskId"`
	ItemID      string `json:"itemId"`
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	Short       bool   `json:"short,omitempty"`
	ShortReason string `json:"shortReason,omitempty"`
	LocationID  string `json:"locationId,omitempty"`
}

// PickListCompletedPayload accompanies picklist:completed
type PickListCompletedPayload struct {
	TaskID         string `json:"taskId"`
	CompletedItems int    `json:"completedItems"`
	ShortItems     int    `json:"shortItems"`
}

// OrderPickedPayload accompanies order:picked
type OrderPickedPayload struct {
	TaskID string `json:"taskId"`
}

// PackingStartedPayload accompanies packing:started
type PackingStartedPayload struct {
	TaskID    string `json:"taskId"`
	ItemCount int    `json:"itemCount"`
}

// PackItemVerifiedPayload accompanies packing:item_verified
type PackItemVerifiedPayload struct {
	TaskID   string `json:"taskId"`
	ItemID   string `json:"itemId"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// BinCreatedPayload accompanies bin:created
type BinCreatedPayload struct {
	BinID     string `json:"binId"`
	Barcode   string `json:"barcode,omitempty"`
	ItemCount int    `json:"itemCount"`
}

// BinItemVerifiedPayload accompanies bin:item_verified
type BinItemVerifiedPayload struct {
	BinID       string `json:"binId"`
	SKU         string `json:"sku"`
	VerifiedQty int    `json:"verifiedQty"`
	Quantity    int    `json:"quantity"`
}

// BinVerifiedPayload accompanies bin:verified
type BinVerifiedPayload struct {
	BinID string `json:"binId"`
}

// PackingCompletedPayload accompanies packing:completed
type PackingCompletedPayload struct {
	TaskID     string  `json:"taskId"`
	Weight     float64 `json:"weight"`
	WeightUnit string  `json:"weightUnit,omitempty"`
}

// OrderPackedPayload accompanies order:packed
type OrderPackedPayload struct {
	TaskID string `json:"taskId"`
}

// OrderShippedPayload accompanies order:shipped
type OrderShippedPayload struct {
	Carrier      string `json:"carrier"`
	TrackingCode string `json:"trackingCode"`
}

// OrderAllocatedPayload accompanies order:allocated and
// order:partially_allocated.
type OrderAllocatedPayload struct {
	AllocationCount int `json:"allocationCount"`
	TotalRequired   int `json:"totalRequired"`
	TotalAllocated  int `json:"totalAllocated"`
}

// OrderBackorderedPayload accompanies order:backordered
type OrderBackorderedPayload struct {
	ShortSKUs []string `json:"shortSkus,omitempty"`
}

// OrderOnHoldPayload accompanies order:on_hold
type OrderOnHoldPayload struct {
	Reason        string   `json:"reason"`
	UnmatchedSKUs []string `json:"unmatchedSkus,omitempty"`
}

// AllocationsReleasedPayload accompanies order:allocations_released
type AllocationsReleasedPayload struct {
	ReleasedCount int `json:"releasedCount"`
	ReleasedUnits int `json:"releasedUnits"`
}

// DecodePayload unmarshals an event's raw payload into its typed form.
// Events without a payload return nil.
func DecodePayload(eventType FulfillmentEventType, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var target any
	switch eventType {
	case EventPickListGenerated:
		target = &PickListGeneratedPayload{}
	case EventPickItemConfirmed:
		target = &PickItemConfirmedPayload{}
	case EventPickListCompleted:
		target = &PickListCompletedPayload{}
	case EventOrderPicked:
		target = &OrderPickedPayload{}
	case EventPackingStarted:
		target = &PackingStartedPayload{}
	case EventPackItemVerified:
		target = &PackItemVerifiedPayload{}
	case EventBinCreated:
		target = &BinCreatedPayload{}
	case EventBinItemVerified:
		target = &BinItemVerifiedPayload{}
	case EventBinVerified:
		target = &BinVerifiedPayload{}
	case EventPackingCompleted:
		target = &PackingCompletedPayload{}
	case EventOrderPacked:
		target = &OrderPackedPayload{}
	case EventOrderShipped:
		target = &OrderShippedPayload{}
	case EventOrderAllocated, EventOrderPartiallyAlloc:
		target = &OrderAllocatedPayload{}
	case EventOrderBackordered:
		target = &OrderBackorderedPayload{}
	case EventOrderOnHold:
		target = &OrderOnHoldPayload{}
	case EventAllocationsReleased:
		target = &AllocationsReleasedPayload{}
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", eventType, err)
	}
	return target, nil
}
