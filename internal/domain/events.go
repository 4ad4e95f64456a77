package domain

import "time"

// DomainEvent is implemented by every event an aggregate records
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// OrderAllocatedEvent is recorded when every order line is fully covered
type OrderAllocatedEvent struct {
	OrderID     string    `json:"orderId"`
	WarehouseID string    `json:"warehouseId"`
	ItemCount   int       `json:"itemCount"`
	AllocatedAt time.Time `json:"allocatedAt"`
}

func (e *OrderAllocatedEvent) EventType() string { return "fulfillment.allocation.order-allocated" }
func (e *OrderAllocatedEvent) OccurredAt() time.Time { return e.AllocatedAt }

// OrderPartiallyAllocatedEvent is recorded when only part of the demand
// could be covered and the order accepts partials.
type OrderPartiallyAllocatedEvent struct {
	OrderID        string    `json:"orderId"`
	TotalRequired  int       `json:"totalRequired"`
	TotalAllocated int       `json:"totalAllocated"`
	OccurredOn     time.Time `json:"occurredOn"`
}

func (e *OrderPartiallyAllocatedEvent) EventType() string { return "fulfillment.allocation.order-partially-allocated" }
func (e *OrderPartiallyAllocatedEvent) OccurredAt() time.Time { return e.OccurredOn }

// OrderBackorderedEvent is recorded when no stock could be reserved
type OrderBackorderedEvent struct {
	OrderID    string    `json:"orderId"`
	OccurredOn time.Time `json:"occurredOn"`
}

func (e *OrderBackorderedEvent) EventType() string { return "fulfillment.allocation.order-backordered" }
func (e *OrderBackorderedEvent) OccurredAt() time.Time { return e.OccurredOn }

// OrderOnHoldEvent is recorded when an order is parked for manual review
type OrderOnHoldEvent struct {
	OrderID    string    `json:"orderId"`
	Reason     string    `json:"reason"`
	OccurredOn time.Time `json:"occurredOn"`
}

func (e *OrderOnHoldEvent) EventType() string { return "fulfillment.allocation.order-on-hold" }
func (e *OrderOnHoldEvent) OccurredAt() time.Time { return e.OccurredOn }

// AllocationsReleasedEvent is recorded when reserved stock is handed back
type AllocationsReleasedEvent struct {
	OrderID       string    `json:"orderId"`
	ReleasedCount int       `json:"releasedCount"`
	ReleasedUnits int       `json:"releasedUnits"`
	OccurredOn    time.Time `json:"occurredOn"`
}

func (e *AllocationsReleasedEvent) EventType() string { return "fulfillment.allocation.released" }
func (e *AllocationsReleasedEvent) OccurredAt() time.Time { return e.OccurredOn }

// OrderPickedEvent is recorded when picking finishes for an order
type OrderPickedEvent struct {
	OrderID    string    `json:"orderId"`
	OccurredOn time.Time `json:"occurredOn"`
}

func (e *OrderPickedEvent) EventType() string { return "fulfillment.order.picked" }
func (e *OrderPickedEvent) OccurredAt() time.Time { return e.OccurredOn }

// OrderPackedEvent is recorded when packing finishes for an order
type OrderPackedEvent struct {
	OrderID    string    `json:"orderId"`
	OccurredOn time.Time `json:"occurredOn"`
}

func (e *OrderPackedEvent) EventType() string { return "fulfillment.order.packed" }
func (e *OrderPackedEvent) OccurredAt() time.Time { return e.OccurredOn }

// OrderShippedEvent is recorded when an order leaves the building
type OrderShippedEvent struct {
	OrderID      string    `json:"orderId"`
	Carrier      string    `json:"carrier"`
	TrackingCode string    `json:"trackingCode"`
	ShippedAt    time.Time `json:"shippedAt"`
}

func (e *OrderShippedEvent) EventType() string { return "fulfillment.order.shipped" }
func (e *OrderShippedEvent) OccurredAt() time.Time { return e.ShippedAt }

// PickTaskCreatedEvent is recorded when a pick list is generated
type PickTaskCreatedEvent struct {
	TaskID    string    `json:"taskId"`
	OrderID   string    `json:"orderId"`
	ItemCount int       `json:"itemCount"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e *PickTaskCreatedEvent) EventType() string { return "fulfillment.picking.task-created" }
func (e *PickTaskCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// ItemPickedEvent is recorded for each pick confirmation, short or full
type ItemPickedEvent struct {
	TaskID     string    `json:"taskId"`
	OrderID    string    `json:"orderId"`
	ItemID     string    `json:"itemId"`
	SKU        string    `json:"sku"`
	Quantity   int       `json:"quantity"`
	Short      bool      `json:"short"`
	LocationID string    `json:"locationId"`
	PickedAt   time.Time `json:"pickedAt"`
}

func (e *ItemPickedEvent) EventType() string {
	if e.Short {
		return "fulfillment.picking.item-short"
	}
	return "fulfillment.picking.item-picked"
}
func (e *ItemPickedEvent) OccurredAt() time.Time { return e.PickedAt }

// PickTaskCompletedEvent is recorded when no pick line is left pending
type PickTaskCompletedEvent struct {
	TaskID         string    `json:"taskId"`
	OrderID        string    `json:"orderId"`
	TotalItems     int       `json:"totalItems"`
	CompletedItems int       `json:"completedItems"`
	ShortItems     int       `json:"shortItems"`
	CompletedAt    time.Time `json:"completedAt"`
}

func (e *PickTaskCompletedEvent) EventType() string { return "fulfillment.picking.task-completed" }
func (e *PickTaskCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// PackTaskCreatedEvent is recorded when a pack list is generated
type PackTaskCreatedEvent struct {
	TaskID    string    `json:"taskId"`
	OrderID   string    `json:"orderId"`
	ItemCount int       `json:"itemCount"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e *PackTaskCreatedEvent) EventType() string { return "fulfillment.packing.task-created" }
func (e *PackTaskCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// ItemVerifiedEvent is recorded for each verified pack line
type ItemVerifiedEvent struct {
	TaskID     string    `json:"taskId"`
	OrderID    string    `json:"orderId"`
	ItemID     string    `json:"itemId"`
	SKU        string    `json:"sku"`
	Quantity   int       `json:"quantity"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

func (e *ItemVerifiedEvent) EventType() string { return "fulfillment.packing.item-verified" }
func (e *ItemVerifiedEvent) OccurredAt() time.Time { return e.VerifiedAt }

// PackTaskCompletedEvent is recorded when a parcel is closed with weight
type PackTaskCompletedEvent struct {
	TaskID      string    `json:"taskId"`
	OrderID     string    `json:"orderId"`
	Weight      float64   `json:"weight"`
	WeightUnit  string    `json:"weightUnit,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e *PackTaskCompletedEvent) EventType() string { return "fulfillment.packing.task-completed" }
func (e *PackTaskCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// BinCreatedEvent is recorded when a bin is opened for an order
type BinCreatedEvent struct {
	BinID     string    `json:"binId"`
	OrderID   string    `json:"orderId"`
	ItemCount int       `json:"itemCount"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e *BinCreatedEvent) EventType() string { return "fulfillment.bin.created" }
func (e *BinCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// BinItemVerifiedEvent is recorded for each unit scanned against a bin
type BinItemVerifiedEvent struct {
	BinID       string    `json:"binId"`
	OrderID     string    `json:"orderId"`
	SKU         string    `json:"sku"`
	VerifiedQty int       `json:"verifiedQty"`
	Quantity    int       `json:"quantity"`
	VerifiedAt  time.Time `json:"verifiedAt"`
}

func (e *BinItemVerifiedEvent) EventType() string { return "fulfillment.bin.item-verified" }
func (e *BinItemVerifiedEvent) OccurredAt() time.Time { return e.VerifiedAt }

// BinVerifiedEvent is recorded when a bin is fully scanned out
type BinVerifiedEvent struct {
	BinID      string    `json:"binId"`
	OrderID    string    `json:"orderId"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

func (e *BinVerifiedEvent) EventType() string { return "fulfillment.bin.verified" }
func (e *BinVerifiedEvent) OccurredAt() time.Time { return e.VerifiedAt }

// BinPackedEvent is recorded when a verified bin is consumed into a
// completed packing task
type BinPackedEvent struct {
	BinID      string    `json:"binId"`
	OrderID    string    `json:"orderId"`
	PackTaskID string    `json:"packTaskId"`
	PackedAt   time.Time `json:"packedAt"`
}

func (e *BinPackedEvent) EventType() string { return "fulfillment.bin.packed" }
func (e *BinPackedEvent) OccurredAt() time.Time { return e.PackedAt }
