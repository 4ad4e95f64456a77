package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending            OrderStatus = "pending"
	OrderStatusOnHold             OrderStatus = "on_hold"
	OrderStatusBackordered        OrderStatus = "backordered"
	OrderStatusPartiallyAllocated OrderStatus = "partially_allocated"
	OrderStatusAllocated          OrderStatus = "allocated"
	OrderStatusPicking            OrderStatus = "picking"
	OrderStatusPicked             OrderStatus = "picked"
	OrderStatusPacking            OrderStatus = "packing"
	OrderStatusPacked             OrderStatus = "packed"
	OrderStatusShipped            OrderStatus = "shipped"
	OrderStatusDelivered          OrderStatus = "delivered"
	OrderStatusCancelled          OrderStatus = "cancelled"
)

// IsTerminal returns true for statuses with no outgoing transitions
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Order is the aggregate root for the fulfillment bounded context
type Order struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID      string             `bson:"orderId" json:"orderId"`
	CustomerID   string             `bson:"customerId" json:"customerId"`
	WarehouseID  string             `bson:"warehouseId" json:"warehouseId"`
	Priority     int                `bson:"priority" json:"priority"`
	Status       OrderStatus        `bson:"status" json:"status"`
	HoldReason   string             `bson:"holdReason,omitempty" json:"holdReason,omitempty"`
	Items        []OrderItem        `bson:"items" json:"items"`
	Carrier      string             `bson:"carrier,omitempty" json:"carrier,omitempty"`
	TrackingCode string             `bson:"trackingCode,omitempty" json:"trackingCode,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
	AllocatedAt  *time.Time         `bson:"allocatedAt,omitempty" json:"allocatedAt,omitempty"`
	PickedAt     *time.Time         `bson:"pickedAt,omitempty" json:"pickedAt,omitempty"`
	PackedAt     *time.Time         `bson:"packedAt,omitempty" json:"packedAt,omitempty"`
	ShippedAt    *time.Time         `bson:"shippedAt,omitempty" json:"shippedAt,omitempty"`
	DomainEvents []DomainEvent      `bson:"-" json:"-"`
}

// OrderItem represents a line of an order
type OrderItem struct {
	ItemID            string `bson:"itemId" json:"itemId"`
	SKU               string `bson:"sku" json:"sku"`
	ProductName       string `bson:"productName" json:"productName"`
	UPC               string `bson:"upc,omitempty" json:"upc,omitempty"`
	Barcode           string `bson:"barcode,omitempty" json:"barcode,omitempty"`
	Quantity          int    `bson:"quantity" json:"quantity"`
	QuantityAllocated int    `bson:"quantityAllocated" json:"quantityAllocated"`
	QuantityPicked    int    `bson:"quantityPicked" json:"quantityPicked"`
	Matched           bool   `bson:"matched" json:"matched"`
	UnitPriceCents    int64  `bson:"unitPriceCents,omitempty" json:"unitPriceCents,omitempty"`
}

// Remaining returns the quantity still awaiting allocation
func (i *OrderItem) Remaining() int {
	return i.Quantity - i.QuantityAllocated
}

// NewOrder creates a new Order aggregate
func NewOrder(orderID, customerID, warehouseID string, priority int, items []OrderItem) (*Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order must have at least one item")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("order item %s: %w", item.SKU, ErrInvalidQuantity)
		}
	}

	now := time.Now()
	return &Order{
		OrderID:      orderID,
		CustomerID:   customerID,
		WarehouseID:  warehouseID,
		Priority:     priority,
		Status:       OrderStatusPending,
		Items:        items,
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}, nil
}

// CanAllocate reports whether the order may enter allocation
func (o *Order) CanAllocate() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusBackordered, OrderStatusPartiallyAllocated:
		return true
	}
	return false
}

// FindItem returns the order item with the given ID
func (o *Order) FindItem(itemID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ItemID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// MatchedItems returns the items resolved to a catalog SKU
func (o *Order) MatchedItems() []*OrderItem {
	matched := make([]*OrderItem, 0, len(o.Items))
	for i := range o.Items {
		if o.Items[i].Matched {
			matched = append(matched, &o.Items[i])
		}
	}
	return matched
}

// UnmatchedCount returns the number of items not resolved to a SKU
func (o *Order) UnmatchedCount() int {
	n := 0
	for i := range o.Items {
		if !o.Items[i].Matched {
			n++
		}
	}
	return n
}

// TotalRequired sums the requested quantity over matched items
func (o *Order) TotalRequired() int {
	total := 0
	for i := range o.Items {
		if o.Items[i].Matched {
			total += o.Items[i].Quantity
		}
	}
	return total
}

// TotalAllocated sums the allocated quantity over matched items
func (o *Order) TotalAllocated() int {
	total := 0
	for i := range o.Items {
		if o.Items[i].Matched {
			total += o.Items[i].QuantityAllocated
		}
	}
	return total
}

// FullyAllocated reports whether every matched item is covered
func (o *Order) FullyAllocated() bool {
	required := o.TotalRequired()
	return required > 0 && o.TotalAllocated() == required
}

// AddAllocatedQuantity records qty more units allocated against an item
func (o *Order) AddAllocatedQuantity(itemID string, qty int) error {
	item := o.FindItem(itemID)
	if item == nil {
		return ErrOrderItemNotFound
	}
	if qty <= 0 || item.QuantityAllocated+qty > item.Quantity {
		return fmt.Errorf("item %s: allocating %d of %d remaining: %w",
			item.SKU, qty, item.Remaining(), ErrInvalidQuantity)
	}
	item.QuantityAllocated += qty
	o.UpdatedAt = time.Now()
	return nil
}

// ReleaseAllocatedQuantity returns qty allocated units on an item
func (o *Order) ReleaseAllocatedQuantity(itemID string, qty int) error {
	item := o.FindItem(itemID)
	if item == nil {
		return ErrOrderItemNotFound
	}
	if qty <= 0 || qty > item.QuantityAllocated-item.QuantityPicked {
		return fmt.Errorf("item %s: releasing %d of %d unpicked: %w",
			item.SKU, qty, item.QuantityAllocated-item.QuantityPicked, ErrInvalidQuantity)
	}
	item.QuantityAllocated -= qty
	o.UpdatedAt = time.Now()
	return nil
}

// AddPickedQuantity records qty units physically picked for an item
func (o *Order) AddPickedQuantity(itemID string, qty int) error {
	item := o.FindItem(itemID)
	if item == nil {
		return ErrOrderItemNotFound
	}
	if qty < 0 || item.QuantityPicked+qty > item.QuantityAllocated {
		return fmt.Errorf("item %s: picking %d with %d allocated: %w",
			item.SKU, qty, item.QuantityAllocated, ErrInvalidQuantity)
	}
	item.QuantityPicked += qty
	o.UpdatedAt = time.Now()
	return nil
}

// MarkAllocated transitions the order to allocated
func (o *Order) MarkAllocated() error {
	if !o.CanAllocate() {
		return o.transitionError(OrderStatusAllocated)
	}

	now := time.Now()
	o.Status = OrderStatusAllocated
	o.HoldReason = ""
	o.AllocatedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(&OrderAllocatedEvent{
		OrderID:     o.OrderID,
		WarehouseID: o.WarehouseID,
		ItemCount:   len(o.Items),
		AllocatedAt: now,
	})

	return nil
}

// MarkPartiallyAllocated transitions the order to partially_allocated
func (o *Order) MarkPartiallyAllocated() error {
	if !o.CanAllocate() {
		return o.transitionError(OrderStatusPartiallyAllocated)
	}

	now := time.Now()
	o.Status = OrderStatusPartiallyAllocated
	o.HoldReason = ""
	o.UpdatedAt = now

	o.AddDomainEvent(&OrderPartiallyAllocatedEvent{
		OrderID:        o.OrderID,
		TotalRequired:  o.TotalRequired(),
		TotalAllocated: o.TotalAllocated(),
		OccurredOn:     now,
	})

	return nil
}

// MarkBackordered transitions the order to backordered
func (o *Order) MarkBackordered() error {
	if !o.CanAllocate() {
		return o.transitionError(OrderStatusBackordered)
	}

	now := time.Now()
	o.Status = OrderStatusBackordered
	o.HoldReason = ""
	o.UpdatedAt = now

	o.AddDomainEvent(&OrderBackorderedEvent{
		OrderID:    o.OrderID,
		OccurredOn: now,
	})

	return nil
}

// PlaceOnHold parks the order with a reason. The status is reachable from
// any non-terminal state.
func (o *Order) PlaceOnHold(reason string) error {
	if o.Status.IsTerminal() {
		return o.transitionError(OrderStatusOnHold)
	}
	if reason == "" {
		return fmt.Errorf("hold reason is required: %w", ErrInvalidStatus)
	}

	now := time.Now()
	o.Status = OrderStatusOnHold
	o.HoldReason = reason
	o.UpdatedAt = now

	o.AddDomainEvent(&OrderOnHoldEvent{
		OrderID:    o.OrderID,
		Reason:     reason,
		OccurredOn: now,
	})

	return nil
}

// BeginPicking transitions the order to picking. Partially allocated
// orders qualify; they pick and ship what was reserved.
func (o *Order) BeginPicking() error {
	if o.Status != OrderStatusAllocated && o.Status != OrderStatusPartiallyAllocated {
		return o.transitionError(OrderStatusPicking)
	}
	o.Status = OrderStatusPicking
	o.UpdatedAt = time.Now()
	return nil
}

// MarkPicked transitions the order to picked
func (o *Order) MarkPicked() error {
	if o.Status != OrderStatusPicking {
		return o.transitionError(OrderStatusPicked)
	}

	now := time.Now()
	o.Status = OrderStatusPicked
	o.PickedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(&OrderPickedEvent{
		OrderID:    o.OrderID,
		OccurredOn: now,
	})

	return nil
}

// BeginPacking transitions the order to packing
func (o *Order) BeginPacking() error {
	if o.Status != OrderStatusPicked {
		return o.transitionError(OrderStatusPacking)
	}
	o.Status = OrderStatusPacking
	o.UpdatedAt = time.Now()
	return nil
}

// MarkPacked transitions the order to packed
func (o *Order) MarkPacked() error {
	if o.Status != OrderStatusPacking {
		return o.transitionError(OrderStatusPacked)
	}

	now := time.Now()
	o.Status = OrderStatusPacked
	o.PackedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(&OrderPackedEvent{
		OrderID:    o.OrderID,
		OccurredOn: now,
	})

	return nil
}

// MarkShipped transitions the order to shipped, recording the hand-off
func (o *Order) MarkShipped(carrier, trackingCode string) error {
	if o.Status != OrderStatusPacked {
		return o.transitionError(OrderStatusShipped)
	}

	now := time.Now()
	o.Status = OrderStatusShipped
	o.Carrier = carrier
	o.TrackingCode = trackingCode
	o.ShippedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(&OrderShippedEvent{
		OrderID:      o.OrderID,
		Carrier:      carrier,
		TrackingCode: trackingCode,
		ShippedAt:    now,
	})

	return nil
}

// MarkDelivered transitions the order to delivered
func (o *Order) MarkDelivered() error {
	if o.Status != OrderStatusShipped {
		return o.transitionError(OrderStatusDelivered)
	}
	o.Status = OrderStatusDelivered
	o.UpdatedAt = time.Now()
	return nil
}

// Cancel transitions the order to cancelled
func (o *Order) Cancel(reason string) error {
	if o.Status.IsTerminal() || o.Status == OrderStatusShipped {
		return o.transitionError(OrderStatusCancelled)
	}
	o.Status = OrderStatusCancelled
	o.HoldReason = reason
	o.UpdatedAt = time.Now()
	return nil
}

// ReturnToPending resets the order after its allocations are released
func (o *Order) ReturnToPending() error {
	switch o.Status {
	case OrderStatusAllocated, OrderStatusPartiallyAllocated, OrderStatusBackordered, OrderStatusOnHold:
		o.Status = OrderStatusPending
		o.HoldReason = ""
		o.AllocatedAt = nil
		o.UpdatedAt = time.Now()
		return nil
	}
	return o.transitionError(OrderStatusPending)
}

func (o *Order) transitionError(target OrderStatus) error {
	return fmt.Errorf("order %s: cannot transition from %s to %s: %w",
		o.OrderID, o.Status, target, ErrInvalidStatus)
}

// CurrentStep returns a UI-friendly projection of the order status
func (o *Order) CurrentStep() string {
	switch o.Status {
	case OrderStatusPending, OrderStatusOnHold, OrderStatusBackordered,
		OrderStatusPartiallyAllocated, OrderStatusAllocated:
		return "allocation"
	case OrderStatusPicking:
		return "picking"
	case OrderStatusPicked, OrderStatusPacking:
		return "packing"
	case OrderStatusPacked:
		return "shipping"
	case OrderStatusShipped, OrderStatusDelivered:
		return "complete"
	case OrderStatusCancelled:
		return "cancelled"
	}
	return string(o.Status)
}

// AddDomainEvent adds a domain event
func (o *Order) AddDomainEvent(event DomainEvent) {
	o.DomainEvents = append(o.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (o *Order) ClearDomainEvents() {
	o.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (o *Order) GetDomainEvents() []DomainEvent {
	return o.DomainEvents
}
