package application

import "github.com/fulfillment-platform/fulfillment-service/internal/domain"

// AllocateOrderCommand requests allocation for one order
type AllocateOrderCommand struct {
	OrderID      string `json:"orderId" validate:"required,order_id"`
	AllowPartial bool   `json:"allowPartial"`
	ActorID      string `json:"-"`
}

// AllocateOrdersCommand requests allocation for a batch of orders
type AllocateOrdersCommand struct {
	Orders  []AllocateOrderCommand `json:"orders" validate:"required,min=1,dive"`
	ActorID string                 `json:"-"`
}

// ReleaseAllocationsCommand returns an order's unpicked reservations
type ReleaseAllocationsCommand struct {
	OrderID string `json:"orderId" validate:"required,order_id"`
	Reason  string `json:"reason,omitempty" validate:"omitempty,max=500"`
	ActorID string `json:"-"`
}

// CheckBackordersCommand rechecks waiting orders after stock arrives
type CheckBackordersCommand struct {
	SKU     string `json:"sku" validate:"required,sku"`
	ActorID string `json:"-"`
}

// GeneratePickListCommand builds the pick task for an allocated order
type GeneratePickListCommand struct {
	OrderID string `json:"orderId" validate:"required,order_id"`
	ActorID string `json:"-"`
}

// ConfirmPickItemCommand records a pick against one task line.
// Quantity nil means the full required quantity.
type ConfirmPickItemCommand struct {
	TaskItemID  string `json:"-"`
	Quantity    *int   `json:"quantity,omitempty" validate:"omitempty,min=0"`
	ShortReason string `json:"shortReason,omitempty" validate:"omitempty,max=500"`
	ActorID     string `json:"-"`
}

// GeneratePackListCommand builds the pack task from picked quantities
type GeneratePackListCommand struct {
	OrderID string `json:"orderId" validate:"required,order_id"`
	ActorID string `json:"-"`
}

// VerifyPackItemCommand marks one pack line verified
type VerifyPackItemCommand struct {
	TaskItemID string `json:"-"`
	ActorID    string `json:"-"`
}

// CreatePickBinCommand opens a bin holding an order's picked units
type CreatePickBinCommand struct {
	OrderID string `json:"orderId" validate:"required,order_id"`
	Barcode string `json:"barcode,omitempty" validate:"omitempty,max=64"`
	ActorID string `json:"-"`
}

// VerifyBinItemCommand records one scanned unit against a bin
type VerifyBinItemCommand struct {
	BinID   string `json:"-"`
	Barcode string `json:"barcode" validate:"required,max=64"`
	ActorID string `json:"-"`
}

// CompletePackingCommand closes packing with the parcel weight. Exactly
// one of TaskID or BinID identifies the work.
type CompletePackingCommand struct {
	TaskID     string             `json:"-"`
	BinID      string             `json:"-"`
	Weight     float64            `json:"weight" validate:"required,gt=0"`
	WeightUnit string             `json:"weightUnit,omitempty" validate:"omitempty,oneof=kg lb"`
	Dimensions *domain.Dimensions `json:"dimensions,omitempty"`
	ActorID    string             `json:"-"`
}

// MarkShippedCommand records the carrier hand-off
type MarkShippedCommand struct {
	OrderID      string `json:"orderId" validate:"required,order_id"`
	Carrier      string `json:"carrier" validate:"required,carrier_code"`
	TrackingCode string `json:"trackingCode" validate:"required,tracking_number"`
	ActorID      string `json:"-"`
}

// GetFulfillmentStatusQuery fetches the full pipeline view of an order
type GetFulfillmentStatusQuery struct {
	OrderID string `validate:"required,order_id"`
}

// GetEventsSinceQuery replays an order's activity log after an anchor
type GetEventsSinceQuery struct {
	OrderID      string `validate:"required,order_id"`
	SinceEventID string
}
