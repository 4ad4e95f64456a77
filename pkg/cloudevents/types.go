package cloudevents

import (
	"time"
)

// EventType constants for fulfillment integration events
const (
	// Allocation events
	OrderAllocated          = "fulfillment.allocation.order-allocated"
	OrderPartiallyAllocated = "fulfillment.allocation.order-partially-allocated"
	OrderBackordered        = "fulfillment.allocation.order-backordered"
	OrderOnHold             = "fulfillment.allocation.order-on-hold"
	AllocationsReleased     = "fulfillment.allocation.released"

	// Picking events
	PickTaskCreated   = "fulfillment.picking.task-created"
	ItemPicked        = "fulfillment.picking.item-picked"
	ItemShort         = "fulfillment.picking.item-short"
	PickTaskCompleted = "fulfillment.picking.task-completed"

	// Packing events
	PackTaskCreated   = "fulfillment.packing.task-created"
	ItemVerified      = "fulfillment.packing.item-verified"
	PackTaskCompleted = "fulfillment.packing.task-completed"

	// Bin events
	BinCreated      = "fulfillment.bin.created"
	BinItemVerified = "fulfillment.bin.item-verified"
	BinVerified     = "fulfillment.bin.verified"

	// Order lifecycle events
	OrderPicked  = "fulfillment.order.picked"
	OrderPacked  = "fulfillment.order.packed"
	OrderShipped = "fulfillment.order.shipped"

	// Inbound integration events consumed by the worker
	InventoryLotReceived = "wms.inventory.lot-received"
	ShipmentCreated      = "wms.shipping.shipment-created"
)

// Source constants for event sources
const (
	SourceFulfillment = "/fulfillment/fulfillment-service"
	SourceInventory   = "/wms/inventory-service"
	SourceShipping    = "/wms/shipping-service"
)

// FulfillmentCloudEvent represents a CloudEvents v1.0 compliant event
type FulfillmentCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Fulfillment-specific extensions
	CorrelationID string `json:"fulfillmentcorrelationid,omitempty"`
	OrderID       string `json:"fulfillmentorderid,omitempty"`
	WorkflowID    string `json:"fulfillmentworkflowid,omitempty"`
}

// AllocationResultData is the payload for allocation outcome events
type AllocationResultData struct {
	OrderID        string           `json:"orderId"`
	Outcome        string           `json:"outcome"`
	HoldReason     string           `json:"holdReason,omitempty"`
	Lines          []AllocationLine `json:"lines,omitempty"`
	BackorderedSKU []string         `json:"backorderedSkus,omitempty"`
}

// AllocationLine describes one lot reservation within an allocation
type AllocationLine struct {
	AllocationID    string `json:"allocationId"`
	SKU             string `json:"sku"`
	InventoryUnitID string `json:"inventoryUnitId"`
	LocationID      string `json:"locationId"`
	Quantity        int    `json:"quantity"`
}

// TaskLifecycleData is the payload for pick/pack task lifecycle events
type TaskLifecycleData struct {
	TaskID     string `json:"taskId"`
	OrderID    string `json:"orderId"`
	TaskType   string `json:"taskType"`
	TotalItems int    `json:"totalItems"`
	ShortItems int    `json:"shortItems,omitempty"`
}

// ItemConfirmedData is the payload for per-item pick/pack events
type ItemConfirmedData struct {
	TaskID     string `json:"taskId"`
	TaskItemID string `json:"taskItemId"`
	OrderID    string `json:"orderId"`
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	Status     string `json:"status"`
	LocationID string `json:"locationId,omitempty"`
}

// OrderStatusData is the payload for order lifecycle events
type OrderStatusData struct {
	OrderID        string  `json:"orderId"`
	Status         string  `json:"status"`
	TrackingNumber string  `json:"trackingNumber,omitempty"`
	Carrier        string  `json:"carrier,omitempty"`
	Weight         float64 `json:"weight,omitempty"`
	WeightUnit     string  `json:"weightUnit,omitempty"`
}

// LotReceivedData is the inbound payload announcing new inventory for a SKU
type LotReceivedData struct {
	SKU         string     `json:"sku"`
	WarehouseID string     `json:"warehouseId"`
	LotCode     string     `json:"lotCode"`
	Quantity    int        `json:"quantity"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// ShipmentCreatedData is the inbound payload from the shipping service
type ShipmentCreatedData struct {
	ShipmentID     string `json:"shipmentId"`
	OrderID        string `json:"orderId"`
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
}
