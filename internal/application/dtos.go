package application

import (
	"encoding/json"
	"time"

	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
)

// OrderDTO is the API representation of an order
type OrderDTO struct {
	OrderID      string         `json:"orderId"`
	CustomerID   string         `json:"customerId"`
	WarehouseID  string         `json:"warehouseId"`
	Priority     int            `json:"priority"`
	Status       string         `json:"status"`
	CurrentStep  string         `json:"currentStep"`
	HoldReason   string         `json:"holdReason,omitempty"`
	Items        []OrderItemDTO `json:"items"`
	Carrier      string         `json:"carrier,omitempty"`
	TrackingCode string         `json:"trackingCode,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	AllocatedAt  *time.Time     `json:"allocatedAt,omitempty"`
	ShippedAt    *time.Time     `json:"shippedAt,omitempty"`
}

// OrderItemDTO is one order line
type OrderItemDTO struct {
	ItemID            string `json:"itemId"`
	SKU               string `json:"sku"`
	ProductName       string `json:"productName"`
	Quantity          int    `json:"quantity"`
	QuantityAllocated int    `json:"quantityAllocated"`
	QuantityPicked    int    `json:"quantityPicked"`
	Matched           bool   `json:"matched"`
}

// AllocationResultDTO is the outcome of allocating one order
type AllocationResultDTO struct {
	OrderID        string          `json:"orderId"`
	Status         string          `json:"status"`
	TotalRequired  int             `json:"totalRequired"`
	TotalAllocated int             `json:"totalAllocated"`
	Allocations    []AllocationDTO `json:"allocations,omitempty"`
	ShortSKUs      []string        `json:"shortSkus,omitempty"`
	HoldReason     string          `json:"holdReason,omitempty"`
}

// AllocationDTO is one lot reservation
type AllocationDTO struct {
	AllocationID    string `json:"allocationId"`
	OrderItemID     string `json:"orderItemId"`
	SKU             string `json:"sku"`
	InventoryUnitID string `json:"inventoryUnitId"`
	LocationID      string `json:"locationId"`
	Quantity        int    `json:"quantity"`
	QuantityPicked  int    `json:"quantityPicked"`
	Status          string `json:"status"`
}

// BatchAllocationResultDTO is the outcome of a batch run
type BatchAllocationResultDTO struct {
	Results []BatchOrderResultDTO `json:"results"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// BatchOrderResultDTO is one order's slot in a batch outcome
type BatchOrderResultDTO struct {
	OrderID string               `json:"orderId"`
	Result  *AllocationResultDTO `json:"result,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// ReleaseResultDTO is the outcome of releasing an order's reservations
type ReleaseResultDTO struct {
	OrderID       string `json:"orderId"`
	ReleasedCount int    `json:"releasedCount"`
	ReleasedUnits int    `json:"releasedUnits"`
	OrderStatus   string `json:"orderStatus"`
}

// BackorderRecheckDTO reports which waiting orders were re-enqueued
type BackorderRecheckDTO struct {
	SKU      string   `json:"sku"`
	Enqueued []string `json:"enqueuedOrderIds"`
}

// TaskDTO is the API representation of a pick or pack task
type TaskDTO struct {
	TaskID         string             `json:"taskId"`
	OrderID        string             `json:"orderId"`
	Type           string             `json:"type"`
	Status         string             `json:"status"`
	Items          []TaskItemDTO      `json:"items"`
	TotalItems     int                `json:"totalItems"`
	CompletedItems int                `json:"completedItems"`
	ShortItems     int                `json:"shortItems"`
	Progress       float64            `json:"progress"`
	PackedWeight   float64            `json:"packedWeight,omitempty"`
	WeightUnit     string             `json:"weightUnit,omitempty"`
	Dimensions     *domain.Dimensions `json:"dimensions,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	StartedAt      *time.Time         `json:"startedAt,omitempty"`
	CompletedAt    *time.Time         `json:"completedAt,omitempty"`
}

// TaskItemDTO is one task line
type TaskItemDTO struct {
	ItemID            string `json:"itemId"`
	Sequence          int    `json:"sequence"`
	SKU               string `json:"sku"`
	ProductName       string `json:"productName"`
	Quantity          int    `json:"quantity"`
	QuantityCompleted int    `json:"quantityCompleted"`
	Status            string `json:"status"`
	LocationID        string `json:"locationId,omitempty"`
	LocationZone      string `json:"locationZone,omitempty"`
	LocationLabel     string `json:"locationLabel,omitempty"`
	ShortReason       string `json:"shortReason,omitempty"`
}

// ConfirmPickResultDTO reports one pick confirmation
type ConfirmPickResultDTO struct {
	Item         TaskItemDTO `json:"item"`
	Short        bool        `json:"short"`
	TaskComplete bool        `json:"taskComplete"`
	OrderStatus  string      `json:"orderStatus"`
}

// BinDTO is the API representation of a pick bin
type BinDTO struct {
	BinID      string       `json:"binId"`
	OrderID    string       `json:"orderId"`
	PickTaskID string       `json:"pickTaskId"`
	Barcode    string       `json:"barcode"`
	Status     string       `json:"status"`
	Items      []BinItemDTO `json:"items"`
	PackTaskID string       `json:"packTaskId,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	VerifiedAt *time.Time   `json:"verifiedAt,omitempty"`
	PackedAt   *time.Time   `json:"packedAt,omitempty"`
}

// BinItemDTO is one bin line
type BinItemDTO struct {
	SKU         string `json:"sku"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	VerifiedQty int    `json:"verifiedQty"`
}

// VerifyBinItemResultDTO reports one bin scan
type VerifyBinItemResultDTO struct {
	Item            BinItemDTO `json:"item"`
	AlreadyVerified bool       `json:"alreadyVerified"`
	AllVerified     bool       `json:"allVerified"`
	BinStatus       string     `json:"binStatus"`
}

// EventDTO is one activity log entry
type EventDTO struct {
	EventID       string          `json:"eventId"`
	OrderID       string          `json:"orderId"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	ActorID       string          `json:"actorId,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// FulfillmentStatusDTO is the full pipeline view of an order
type FulfillmentStatusDTO struct {
	Order       OrderDTO                     `json:"order"`
	CurrentStep string                       `json:"currentStep"`
	PickTask    *TaskDTO                     `json:"pickTask,omitempty"`
	PackTask    *TaskDTO                     `json:"packTask,omitempty"`
	Bin         *BinDTO                      `json:"bin,omitempty"`
	ScanLookup  map[string]domain.ScanTarget `json:"scanLookup"`
	Events      []EventDTO                   `json:"events"`
}
