package domain

import "context"

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, orderID string) (*Order, error)
	FindByStatus(ctx context.Context, status OrderStatus, limit int) ([]*Order, error)
	FindBackorderedWithSKU(ctx context.Context, sku string) ([]*Order, error)
}

// InventoryRepository defines the interface for inventory persistence.
// ReserveQuantity decrements a unit's quantity only when at least qty
// remains, so concurrent allocators cannot oversell a lot; the loser
// sees ErrInsufficientInventory.
type InventoryRepository interface {
	Save(ctx context.Context, unit *InventoryUnit) error
	FindByID(ctx context.Context, unitID string) (*InventoryUnit, error)
	FindAllocatableBySKU(ctx context.Context, warehouseID, sku string) ([]*InventoryUnit, error)
	ReserveQuantity(ctx context.Context, unitID string, qty int) error
	ReturnQuantity(ctx context.Context, unitID string, qty int) error
}

// AllocationRepository defines the interface for allocation persistence
type AllocationRepository interface {
	Save(ctx context.Context, allocation *Allocation) error
	SaveAll(ctx context.Context, allocations []*Allocation) error
	FindByID(ctx context.Context, allocationID string) (*Allocation, error)
	FindActiveByOrderID(ctx context.Context, orderID string) ([]*Allocation, error)
	FindByOrderItemID(ctx context.Context, orderItemID string) ([]*Allocation, error)
}

// TaskRepository defines the interface for work task persistence
type TaskRepository interface {
	Save(ctx context.Context, task *WorkTask) error
	FindByID(ctx context.Context, taskID string) (*WorkTask, error)
	FindByItemID(ctx context.Context, itemID string) (*WorkTask, error)
	FindActiveByOrderAndType(ctx context.Context, orderID string, taskType TaskType) (*WorkTask, error)
	FindCompletedPickingTask(ctx context.Context, orderID string) (*WorkTask, error)
	FindByOrderID(ctx context.Context, orderID string) ([]*WorkTask, error)
}

// BinRepository defines the interface for pick bin persistence.
// FindActiveByOrderID covers every non-consumed status, so a bin keeps
// blocking a second bin and stays visible until packing closes it.
type BinRepository interface {
	Save(ctx context.Context, bin *PickBin) error
	FindByID(ctx context.Context, binID string) (*PickBin, error)
	FindActiveByOrderID(ctx context.Context, orderID string) (*PickBin, error)
}

// EventRepository defines the interface for the append-only activity log
type EventRepository interface {
	Append(ctx context.Context, events ...*FulfillmentEvent) error
	FindByEventID(ctx context.Context, eventID string) (*FulfillmentEvent, error)
	FindByOrderSince(ctx context.Context, orderID string, after *FulfillmentEvent) ([]*FulfillmentEvent, error)
	FindRecentByOrder(ctx context.Context, orderID string, limit int) ([]*FulfillmentEvent, error)
}

// UnitOfWork runs a function inside one transaction; every repository
// call made with the callback's context joins it.
type UnitOfWork interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier pushes activity log entries to live subscribers. Delivery is
// best effort; the persisted log is the source of truth.
type Notifier interface {
	Publish(ctx context.Context, event *FulfillmentEvent) error
}

// JobEnqueuer starts background allocation work for an order
type JobEnqueuer interface {
	EnqueueAllocation(ctx context.Context, orderID string) error
}
