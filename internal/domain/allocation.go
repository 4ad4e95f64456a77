package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AllocationStatus represents the status of an allocation
type AllocationStatus string

const (
	AllocationStatusAllocated       AllocationStatus = "allocated"
	AllocationStatusPartiallyPicked AllocationStatus = "partially_picked"
	AllocationStatusPicked          AllocationStatus = "picked"
	AllocationStatusReleased        AllocationStatus = "released"
)

// Allocation is a reservation linking one inventory unit to one order item
type Allocation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AllocationID    string             `bson:"allocationId" json:"allocationId"`
	OrderID         string             `bson:"orderId" json:"orderId"`
	OrderItemID     string             `bson:"orderItemId" json:"orderItemId"`
	SKU             string             `bson:"sku" json:"sku"`
	InventoryUnitID string             `bson:"inventoryUnitId" json:"inventoryUnitId"`
	Location        Location           `bson:"location" json:"location"`
	Quantity        int                `bson:"quantity" json:"quantity"`
	QuantityPicked  int                `bson:"quantityPicked" json:"quantityPicked"`
	Status          AllocationStatus   `bson:"status" json:"status"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
	ReleasedAt      *time.Time         `bson:"releasedAt,omitempty" json:"releasedAt,omitempty"`
}

// NewAllocation creates a reservation of qty units from one lot
func NewAllocation(allocationID, orderID, orderItemID string, unit *InventoryUnit, qty int) (*Allocation, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	now := time.Now()
	return &Allocation{
		AllocationID:    allocationID,
		OrderID:         orderID,
		OrderItemID:     orderItemID,
		SKU:             unit.SKU,
		InventoryUnitID: unit.UnitID,
		Location:        unit.Location,
		Quantity:        qty,
		Status:          AllocationStatusAllocated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Active reports whether the reservation still holds inventory
func (a *Allocation) Active() bool {
	return a.Status != AllocationStatusReleased
}

// UnpickedQuantity returns the reserved units not yet physically picked
func (a *Allocation) UnpickedQuantity() int {
	return a.Quantity - a.QuantityPicked
}

// RecordPick marks qty units of the reservation as physically picked.
// A pick below the reserved quantity leaves the allocation partially picked.
func (a *Allocation) RecordPick(qty int) error {
	if a.Status == AllocationStatusPicked || a.Status == AllocationStatusReleased {
		return fmt.Errorf("allocation %s is %s: %w", a.AllocationID, a.Status, ErrInvalidStatus)
	}
	if qty < 0 || a.QuantityPicked+qty > a.Quantity {
		return fmt.Errorf("allocation %s: picking %d of %d reserved: %w",
			a.AllocationID, qty, a.UnpickedQuantity(), ErrInvalidQuantity)
	}

	a.QuantityPicked += qty
	if a.QuantityPicked == a.Quantity {
		a.Status = AllocationStatusPicked
	} else {
		a.Status = AllocationStatusPartiallyPicked
	}
	a.UpdatedAt = time.Now()
	return nil
}

// Release returns the unpicked remainder of the reservation to the pool
// and reports how many units were freed.
func (a *Allocation) Release() (int, error) {
	if a.Status == AllocationStatusReleased {
		return 0, fmt.Errorf("allocation %s already released: %w", a.AllocationID, ErrInvalidStatus)
	}

	freed := a.UnpickedQuantity()
	now := time.Now()
	a.Status = AllocationStatusReleased
	a.ReleasedAt = &now
	a.UpdatedAt = now
	return freed, nil
}
