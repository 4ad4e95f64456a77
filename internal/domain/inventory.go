package domain

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InventoryStatus represents the status of an inventory unit
type InventoryStatus string

const (
	InventoryStatusAvailable InventoryStatus = "available"
	InventoryStatusReserved  InventoryStatus = "reserved"
	InventoryStatusPicked    InventoryStatus = "picked"
)

// Location is a physical warehouse location snapshot
type Location struct {
	LocationID   string `bson:"locationId" json:"locationId"`
	Barcode      string `bson:"barcode,omitempty" json:"barcode,omitempty"`
	Zone         string `bson:"zone,omitempty" json:"zone,omitempty"`
	Aisle        string `bson:"aisle,omitempty" json:"aisle,omitempty"`
	Shelf        string `bson:"shelf,omitempty" json:"shelf,omitempty"`
	PickSequence int    `bson:"pickSequence" json:"pickSequence"`
	Pickable     bool   `bson:"pickable" json:"pickable"`
}

// Describe returns a human-readable location breakdown
func (l Location) Describe() string {
	parts := make([]string, 0, 3)
	if l.Zone != "" {
		parts = append(parts, "Zone "+l.Zone)
	}
	if l.Aisle != "" {
		parts = append(parts, "Aisle "+l.Aisle)
	}
	if l.Shelf != "" {
		parts = append(parts, "Shelf "+l.Shelf)
	}
	if len(parts) == 0 {
		return l.LocationID
	}
	return strings.Join(parts, " / ")
}

// InventoryUnit is a physically located, quantified lot of one SKU
type InventoryUnit struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UnitID          string             `bson:"unitId" json:"unitId"`
	SKU             string             `bson:"sku" json:"sku"`
	WarehouseID     string             `bson:"warehouseId" json:"warehouseId"`
	LotCode         string             `bson:"lotCode,omitempty" json:"lotCode,omitempty"`
	Quantity        int                `bson:"quantity" json:"quantity"`
	InitialQuantity int                `bson:"initialQuantity" json:"initialQuantity"`
	Status          InventoryStatus    `bson:"status" json:"status"`
	ExpiresAt       *time.Time         `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	ReceivedAt      time.Time          `bson:"receivedAt" json:"receivedAt"`
	Location        Location           `bson:"location" json:"location"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Allocatable reports whether the unit can serve a new allocation
func (u *InventoryUnit) Allocatable() bool {
	return u.Status == InventoryStatusAvailable && u.Quantity > 0 && u.Location.Pickable
}

// Consume removes qty from the lot. The lot flips to reserved only when
// its remaining quantity reaches exactly zero.
func (u *InventoryUnit) Consume(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > u.Quantity {
		return fmt.Errorf("unit %s: requested %d, available %d: %w",
			u.UnitID, qty, u.Quantity, ErrInsufficientInventory)
	}

	u.Quantity -= qty
	if u.Quantity == 0 {
		u.Status = InventoryStatusReserved
	}
	u.UpdatedAt = time.Now()
	return nil
}

// Return puts qty back on the lot and makes it available again
func (u *InventoryUnit) Return(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if u.Quantity+qty > u.InitialQuantity {
		return fmt.Errorf("unit %s: returning %d would exceed initial quantity %d: %w",
			u.UnitID, qty, u.InitialQuantity, ErrInvalidQuantity)
	}

	u.Quantity += qty
	u.Status = InventoryStatusAvailable
	u.UpdatedAt = time.Now()
	return nil
}

// MarkPicked flips a fully consumed lot to picked after physical pick
func (u *InventoryUnit) MarkPicked() error {
	if u.Quantity != 0 {
		return fmt.Errorf("unit %s: %d units remain: %w", u.UnitID, u.Quantity, ErrInvalidStatus)
	}
	u.Status = InventoryStatusPicked
	u.UpdatedAt = time.Now()
	return nil
}
