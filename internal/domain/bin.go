package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BinStatus represents the status of a pick bin
type BinStatus string

const (
	BinStatusOpen     BinStatus = "open"
	BinStatusVerified BinStatus = "verified"
	BinStatusPacked   BinStatus = "packed"
)

// PickBin is a physical container holding the picked units of one order
// while they wait for pack verification.
type PickBin struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	BinID        string             `bson:"binId" json:"binId"`
	OrderID      string             `bson:"orderId" json:"orderId"`
	PickTaskID   string             `bson:"pickTaskId" json:"pickTaskId"`
	Barcode      string             `bson:"barcode" json:"barcode"`
	Status       BinStatus          `bson:"status" json:"status"`
	Items        []BinItem          `bson:"items" json:"items"`
	PackTaskID   string             `bson:"packTaskId,omitempty" json:"packTaskId,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
	VerifiedAt   *time.Time         `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
	PackedAt     *time.Time         `bson:"packedAt,omitempty" json:"packedAt,omitempty"`
	DomainEvents []DomainEvent      `bson:"-" json:"-"`
}

// BinItem is one SKU line inside a bin. VerifiedQty never exceeds
// Quantity, the picked amount placed into the bin.
type BinItem struct {
	SKU         string `bson:"sku" json:"sku"`
	ProductName string `bson:"productName" json:"productName"`
	UPC         string `bson:"upc,omitempty" json:"upc,omitempty"`
	Barcode     string `bson:"barcode,omitempty" json:"barcode,omitempty"`
	Quantity    int    `bson:"quantity" json:"quantity"`
	VerifiedQty int    `bson:"verifiedQty" json:"verifiedQty"`
}

// NewPickBin creates an open bin from the picked lines of a completed
// picking task. Zero-quantity lines are rejected.
func NewPickBin(binID, orderID, pickTaskID, barcode string, items []BinItem) (*PickBin, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("bin must have at least one item")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("bin item %s has quantity %d: %w", item.SKU, item.Quantity, ErrInvalidQuantity)
		}
	}

	now := time.Now()
	bin := &PickBin{
		BinID:        binID,
		OrderID:      orderID,
		PickTaskID:   pickTaskID,
		Barcode:      barcode,
		Status:       BinStatusOpen,
		Items:        items,
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}

	bin.AddDomainEvent(&BinCreatedEvent{
		BinID:     binID,
		OrderID:   orderID,
		ItemCount: len(items),
		CreatedAt: now,
	})

	return bin, nil
}

// VerifyScanResult reports the outcome of scanning one unit against a bin
type VerifyScanResult struct {
	Item            *BinItem
	AlreadyVerified bool
	AllVerified     bool
}

// VerifyItem records one scanned unit against the bin line matching the
// barcode. Matching prefers UPC, then the item barcode, then the SKU
// itself. Scans past the picked quantity are reported back as already
// verified rather than rejected.
func (b *PickBin) VerifyItem(barcode string) (*VerifyScanResult, error) {
	if b.Status != BinStatusOpen {
		return nil, fmt.Errorf("bin %s is %s: %w", b.BinID, b.Status, ErrInvalidStatus)
	}

	item := b.matchItem(barcode)
	if item == nil {
		return nil, fmt.Errorf("no bin item matches barcode %s: %w", barcode, ErrBinItemNotFound)
	}

	if item.VerifiedQty >= item.Quantity {
		return &VerifyScanResult{Item: item, AlreadyVerified: true, AllVerified: b.AllVerified()}, nil
	}

	now := time.Now()
	item.VerifiedQty++
	b.UpdatedAt = now

	b.AddDomainEvent(&BinItemVerifiedEvent{
		BinID:       b.BinID,
		OrderID:     b.OrderID,
		SKU:         item.SKU,
		VerifiedQty: item.VerifiedQty,
		Quantity:    item.Quantity,
		VerifiedAt:  now,
	})

	result := &VerifyScanResult{Item: item}
	if b.AllVerified() {
		result.AllVerified = true
	}
	return result, nil
}

// MarkVerified closes scanning once every line is fully verified
func (b *PickBin) MarkVerified() error {
	if b.Status != BinStatusOpen {
		return fmt.Errorf("bin %s: %w", b.BinID, ErrItemAlreadyCompleted)
	}
	if !b.AllVerified() {
		return fmt.Errorf("bin %s has unverified items: %w", b.BinID, ErrBinNotVerified)
	}

	now := time.Now()
	b.Status = BinStatusVerified
	b.VerifiedAt = &now
	b.UpdatedAt = now

	b.AddDomainEvent(&BinVerifiedEvent{
		BinID:      b.BinID,
		OrderID:    b.OrderID,
		VerifiedAt: now,
	})

	return nil
}

// MarkPacked consumes a verified bin into the packing task that closed
// it. A packed bin is terminal.
func (b *PickBin) MarkPacked(packTaskID string) error {
	if b.Status != BinStatusVerified {
		return fmt.Errorf("bin %s is %s: %w", b.BinID, b.Status, ErrBinNotVerified)
	}

	now := time.Now()
	b.Status = BinStatusPacked
	b.PackTaskID = packTaskID
	b.PackedAt = &now
	b.UpdatedAt = now

	b.AddDomainEvent(&BinPackedEvent{
		BinID:      b.BinID,
		OrderID:    b.OrderID,
		PackTaskID: packTaskID,
		PackedAt:   now,
	})

	return nil
}

// AllVerified returns true when every line has been scanned up to its
// picked quantity.
func (b *PickBin) AllVerified() bool {
	for i := range b.Items {
		if b.Items[i].VerifiedQty < b.Items[i].Quantity {
			return false
		}
	}
	return true
}

// matchItem finds the line for a scanned barcode, preferring UPC over
// item barcode over SKU.
func (b *PickBin) matchItem(barcode string) *BinItem {
	for i := range b.Items {
		if b.Items[i].UPC != "" && b.Items[i].UPC == barcode {
			return &b.Items[i]
		}
	}
	for i := range b.Items {
		if b.Items[i].Barcode != "" && b.Items[i].Barcode == barcode {
			return &b.Items[i]
		}
	}
	for i := range b.Items {
		if b.Items[i].SKU == barcode {
			return &b.Items[i]
		}
	}
	return nil
}

// AddDomainEvent adds a domain event
func (b *PickBin) AddDomainEvent(event DomainEvent) {
	b.DomainEvents = append(b.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (b *PickBin) ClearDomainEvents() {
	b.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (b *PickBin) GetDomainEvents() []DomainEvent {
	return b.DomainEvents
}
