package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskType distinguishes pick work from pack work
type TaskType string

const (
	TaskTypePicking TaskType = "picking"
	TaskTypePacking TaskType = "packing"
)

// TaskStatus represents the status of a work task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsTerminal returns true for statuses with no outgoing transitions
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// TaskItemStatus represents the status of one task line
type TaskItemStatus string

const (
	TaskItemStatusPending   TaskItemStatus = "pending"
	TaskItemStatusCompleted TaskItemStatus = "completed"
	TaskItemStatusShort     TaskItemStatus = "short"
	TaskItemStatusSkipped   TaskItemStatus = "skipped"
)

// IsTerminal returns true when the line needs no further work
func (s TaskItemStatus) IsTerminal() bool {
	return s != TaskItemStatusPending
}

// Dimensions captures packed parcel measurements
type Dimensions struct {
	Length float64 `bson:"length" json:"length"`
	Width  float64 `bson:"width" json:"width"`
	Height float64 `bson:"height" json:"height"`
	Unit   string  `bson:"unit,omitempty" json:"unit,omitempty"`
}

// WorkTask is the aggregate root for a unit of pick or pack work
type WorkTask struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TaskID         string             `bson:"taskId" json:"taskId"`
	OrderID        string             `bson:"orderId" json:"orderId"`
	Type           TaskType           `bson:"type" json:"type"`
	Status         TaskStatus         `bson:"status" json:"status"`
	AssignedTo     string             `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	Items          []TaskItem         `bson:"items" json:"items"`
	TotalItems     int                `bson:"totalItems" json:"totalItems"`
	CompletedItems int                `bson:"completedItems" json:"completedItems"`
	ShortItems     int                `bson:"shortItems" json:"shortItems"`
	PackedWeight   float64            `bson:"packedWeight,omitempty" json:"packedWeight,omitempty"`
	WeightUnit     string             `bson:"weightUnit,omitempty" json:"weightUnit,omitempty"`
	PackedDims     *Dimensions        `bson:"packedDimensions,omitempty" json:"packedDimensions,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
	StartedAt      *time.Time         `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt    *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	DomainEvents   []DomainEvent      `bson:"-" json:"-"`
}

// TaskItem is one line inside a work task
type TaskItem struct {
	ItemID            string         `bson:"itemId" json:"itemId"`
	Sequence          int            `bson:"sequence" json:"sequence"`
	SKU               string         `bson:"sku" json:"sku"`
	ProductName       string         `bson:"productName" json:"productName"`
	UPC               string         `bson:"upc,omitempty" json:"upc,omitempty"`
	Barcode           string         `bson:"barcode,omitempty" json:"barcode,omitempty"`
	Quantity          int            `bson:"quantity" json:"quantity"`
	QuantityCompleted int            `bson:"quantityCompleted" json:"quantityCompleted"`
	Status            TaskItemStatus `bson:"status" json:"status"`
	AllocationID      string         `bson:"allocationId,omitempty" json:"allocationId,omitempty"`
	InventoryUnitID   string         `bson:"inventoryUnitId,omitempty" json:"inventoryUnitId,omitempty"`
	OrderItemID       string         `bson:"orderItemId,omitempty" json:"orderItemId,omitempty"`
	Location          Location       `bson:"location,omitempty" json:"location,omitempty"`
	ShortReason       string         `bson:"shortReason,omitempty" json:"shortReason,omitempty"`
	CompletedAt       *time.Time     `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// NewPickingTask creates a picking task over the given lines. Lines are
// walked in warehouse order: location pick sequence ascending, with
// unsequenced locations last.
func NewPickingTask(taskID, orderID string, items []TaskItem) (*WorkTask, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("picking task must have at least one item")
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Location.PickSequence, items[j].Location.PickSequence
		switch {
		case a > 0 && b <= 0:
			return true
		case a <= 0 && b > 0:
			return false
		}
		return a < b
	})
	for i := range items {
		items[i].Sequence = i + 1
		items[i].Status = TaskItemStatusPending
	}

	now := time.Now()
	task := &WorkTask{
		TaskID:       taskID,
		OrderID:      orderID,
		Type:         TaskTypePicking,
		Status:       TaskStatusPending,
		Items:        items,
		TotalItems:   len(items),
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}

	task.AddDomainEvent(&PickTaskCreatedEvent{
		TaskID:    taskID,
		OrderID:   orderID,
		ItemCount: len(items),
		CreatedAt: now,
	})

	return task, nil
}

// NewPackingTask creates a packing task over the given lines, preserving
// the order they are passed in.
func NewPackingTask(taskID, orderID string, items []TaskItem) (*WorkTask, error) {
	if len(items) == 0 {
		return nil, ErrNoCompletedPicks
	}

	for i := range items {
		items[i].Sequence = i + 1
		items[i].Status = TaskItemStatusPending
	}

	now := time.Now()
	task := &WorkTask{
		TaskID:       taskID,
		OrderID:      orderID,
		Type:         TaskTypePacking,
		Status:       TaskStatusPending,
		Items:        items,
		TotalItems:   len(items),
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}

	task.AddDomainEvent(&PackTaskCreatedEvent{
		TaskID:    taskID,
		OrderID:   orderID,
		ItemCount: len(items),
		CreatedAt: now,
	})

	return task, nil
}

// NewPackingTaskFromBin synthesizes the packing task for a bin-verified
// order. Every line starts completed, carrying the verified quantities;
// the caller still closes it with CompletePacking for weight capture.
func NewPackingTaskFromBin(taskID string, bin *PickBin) (*WorkTask, error) {
	if !bin.AllVerified() {
		return nil, fmt.Errorf("bin %s: %w", bin.BinID, ErrBinNotVerified)
	}

	now := time.Now()
	items := make([]TaskItem, len(bin.Items))
	for i, binItem := range bin.Items {
		items[i] = TaskItem{
			ItemID:            uuid.New().String(),
			Sequence:          i + 1,
			SKU:               binItem.SKU,
			ProductName:       binItem.ProductName,
			UPC:               binItem.UPC,
			Barcode:           binItem.Barcode,
			Quantity:          binItem.Quantity,
			QuantityCompleted: binItem.VerifiedQty,
			Status:            TaskItemStatusCompleted,
			CompletedAt:       &now,
		}
	}

	task := &WorkTask{
		TaskID:         taskID,
		OrderID:        bin.OrderID,
		Type:           TaskTypePacking,
		Status:         TaskStatusInProgress,
		Items:          items,
		TotalItems:     len(items),
		CompletedItems: len(items),
		CreatedAt:      now,
		UpdatedAt:      now,
		StartedAt:      &now,
		DomainEvents:   make([]DomainEvent, 0),
	}
	return task, nil
}

// FindItem returns the task item with the given ID
func (t *WorkTask) FindItem(itemID string) *TaskItem {
	for i := range t.Items {
		if t.Items[i].ItemID == itemID {
			return &t.Items[i]
		}
	}
	return nil
}

// ConfirmPickResult reports the outcome of a pick confirmation
type ConfirmPickResult struct {
	Item         *TaskItem
	Short        bool
	TaskComplete bool
}

// ConfirmPick records a picked quantity against one line of a picking
// task. A quantity below the requirement marks the line short; a quantity
// above it is rejected. The task starts on the first confirmation and
// completes when no line is left pending, short lines included.
func (t *WorkTask) ConfirmPick(itemID string, qty int, shortReason string) (*ConfirmPickResult, error) {
	if t.Type != TaskTypePicking {
		return nil, fmt.Errorf("task %s is %s: %w", t.TaskID, t.Type, ErrWrongTaskType)
	}
	if t.Status.IsTerminal() {
		return nil, fmt.Errorf("task %s is %s: %w", t.TaskID, t.Status, ErrInvalidStatus)
	}

	item := t.FindItem(itemID)
	if item == nil {
		return nil, ErrTaskItemNotFound
	}
	if item.Status.IsTerminal() {
		return nil, fmt.Errorf("item %s: %w", itemID, ErrItemAlreadyCompleted)
	}
	if qty < 0 || qty > item.Quantity {
		return nil, fmt.Errorf("item %s: confirming %d of %d required: %w",
			itemID, qty, item.Quantity, ErrInvalidQuantity)
	}

	now := time.Now()
	if t.Status == TaskStatusPending {
		t.Status = TaskStatusInProgress
		t.StartedAt = &now
	}

	item.QuantityCompleted = qty
	item.CompletedAt = &now
	short := qty < item.Quantity
	if short {
		item.Status = TaskItemStatusShort
		item.ShortReason = shortReason
	} else {
		item.Status = TaskItemStatusCompleted
	}

	t.recountItems()
	t.UpdatedAt = now

	t.AddDomainEvent(&ItemPickedEvent{
		TaskID:     t.TaskID,
		OrderID:    t.OrderID,
		ItemID:     itemID,
		SKU:        item.SKU,
		Quantity:   qty,
		Short:      short,
		LocationID: item.Location.LocationID,
		PickedAt:   now,
	})

	result := &ConfirmPickResult{Item: item, Short: short}
	if t.allItemsTerminal() {
		t.Status = TaskStatusCompleted
		t.CompletedAt = &now
		result.TaskComplete = true

		t.AddDomainEvent(&PickTaskCompletedEvent{
			TaskID:         t.TaskID,
			OrderID:        t.OrderID,
			TotalItems:     t.TotalItems,
			CompletedItems: t.CompletedItems,
			ShortItems:     t.ShortItems,
			CompletedAt:    now,
		})
	}

	return result, nil
}

// VerifyPackItem marks one line of a packing task completed on a scan
// match. Completing every line does not complete the task; weight capture
// through CompletePacking is mandatory.
func (t *WorkTask) VerifyPackItem(itemID string) (*TaskItem, error) {
	if t.Type != TaskTypePacking {
		return nil, fmt.Errorf("task %s is %s: %w", t.TaskID, t.Type, ErrWrongTaskType)
	}
	if t.Status.IsTerminal() {
		return nil, fmt.Errorf("task %s is %s: %w", t.TaskID, t.Status, ErrInvalidStatus)
	}

	item := t.FindItem(itemID)
	if item == nil {
		return nil, ErrTaskItemNotFound
	}
	if item.Status.IsTerminal() {
		return nil, fmt.Errorf("item %s: %w", itemID, ErrItemAlreadyCompleted)
	}

	now := time.Now()
	if t.Status == TaskStatusPending {
		t.Status = TaskStatusInProgress
		t.StartedAt = &now
	}

	item.Status = TaskItemStatusCompleted
	item.QuantityCompleted = item.Quantity
	item.CompletedAt = &now
	t.recountItems()
	t.UpdatedAt = now

	t.AddDomainEvent(&ItemVerifiedEvent{
		TaskID:     t.TaskID,
		OrderID:    t.OrderID,
		ItemID:     itemID,
		SKU:        item.SKU,
		Quantity:   item.Quantity,
		VerifiedAt: now,
	})

	return item, nil
}

// CompletePacking closes a packing task, requiring every line terminal
// and a positive packed weight.
func (t *WorkTask) CompletePacking(weight float64, weightUnit string, dims *Dimensions) error {
	if t.Type != TaskTypePacking {
		return fmt.Errorf("task %s is %s: %w", t.TaskID, t.Type, ErrWrongTaskType)
	}
	if t.Status == TaskStatusCompleted {
		return fmt.Errorf("task %s: %w", t.TaskID, ErrItemAlreadyCompleted)
	}
	if t.Status == TaskStatusCancelled {
		return fmt.Errorf("task %s is cancelled: %w", t.TaskID, ErrInvalidStatus)
	}
	if !t.allItemsTerminal() {
		return fmt.Errorf("task %s has unverified items: %w", t.TaskID, ErrInvalidStatus)
	}
	if weight <= 0 {
		return ErrMissingWeight
	}

	now := time.Now()
	t.Status = TaskStatusCompleted
	t.PackedWeight = weight
	t.WeightUnit = weightUnit
	t.PackedDims = dims
	t.CompletedAt = &now
	t.UpdatedAt = now

	t.AddDomainEvent(&PackTaskCompletedEvent{
		TaskID:      t.TaskID,
		OrderID:     t.OrderID,
		Weight:      weight,
		WeightUnit:  weightUnit,
		CompletedAt: now,
	})

	return nil
}

// Cancel cancels a non-terminal task
func (t *WorkTask) Cancel(reason string) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("task %s is %s: %w", t.TaskID, t.Status, ErrInvalidStatus)
	}
	t.Status = TaskStatusCancelled
	t.UpdatedAt = time.Now()
	return nil
}

// CompletedPickLines returns the lines with a positive picked quantity,
// the input for pack list generation.
func (t *WorkTask) CompletedPickLines() []TaskItem {
	lines := make([]TaskItem, 0, len(t.Items))
	for _, item := range t.Items {
		if item.QuantityCompleted > 0 {
			lines = append(lines, item)
		}
	}
	return lines
}

func (t *WorkTask) allItemsTerminal() bool {
	for i := range t.Items {
		if !t.Items[i].Status.IsTerminal() {
			return false
		}
	}
	return true
}

func (t *WorkTask) recountItems() {
	completed, short := 0, 0
	for i := range t.Items {
		switch t.Items[i].Status {
		case TaskItemStatusCompleted:
			completed++
		case TaskItemStatusShort:
			short++
		}
	}
	t.CompletedItems = completed
	t.ShortItems = short
}

// Progress returns the share of terminal lines as a percentage
func (t *WorkTask) Progress() float64 {
	if t.TotalItems == 0 {
		return 0
	}
	terminal := 0
	for i := range t.Items {
		if t.Items[i].Status.IsTerminal() {
			terminal++
		}
	}
	return float64(terminal) / float64(t.TotalItems) * 100
}

// AddDomainEvent adds a domain event
func (t *WorkTask) AddDomainEvent(event DomainEvent) {
	t.DomainEvents = append(t.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (t *WorkTask) ClearDomainEvents() {
	t.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (t *WorkTask) GetDomainEvents() []DomainEvent {
	return t.DomainEvents
}
