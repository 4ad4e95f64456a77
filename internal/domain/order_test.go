package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestOrderItems() []OrderItem {
	return []OrderItem{
		{
			ItemID:      "ITEM-001",
			SKU:         "SKU-100",
			ProductName: "Widget",
			UPC:         "012345678905",
			Quantity:    5,
			Matched:     true,
		},
		{
			ItemID:      "ITEM-002",
			SKU:         "SKU-200",
			ProductName: "Gadget",
			Quantity:    3,
			Matched:     true,
		},
	}
}

func createTestOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder("ORD-20260101A", "CUST-001", "WH-01", 1, createTestOrderItems())
	require.NoError(t, err)
	return order
}

func TestNewOrder(t *testing.T) {
	tests := []struct {
		name        string
		items       []OrderItem
		expectError bool
	}{
		{
			name:  "Valid order",
			items: createTestOrderItems(),
		},
		{
			name:        "Order with no items",
			items:       []OrderItem{},
			expectError: true,
		},
		{
			name: "Order with zero quantity line",
			items: []OrderItem{
				{ItemID: "ITEM-001", SKU: "SKU-100", Quantity: 0, Matched: true},
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := NewOrder("ORD-20260101A", "CUST-001", "WH-01", 1, tt.items)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, order)
			} else {
				require.NoError(t, err)
				assert.Equal(t, OrderStatusPending, order.Status)
				assert.Equal(t, 8, order.TotalRequired())
				assert.Equal(t, 0, order.TotalAllocated())
				assert.False(t, order.FullyAllocated())
			}
		})
	}
}

// TestOrderAllocationOutcomes covers the allocation decision transitions
func TestOrderAllocationOutcomes(t *testing.T) {
	tests := []struct {
		name         string
		setupOrder   func(t *testing.T) *Order
		transition   func(o *Order) error
		expectError  error
		expectStatus OrderStatus
		expectEvent  string
	}{
		{
			name: "Fully covered order becomes allocated",
			setupOrder: func(t *testing.T) *Order {
				o := createTestOrder(t)
				require.NoError(t, o.AddAllocatedQuantity("ITEM-001", 5))
				require.NoError(t, o.AddAllocatedQuantity("ITEM-002", 3))
				return o
			},
			transition:   func(o *Order) error { return o.MarkAllocated() },
			expectStatus: OrderStatusAllocated,
			expectEvent:  "fulfillment.allocation.order-allocated",
		},
		{
			name: "Partial coverage becomes partially_allocated",
			setupOrder: func(t *testing.T) *Order {
				o := createTestOrder(t)
				require.NoError(t, o.AddAllocatedQuantity("ITEM-001", 5))
				return o
			},
			transition:   func(o *Order) error { return o.MarkPartiallyAllocated() },
			expectStatus: OrderStatusPartiallyAllocated,
			expectEvent:  "fulfillment.allocation.order-partially-allocated",
		},
		{
			name:         "No coverage becomes backordered",
			setupOrder:   createTestOrder,
			transition:   func(o *Order) error { return o.MarkBackordered() },
			expectStatus: OrderStatusBackordered,
			expectEvent:  "fulfillment.allocation.order-backordered",
		},
		{
			name:         "Unmatched items place the order on hold",
			setupOrder:   createTestOrder,
			transition:   func(o *Order) error { return o.PlaceOnHold("unmatched items") },
			expectStatus: OrderStatusOnHold,
			expectEvent:  "fulfillment.allocation.order-on-hold",
		},
		{
			name: "Shipped order cannot re-enter allocation",
			setupOrder: func(t *testing.T) *Order {
				o := createTestOrder(t)
				o.Status = OrderStatusShipped
				return o
			},
			transition:  func(o *Order) error { return o.MarkAllocated() },
			expectError: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := tt.setupOrder(t)
			err := tt.transition(order)

			if tt.expectError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectStatus, order.Status)

			events := order.GetDomainEvents()
			require.NotEmpty(t, events)
			assert.Equal(t, tt.expectEvent, events[len(events)-1].EventType())
		})
	}
}

// TestOrderPipelineTransitions walks the happy path and pins the guards
// on out-of-order transitions.
func TestOrderPipelineTransitions(t *testing.T) {
	order := createTestOrder(t)
	require.NoError(t, order.AddAllocatedQuantity("ITEM-001", 5))
	require.NoError(t, order.AddAllocatedQuantity("ITEM-002", 3))

	assert.ErrorIs(t, order.BeginPicking(), ErrInvalidStatus, "picking requires allocated")

	require.NoError(t, order.MarkAllocated())
	require.NoError(t, order.BeginPicking())
	assert.Equal(t, OrderStatusPicking, order.Status)

	assert.ErrorIs(t, order.MarkPacked(), ErrInvalidStatus, "packed requires packing")

	require.NoError(t, order.MarkPicked())
	require.NoError(t, order.BeginPacking())
	require.NoError(t, order.MarkPacked())
	require.NoError(t, order.MarkShipped("UPS", "1Z999AA10123456784"))
	assert.Equal(t, "UPS", order.Carrier)
	assert.Equal(t, "1Z999AA10123456784", order.TrackingCode)
	require.NotNil(t, order.ShippedAt)

	assert.ErrorIs(t, order.Cancel("too late"), ErrInvalidStatus, "shipped orders cannot cancel")

	require.NoError(t, order.MarkDelivered())
	assert.True(t, order.Status.IsTerminal())
	assert.ErrorIs(t, order.MarkDelivered(), ErrInvalidStatus)
}

func TestOrderQuantityGuards(t *testing.T) {
	tests := []struct {
		name        string
		run         func(o *Order) error
		expectError error
	}{
		{
			name:        "Allocating beyond requirement",
			run:         func(o *Order) error { return o.AddAllocatedQuantity("ITEM-001", 6) },
			expectError: ErrInvalidQuantity,
		},
		{
			name:        "Unknown item",
			run:         func(o *Order) error { return o.AddAllocatedQuantity("ITEM-999", 1) },
			expectError: ErrOrderItemNotFound,
		},
		{
			name: "Releasing more than unpicked remainder",
			run: func(o *Order) error {
				if err := o.AddAllocatedQuantity("ITEM-001", 5); err != nil {
					return err
				}
				if err := o.AddPickedQuantity("ITEM-001", 3); err != nil {
					return err
				}
				return o.ReleaseAllocatedQuantity("ITEM-001", 3)
			},
			expectError: ErrInvalidQuantity,
		},
		{
			name: "Releasing exactly the unpicked remainder",
			run: func(o *Order) error {
				if err := o.AddAllocatedQuantity("ITEM-001", 5); err != nil {
					return err
				}
				if err := o.AddPickedQuantity("ITEM-001", 3); err != nil {
					return err
				}
				return o.ReleaseAllocatedQuantity("ITEM-001", 2)
			},
		},
		{
			name:        "Picking beyond allocation",
			run:         func(o *Order) error { return o.AddPickedQuantity("ITEM-001", 1) },
			expectError: ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := createTestOrder(t)
			err := tt.run(order)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOrderHoldAndResume(t *testing.T) {
	order := createTestOrder(t)

	require.NoError(t, order.PlaceOnHold("unmatched items"))
	assert.Equal(t, OrderStatusOnHold, order.Status)
	assert.Equal(t, "unmatched items", order.HoldReason)

	require.NoError(t, order.ReturnToPending())
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Empty(t, order.HoldReason)

	require.NoError(t, order.Cancel("customer request"))
	assert.Equal(t, OrderStatusCancelled, order.Status)
	assert.ErrorIs(t, order.PlaceOnHold("again"), ErrInvalidStatus)
}

func TestOrderCurrentStep(t *testing.T) {
	tests := []struct {
		status OrderStatus
		step   string
	}{
		{OrderStatusPending, "allocation"},
		{OrderStatusBackordered, "allocation"},
		{OrderStatusAllocated, "allocation"},
		{OrderStatusPicking, "picking"},
		{OrderStatusPicked, "packing"},
		{OrderStatusPacking, "packing"},
		{OrderStatusPacked, "shipping"},
		{OrderStatusShipped, "complete"},
		{OrderStatusDelivered, "complete"},
		{OrderStatusCancelled, "cancelled"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			order := createTestOrder(t)
			order.Status = tt.status
			assert.Equal(t, tt.step, order.CurrentStep())
		})
	}
}
