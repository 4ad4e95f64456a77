package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryConsumeAndReturn(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	unit := makeUnit("U1", 10, nil, base)

	require.NoError(t, unit.Consume(4))
	assert.Equal(t, 6, unit.Quantity)
	assert.Equal(t, InventoryStatusAvailable, unit.Status, "partially drained lot stays available")

	assert.ErrorIs(t, unit.Consume(7), ErrInsufficientInventory)
	assert.Equal(t, 6, unit.Quantity, "failed consume leaves the lot untouched")

	require.NoError(t, unit.Consume(6))
	assert.Equal(t, 0, unit.Quantity)
	assert.Equal(t, InventoryStatusReserved, unit.Status, "lot flips reserved only at exactly zero")

	require.NoError(t, unit.Return(4))
	assert.Equal(t, 4, unit.Quantity)
	assert.Equal(t, InventoryStatusAvailable, unit.Status)

	assert.ErrorIs(t, unit.Return(7), ErrInvalidQuantity, "return cannot exceed the initial quantity")
}

func TestLocationDescribe(t *testing.T) {
	full := Location{LocationID: "A-01-03", Zone: "A", Aisle: "01", Shelf: "03"}
	assert.Equal(t, "Zone A / Aisle 01 / Shelf 03", full.Describe())

	zoneOnly := Location{LocationID: "A-01", Zone: "A"}
	assert.Equal(t, "Zone A", zoneOnly.Describe())

	bare := Location{LocationID: "DOCK-1"}
	assert.Equal(t, "DOCK-1", bare.Describe(), "unstructured locations fall back to the id")
}

func TestAllocationRecordPickAndRelease(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	unit := makeUnit("U1", 10, nil, base)

	alloc, err := NewAllocation("ALLOC-001", "ORD-20260101A", "ITEM-001", unit, 5)
	require.NoError(t, err)
	assert.True(t, alloc.Active())
	assert.Equal(t, 5, alloc.UnpickedQuantity())

	require.NoError(t, alloc.RecordPick(2))
	assert.Equal(t, AllocationStatusPartiallyPicked, alloc.Status)

	freed, err := alloc.Release()
	require.NoError(t, err)
	assert.Equal(t, 3, freed, "release frees only the unpicked remainder")
	assert.Equal(t, AllocationStatusReleased, alloc.Status)
	assert.False(t, alloc.Active())
	require.NotNil(t, alloc.ReleasedAt)

	_, err = alloc.Release()
	assert.Error(t, err, "released allocation cannot release again")

	full, err := NewAllocation("ALLOC-002", "ORD-20260101A", "ITEM-001", unit, 3)
	require.NoError(t, err)
	require.NoError(t, full.RecordPick(3))
	assert.Equal(t, AllocationStatusPicked, full.Status)
	assert.ErrorIs(t, full.RecordPick(1), ErrInvalidStatus)
}
