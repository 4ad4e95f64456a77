package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScanLookup(t *testing.T) {
	pickTask, err := NewPickingTask("TASK-PICK-001", "ORD-20260101A", []TaskItem{
		{
			ItemID:   "TI-001",
			SKU:      "SKU-100",
			UPC:      "012345678905",
			Quantity: 5,
			Location: Location{LocationID: "A-01-01-A1", Barcode: "LOC-A1-B", PickSequence: 10, Pickable: true},
		},
		{
			ItemID:   "TI-002",
			SKU:      "SKU-200",
			Barcode:  "GAD-200-B",
			Quantity: 3,
			Location: Location{LocationID: "A-01-02-B1", PickSequence: 20, Pickable: true},
		},
	})
	require.NoError(t, err)

	bin, err := NewPickBin("BIN-001", "ORD-20260101A", "TASK-PICK-001", "TOTE-77", []BinItem{
		{SKU: "SKU-100", Quantity: 2},
	})
	require.NoError(t, err)

	lookup := BuildScanLookup(pickTask, nil, bin)

	target, ok := lookup.Resolve("012345678905")
	require.True(t, ok)
	assert.Equal(t, ScanTargetPickItem, target.Kind)
	assert.Equal(t, "TI-001", target.TaskItemID)
	assert.Equal(t, "TASK-PICK-001", target.TaskID)

	target, ok = lookup.Resolve("SKU-200")
	require.True(t, ok)
	assert.Equal(t, "TI-002", target.TaskItemID)

	target, ok = lookup.Resolve("LOC-A1-B")
	require.True(t, ok)
	assert.Equal(t, ScanTargetLocation, target.Kind)
	assert.Equal(t, "TI-001", target.TaskItemID)

	target, ok = lookup.Resolve("TOTE-77")
	require.True(t, ok)
	assert.Equal(t, ScanTargetBin, target.Kind)
	assert.Equal(t, "BIN-001", target.BinID)

	_, ok = lookup.Resolve("UNKNOWN")
	assert.False(t, ok)
}

// TestBuildScanLookupExcludesTerminal verifies completed lines drop out
// so the same barcode routes to the next active line.
func TestBuildScanLookupExcludesTerminal(t *testing.T) {
	pickTask, err := NewPickingTask("TASK-PICK-001", "ORD-20260101A", []TaskItem{
		{
			ItemID:   "TI-001",
			SKU:      "SKU-100",
			Quantity: 2,
			Location: Location{LocationID: "A-01-01-A1", PickSequence: 10, Pickable: true},
		},
		{
			ItemID:   "TI-002",
			SKU:      "SKU-100",
			Quantity: 3,
			Location: Location{LocationID: "B-02-01-C1", PickSequence: 40, Pickable: true},
		},
	})
	require.NoError(t, err)

	lookup := BuildScanLookup(pickTask, nil, nil)
	target, ok := lookup.Resolve("SKU-100")
	require.True(t, ok)
	assert.Equal(t, "TI-001", target.TaskItemID, "first active line claims the barcode")

	_, err = pickTask.ConfirmPick("TI-001", 2, "")
	require.NoError(t, err)

	lookup = BuildScanLookup(pickTask, nil, nil)
	target, ok = lookup.Resolve("SKU-100")
	require.True(t, ok)
	assert.Equal(t, "TI-002", target.TaskItemID, "completed line releases the barcode")
}

func TestBuildScanLookupSkipsTerminalTasks(t *testing.T) {
	pickTask, err := NewPickingTask("TASK-PICK-001", "ORD-20260101A", []TaskItem{
		{ItemID: "TI-001", SKU: "SKU-100", Quantity: 1,
			Location: Location{LocationID: "A-01-01-A1", PickSequence: 10, Pickable: true}},
	})
	require.NoError(t, err)
	_, err = pickTask.ConfirmPick("TI-001", 1, "")
	require.NoError(t, err)
	require.Equal(t, TaskStatusCompleted, pickTask.Status)

	packTask, err := NewPackingTask("TASK-PACK-001", "ORD-20260101A", []TaskItem{
		{ItemID: "TI-010", SKU: "SKU-100", Quantity: 1},
	})
	require.NoError(t, err)

	lookup := BuildScanLookup(pickTask, packTask, nil)
	target, ok := lookup.Resolve("SKU-100")
	require.True(t, ok)
	assert.Equal(t, ScanTargetPackItem, target.Kind, "completed pick task is invisible to scans")
	assert.Equal(t, "TI-010", target.TaskItemID)

	lookup = BuildScanLookup(nil, nil, nil)
	assert.Empty(t, lookup.Targets)
}
