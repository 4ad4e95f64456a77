package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestPickItems() []TaskItem {
	return []TaskItem{
		{
			ItemID:      "TI-001",
			SKU:         "SKU-100",
			ProductName: "Widget",
			Quantity:    5,
			Location:    Location{LocationID: "A-01-02-B1", Zone: "ZONE-A", PickSequence: 20, Pickable: true},
		},
		{
			ItemID:      "TI-002",
			SKU:         "SKU-200",
			ProductName: "Gadget",
			Quantity:    3,
			Location:    Location{LocationID: "A-01-01-A1", Zone: "ZONE-A", PickSequence: 10, Pickable: true},
		},
		{
			ItemID:      "TI-003",
			SKU:         "SKU-300",
			ProductName: "Gizmo",
			Quantity:    2,
			Location:    Location{LocationID: "C-09-01-Z9", Zone: "ZONE-C"},
		},
	}
}

func createTestPickTask(t *testing.T) *WorkTask {
	t.Helper()
	task, err := NewPickingTask("TASK-PICK-001", "ORD-20260101A", createTestPickItems())
	require.NoError(t, err)
	task.ClearDomainEvents()
	return task
}

// TestNewPickingTaskWalkOrder verifies lines come out in pick sequence
// order with unsequenced locations at the end.
func TestNewPickingTaskWalkOrder(t *testing.T) {
	task := createTestPickTask(t)

	require.Len(t, task.Items, 3)
	assert.Equal(t, "TI-002", task.Items[0].ItemID, "lowest pick sequence walks first")
	assert.Equal(t, "TI-001", task.Items[1].ItemID)
	assert.Equal(t, "TI-003", task.Items[2].ItemID, "unsequenced location walks last")
	assert.Equal(t, 1, task.Items[0].Sequence)
	assert.Equal(t, 3, task.Items[2].Sequence)
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, 3, task.TotalItems)
}

func TestNewPickingTaskEmpty(t *testing.T) {
	task, err := NewPickingTask("TASK-PICK-002", "ORD-20260101A", nil)
	assert.Error(t, err)
	assert.Nil(t, task)
}

func TestConfirmPick(t *testing.T) {
	tests := []struct {
		name         string
		setupTask    func(t *testing.T) *WorkTask
		itemID       string
		qty          int
		shortReason  string
		expectError  error
		expectStatus TaskItemStatus
		expectShort  bool
	}{
		{
			name:         "Full quantity completes the line",
			setupTask:    createTestPickTask,
			itemID:       "TI-002",
			qty:          3,
			expectStatus: TaskItemStatusCompleted,
		},
		{
			name:         "Under quantity marks the line short",
			setupTask:    createTestPickTask,
			itemID:       "TI-002",
			qty:          1,
			shortReason:  "lot damaged",
			expectStatus: TaskItemStatusShort,
			expectShort:  true,
		},
		{
			name:         "Zero quantity is a valid short",
			setupTask:    createTestPickTask,
			itemID:       "TI-002",
			qty:          0,
			shortReason:  "location empty",
			expectStatus: TaskItemStatusShort,
			expectShort:  true,
		},
		{
			name:        "Over quantity is rejected",
			setupTask:   createTestPickTask,
			itemID:      "TI-002",
			qty:         4,
			expectError: ErrInvalidQuantity,
		},
		{
			name:        "Unknown item",
			setupTask:   createTestPickTask,
			itemID:      "TI-999",
			qty:         1,
			expectError: ErrTaskItemNotFound,
		},
		{
			name: "Completed line rejects another confirmation",
			setupTask: func(t *testing.T) *WorkTask {
				task := createTestPickTask(t)
				_, err := task.ConfirmPick("TI-002", 3, "")
				require.NoError(t, err)
				return task
			},
			itemID:      "TI-002",
			qty:         3,
			expectError: ErrItemAlreadyCompleted,
		},
		{
			name: "Packing task rejects pick confirmation",
			setupTask: func(t *testing.T) *WorkTask {
				task, err := NewPackingTask("TASK-PACK-001", "ORD-20260101A", []TaskItem{
					{ItemID: "TI-001", SKU: "SKU-100", Quantity: 5},
				})
				require.NoError(t, err)
				return task
			},
			itemID:      "TI-001",
			qty:         5,
			expectError: ErrWrongTaskType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := tt.setupTask(t)
			result, err := task.ConfirmPick(tt.itemID, tt.qty, tt.shortReason)

			if tt.expectError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tt.expectShort, result.Short)
			assert.Equal(t, tt.expectStatus, result.Item.Status)
			assert.Equal(t, tt.qty, result.Item.QuantityCompleted)
			assert.Equal(t, TaskStatusInProgress, task.Status, "task starts on first confirmation")
			require.NotNil(t, task.StartedAt)
		})
	}
}

// TestConfirmPickCompletesTask verifies the task closes once no line is
// pending, with shorts counting as terminal.
func TestConfirmPickCompletesTask(t *testing.T) {
	task := createTestPickTask(t)

	r, err := task.ConfirmPick("TI-001", 5, "")
	require.NoError(t, err)
	assert.False(t, r.TaskComplete)

	r, err = task.ConfirmPick("TI-002", 1, "lot damaged")
	require.NoError(t, err)
	assert.False(t, r.TaskComplete)

	r, err = task.ConfirmPick("TI-003", 2, "")
	require.NoError(t, err)
	assert.True(t, r.TaskComplete)
	assert.Equal(t, TaskStatusCompleted, task.Status)
	assert.Equal(t, 2, task.CompletedItems)
	assert.Equal(t, 1, task.ShortItems)
	require.NotNil(t, task.CompletedAt)

	events := task.GetDomainEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, "fulfillment.picking.task-completed", events[len(events)-1].EventType())

	_, err = task.ConfirmPick("TI-001", 5, "")
	assert.ErrorIs(t, err, ErrInvalidStatus, "completed task rejects further confirmations")
}

func TestShortPickEventType(t *testing.T) {
	task := createTestPickTask(t)

	_, err := task.ConfirmPick("TI-002", 1, "lot damaged")
	require.NoError(t, err)

	events := task.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "fulfillment.picking.item-short", events[0].EventType())
}

func createTestPackTask(t *testing.T) *WorkTask {
	t.Helper()
	task, err := NewPackingTask("TASK-PACK-001", "ORD-20260101A", []TaskItem{
		{ItemID: "TI-001", SKU: "SKU-100", ProductName: "Widget", Quantity: 5},
		{ItemID: "TI-002", SKU: "SKU-200", ProductName: "Gadget", Quantity: 1},
	})
	require.NoError(t, err)
	task.ClearDomainEvents()
	return task
}

func TestVerifyPackItem(t *testing.T) {
	task := createTestPackTask(t)

	item, err := task.VerifyPackItem("TI-001")
	require.NoError(t, err)
	assert.Equal(t, TaskItemStatusCompleted, item.Status)
	assert.Equal(t, 5, item.QuantityCompleted)
	assert.Equal(t, TaskStatusInProgress, task.Status)

	_, err = task.VerifyPackItem("TI-001")
	assert.ErrorIs(t, err, ErrItemAlreadyCompleted)

	_, err = task.VerifyPackItem("TI-002")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusInProgress, task.Status,
		"verifying the last line does not complete the task; weight capture is mandatory")
}

func TestCompletePacking(t *testing.T) {
	tests := []struct {
		name        string
		setupTask   func(t *testing.T) *WorkTask
		weight      float64
		expectError error
	}{
		{
			name: "All lines verified with weight",
			setupTask: func(t *testing.T) *WorkTask {
				task := createTestPackTask(t)
				_, err := task.VerifyPackItem("TI-001")
				require.NoError(t, err)
				_, err = task.VerifyPackItem("TI-002")
				require.NoError(t, err)
				return task
			},
			weight: 2.4,
		},
		{
			name:        "Unverified lines block completion",
			setupTask:   createTestPackTask,
			weight:      2.4,
			expectError: ErrInvalidStatus,
		},
		{
			name: "Missing weight blocks completion",
			setupTask: func(t *testing.T) *WorkTask {
				task := createTestPackTask(t)
				_, err := task.VerifyPackItem("TI-001")
				require.NoError(t, err)
				_, err = task.VerifyPackItem("TI-002")
				require.NoError(t, err)
				return task
			},
			weight:      0,
			expectError: ErrMissingWeight,
		},
		{
			name: "Picking task rejects pack completion",
			setupTask: func(t *testing.T) *WorkTask {
				return createTestPickTask(t)
			},
			weight:      2.4,
			expectError: ErrWrongTaskType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := tt.setupTask(t)
			err := task.CompletePacking(tt.weight, "kg", &Dimensions{Length: 30, Width: 20, Height: 15, Unit: "cm"})

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TaskStatusCompleted, task.Status)
			assert.Equal(t, tt.weight, task.PackedWeight)
			assert.Equal(t, "kg", task.WeightUnit)
			require.NotNil(t, task.CompletedAt)

			err = task.CompletePacking(tt.weight, "kg", nil)
			assert.ErrorIs(t, err, ErrItemAlreadyCompleted, "double completion is rejected")
		})
	}
}

func TestCompletedPickLines(t *testing.T) {
	task := createTestPickTask(t)
	_, err := task.ConfirmPick("TI-001", 5, "")
	require.NoError(t, err)
	_, err = task.ConfirmPick("TI-002", 0, "location empty")
	require.NoError(t, err)
	_, err = task.ConfirmPick("TI-003", 1, "lot damaged")
	require.NoError(t, err)

	lines := task.CompletedPickLines()
	require.Len(t, lines, 2, "zero-picked lines are excluded")
	assert.Equal(t, "TI-001", lines[0].ItemID)
	assert.Equal(t, 5, lines[0].QuantityCompleted)
	assert.Equal(t, "TI-003", lines[1].ItemID)
	assert.Equal(t, 1, lines[1].QuantityCompleted)
}

func BenchmarkConfirmPick(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		task, _ := NewPickingTask("TASK-PICK-001", "ORD-20260101A", createTestPickItems())
		b.StartTimer()
		_, _ = task.ConfirmPick("TI-002", 3, "")
	}
}
