package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBin(t *testing.T) *PickBin {
	t.Helper()
	bin, err := NewPickBin("BIN-001", "ORD-20260101A", "TASK-PICK-001", "TOTE-77", []BinItem{
		{SKU: "SKU-100", ProductName: "Widget", UPC: "012345678905", Quantity: 2},
		{SKU: "SKU-200", ProductName: "Gadget", Barcode: "GAD-200-B", Quantity: 1},
	})
	require.NoError(t, err)
	bin.ClearDomainEvents()
	return bin
}

func TestNewPickBin(t *testing.T) {
	tests := []struct {
		name        string
		items       []BinItem
		expectError bool
	}{
		{
			name:  "Valid bin",
			items: []BinItem{{SKU: "SKU-100", Quantity: 2}},
		},
		{
			name:        "Empty bin",
			items:       nil,
			expectError: true,
		},
		{
			name:        "Zero quantity line",
			items:       []BinItem{{SKU: "SKU-100", Quantity: 0}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, err := NewPickBin("BIN-001", "ORD-20260101A", "TASK-PICK-001", "TOTE-77", tt.items)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, bin)
			} else {
				require.NoError(t, err)
				assert.Equal(t, BinStatusOpen, bin.Status)
			}
		})
	}
}

func TestBinVerifyItem(t *testing.T) {
	tests := []struct {
		name        string
		barcode     string
		expectSKU   string
		expectError error
	}{
		{name: "Match by UPC", barcode: "012345678905", expectSKU: "SKU-100"},
		{name: "Match by item barcode", barcode: "GAD-200-B", expectSKU: "SKU-200"},
		{name: "Match by SKU", barcode: "SKU-100", expectSKU: "SKU-100"},
		{name: "Unknown barcode", barcode: "NOPE", expectError: ErrBinItemNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := createTestBin(t)
			result, err := bin.VerifyItem(tt.barcode)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectSKU, result.Item.SKU)
			assert.Equal(t, 1, result.Item.VerifiedQty)
			assert.False(t, result.AlreadyVerified)
		})
	}
}

// TestBinVerifyCeiling verifies scans past the picked quantity are
// reported as already verified instead of erroring.
func TestBinVerifyCeiling(t *testing.T) {
	bin := createTestBin(t)

	result, err := bin.VerifyItem("GAD-200-B")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Item.VerifiedQty)
	assert.False(t, result.AlreadyVerified)

	result, err = bin.VerifyItem("GAD-200-B")
	require.NoError(t, err)
	assert.True(t, result.AlreadyVerified)
	assert.Equal(t, 1, result.Item.VerifiedQty, "verified quantity never exceeds the picked quantity")
}

func TestBinFullVerification(t *testing.T) {
	bin := createTestBin(t)

	assert.ErrorIs(t, bin.MarkVerified(), ErrBinNotVerified, "unscanned bin cannot close")

	_, err := bin.VerifyItem("012345678905")
	require.NoError(t, err)
	result, err := bin.VerifyItem("012345678905")
	require.NoError(t, err)
	assert.False(t, result.AllVerified)

	result, err = bin.VerifyItem("GAD-200-B")
	require.NoError(t, err)
	assert.True(t, result.AllVerified)

	require.NoError(t, bin.MarkVerified())
	assert.Equal(t, BinStatusVerified, bin.Status)
	require.NotNil(t, bin.VerifiedAt)

	_, err = bin.VerifyItem("012345678905")
	assert.ErrorIs(t, err, ErrInvalidStatus, "verified bin rejects further scans")

	events := bin.GetDomainEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, "fulfillment.bin.verified", events[len(events)-1].EventType())
}

func TestBinMarkPacked(t *testing.T) {
	bin := createTestBin(t)

	assert.ErrorIs(t, bin.MarkPacked("TASK-PACK-001"), ErrBinNotVerified, "open bin cannot pack")

	_, err := bin.VerifyItem("012345678905")
	require.NoError(t, err)
	_, err = bin.VerifyItem("012345678905")
	require.NoError(t, err)
	_, err = bin.VerifyItem("GAD-200-B")
	require.NoError(t, err)
	require.NoError(t, bin.MarkVerified())

	require.NoError(t, bin.MarkPacked("TASK-PACK-001"))
	assert.Equal(t, BinStatusPacked, bin.Status)
	assert.Equal(t, "TASK-PACK-001", bin.PackTaskID)
	require.NotNil(t, bin.PackedAt)

	assert.ErrorIs(t, bin.MarkPacked("TASK-PACK-002"), ErrBinNotVerified, "packed bin is terminal")
	_, err = bin.VerifyItem("SKU-100")
	assert.ErrorIs(t, err, ErrInvalidStatus, "packed bin rejects scans")

	events := bin.GetDomainEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, "fulfillment.bin.packed", events[len(events)-1].EventType())
}
