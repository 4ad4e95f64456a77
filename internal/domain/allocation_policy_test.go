package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeUnit(unitID string, qty int, expiresAt *time.Time, receivedAt time.Time) *InventoryUnit {
	return &InventoryUnit{
		UnitID:          unitID,
		SKU:             "SKU-100",
		WarehouseID:     "WH-01",
		LotCode:         "LOT-" + unitID,
		Quantity:        qty,
		InitialQuantity: qty,
		Status:          InventoryStatusAvailable,
		ExpiresAt:       expiresAt,
		ReceivedAt:      receivedAt,
		Location: Location{
			LocationID:   "A-01-01-" + unitID,
			Zone:         "ZONE-A",
			PickSequence: 10,
			Pickable:     true,
		},
	}
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// TestPlanAllocationOrdering verifies earliest expiry wins, received date
// breaks ties, and lots without expiry come last.
func TestPlanAllocationOrdering(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		requested     int
		units         []*InventoryUnit
		expectLines   []PlanLine
		expectShort   int
		expectSatisfy bool
	}{
		{
			name:      "Earlier expiry consumed first",
			requested: 10,
			units: []*InventoryUnit{
				makeUnit("U2", 10, datePtr(2026, 6, 1), base),
				makeUnit("U1", 10, datePtr(2026, 3, 1), base),
			},
			expectLines:   []PlanLine{{Quantity: 10}},
			expectSatisfy: true,
		},
		{
			name:      "Received date breaks expiry tie",
			requested: 15,
			units: []*InventoryUnit{
				makeUnit("U2", 10, datePtr(2026, 3, 1), base.AddDate(0, 0, 5)),
				makeUnit("U1", 10, datePtr(2026, 3, 1), base),
			},
			expectLines:   []PlanLine{{Quantity: 10}, {Quantity: 5}},
			expectSatisfy: true,
		},
		{
			name:      "Unit ID breaks full tie",
			requested: 5,
			units: []*InventoryUnit{
				makeUnit("U2", 10, datePtr(2026, 3, 1), base),
				makeUnit("U1", 10, datePtr(2026, 3, 1), base),
			},
			expectLines:   []PlanLine{{Quantity: 5}},
			expectSatisfy: true,
		},
		{
			name:      "No expiry sorts after dated lots",
			requested: 15,
			units: []*InventoryUnit{
				makeUnit("U1", 10, nil, base),
				makeUnit("U2", 10, datePtr(2026, 12, 1), base.AddDate(0, 0, 30)),
			},
			expectLines:   []PlanLine{{Quantity: 10}, {Quantity: 5}},
			expectSatisfy: true,
		},
		{
			name:      "Shortfall reported when demand exceeds supply",
			requested: 25,
			units: []*InventoryUnit{
				makeUnit("U1", 10, datePtr(2026, 3, 1), base),
				makeUnit("U2", 10, datePtr(2026, 6, 1), base),
			},
			expectLines: []PlanLine{{Quantity: 10}, {Quantity: 10}},
			expectShort: 5,
		},
		{
			name:        "No eligible stock yields empty plan",
			requested:   5,
			units:       nil,
			expectShort: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanAllocation(tt.requested, tt.units)

			require.Len(t, plan.Lines, len(tt.expectLines))
			for i, expect := range tt.expectLines {
				assert.Equal(t, expect.Quantity, plan.Lines[i].Quantity, "line %d quantity", i)
			}
			assert.Equal(t, tt.expectShort, plan.Shortfall)
			assert.Equal(t, tt.expectSatisfy, plan.Satisfied())
			assert.Equal(t, tt.requested-tt.expectShort, plan.Allocated)
		})
	}
}

// TestPlanAllocationTieBreakOrder pins the exact lot order for the
// received-date and unit-ID tiebreaks.
func TestPlanAllocationTieBreakOrder(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	older := makeUnit("U9", 10, datePtr(2026, 3, 1), base)
	newer := makeUnit("U1", 10, datePtr(2026, 3, 1), base.AddDate(0, 0, 7))

	plan := PlanAllocation(15, []*InventoryUnit{newer, older})
	require.Len(t, plan.Lines, 2)
	assert.Equal(t, "U9", plan.Lines[0].Unit.UnitID, "older receipt first despite higher unit ID")
	assert.Equal(t, "U1", plan.Lines[1].Unit.UnitID)

	twinA := makeUnit("UA", 10, datePtr(2026, 3, 1), base)
	twinB := makeUnit("UB", 10, datePtr(2026, 3, 1), base)

	plan = PlanAllocation(15, []*InventoryUnit{twinB, twinA})
	require.Len(t, plan.Lines, 2)
	assert.Equal(t, "UA", plan.Lines[0].Unit.UnitID, "unit ID is the final tiebreak")
}

// TestPlanAllocationEligibility verifies the filter excludes reserved,
// empty and unpickable stock.
func TestPlanAllocationEligibility(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	reserved := makeUnit("U1", 10, nil, base)
	reserved.Status = InventoryStatusReserved

	empty := makeUnit("U2", 10, nil, base)
	empty.Quantity = 0

	unpickable := makeUnit("U3", 10, nil, base)
	unpickable.Location.Pickable = false

	eligible := makeUnit("U4", 10, nil, base)

	plan := PlanAllocation(10, []*InventoryUnit{reserved, empty, unpickable, eligible})
	require.Len(t, plan.Lines, 1)
	assert.Equal(t, "U4", plan.Lines[0].Unit.UnitID)
	assert.True(t, plan.Satisfied())
}

// TestPlanAllocationDoesNotMutate verifies planning leaves lot state
// untouched; consumption happens later inside the caller's transaction.
func TestPlanAllocationDoesNotMutate(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	unit := makeUnit("U1", 10, nil, base)

	plan := PlanAllocation(10, []*InventoryUnit{unit})
	require.True(t, plan.Satisfied())
	assert.Equal(t, 10, unit.Quantity)
	assert.Equal(t, InventoryStatusAvailable, unit.Status)
}

func BenchmarkPlanAllocation(b *testing.B) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	units := make([]*InventoryUnit, 0, 200)
	for i := 0; i < 200; i++ {
		expiry := base.AddDate(0, 0, i%30)
		units = append(units, makeUnit(
			fmt.Sprintf("U-%03d", i), 5+i%20, &expiry, base.AddDate(0, 0, -i%14)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		PlanAllocation(500, units)
	}
}
