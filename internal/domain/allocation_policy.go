package domain

import "sort"

// PlanLine is one lot consumption in an allocation plan
type PlanLine struct {
	Unit     *InventoryUnit
	Quantity int
}

// AllocationPlan is the outcome of ranking and greedily consuming lots
// for a single requested quantity.
type AllocationPlan struct {
	Lines     []PlanLine
	Allocated int
	Shortfall int
}

// Satisfied reports whether the full requested quantity was covered
func (p AllocationPlan) Satisfied() bool {
	return p.Shortfall == 0
}

// PlanAllocation ranks the candidate lots FEFO-first (soonest expiry wins,
// lots without expiry sort last) with FIFO as tiebreak (oldest receipt
// first, then unit ID for determinism), then consumes them greedily until
// the requested quantity is covered or lots run out. Only allocatable lots
// participate: available status, positive quantity, pickable location.
//
// The plan never mutates the lots; callers apply consumption inside their
// own transaction.
func PlanAllocation(requested int, units []*InventoryUnit) AllocationPlan {
	plan := AllocationPlan{Shortfall: requested}
	if requested <= 0 {
		plan.Shortfall = 0
		return plan
	}

	eligible := make([]*InventoryUnit, 0, len(units))
	for _, u := range units {
		if u != nil && u.Allocatable() {
			eligible = append(eligible, u)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		switch {
		case a.ExpiresAt != nil && b.ExpiresAt == nil:
			return true
		case a.ExpiresAt == nil && b.ExpiresAt != nil:
			return false
		case a.ExpiresAt != nil && b.ExpiresAt != nil && !a.ExpiresAt.Equal(*b.ExpiresAt):
			return a.ExpiresAt.Before(*b.ExpiresAt)
		}
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		return a.UnitID < b.UnitID
	})

	remaining := requested
	for _, u := range eligible {
		if remaining == 0 {
			break
		}
		take := u.Quantity
		if take > remaining {
			take = remaining
		}
		plan.Lines = append(plan.Lines, PlanLine{Unit: u, Quantity: take})
		plan.Allocated += take
		remaining -= take
	}

	plan.Shortfall = remaining
	return plan
}
