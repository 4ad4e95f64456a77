package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
	"github.com/fulfillment-platform/fulfillment-service/pkg/logging"
	"github.com/fulfillment-platform/fulfillment-service/pkg/metrics"
)

// AllocationService reserves lot-tracked inventory against orders and
// drives the allocation side of the order state machine.
type AllocationService struct {
	orders      domain.OrderRepository
	inventory   domain.InventoryRepository
	allocations domain.AllocationRepository
	uow         domain.UnitOfWork
	eventLog    *EventLog
	enqueuer    domain.JobEnqueuer
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewAllocationService creates an AllocationService
func NewAllocationService(
	orders domain.OrderRepository,
	inventory domain.InventoryRepository,
	allocations domain.AllocationRepository,
	uow domain.UnitOfWork,
	eventLog *EventLog,
	enqueuer domain.JobEnqueuer,
	logger *logging.Logger,
	m *metrics.Metrics,
) *AllocationService {
	return &AllocationService{
		orders:      orders,
		inventory:   inventory,
		allocations: allocations,
		uow:         uow,
		eventLog:    eventLog,
		enqueuer:    enqueuer,
		logger:      logger.WithComponent("allocation-service"),
		metrics:     m,
	}
}

// takenLine tracks one lot reservation made during the current run so it
// can be undone in-transaction when strict mode rejects a partial result.
type takenLine struct {
	unitID      string
	orderItemID string
	quantity    int
	allocation  *domain.Allocation
}

// AllocateOrder runs the allocation decision table for one order inside
// a single transaction. Re-running against an already allocated order is
// a no-op success.
func (s *AllocationService) AllocateOrder(ctx context.Context, cmd AllocateOrderCommand) (*AllocationResultDTO, error) {
	var result *AllocationResultDTO

	err := s.uow.WithinTransaction(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByID(txCtx, cmd.OrderID)
		if err != nil {
			return fmt.Errorf("loading order %s: %w", cmd.OrderID, err)
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}

		if order.Status == domain.OrderStatusAllocated && order.FullyAllocated() {
			result = s.buildResult(txCtx, order, nil, nil)
			return nil
		}
		if !order.CanAllocate() {
			return fmt.Errorf("order %s: cannot allocate from status %s: %w",
				order.OrderID, order.Status, domain.ErrInvalidStatus)
		}

		matched := order.MatchedItems()
		if len(matched) == 0 {
			reason := fmt.Sprintf("%d unmatched items, no allocatable lines", order.UnmatchedCount())
			if err := order.PlaceOnHold(reason); err != nil {
				return err
			}
			if err := s.orders.Save(txCtx, order); err != nil {
				return fmt.Errorf("saving order %s: %w", order.OrderID, err)
			}
			if err := s.eventLog.Append(txCtx, order.OrderID, cmd.ActorID, logging.CorrelationIDFromContext(txCtx),
				Entry{Type: domain.EventOrderOnHold, Payload: domain.OrderOnHoldPayload{Reason: reason}}); err != nil {
				return err
			}
			result = s.buildResult(txCtx, order, nil, nil)
			return nil
		}

		taken := make([]takenLine, 0, len(matched))
		shortSKUs := make([]string, 0)

		for _, item := range matched {
			remaining := item.Remaining()
			if remaining <= 0 {
				continue
			}

			units, err := s.inventory.FindAllocatableBySKU(txCtx, order.WarehouseID, item.SKU)
			if err != nil {
				return fmt.Errorf("loading lots for %s: %w", item.SKU, err)
			}

			plan := domain.PlanAllocation(remaining, units)
			for _, line := range plan.Lines {
				if err := s.inventory.ReserveQuantity(txCtx, line.Unit.UnitID, line.Quantity); err != nil {
					return fmt.Errorf("reserving %d from lot %s: %w", line.Quantity, line.Unit.UnitID, err)
				}
				alloc, err := domain.NewAllocation(uuid.New().String(), order.OrderID, item.ItemID, line.Unit, line.Quantity)
				if err != nil {
					return err
				}
				if err := order.AddAllocatedQuantity(item.ItemID, line.Quantity); err != nil {
					return err
				}
				taken = append(taken, takenLine{
					unitID:      line.Unit.UnitID,
					orderItemID: item.ItemID,
					quantity:    line.Quantity,
					allocation:  alloc,
				})
			}
			if plan.Shortfall > 0 {
				shortSKUs = append(shortSKUs, item.SKU)
				if s.metrics != nil {
					s.metrics.RecordAllocationShortfall(item.SKU, plan.Shortfall)
				}
			}
		}

		unmatched := order.UnmatchedCount()
		allocated := order.TotalAllocated()
		required := order.TotalRequired()

		var entry Entry
		switch {
		case unmatched > 0 && allocated == 0:
			reason := fmt.Sprintf("%d unmatched items, %d lines backordered", unmatched, len(shortSKUs))
			if err := order.PlaceOnHold(reason); err != nil {
				return err
			}
			entry = Entry{Type: domain.EventOrderOnHold, Payload: domain.OrderOnHoldPayload{Reason: reason}}

		case unmatched > 0 && allocated > 0:
			if err := order.MarkPartiallyAllocated(); err != nil {
				return err
			}
			entry = Entry{Type: domain.EventOrderPartiallyAlloc, Payload: domain.OrderAllocatedPayload{
				AllocationCount: len(taken), TotalRequired: required, TotalAllocated: allocated}}

		case allocated == 0:
			if err := order.MarkBackordered(); err != nil {
				return err
			}
			entry = Entry{Type: domain.EventOrderBackordered, Payload: domain.OrderBackorderedPayload{ShortSKUs: shortSKUs}}

		case allocated < required:
			if cmd.AllowPartial {
				if err := order.MarkPartiallyAllocated(); err != nil {
					return err
				}
				entry = Entry{Type: domain.EventOrderPartiallyAlloc, Payload: domain.OrderAllocatedPayload{
					AllocationCount: len(taken), TotalRequired: required, TotalAllocated: allocated}}
			} else {
				// Strict mode: a partial result is not acceptable, so every
				// reservation made in this run is undone before the order
				// goes to backordered. Still inside the same transaction.
				for _, line := range taken {
					if err := s.inventory.ReturnQuantity(txCtx, line.unitID, line.quantity); err != nil {
						return fmt.Errorf("undoing reservation on lot %s: %w", line.unitID, err)
					}
					if err := order.ReleaseAllocatedQuantity(line.orderItemID, line.quantity); err != nil {
						return err
					}
				}
				taken = nil
				if err := order.MarkBackordered(); err != nil {
					return err
				}
				entry = Entry{Type: domain.EventOrderBackordered, Payload: domain.OrderBackorderedPayload{ShortSKUs: shortSKUs}}
			}

		default:
			if err := order.MarkAllocated(); err != nil {
				return err
			}
			entry = Entry{Type: domain.EventOrderAllocated, Payload: domain.OrderAllocatedPayload{
				AllocationCount: len(taken), TotalRequired: required, TotalAllocated: allocated}}
		}

		if len(taken) > 0 {
			allocs := make([]*domain.Allocation, len(taken))
			for i, line := range taken {
				allocs[i] = line.allocation
			}
			if err := s.allocations.SaveAll(txCtx, allocs); err != nil {
				return fmt.Errorf("saving allocations for order %s: %w", order.OrderID, err)
			}
		}
		if err := s.orders.Save(txCtx, order); err != nil {
			return fmt.Errorf("saving order %s: %w", order.OrderID, err)
		}
		if err := s.eventLog.Append(txCtx, order.OrderID, cmd.ActorID, logging.CorrelationIDFromContext(txCtx), entry); err != nil {
			return err
		}

		result = s.buildResult(txCtx, order, taken, shortSKUs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordAllocation(result.Status)
	}
	s.logger.Info("Allocated order",
		"orderId", cmd.OrderID, "status", result.Status,
		"allocated", result.TotalAllocated, "required", result.TotalRequired, "actorId", cmd.ActorID)
	return result, nil
}

func (s *AllocationService) buildResult(ctx context.Context, order *domain.Order, taken []takenLine, shortSKUs []string) *AllocationResultDTO {
	allocs := make([]AllocationDTO, 0, len(taken))
	for _, line := range taken {
		allocs = append(allocs, ToAllocationDTO(line.allocation))
	}
	return &AllocationResultDTO{
		OrderID:        order.OrderID,
		Status:         string(order.Status),
		TotalRequired:  order.TotalRequired(),
		TotalAllocated: order.TotalAllocated(),
		Allocations:    allocs,
		ShortSKUs:      shortSKUs,
		HoldReason:     order.HoldReason,
	}
}

// AllocateOrders allocates a batch, isolating per-order failures so one
// bad order never aborts the rest.
func (s *AllocationService) AllocateOrders(ctx context.Context, cmd AllocateOrdersCommand) (*BatchAllocationResultDTO, error) {
	batch := &BatchAllocationResultDTO{Results: make([]BatchOrderResultDTO, 0, len(cmd.Orders))}

	for _, orderCmd := range cmd.Orders {
		if orderCmd.ActorID == "" {
			orderCmd.ActorID = cmd.ActorID
		}
		result, err := s.AllocateOrder(ctx, orderCmd)
		if err != nil {
			s.logger.WithError(err).Error("Batch allocation failed for order", "orderId", orderCmd.OrderID)
			batch.Results = append(batch.Results, BatchOrderResultDTO{OrderID: orderCmd.OrderID, Error: err.Error()})
			batch.Failed++
			continue
		}
		batch.Results = append(batch.Results, BatchOrderResultDTO{OrderID: orderCmd.OrderID, Result: result})
		batch.Succeeded++
	}

	s.logger.Info("Batch allocation finished",
		"orders", len(cmd.Orders), "succeeded", batch.Succeeded, "failed", batch.Failed)
	return batch, nil
}

// ReleaseAllocations returns every active reservation of an order to its
// lot. Only the unpicked remainder goes back; picked units stay picked.
// The order returns to pending.
func (s *AllocationService) ReleaseAllocations(ctx context.Context, cmd ReleaseAllocationsCommand) (*ReleaseResultDTO, error) {
	var result *ReleaseResultDTO

	err := s.uow.WithinTransaction(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByID(txCtx, cmd.OrderID)
		if err != nil {
			return fmt.Errorf("loading order %s: %w", cmd.OrderID, err)
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}

		switch order.Status {
		case domain.OrderStatusAllocated, domain.OrderStatusPartiallyAllocated,
			domain.OrderStatusBackordered, domain.OrderStatusOnHold:
		default:
			return fmt.Errorf("order %s: cannot release from status %s: %w",
				order.OrderID, order.Status, domain.ErrInvalidStatus)
		}

		allocs, err := s.allocations.FindActiveByOrderID(txCtx, cmd.OrderID)
		if err != nil {
			return fmt.Errorf("loading allocations for order %s: %w", cmd.OrderID, err)
		}

		releasedUnits := 0
		for _, alloc := range allocs {
			freed, err := alloc.Release()
			if err != nil {
				return err
			}
			if freed > 0 {
				if err := s.inventory.ReturnQuantity(txCtx, alloc.InventoryUnitID, freed); err != nil {
					return fmt.Errorf("returning %d to lot %s: %w", freed, alloc.InventoryUnitID, err)
				}
				if err := order.ReleaseAllocatedQuantity(alloc.OrderItemID, freed); err != nil {
					return err
				}
				releasedUnits += freed
			}
			if err := s.allocations.Save(txCtx, alloc); err != nil {
				return fmt.Errorf("saving allocation %s: %w", alloc.AllocationID, err)
			}
		}

		if err := order.ReturnToPending(); err != nil {
			return err
		}
		if err := s.orders.Save(txCtx, order); err != nil {
			return fmt.Errorf("saving order %s: %w", order.OrderID, err)
		}
		if err := s.eventLog.Append(txCtx, order.OrderID, cmd.ActorID, logging.CorrelationIDFromContext(txCtx),
			Entry{Type: domain.EventAllocationsReleased, Payload: domain.AllocationsReleasedPayload{
				ReleasedCount: len(allocs), ReleasedUnits: releasedUnits}}); err != nil {
			return err
		}

		result = &ReleaseResultDTO{
			OrderID:       order.OrderID,
			ReleasedCount: len(allocs),
			ReleasedUnits: releasedUnits,
			OrderStatus:   string(order.Status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Released allocations",
		"orderId", cmd.OrderID, "count", result.ReleasedCount, "units", result.ReleasedUnits, "actorId", cmd.ActorID)
	return result, nil
}

// CheckBackorderedOrders re-enqueues allocation for orders waiting on a
// SKU that just received stock, highest priority first and oldest first
// within a priority. Enqueue failures are logged per order, never fatal
// for the sweep.
func (s *AllocationService) CheckBackorderedOrders(ctx context.Context, cmd CheckBackordersCommand) (*BackorderRecheckDTO, error) {
	orders, err := s.orders.FindBackorderedWithSKU(ctx, cmd.SKU)
	if err != nil {
		return nil, fmt.Errorf("finding backordered orders for %s: %w", cmd.SKU, err)
	}

	enqueued := make([]string, 0, len(orders))
	for _, order := range orders {
		if err := s.enqueuer.EnqueueAllocation(ctx, order.OrderID); err != nil {
			s.logger.WithError(err).Error("Failed to enqueue backorder recheck", "orderId", order.OrderID, "sku", cmd.SKU)
			continue
		}
		enqueued = append(enqueued, order.OrderID)
	}

	s.logger.Info("Backorder recheck enqueued", "sku", cmd.SKU, "orders", len(enqueued))
	return &BackorderRecheckDTO{SKU: cmd.SKU, Enqueued: enqueued}, nil
}
