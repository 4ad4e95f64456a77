package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
	"github.com/fulfillment-platform/fulfillment-service/pkg/logging"
	"github.com/fulfillment-platform/fulfillment-service/pkg/metrics"
)

// FulfillmentService drives orders through the pick, pack and ship
// pipeline and serves the status and replay queries on top of it.
type FulfillmentService struct {
	orders      domain.OrderRepository
	allocations domain.AllocationRepository
	inventory   domain.InventoryRepository
	tasks       domain.TaskRepository
	bins        domain.BinRepository
	uow         domain.UnitOfWork
	eventLog    *EventLog
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewFulfillmentService creates a FulfillmentService
func NewFulfillmentService(
	orders domain.OrderRepository,
	allocations domain.AllocationRepository,
	inventory domain.InventoryRepository,
	tasks domain.TaskRepository,
	bins domain.BinRepository,
	uow domain.UnitOfWork,
	eventLog *EventLog,
	logger *logging.Logger,
	m *metrics.Metrics,
) *FulfillmentService {
	return &FulfillmentService{
		orders:      orders,
		allocations: allocations,
		inventory:   inventory,
		tasks:       tasks,
		bins:        bins,
		uow:         uow,
		eventLog:    eventLog,
		logger:      logger.WithComponent("fulfillment-service"),
		metrics:     m,
	}
}

// GeneratePickList turns an order's active allocations into a picking
// task walked in location pick-sequence order.
func (s *FulfillmentService) GeneratePickList(ctx context.Context, cmd GeneratePickListCommand) (*TaskDTO, error) {
	var dto *TaskDTO

	err := s.uow.WithinTransaction(ctx, func(txCtx context.Context) error {
		order, err := s.loadOrder(txCtx, cmd.OrderID)
		if err != nil {
			return err
		}

		existing, err := s.tasks.FindActiveByOrderAndType(txCtx, cmd.OrderID, domain.TaskTypePicking)
		if err != nil {
			return fmt.Errorf("checking active pick tasks for %s: %w", cmd.OrderID, err)
		}
		if existing != nil {
			return fmt.Errorf("order %s has pick task %s: %w", cmd.OrderID, existing.TaskID, domain.ErrDuplicateActiveTask)
		}

		allocs, err := s.allocations.FindActiveByOrderID(txCtx, cmd.OrderID)
		if err != nil {
			return fmt.Errorf("loading allocations for %s: %w", cmd.OrderID, err)
		}
		items := make([]domain.TaskItem, 0, len(allocs))
		for _, alloc := range allocs {
			if alloc.Status != domain.AllocationStatusAllocated {
				continue
			}
			orderItem := order.FindItem(alloc.OrderItemID)
			if orderItem == nil {
				return fmt.Errorf("allocation %s references item %s: %w",
					alloc.AllocationID, alloc.OrderItemID, domain.ErrOrderItemNotFound)
			}
			items = append(items, domain.TaskItem{
				ItemID:          uuid.New().String(),
				SKU:             alloc.SKU,
				ProductName:     orderItem.ProductName,
				UPC:             orderItem.UPC,
				Barcode:         orderItem.Barcode,
				Quantity:        alloc.Quantity,
				AllocationID:    alloc.AllocationID,
				InventoryUnitID: alloc.InventoryUnitID,
				OrderItemID:     alloc.OrderItemID,
				Location:        alloc.Location,
			})
		}
		if len(items) == 0 {
			return fmt.Errorf("order %s has no active allocations to pick: %w", cmd.OrderID, domain.ErrInvalidStatus)
		}

		task, err := domain.NewPickingTask(uuid.New().String(), cmd.OrderID, items)
		if err != nil {
			return err
		}
		if err := order.BeginPicking(); err != nil {
			return err
		}

		if err := s.tasks.Save(txCtx, task); err != nil {
			return fmt.Errorf("saving pick task: %w", err)
		}
		if err := s.orders.Save(txCtx, order); err != nil {
			return fmt.Errorf("saving order %s: %w", cmd.OrderID, err)
		}
		if err := s.eventLog.Append(txCtx, cmd.OrderID, cmd.ActorID, logging.CorrelationIDFromContext(txCtx),
			Entry{Type: domain.EventPickListGenerated, Payload: domain.PickListGeneratedPayload{
				TaskID: task.TaskID, ItemCount: len(items)}}); err != nil {
			return err
		}

		dto = ToTaskDTO(task)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Generated pick list", "orderId", cmd.OrderID, "taskId", dto.TaskID, "items", dto.TotalItems, "actorId", cmd.ActorID)
	return dto, nil
}

// ConfirmPickItem records a pick against one line, propagating the
// picked quantity to the order item, its allocation and the backing lot.
// Quantity defaults to the full requirement when not given. A short
// confirm settles the line's allocation and returns the unpicked
// remainder to the lot in the same transaction.
func (s *FulfillmentService) ConfirmPickItem(ctx context.Context, cmd ConfirmPickItemCommand) (*ConfirmPickResultDTO, error) {
	var dto *ConfirmPickResultDTO

	err := s.uow.WithinTransaction(ctx, func(txCtx context.Context) error {
		task, err := s.tasks.FindByItemID(txCtx, cmd.TaskItemID)
		if err != nil {
			return fmt.Errorf("looking up task for item %s: %w", cmd.TaskItemID, err)
		}
		if task == nil {
			return domain.ErrTaskItemNotFound
		}

		item := task.FindItem(cmd.TaskItemID)
		if item == nil {
			return domain.ErrTaskItemNotFound
		}
		qty := item.Quantity
		if cmd.Quantity != nil {
			qty = *cmd.Quantity
		}

		result, err := task.ConfirmPick(cmd.TaskItemID, qty, cmd.ShortReason)
		if err != nil {
			return err
		}

		order, err := s.loadOrder(txCtx, task.OrderID)
		if err != nil {
			return err
		}
		if qty > 0 {
			if err := order.AddPickedQuantity(item.OrderItemID, qty); err != nil {
				return err
			}
		}

		if item.AllocationID != "" {
			alloc, err := s.allocations.FindByID(txCtx, item.AllocationID)
			if err != nil {
				return fmt.Errorf("loading allocation %s: %w", item.AllocationID, err)
			}
			if alloc != nil {
				if err := alloc.RecordPick(qty); err != nil {
					return err
				}
				if result.Short {
					freed, err := alloc.Release()
					if err != nil {
						return err
					}
					if freed > 0 {
						if err := order.ReleaseAllocatedQuantity(item.OrderItemID, freed); err != nil {
							return err
						}
						if item.InventoryUnitID != "" {
							if err := s.inventory.ReturnQuantity(txCtx, item.InventoryUnitID, freed); err != nil {
								return fmt.Errorf("returning %d units to lot %s: %w", freed, item.InventoryUnitID, err)
							}
						}
					}
				}
				if err := s.allocations.Save(txCtx, alloc); err != nil {
					return fmt.Errorf("saving allocation %s: %w", alloc.AllocationID, err)
				}
			}
		}

		if item.InventoryUnitID != "" {
			unit, err := s.inventory.FindByID(txCtx, item.InventoryUnitID)
			if err != nil {
				return fmt.Errorf("loading lot %s: %w", item.InventoryUnitID, err)
			}
			if unit != nil && unit.Quantity == 0 && unit.Status == domain.InventoryStatusReserved {
				if err := unit.MarkPicked(); err != nil {
					return err
				}
				if err := s.inventory.Save(txCtx, unit); err != nil {
					return fmt.Errorf("saving lot %s: %w", unit.UnitID, err)
				}
			}
		}

		entries := []Entry{{Type: domain.EventPickItemConfirmed, Payload: domain.PickItemConfirmedPayload{
			TaskID:      task.TaskID,
			ItemID:      item.ItemID,
			SKU:         item.SKU,
			Quantity:    qty,
			Short:       result.Short,
			ShortReason: cmd.ShortReason,
			LocationID:  item.Location.LocationID,
		}}}

		if result.TaskComplete {
			if err := order.MarkPicked(); err != nil {
				return err
			}
			entries = append(entries,
				Entry{Type: domain.EventPickListCompleted, Payload: domain.PickListCompletedPayload{
					TaskID: task.TaskID, CompletedItems: task.CompletedItems, ShortItems: task.ShortItems}},
				Entry{Type: domain.EventOrderPicked, Payload: domain.OrderPickedPayload{TaskID: task.TaskID}},
			)
		}

		if err := s.tasks.Save(txCtx, task); err != nil {
			return fmt.Errorf("saving pick task %s: %w", task.TaskID, err)
		}
		if err := s.orders.Save(txCtx, order); err != nil {
			return fmt.Errorf("saving order %s: %w", order.OrderID, err)
		}
		if err := s.eventLog.Append(txCtx, order.OrderID, cmd.ActorID, logging.CorrelationIDFromContext(txCtx), entries...); err != nil {
			return err
		}

		if s.metrics != nil {
			s.metrics.RecordItemPicked(string(result.Item.Status))
		}
		dto = &ConfirmPickResultDTO{
			Item:         ToTaskItemDTO(result.Item),
			Short:        result.Short,
			TaskComplete: result.TaskComplete,
			OrderStatus:  string(order.Status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Confirmed pick item",
		"itemId", cmd.TaskItemID, "short", dto.Short, "taskComplete", dto.TaskComplete, "actorId", cmd.ActorID)
	return dto, nil
}

// GeneratePackList builds the packing task from the picked quantities of
// the completed picking task. Zero-picked lines do not pack.
func (s *FulfillmentService) GeneratePackList(ctx context.Context, cmd GeneratePackListCommand) (*TaskDTO, error) {
	var dto *TaskDTO

	err := s.uow.WithinTransaction(ctx, func(txCtx context.Context) error {
		order, err := s.loadOrder(txCtx, cmd.OrderID)
		if err != nil {
			return err
		}

		existing, err := s.tasks.FindActiveByOrderAndType(txCtx, cmd.OrderID, domain.TaskTypePacking)
		if err != nil {
			return fmt.Errorf("checking active pack tasks for %s: %w", cmd.OrderID, err)
		}
		if existing != nil {
			return fmt.Errorf("order %s has pack task %s: %w", cmd.OrderID, existing.TaskID, domain.ErrDuplicateActiveTask)
		}

		pickTask, err := s.tasks.FindCompletedPickingTask(txCtx, cmd.OrderID)
		if err != nil {
			return fmt.Errorf("loading completed pick task for %s: %w", cmd.OrderID, err)
		}
		if pickTask == nil {
			return fmt.Errorf("order %s has no completed pick task: %w", cmd.OrderID, domain.ErrInvalidStatus)
		}

		pickedLines := pickTask.CompletedPickLines()
		if len(pickedLines) == 0 {
			return domain.ErrNoCompletedPicks
		}

		items := make([]domain.TaskItem, len(pickedLines))
		for i, line := range pickedLines {
			items[i] = domain.TaskItem{
				ItemID:      uuid.New().String(),
				SKU:         line.SKU,
				ProductName: line.ProductName,
				UPC:         line.UPC,
				Barcode:     line.Barcode,
				Quantity:    line.QuantityCompleted,
				OrderItemID: line.OrderItemID,
			}
		}

		task, err := domain.NewPackingTask(uuid.New().String(), cmd.OrderID, items)
		if err != nil {
			return err
		}
		if err := order.BeginPacking(); err != nil {
			return err
		}

		if err := s.tasks.Save(txCtx, task); err != nil {
			return fmt.Errorf("saving pack task: %w", err)
		}
		if err := s.orders.Save(txCtx, order); err != nil {
			return fmt.Errorf("saving order %s: %w", cmd.OrderID, err)
		}
		if err := s.eventLog.Append(txCtx, cmd.OrderID, cmd.ActorID, logging.CorrelationIDFromContext(txCtx),
			Entry{Type: domain.EventPackingStarted, Payload: domain.PackingStartedPayload{
				TaskID: task.TaskID, ItemCount: len(items)}}); err != nil {
			return err
		}

		dto = ToTaskDTO(task)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Generated pack list", "orderId", cmd.OrderID, "taskId", dto.TaskID, "items", dto.TotalItems, "actorId", cmd.ActorID)
	return dto, nil
}

// VerifyPackItem marks one pack line verified on a scan match. Packing
// only closes through CompletePacking; weight capture is mandatory.
func (s *FulfillmentService) VerifyPackItem(ctx context.Context, cmd VerifyPackItemCommand) (*TaskDTO, error) {
	var dto *TaskDTO

	err := s.uow.WithinTransaction(ctx, func(txCtx context.Context) error {
		task, err := s.tasks.FindByItemID(txCtx, cmd.TaskItemID)
		if err != nil {
			return fmt.Errorf("looking up task for item %s: %w", cmd.TaskItemID, err)
		}
		if task == nil {
			return domain.ErrTaskItemNotFound
		}

		item, err := task.VerifyPackItem(cmd.TaskItemID)
		if err != nil {
			return err
		}

		if err := s.tasks.Save(txCtx, task); err != nil {
			return fmt.Errorf("saving pack task %s: %w", task.TaskID, err)
		}
		if err := s.eventLog.Append(txCtx, task.OrderID, cmd.ActorID, logging.CorrelationIDFromContext(txCtx),
			Entry{Type: domain.EventPackItemVerified, Payload: domain.PackItemVerifiedPayload{
				TaskID: task.TaskID, ItemID: item.ItemID, SKU: item.SKU, Quantity: item.Quantity}}); err != nil {
			return err
		}

		dto = ToTaskDTO(task)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Verified pack item", "itemId", cmd.TaskItemID, "actorId", cmd.ActorID)
	return dto, nil
}

// CreatePickBin opens a bin holding the picked quantities of an order,
// grouped by SKU, for tote-based verification at the pack station.
func (s *FulfillmentService) CreatePickBin(ctx context.Context, cmd CreatePickBinCommand) (*BinDTO, error) {
	var dto *BinDTO

	err := s.uow.WithinTransaction(ctx, func(txCtx context.Context) error {
		order, err := s.loadOrder(txCtx, cmd.OrderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderStatusPicked {
			return fmt.Errorf("order %s: cannot open a bin from status %s: %w",
				order.OrderID, order.Status, domain.ErrInvalidStatus)
		}

		active, err := s.bins.FindActiveByOrderID(txCtx, cmd.OrderID)
		if err != nil {
			return fmt.Errorf("checking active bins for %s: %w", cmd.OrderID, err)
		}
		if active != nil {
			return fmt.Errorf("order %s has bin %s: %w", cmd.OrderID, active.BinID, domain.ErrBinAlreadyOpen)
		}

		pickTask, err := s.tasks.FindCompletedPickingTask(txCtx, cmd.OrderID)
		if err != nil {
			return fmt.Errorf("loading completed pick task for %s: %w", cmd.OrderID, err)
		}
		if pickTask == nil {
			return fmt.Errorf("order %s has no completed pick task: %w", cmd.OrderID, domain.ErrInvalidStatus)
		}

		items := groupPickedBySKU(pickTask.CompletedPickLines())
		if len(items) == 0 {
			return domain.ErrNoCompletedPicks
		}

		binID := uuid.New().String()
		barcode := cmd.Barcode
		if barcode == "" {
			barcode = "BIN-" + binID[:8]
		}
		bin, err := domain.NewPickBin(binID, cmd.OrderID, pickTask.TaskID, barcode, items)
		if err != nil {
			return err
		}

		if err := s.bins.Save(txCtx, bin); err != nil {
			return fmt.Errorf("saving bin: %w", err)
		}
		if err := s.eventLog.Append(txCtx, cmd.OrderID, cmd.ActorID, logging.CorrelationIDFromContext(txCtx),
			Entry{Type: domain.EventBinCreated, Payload: domain.BinCreatedPayload{
				BinID: bin.BinID, Barcode: bin.Barcode, ItemCount: len(items)}}); err != nil {
			return err
		}

		dto = ToBinDTO(bin)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created pick bin", "orderId", cmd.OrderID, "binId", dto.BinID, "actorId", cmd.ActorID)
	return dto, nil
}

// VerifyBinItem records one scanned unit against a bin line. Scans past
// the picked quantity are reported back as already verified, not errors.
func (s *FulfillmentService) VerifyBinItem(ctx context.Context, cmd VerifyBinItemCommand) (*VerifyBinItemResultDTO, error) {
	var dto *VerifyBinItemResultDTO

	err := s.uow.WithinTransaction(ctx, func(txCtx context.Context) error {
		bin, err := s.bins.FindByID(txCtx, cmd.BinID)
		if err != nil {
			return fmt.Errorf("loading bin %s: %w", cmd.BinID, err)
		}
		if bin == nil {
			return domain.ErrBinNotFound
		}

		result, err := bin.VerifyItem(cmd.Barcode)
		if err != nil {
			return err
		}

		entries := make([]Entry, 0, 2)
		if !result.AlreadyVerified {
			entries = append(entries, Entry{Type: domain.EventBinItemVerified, Payload: domain.BinItemVerifiedPayload{
				BinID: bin.BinID, SKU: result.Item.SKU, VerifiedQty: result.Item.VerifiedQty, Quantity: result.Item.Quantity}})
		}
		if result.AllVerified && bin.Status == domain.BinStatusOpen {
			if err := bin.MarkVerified(); err != nil {
				return err
			}
			entries = append(entries, Entry{Type: domain.EventBinVerified, Payload: domain.BinVerifiedPayload{BinID: bin.BinID}})
		}

		if err := s.bins.Save(txCtx, bin); err != nil {
			return fmt.Errorf("saving bin %s: %w", bin.BinID, err)
		}
		if len(entries) > 0 {
			if err := s.eventLog.Append(txCtx, bin.OrderID, cmd.ActorID, logging.CorrelationIDFromContext(txCtx), entries...); err != nil {
				return err
			}
		}

		dto = &VerifyBinItemResultDTO{
			Item: BinItemDTO{
				SKU:         result.Item.SKU,
				ProductName: result.Item.ProductName,
				Quantity:    result.Item.Quantity,
				VerifiedQty: result.Item.VerifiedQty,
			},
			AlreadyVerified: result.AlreadyVerified,
			AllVerified:     result.AllVerified,
			BinStatus:       string(bin.Status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return dto, nil
}

// CompletePacking closes packing with the parcel weight, either against
// the packing task directly or against a fully verified bin. The bin
// path synthesizes its packing task since it never ran GeneratePackList,
// then marks the bin packed with a reference to that task.
func (s *FulfillmentService) CompletePacking(ctx context.Context, cmd CompletePackingCommand) (*TaskDTO, error) {
	var dto *TaskDTO

	err := s.uow.WithinTransaction(ctx, func(txCtx context.Context) error {
		var task *domain.WorkTask
		var bin *domain.PickBin
		var err error

		switch {
		case cmd.TaskID != "":
			task, err = s.tasks.FindByID(txCtx, cmd.TaskID)
			if err != nil {
				return fmt.Errorf("loading pack task %s: %w", cmd.TaskID, err)
			}
			if task == nil {
				return domain.ErrTaskNotFound
			}

		case cmd.BinID != "":
			bin, err = s.bins.FindByID(txCtx, cmd.BinID)
			if err != nil {
				return fmt.Errorf("loading bin %s: %w", cmd.BinID, err)
			}
			if bin == nil {
				return domain.ErrBinNotFound
			}
			if bin.Status != domain.BinStatusVerified {
				return fmt.Errorf("bin %s: %w", bin.BinID, domain.ErrBinNotVerified)
			}
			task, err = domain.NewPackingTaskFromBin(uuid.New().String(), bin)
			if err != nil {
				return err
			}

		default:
			return fmt.Errorf("a task or bin is required to complete packing: %w", domain.ErrInvalidStatus)
		}

		if err := task.CompletePacking(cmd.Weight, cmd.WeightUnit, cmd.Dimensions); err != nil {
			return err
		}
		if bin != nil {
			if err := bin.MarkPacked(task.TaskID); err != nil {
				return err
			}
			if err := s.bins.Save(txCtx, bin); err != nil {
				return fmt.Errorf("saving bin %s: %w", bin.BinID, err)
			}
		}

		order, err := s.loadOrder(txCtx, task.OrderID)
		if err != nil {
			return err
		}
		if order.Status == domain.OrderStatusPicked {
			// Bin-based packing never ran GeneratePackList
			if err := order.BeginPacking(); err != nil {
				return err
			}
		}
		if err := order.MarkPacked(); err != nil {
			return err
		}

		if err := s.tasks.Save(txCtx, task); err != nil {
			return fmt.Errorf("saving pack task %s: %w", task.TaskID, err)
		}
		if err := s.orders.Save(txCtx, order); err != nil {
			return fmt.Errorf("saving order %s: %w", order.OrderID, err)
		}
		if err := s.eventLog.Append(txCtx, order.OrderID, cmd.ActorID, logging.CorrelationIDFromContext(txCtx),
			Entry{Type: domain.EventPackingCompleted, Payload: domain.PackingCompletedPayload{
				TaskID: task.TaskID, Weight: cmd.Weight, WeightUnit: cmd.WeightUnit}},
			Entry{Type: domain.EventOrderPacked, Payload: domain.OrderPackedPayload{TaskID: task.TaskID}},
		); err != nil {
			return err
		}

		if s.metrics != nil {
			mode := "direct"
			if cmd.BinID != "" {
				mode = "bin"
			}
			s.metrics.RecordItemPacked(mode)
		}
		dto = ToTaskDTO(task)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Completed packing", "taskId", dto.TaskID, "orderId", dto.OrderID, "weight", cmd.Weight, "actorId", cmd.ActorID)
	return dto, nil
}

// MarkShipped records the carrier hand-off for a packed order. The
// worker applies the same transition when the shipping collaborator
// reports a created shipment.
func (s *FulfillmentService) MarkShipped(ctx context.Context, cmd MarkShippedCommand) (*OrderDTO, error) {
	var dto OrderDTO

	err := s.uow.WithinTransaction(ctx, func(txCtx context.Context) error {
		order, err := s.loadOrder(txCtx, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := order.MarkShipped(cmd.Carrier, cmd.TrackingCode); err != nil {
			return err
		}
		if err := s.orders.Save(txCtx, order); err != nil {
			return fmt.Errorf("saving order %s: %w", cmd.OrderID, err)
		}
		if err := s.eventLog.Append(txCtx, cmd.OrderID, cmd.ActorID, logging.CorrelationIDFromContext(txCtx),
			Entry{Type: domain.EventOrderShipped, Payload: domain.OrderShippedPayload{
				Carrier: cmd.Carrier, TrackingCode: cmd.TrackingCode}}); err != nil {
			return err
		}

		dto = ToOrderDTO(order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Marked order shipped",
		"orderId", cmd.OrderID, "carrier", cmd.Carrier, "tracking", cmd.TrackingCode, "actorId", cmd.ActorID)
	return &dto, nil
}

// GetFulfillmentStatus returns the full pipeline view of an order: its
// tasks, bin, recent events and a freshly built scan lookup.
func (s *FulfillmentService) GetFulfillmentStatus(ctx context.Context, query GetFulfillmentStatusQuery) (*FulfillmentStatusDTO, error) {
	order, err := s.loadOrder(ctx, query.OrderID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.FindByOrderID(ctx, query.OrderID)
	if err != nil {
		return nil, fmt.Errorf("loading tasks for %s: %w", query.OrderID, err)
	}
	pickTask := latestTaskOfType(tasks, domain.TaskTypePicking)
	packTask := latestTaskOfType(tasks, domain.TaskTypePacking)

	bin, err := s.bins.FindActiveByOrderID(ctx, query.OrderID)
	if err != nil {
		return nil, fmt.Errorf("loading bin for %s: %w", query.OrderID, err)
	}

	events, err := s.eventLog.Recent(ctx, query.OrderID, 50)
	if err != nil {
		return nil, err
	}

	status := &FulfillmentStatusDTO{
		Order:       ToOrderDTO(order),
		CurrentStep: order.CurrentStep(),
		ScanLookup:  domain.BuildScanLookup(pickTask, packTask, bin).Targets,
		Events:      ToEventDTOs(events),
	}
	if pickTask != nil {
		status.PickTask = ToTaskDTO(pickTask)
	}
	if packTask != nil {
		status.PackTask = ToTaskDTO(packTask)
	}
	if bin != nil {
		status.Bin = ToBinDTO(bin)
	}
	return status, nil
}

// GetEventsSince replays an order's activity log strictly after the
// anchor event; an empty anchor returns the full history.
func (s *FulfillmentService) GetEventsSince(ctx context.Context, query GetEventsSinceQuery) ([]EventDTO, error) {
	events, err := s.eventLog.EventsSince(ctx, query.OrderID, query.SinceEventID)
	if err != nil {
		return nil, err
	}
	return ToEventDTOs(events), nil
}

func (s *FulfillmentService) loadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// groupPickedBySKU folds picked task lines into one bin line per SKU
func groupPickedBySKU(lines []domain.TaskItem) []domain.BinItem {
	index := make(map[string]int)
	items := make([]domain.BinItem, 0, len(lines))
	for _, line := range lines {
		if i, ok := index[line.SKU]; ok {
			items[i].Quantity += line.QuantityCompleted
			continue
		}
		index[line.SKU] = len(items)
		items = append(items, domain.BinItem{
			SKU:         line.SKU,
			ProductName: line.ProductName,
			UPC:         line.UPC,
			Barcode:     line.Barcode,
			Quantity:    line.QuantityCompleted,
		})
	}
	return items
}

// latestTaskOfType prefers an active task, falling back to the newest
func latestTaskOfType(tasks []*domain.WorkTask, taskType domain.TaskType) *domain.WorkTask {
	var latest *domain.WorkTask
	for _, task := range tasks {
		if task.Type != taskType {
			continue
		}
		if !task.Status.IsTerminal() {
			return task
		}
		if latest == nil || task.CreatedAt.After(latest.CreatedAt) {
			latest = task
		}
	}
	return latest
}
