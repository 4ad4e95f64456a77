package application

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
	"github.com/fulfillment-platform/fulfillment-service/pkg/logging"
)

func newTestLogger() *logging.Logger {
	return logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "fulfillment-test",
		Output:      io.Discard,
	})
}

type memOrderRepo struct {
	orders map[string]*domain.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *memOrderRepo) Save(_ context.Context, order *domain.Order) error {
	order.ClearDomainEvents()
	r.orders[order.OrderID] = order
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, orderID string) (*domain.Order, error) {
	return r.orders[orderID], nil
}

func (r *memOrderRepo) FindByStatus(_ context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error) {
	found := make([]*domain.Order, 0)
	for _, order := range r.orders {
		if order.Status == status {
			found = append(found, order)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.Before(found[j].CreatedAt) })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (r *memOrderRepo) FindBackorderedWithSKU(_ context.Context, sku string) ([]*domain.Order, error) {
	found := make([]*domain.Order, 0)
	for _, order := range r.orders {
		if order.Status != domain.OrderStatusBackordered && order.Status != domain.OrderStatusPartiallyAllocated {
			continue
		}
		for i := range order.Items {
			item := &order.Items[i]
			if item.Matched && item.SKU == sku && item.Remaining() > 0 {
				found = append(found, order)
				break
			}
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Priority != found[j].Priority {
			return found[i].Priority > found[j].Priority
		}
		return found[i].CreatedAt.Before(found[j].CreatedAt)
	})
	return found, nil
}

type memInventoryRepo struct {
	units map[string]*domain.InventoryUnit
}

func newMemInventoryRepo(units ...*domain.InventoryUnit) *memInventoryRepo {
	repo := &memInventoryRepo{units: make(map[string]*domain.InventoryUnit)}
	for _, unit := range units {
		repo.units[unit.UnitID] = unit
	}
	return repo
}

func (r *memInventoryRepo) Save(_ context.Context, unit *domain.InventoryUnit) error {
	r.units[unit.UnitID] = unit
	return nil
}

func (r *memInventoryRepo) FindByID(_ context.Context, unitID string) (*domain.InventoryUnit, error) {
	return r.units[unitID], nil
}

func (r *memInventoryRepo) FindAllocatableBySKU(_ context.Context, warehouseID, sku string) ([]*domain.InventoryUnit, error) {
	found := make([]*domain.InventoryUnit, 0)
	for _, unit := range r.units {
		if unit.WarehouseID == warehouseID && unit.SKU == sku && unit.Allocatable() {
			found = append(found, unit)
		}
	}
	return found, nil
}

func (r *memInventoryRepo) ReserveQuantity(_ context.Context, unitID string, qty int) error {
	unit, ok := r.units[unitID]
	if !ok {
		return domain.ErrInventoryUnitNotFound
	}
	return unit.Consume(qty)
}

func (r *memInventoryRepo) ReturnQuantity(_ context.Context, unitID string, qty int) error {
	unit, ok := r.units[unitID]
	if !ok {
		return domain.ErrInventoryUnitNotFound
	}
	return unit.Return(qty)
}

type memAllocationRepo struct {
	allocations map[string]*domain.Allocation
}

func newMemAllocationRepo() *memAllocationRepo {
	return &memAllocationRepo{allocations: make(map[string]*domain.Allocation)}
}

func (r *memAllocationRepo) Save(_ context.Context, alloc *domain.Allocation) error {
	r.allocations[alloc.AllocationID] = alloc
	return nil
}

func (r *memAllocationRepo) SaveAll(ctx context.Context, allocs []*domain.Allocation) error {
	for _, alloc := range allocs {
		if err := r.Save(ctx, alloc); err != nil {
			return err
		}
	}
	return nil
}

func (r *memAllocationRepo) FindByID(_ context.Context, allocationID string) (*domain.Allocation, error) {
	return r.allocations[allocationID], nil
}

func (r *memAllocationRepo) FindActiveByOrderID(_ context.Context, orderID string) ([]*domain.Allocation, error) {
	found := make([]*domain.Allocation, 0)
	for _, alloc := range r.allocations {
		if alloc.OrderID == orderID && alloc.Active() {
			found = append(found, alloc)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].AllocationID < found[j].AllocationID })
	return found, nil
}

func (r *memAllocationRepo) FindByOrderItemID(_ context.Context, orderItemID string) ([]*domain.Allocation, error) {
	found := make([]*domain.Allocation, 0)
	for _, alloc := range r.allocations {
		if alloc.OrderItemID == orderItemID {
			found = append(found, alloc)
		}
	}
	return found, nil
}

type memTaskRepo struct {
	tasks map[string]*domain.WorkTask
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[string]*domain.WorkTask)}
}

func (r *memTaskRepo) Save(_ context.Context, task *domain.WorkTask) error {
	task.ClearDomainEvents()
	r.tasks[task.TaskID] = task
	return nil
}

func (r *memTaskRepo) FindByID(_ context.Context, taskID string) (*domain.WorkTask, error) {
	return r.tasks[taskID], nil
}

func (r *memTaskRepo) FindByItemID(_ context.Context, itemID string) (*domain.WorkTask, error) {
	for _, task := range r.tasks {
		if task.FindItem(itemID) != nil {
			return task, nil
		}
	}
	return nil, nil
}

func (r *memTaskRepo) FindActiveByOrderAndType(_ context.Context, orderID string, taskType domain.TaskType) (*domain.WorkTask, error) {
	for _, task := range r.tasks {
		if task.OrderID == orderID && task.Type == taskType && !task.Status.IsTerminal() {
			return task, nil
		}
	}
	return nil, nil
}

func (r *memTaskRepo) FindCompletedPickingTask(_ context.Context, orderID string) (*domain.WorkTask, error) {
	var latest *domain.WorkTask
	for _, task := range r.tasks {
		if task.OrderID == orderID && task.Type == domain.TaskTypePicking && task.Status == domain.TaskStatusCompleted {
			if latest == nil || task.CreatedAt.After(latest.CreatedAt) {
				latest = task
			}
		}
	}
	return latest, nil
}

func (r *memTaskRepo) FindByOrderID(_ context.Context, orderID string) ([]*domain.WorkTask, error) {
	found := make([]*domain.WorkTask, 0)
	for _, task := range r.tasks {
		if task.OrderID == orderID {
			found = append(found, task)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.Before(found[j].CreatedAt) })
	return found, nil
}

type memBinRepo struct {
	bins map[string]*domain.PickBin
}

func newMemBinRepo() *memBinRepo {
	return &memBinRepo{bins: make(map[string]*domain.PickBin)}
}

func (r *memBinRepo) Save(_ context.Context, bin *domain.PickBin) error {
	bin.ClearDomainEvents()
	r.bins[bin.BinID] = bin
	return nil
}

func (r *memBinRepo) FindByID(_ context.Context, binID string) (*domain.PickBin, error) {
	return r.bins[binID], nil
}

func (r *memBinRepo) FindActiveByOrderID(_ context.Context, orderID string) (*domain.PickBin, error) {
	for _, bin := range r.bins {
		if bin.OrderID == orderID && bin.Status != domain.BinStatusPacked {
			return bin, nil
		}
	}
	return nil, nil
}

type memEventRepo struct {
	events []*domain.FulfillmentEvent
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{events: make([]*domain.FulfillmentEvent, 0)}
}

func (r *memEventRepo) Append(_ context.Context, events ...*domain.FulfillmentEvent) error {
	for _, event := range events {
		event.ID = primitive.NewObjectID()
		r.events = append(r.events, event)
	}
	return nil
}

func (r *memEventRepo) FindByEventID(_ context.Context, eventID string) (*domain.FulfillmentEvent, error) {
	for _, event := range r.events {
		if event.EventID == eventID {
			return event, nil
		}
	}
	return nil, nil
}

func (r *memEventRepo) FindByOrderSince(_ context.Context, orderID string, after *domain.FulfillmentEvent) ([]*domain.FulfillmentEvent, error) {
	found := make([]*domain.FulfillmentEvent, 0)
	for _, event := range r.events {
		if event.OrderID != orderID {
			continue
		}
		if after != nil {
			if event.CreatedAt.Before(after.CreatedAt) {
				continue
			}
			if event.CreatedAt.Equal(after.CreatedAt) && event.ID.Hex() <= after.ID.Hex() {
				continue
			}
		}
		found = append(found, event)
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].CreatedAt.Before(found[j].CreatedAt)
		}
		return found[i].ID.Hex() < found[j].ID.Hex()
	})
	return found, nil
}

func (r *memEventRepo) FindRecentByOrder(ctx context.Context, orderID string, limit int) ([]*domain.FulfillmentEvent, error) {
	all, err := r.FindByOrderSince(ctx, orderID, nil)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// fakeUnitOfWork runs the callback directly; the in-memory repositories
// have no transaction scope.
type fakeUnitOfWork struct{}

func (fakeUnitOfWork) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeNotifier struct {
	published []*domain.FulfillmentEvent
	failWith  error
}

func (n *fakeNotifier) Publish(_ context.Context, event *domain.FulfillmentEvent) error {
	if n.failWith != nil {
		return n.failWith
	}
	n.published = append(n.published, event)
	return nil
}

type fakeEnqueuer struct {
	enqueued []string
	failWith error
}

func (e *fakeEnqueuer) EnqueueAllocation(_ context.Context, orderID string) error {
	if e.failWith != nil {
		return fmt.Errorf("enqueue %s: %w", orderID, e.failWith)
	}
	e.enqueued = append(e.enqueued, orderID)
	return nil
}
