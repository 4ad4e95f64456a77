package mongodb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
	"github.com/fulfillment-platform/fulfillment-service/pkg/cloudevents"
	mongoClient "github.com/fulfillment-platform/fulfillment-service/pkg/mongodb"
	sharedtesting "github.com/fulfillment-platform/fulfillment-service/pkg/testing"
)

type RepositoryIntegrationTestSuite struct {
	suite.Suite
	mongoContainer *sharedtesting.MongoDBContainer
	client         *mongo.Client
	db             *mongo.Database
	orderRepo      *OrderRepository
	inventoryRepo  *InventoryRepository
	allocationRepo *AllocationRepository
	taskRepo       *TaskRepository
	binRepo        *BinRepository
	eventRepo      *EventRepository
	ctx            context.Context
}

func (s *RepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := sharedtesting.NewMongoDBReplicaSetContainer(s.ctx)
	s.Require().NoError(err)
	s.mongoContainer = container

	client, err := container.GetClient(s.ctx)
	s.Require().NoError(err)
	s.client = client

	s.db = client.Database("fulfillment_test")

	eventFactory := cloudevents.NewEventFactory("/fulfillment-service")
	s.orderRepo = NewOrderRepository(s.db, eventFactory)
	s.inventoryRepo = NewInventoryRepository(s.db)
	s.allocationRepo = NewAllocationRepository(s.db)
	s.taskRepo = NewTaskRepository(s.db, eventFactory)
	s.binRepo = NewBinRepository(s.db, eventFactory)
	s.eventRepo = NewEventRepository(s.db)
}

func (s *RepositoryIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Disconnect(s.ctx)
	}
	if s.mongoContainer != nil {
		s.Require().NoError(s.mongoContainer.Close(s.ctx))
	}
}

func (s *RepositoryIntegrationTestSuite) TearDownTest() {
	s.db.Collection("orders").Drop(s.ctx)
	s.db.Collection("inventory_units").Drop(s.ctx)
	s.db.Collection("allocations").Drop(s.ctx)
	s.db.Collection("work_tasks").Drop(s.ctx)
	s.db.Collection("pick_bins").Drop(s.ctx)
	s.db.Collection("fulfillment_events").Drop(s.ctx)
	s.db.Collection("outbox_events").Drop(s.ctx)
}

func TestRepositoryIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	suite.Run(t, new(RepositoryIntegrationTestSuite))
}

// Fixtures

func (s *RepositoryIntegrationTestSuite) newOrder(orderID string, items ...domain.OrderItem) *domain.Order {
	if len(items) == 0 {
		items = []domain.OrderItem{
			{ItemID: "ITEM-001", SKU: "SKU-100", ProductName: "Widget", Quantity: 5, Matched: true},
		}
	}
	order, err := domain.NewOrder(orderID, "CUST-001", "WH-01", 1, items)
	s.Require().NoError(err)
	return order
}

func (s *RepositoryIntegrationTestSuite) newUnit(unitID, sku string, qty int) *domain.InventoryUnit {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.InventoryUnit{
		UnitID:          unitID,
		SKU:             sku,
		WarehouseID:     "WH-01",
		LotCode:         "LOT-" + unitID,
		Quantity:        qty,
		InitialQuantity: qty,
		Status:          domain.InventoryStatusAvailable,
		ReceivedAt:      now,
		Location: domain.Location{
			LocationID:   "A-01-01-" + unitID,
			Zone:         "ZONE-A",
			PickSequence: 10,
			Pickable:     true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OrderRepository

func (s *RepositoryIntegrationTestSuite) TestOrderRepository_SaveAndFind() {
	order := s.newOrder("ORD-IT-001")

	s.Require().NoError(s.orderRepo.Save(s.ctx, order))

	retrieved, err := s.orderRepo.FindByID(s.ctx, "ORD-IT-001")
	s.Require().NoError(err)
	s.Require().NotNil(retrieved)
	s.Equal("ORD-IT-001", retrieved.OrderID)
	s.Equal(domain.OrderStatusPending, retrieved.Status)
	s.Len(retrieved.Items, 1)
	s.Equal("SKU-100", retrieved.Items[0].SKU)
}

func (s *RepositoryIntegrationTestSuite) TestOrderRepository_SaveIsUpsert() {
	order := s.newOrder("ORD-IT-002")
	s.Require().NoError(s.orderRepo.Save(s.ctx, order))

	s.Require().NoError(order.AddAllocatedQuantity("ITEM-001", 5))
	s.Require().NoError(order.MarkAllocated())
	s.Require().NoError(s.orderRepo.Save(s.ctx, order))

	retrieved, err := s.orderRepo.FindByID(s.ctx, "ORD-IT-002")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusAllocated, retrieved.Status)
	s.Equal(5, retrieved.Items[0].QuantityAllocated)

	count, err := s.db.Collection("orders").CountDocuments(s.ctx, map[string]any{})
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *RepositoryIntegrationTestSuite) TestOrderRepository_FindByIDMissingReturnsNil() {
	retrieved, err := s.orderRepo.FindByID(s.ctx, "ORD-NOPE")
	s.Require().NoError(err)
	s.Nil(retrieved)
}

func (s *RepositoryIntegrationTestSuite) TestOrderRepository_SaveStagesOutboxEvents() {
	order := s.newOrder("ORD-IT-003")
	s.Require().NoError(order.MarkBackordered())
	s.Require().NoError(s.orderRepo.Save(s.ctx, order))

	count, err := s.db.Collection("outbox_events").CountDocuments(s.ctx, map[string]any{
		"aggregateId": "ORD-IT-003",
	})
	s.Require().NoError(err)
	s.Equal(int64(1), count)
	s.Empty(order.GetDomainEvents())
}

func (s *RepositoryIntegrationTestSuite) TestOrderRepository_FindBackorderedWithSKU() {
	older := s.newOrder("ORD-IT-OLD", domain.OrderItem{
		ItemID: "ITEM-001", SKU: "SKU-500", ProductName: "Gadget", Quantity: 4, Matched: true,
	})
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(older.MarkBackordered())
	s.Require().NoError(s.orderRepo.Save(s.ctx, older))

	newer := s.newOrder("ORD-IT-NEW", domain.OrderItem{
		ItemID: "ITEM-001", SKU: "SKU-500", ProductName: "Gadget", Quantity: 2, Matched: true,
	})
	newer.CreatedAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(newer.MarkBackordered())
	s.Require().NoError(s.orderRepo.Save(s.ctx, newer))

	// Fully covered line must not come back even though the status matches
	covered := s.newOrder("ORD-IT-COVERED", domain.OrderItem{
		ItemID: "ITEM-001", SKU: "SKU-500", ProductName: "Gadget", Quantity: 3, Matched: true,
	})
	s.Require().NoError(covered.AddAllocatedQuantity("ITEM-001", 3))
	s.Require().NoError(covered.MarkPartiallyAllocated())
	s.Require().NoError(s.orderRepo.Save(s.ctx, covered))

	// newest arrival but highest priority, so it leads the sweep
	urgent := s.newOrder("ORD-IT-URGENT", domain.OrderItem{
		ItemID: "ITEM-001", SKU: "SKU-500", ProductName: "Gadget", Quantity: 1, Matched: true,
	})
	urgent.Priority = 9
	urgent.CreatedAt = time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(urgent.MarkBackordered())
	s.Require().NoError(s.orderRepo.Save(s.ctx, urgent))

	unrelated := s.newOrder("ORD-IT-OTHER")
	s.Require().NoError(unrelated.MarkBackordered())
	s.Require().NoError(s.orderRepo.Save(s.ctx, unrelated))

	orders, err := s.orderRepo.FindBackorderedWithSKU(s.ctx, "SKU-500")
	s.Require().NoError(err)
	s.Require().Len(orders, 3)
	s.Equal("ORD-IT-URGENT", orders[0].OrderID)
	s.Equal("ORD-IT-OLD", orders[1].OrderID)
	s.Equal("ORD-IT-NEW", orders[2].OrderID)
}

// InventoryRepository

func (s *RepositoryIntegrationTestSuite) TestInventoryRepository_FindAllocatableBySKU() {
	s.Require().NoError(s.inventoryRepo.Save(s.ctx, s.newUnit("U1", "SKU-100", 10)))

	empty := s.newUnit("U2", "SKU-100", 0)
	s.Require().NoError(s.inventoryRepo.Save(s.ctx, empty))

	unpickable := s.newUnit("U3", "SKU-100", 5)
	unpickable.Location.Pickable = false
	s.Require().NoError(s.inventoryRepo.Save(s.ctx, unpickable))

	s.Require().NoError(s.inventoryRepo.Save(s.ctx, s.newUnit("U4", "SKU-999", 5)))

	units, err := s.inventoryRepo.FindAllocatableBySKU(s.ctx, "WH-01", "SKU-100")
	s.Require().NoError(err)
	s.Require().Len(units, 1)
	s.Equal("U1", units[0].UnitID)
}

func (s *RepositoryIntegrationTestSuite) TestInventoryRepository_ReserveQuantity() {
	s.Require().NoError(s.inventoryRepo.Save(s.ctx, s.newUnit("U10", "SKU-100", 10)))

	s.Require().NoError(s.inventoryRepo.ReserveQuantity(s.ctx, "U10", 4))

	unit, err := s.inventoryRepo.FindByID(s.ctx, "U10")
	s.Require().NoError(err)
	s.Equal(6, unit.Quantity)
	s.Equal(domain.InventoryStatusAvailable, unit.Status)
}

func (s *RepositoryIntegrationTestSuite) TestInventoryRepository_ReserveToZeroFlipsStatus() {
	s.Require().NoError(s.inventoryRepo.Save(s.ctx, s.newUnit("U11", "SKU-100", 4)))

	s.Require().NoError(s.inventoryRepo.ReserveQuantity(s.ctx, "U11", 4))

	unit, err := s.inventoryRepo.FindByID(s.ctx, "U11")
	s.Require().NoError(err)
	s.Equal(0, unit.Quantity)
	s.Equal(domain.InventoryStatusReserved, unit.Status)
}

func (s *RepositoryIntegrationTestSuite) TestInventoryRepository_ReserveBeyondStockFails() {
	s.Require().NoError(s.inventoryRepo.Save(s.ctx, s.newUnit("U12", "SKU-100", 3)))

	err := s.inventoryRepo.ReserveQuantity(s.ctx, "U12", 5)
	s.Require().ErrorIs(err, domain.ErrInsufficientInventory)

	unit, err := s.inventoryRepo.FindByID(s.ctx, "U12")
	s.Require().NoError(err)
	s.Equal(3, unit.Quantity)
}

func (s *RepositoryIntegrationTestSuite) TestInventoryRepository_ReserveMissingUnit() {
	err := s.inventoryRepo.ReserveQuantity(s.ctx, "U-NOPE", 1)
	s.Require().ErrorIs(err, domain.ErrInventoryUnitNotFound)
}

func (s *RepositoryIntegrationTestSuite) TestInventoryRepository_ReturnQuantityRoundTrip() {
	s.Require().NoError(s.inventoryRepo.Save(s.ctx, s.newUnit("U13", "SKU-100", 8)))
	s.Require().NoError(s.inventoryRepo.ReserveQuantity(s.ctx, "U13", 8))

	s.Require().NoError(s.inventoryRepo.ReturnQuantity(s.ctx, "U13", 8))

	unit, err := s.inventoryRepo.FindByID(s.ctx, "U13")
	s.Require().NoError(err)
	s.Equal(8, unit.Quantity)
	s.Equal(domain.InventoryStatusAvailable, unit.Status)
}

func (s *RepositoryIntegrationTestSuite) TestInventoryRepository_ReturnAboveInitialFails() {
	s.Require().NoError(s.inventoryRepo.Save(s.ctx, s.newUnit("U14", "SKU-100", 8)))
	s.Require().NoError(s.inventoryRepo.ReserveQuantity(s.ctx, "U14", 2))

	err := s.inventoryRepo.ReturnQuantity(s.ctx, "U14", 3)
	s.Require().ErrorIs(err, domain.ErrInvalidQuantity)

	unit, err := s.inventoryRepo.FindByID(s.ctx, "U14")
	s.Require().NoError(err)
	s.Equal(6, unit.Quantity)
}

// AllocationRepository

func (s *RepositoryIntegrationTestSuite) TestAllocationRepository_FindActiveSkipsReleased() {
	unit := s.newUnit("U20", "SKU-100", 10)

	active, err := domain.NewAllocation("ALLOC-001", "ORD-IT-010", "ITEM-001", unit, 4)
	s.Require().NoError(err)
	s.Require().NoError(s.allocationRepo.Save(s.ctx, active))

	released, err := domain.NewAllocation("ALLOC-002", "ORD-IT-010", "ITEM-001", unit, 2)
	s.Require().NoError(err)
	_, err = released.Release()
	s.Require().NoError(err)
	s.Require().NoError(s.allocationRepo.Save(s.ctx, released))

	allocs, err := s.allocationRepo.FindActiveByOrderID(s.ctx, "ORD-IT-010")
	s.Require().NoError(err)
	s.Require().Len(allocs, 1)
	s.Equal("ALLOC-001", allocs[0].AllocationID)
}

// TaskRepository

func (s *RepositoryIntegrationTestSuite) TestTaskRepository_FindByItemID() {
	task, err := domain.NewPickingTask("TASK-001", "ORD-IT-020", []domain.TaskItem{
		{ItemID: "TI-001", OrderItemID: "ITEM-001", SKU: "SKU-100", Quantity: 5},
	})
	s.Require().NoError(err)
	s.Require().NoError(s.taskRepo.Save(s.ctx, task))

	retrieved, err := s.taskRepo.FindByItemID(s.ctx, "TI-001")
	s.Require().NoError(err)
	s.Require().NotNil(retrieved)
	s.Equal("TASK-001", retrieved.TaskID)

	missing, err := s.taskRepo.FindByItemID(s.ctx, "TI-NOPE")
	s.Require().NoError(err)
	s.Nil(missing)
}

func (s *RepositoryIntegrationTestSuite) TestTaskRepository_FindActiveByOrderAndType() {
	task, err := domain.NewPickingTask("TASK-002", "ORD-IT-021", []domain.TaskItem{
		{ItemID: "TI-010", OrderItemID: "ITEM-001", SKU: "SKU-100", Quantity: 5},
	})
	s.Require().NoError(err)
	s.Require().NoError(s.taskRepo.Save(s.ctx, task))

	found, err := s.taskRepo.FindActiveByOrderAndType(s.ctx, "ORD-IT-021", domain.TaskTypePicking)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal("TASK-002", found.TaskID)

	_, err = task.ConfirmPick("TI-010", 5, "")
	s.Require().NoError(err)
	s.Require().NoError(s.taskRepo.Save(s.ctx, task))

	found, err = s.taskRepo.FindActiveByOrderAndType(s.ctx, "ORD-IT-021", domain.TaskTypePicking)
	s.Require().NoError(err)
	s.Nil(found)
}

// BinRepository

func (s *RepositoryIntegrationTestSuite) TestBinRepository_FindActiveByOrderID() {
	bin, err := domain.NewPickBin("BIN-IT-001", "ORD-IT-030", "TASK-010", "TOTE-30", []domain.BinItem{
		{SKU: "SKU-100", ProductName: "Widget", Quantity: 1},
	})
	s.Require().NoError(err)
	s.Require().NoError(s.binRepo.Save(s.ctx, bin))

	found, err := s.binRepo.FindActiveByOrderID(s.ctx, "ORD-IT-030")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal("BIN-IT-001", found.BinID)

	// fully verified but not yet packed, still active
	_, err = bin.VerifyItem("SKU-100")
	s.Require().NoError(err)
	s.Require().NoError(bin.MarkVerified())
	s.Require().NoError(s.binRepo.Save(s.ctx, bin))

	found, err = s.binRepo.FindActiveByOrderID(s.ctx, "ORD-IT-030")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(domain.BinStatusVerified, found.Status)

	s.Require().NoError(bin.MarkPacked("TASK-011"))
	s.Require().NoError(s.binRepo.Save(s.ctx, bin))

	found, err = s.binRepo.FindActiveByOrderID(s.ctx, "ORD-IT-030")
	s.Require().NoError(err)
	s.Nil(found)
}

// EventRepository

func (s *RepositoryIntegrationTestSuite) TestEventRepository_ReplayAfterAnchor() {
	now := time.Now().UTC().Truncate(time.Millisecond)
	var entries []*domain.FulfillmentEvent
	for _, id := range []string{"EVT-1", "EVT-2", "EVT-3"} {
		event, err := domain.NewFulfillmentEvent(id, "ORD-IT-030",
			domain.EventPickItemConfirmed, nil, "worker-1", "corr-1", now)
		s.Require().NoError(err)
		entries = append(entries, event)
	}
	s.Require().NoError(s.eventRepo.Append(s.ctx, entries...))

	anchor, err := s.eventRepo.FindByEventID(s.ctx, "EVT-1")
	s.Require().NoError(err)
	s.Require().NotNil(anchor)

	since, err := s.eventRepo.FindByOrderSince(s.ctx, "ORD-IT-030", anchor)
	s.Require().NoError(err)
	s.Require().Len(since, 2)
	s.Equal("EVT-2", since[0].EventID)
	s.Equal("EVT-3", since[1].EventID)

	all, err := s.eventRepo.FindByOrderSince(s.ctx, "ORD-IT-030", nil)
	s.Require().NoError(err)
	s.Len(all, 3)
}

// UnitOfWork

func (s *RepositoryIntegrationTestSuite) TestUnitOfWork_CommitAndRollback() {
	ctx, cancel := sharedtesting.CreateTestContext(60 * time.Second)
	defer cancel()

	uri := s.mongoContainer.URI
	if !strings.Contains(uri, "directConnection") {
		if strings.Contains(uri, "?") {
			uri += "&directConnection=true"
		} else {
			uri += "/?directConnection=true"
		}
	}

	client, err := mongoClient.NewClient(ctx, &mongoClient.Config{
		URI:            uri,
		Database:       "fulfillment_uow_test",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    10,
		MinPoolSize:    1,
	})
	s.Require().NoError(err)
	defer client.Close(ctx)

	factory := cloudevents.NewEventFactory("/fulfillment-service")
	orders := NewOrderRepository(client.Database(), factory)
	inventory := NewInventoryRepository(client.Database())
	uow := NewUnitOfWork(client)

	err = uow.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := orders.Save(txCtx, s.newOrder("ORD-UOW-1")); err != nil {
			return err
		}
		return inventory.Save(txCtx, s.newUnit("U-UOW-1", "SKU-100", 5))
	})
	s.Require().NoError(err)

	order, err := orders.FindByID(ctx, "ORD-UOW-1")
	s.Require().NoError(err)
	s.Require().NotNil(order)
	unit, err := inventory.FindByID(ctx, "U-UOW-1")
	s.Require().NoError(err)
	s.Require().NotNil(unit)

	boom := errors.New("boom")
	err = uow.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := orders.Save(txCtx, s.newOrder("ORD-UOW-2")); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	order, err = orders.FindByID(ctx, "ORD-UOW-2")
	s.Require().NoError(err)
	s.Nil(order)
}

func (s *RepositoryIntegrationTestSuite) TestEventRepository_RecentReturnsTailOldestFirst() {
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, id := range []string{"EVT-A", "EVT-B", "EVT-C"} {
		event, err := domain.NewFulfillmentEvent(id, "ORD-IT-031",
			domain.EventPickItemConfirmed, nil, "worker-1", "", base.Add(time.Duration(i)*time.Second))
		s.Require().NoError(err)
		s.Require().NoError(s.eventRepo.Append(s.ctx, event))
	}

	recent, err := s.eventRepo.FindRecentByOrder(s.ctx, "ORD-IT-031", 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("EVT-B", recent[0].EventID)
	s.Equal("EVT-C", recent[1].EventID)
}
