package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
	"github.com/fulfillment-platform/fulfillment-service/pkg/cloudevents"
	outboxMongo "github.com/fulfillment-platform/fulfillment-service/pkg/outbox/mongodb"
)

type OrderRepository struct {
	collection   *mongo.Collection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewOrderRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *OrderRepository {
	repo := &OrderRepository{
		collection:   db.Collection("orders"),
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *OrderRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "items.sku", Value: 1}}},
		{Keys: bson.D{{Key: "warehouseId", Value: 1}, {Key: "status", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)

	_ = r.outboxRepo.EnsureIndexes(ctx)
}

// Save upserts the order and stages its pending domain events for the
// outbox under the caller's session.
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	order.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"orderId": order.OrderID}
	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": order}, opts); err != nil {
		return fmt.Errorf("saving order %s: %w", order.OrderID, err)
	}

	if err := stageDomainEvents(ctx, r.outboxRepo, r.eventFactory,
		order.OrderID, "Order", "order/"+order.OrderID, order.GetDomainEvents()); err != nil {
		return err
	}
	order.ClearDomainEvents()
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &order, err
}

func (r *OrderRepository) FindByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var orders []*domain.Order
	err = cursor.All(ctx, &orders)
	return orders, err
}

// FindBackorderedWithSKU returns orders waiting on the given SKU,
// highest priority first, oldest first within a priority, so freed
// stock goes to the most urgent longest-waiting order.
func (r *OrderRepository) FindBackorderedWithSKU(ctx context.Context, sku string) ([]*domain.Order, error) {
	filter := bson.M{
		"status": bson.M{"$in": []domain.OrderStatus{
			domain.OrderStatusBackordered, domain.OrderStatusPartiallyAllocated}},
		"items": bson.M{"$elemMatch": bson.M{"sku": sku, "matched": true}},
	}

	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}

	// The remaining-quantity check compares two fields of the same line,
	// which a plain $elemMatch cannot express, so it runs here.
	found := make([]*domain.Order, 0, len(orders))
	for _, order := range orders {
		for i := range order.Items {
			item := &order.Items[i]
			if item.Matched && item.SKU == sku && item.Remaining() > 0 {
				found = append(found, order)
				break
			}
		}
	}
	return found, nil
}
