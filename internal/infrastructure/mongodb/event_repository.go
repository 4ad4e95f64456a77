package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
)

// EventRepository is the append-only fulfillment activity log. Replay
// order is (createdAt, _id); ObjectIDs are insertion-monotonic, so
// entries appended in one batch replay in append order.
type EventRepository struct {
	collection *mongo.Collection
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	repo := &EventRepository{collection: db.Collection("fulfillment_events")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *EventRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "eventId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "orderId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *EventRepository) Append(ctx context.Context, events ...*domain.FulfillmentEvent) error {
	if len(events) == 0 {
		return nil
	}

	docs := make([]interface{}, len(events))
	for i, event := range events {
		if event.ID.IsZero() {
			event.ID = primitive.NewObjectID()
		}
		docs[i] = event
	}
	if _, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("appending %d fulfillment events: %w", len(events), err)
	}
	return nil
}

func (r *EventRepository) FindByEventID(ctx context.Context, eventID string) (*domain.FulfillmentEvent, error) {
	var event domain.FulfillmentEvent
	err := r.collection.FindOne(ctx, bson.M{"eventId": eventID}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &event, err
}

// FindByOrderSince returns an order's events strictly after the anchor,
// oldest first. A nil anchor returns the full history.
func (r *EventRepository) FindByOrderSince(ctx context.Context, orderID string, after *domain.FulfillmentEvent) ([]*domain.FulfillmentEvent, error) {
	filter := bson.M{"orderId": orderID}
	if after != nil {
		filter["$or"] = bson.A{
			bson.M{"createdAt": bson.M{"$gt": after.CreatedAt}},
			bson.M{"createdAt": after.CreatedAt, "_id": bson.M{"$gt": after.ID}},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var events []*domain.FulfillmentEvent
	err = cursor.All(ctx, &events)
	return events, err
}

// FindRecentByOrder returns the newest entries for an order, oldest first
func (r *EventRepository) FindRecentByOrder(ctx context.Context, orderID string, limit int) ([]*domain.FulfillmentEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{"orderId": orderID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var events []*domain.FulfillmentEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}
