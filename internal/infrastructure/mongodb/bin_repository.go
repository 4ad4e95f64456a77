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

type BinRepository struct {
	collection   *mongo.Collection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewBinRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *BinRepository {
	repo := &BinRepository{
		collection:   db.Collection("pick_bins"),
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *BinRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "binId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "orderId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "barcode", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save upserts the bin and stages its pending domain events for the
// outbox under the caller's session.
func (r *BinRepository) Save(ctx context.Context, bin *domain.PickBin) error {
	bin.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"binId": bin.BinID}
	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bin}, opts); err != nil {
		return fmt.Errorf("saving bin %s: %w", bin.BinID, err)
	}

	if err := stageDomainEvents(ctx, r.outboxRepo, r.eventFactory,
		bin.BinID, "PickBin", "bin/"+bin.BinID, bin.GetDomainEvents()); err != nil {
		return err
	}
	bin.ClearDomainEvents()
	return nil
}

func (r *BinRepository) FindByID(ctx context.Context, binID string) (*domain.PickBin, error) {
	var bin domain.PickBin
	err := r.collection.FindOne(ctx, bson.M{"binId": binID}).Decode(&bin)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &bin, err
}

// FindActiveByOrderID returns the order's open or verified bin, if any.
// Packed bins are consumed and no longer block a new bin.
func (r *BinRepository) FindActiveByOrderID(ctx context.Context, orderID string) (*domain.PickBin, error) {
	filter := bson.M{
		"orderId": orderID,
		"status":  bson.M{"$in": []domain.BinStatus{domain.BinStatusOpen, domain.BinStatusVerified}},
	}

	var bin domain.PickBin
	err := r.collection.FindOne(ctx, filter).Decode(&bin)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &bin, err
}
