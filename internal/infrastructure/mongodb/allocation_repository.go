package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
)

type AllocationRepository struct {
	collection *mongo.Collection
}

func NewAllocationRepository(db *mongo.Database) *AllocationRepository {
	repo := &AllocationRepository{collection: db.Collection("allocations")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *AllocationRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "allocationId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "orderId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "orderItemId", Value: 1}}},
		{Keys: bson.D{{Key: "inventoryUnitId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *AllocationRepository) Save(ctx context.Context, alloc *domain.Allocation) error {
	alloc.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"allocationId": alloc.AllocationID}
	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": alloc}, opts); err != nil {
		return fmt.Errorf("saving allocation %s: %w", alloc.AllocationID, err)
	}
	return nil
}

func (r *AllocationRepository) SaveAll(ctx context.Context, allocs []*domain.Allocation) error {
	for _, alloc := range allocs {
		if err := r.Save(ctx, alloc); err != nil {
			return err
		}
	}
	return nil
}

func (r *AllocationRepository) FindByID(ctx context.Context, allocationID string) (*domain.Allocation, error) {
	var alloc domain.Allocation
	err := r.collection.FindOne(ctx, bson.M{"allocationId": allocationID}).Decode(&alloc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &alloc, err
}

func (r *AllocationRepository) FindActiveByOrderID(ctx context.Context, orderID string) ([]*domain.Allocation, error) {
	filter := bson.M{
		"orderId": orderID,
		"status":  bson.M{"$ne": domain.AllocationStatusReleased},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "allocationId", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var allocs []*domain.Allocation
	err = cursor.All(ctx, &allocs)
	return allocs, err
}

func (r *AllocationRepository) FindByOrderItemID(ctx context.Context, orderItemID string) ([]*domain.Allocation, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"orderItemId": orderItemID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var allocs []*domain.Allocation
	err = cursor.All(ctx, &allocs)
	return allocs, err
}
