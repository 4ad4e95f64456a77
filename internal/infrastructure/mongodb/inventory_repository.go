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

type InventoryRepository struct {
	collection *mongo.Collection
}

func NewInventoryRepository(db *mongo.Database) *InventoryRepository {
	repo := &InventoryRepository{collection: db.Collection("inventory_units")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *InventoryRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "unitId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "warehouseId", Value: 1}, {Key: "sku", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "sku", Value: 1}, {Key: "expiresAt", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *InventoryRepository) Save(ctx context.Context, unit *domain.InventoryUnit) error {
	unit.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"unitId": unit.UnitID}
	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": unit}, opts); err != nil {
		return fmt.Errorf("saving inventory unit %s: %w", unit.UnitID, err)
	}
	return nil
}

func (r *InventoryRepository) FindByID(ctx context.Context, unitID string) (*domain.InventoryUnit, error) {
	var unit domain.InventoryUnit
	err := r.collection.FindOne(ctx, bson.M{"unitId": unitID}).Decode(&unit)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &unit, err
}

func (r *InventoryRepository) FindAllocatableBySKU(ctx context.Context, warehouseID, sku string) ([]*domain.InventoryUnit, error) {
	filter := bson.M{
		"warehouseId":       warehouseID,
		"sku":               sku,
		"status":            domain.InventoryStatusAvailable,
		"quantity":          bson.M{"$gt": 0},
		"location.pickable": true,
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var units []*domain.InventoryUnit
	err = cursor.All(ctx, &units)
	return units, err
}

// ReserveQuantity decrements a lot with a quantity guard in the filter,
// so two concurrent reservations can never oversell the same units. The
// lot flips to reserved when it empties.
func (r *InventoryRepository) ReserveQuantity(ctx context.Context, unitID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserving %d from %s: %w", qty, unitID, domain.ErrInvalidQuantity)
	}

	filter := bson.M{
		"unitId":   unitID,
		"status":   domain.InventoryStatusAvailable,
		"quantity": bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"quantity": -qty},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("reserving %d from %s: %w", qty, unitID, err)
	}
	if result.MatchedCount == 0 {
		unit, err := r.FindByID(ctx, unitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return fmt.Errorf("unit %s: %w", unitID, domain.ErrInventoryUnitNotFound)
		}
		return fmt.Errorf("unit %s has %d of %d requested: %w",
			unitID, unit.Quantity, qty, domain.ErrInsufficientInventory)
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"unitId": unitID, "quantity": 0, "status": domain.InventoryStatusAvailable},
		bson.M{"$set": bson.M{"status": domain.InventoryStatusReserved}})
	return err
}

// ReturnQuantity puts released units back on a lot, capped at its
// initial quantity, and reopens an emptied lot.
func (r *InventoryRepository) ReturnQuantity(ctx context.Context, unitID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("returning %d to %s: %w", qty, unitID, domain.ErrInvalidQuantity)
	}

	filter := bson.M{
		"unitId": unitID,
		"status": bson.M{"$in": []domain.InventoryStatus{
			domain.InventoryStatusAvailable, domain.InventoryStatusReserved}},
		"$expr": bson.M{"$lte": bson.A{
			bson.M{"$add": bson.A{"$quantity", qty}}, "$initialQuantity"}},
	}
	update := bson.M{
		"$inc": bson.M{"quantity": qty},
		"$set": bson.M{"status": domain.InventoryStatusAvailable, "updatedAt": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("returning %d to %s: %w", qty, unitID, err)
	}
	if result.MatchedCount == 0 {
		unit, err := r.FindByID(ctx, unitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return fmt.Errorf("unit %s: %w", unitID, domain.ErrInventoryUnitNotFound)
		}
		return fmt.Errorf("unit %s cannot take back %d units: %w", unitID, qty, domain.ErrInvalidQuantity)
	}
	return nil
}
