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

type TaskRepository struct {
	collection   *mongo.Collection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewTaskRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *TaskRepository {
	repo := &TaskRepository{
		collection:   db.Collection("work_tasks"),
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *TaskRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "taskId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "orderId", Value: 1}, {Key: "type", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "items.itemId", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)

	_ = r.outboxRepo.EnsureIndexes(ctx)
}

// Save upserts the task and stages its pending domain events for the
// outbox under the caller's session.
func (r *TaskRepository) Save(ctx context.Context, task *domain.WorkTask) error {
	task.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"taskId": task.TaskID}
	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": task}, opts); err != nil {
		return fmt.Errorf("saving task %s: %w", task.TaskID, err)
	}

	if err := stageDomainEvents(ctx, r.outboxRepo, r.eventFactory,
		task.TaskID, "WorkTask", "task/"+task.TaskID, task.GetDomainEvents()); err != nil {
		return err
	}
	task.ClearDomainEvents()
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID string) (*domain.WorkTask, error) {
	var task domain.WorkTask
	err := r.collection.FindOne(ctx, bson.M{"taskId": taskID}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &task, err
}

func (r *TaskRepository) FindByItemID(ctx context.Context, itemID string) (*domain.WorkTask, error) {
	var task domain.WorkTask
	err := r.collection.FindOne(ctx, bson.M{"items.itemId": itemID}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &task, err
}

func (r *TaskRepository) FindActiveByOrderAndType(ctx context.Context, orderID string, taskType domain.TaskType) (*domain.WorkTask, error) {
	filter := bson.M{
		"orderId": orderID,
		"type":    taskType,
		"status": bson.M{"$in": []domain.TaskStatus{
			domain.TaskStatusPending, domain.TaskStatusInProgress}},
	}
	var task domain.WorkTask
	err := r.collection.FindOne(ctx, filter).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &task, err
}

func (r *TaskRepository) FindCompletedPickingTask(ctx context.Context, orderID string) (*domain.WorkTask, error) {
	filter := bson.M{
		"orderId": orderID,
		"type":    domain.TaskTypePicking,
		"status":  domain.TaskStatusCompleted,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var task domain.WorkTask
	err := r.collection.FindOne(ctx, filter, opts).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &task, err
}

func (r *TaskRepository) FindByOrderID(ctx context.Context, orderID string) ([]*domain.WorkTask, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"orderId": orderID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var tasks []*domain.WorkTask
	err = cursor.All(ctx, &tasks)
	return tasks, err
}
