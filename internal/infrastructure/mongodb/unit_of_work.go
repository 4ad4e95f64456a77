package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	mongoClient "github.com/fulfillment-platform/fulfillment-service/pkg/mongodb"
)

// UnitOfWork runs application callbacks inside one MongoDB transaction.
// Repository calls made with the callback context join the session, so
// aggregate writes and their outbox rows commit or roll back together.
type UnitOfWork struct {
	client *mongoClient.Client
}

func NewUnitOfWork(client *mongoClient.Client) *UnitOfWork {
	return &UnitOfWork{client: client}
}

func (u *UnitOfWork) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
}
