package activities

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/fulfillment-platform/fulfillment-service/internal/application"
	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
	"github.com/fulfillment-platform/fulfillment-service/internal/workflows"
)

// AllocationActivities exposes the allocation service to Temporal
// workers. The heavy lifting stays in the application layer; activities
// translate inputs and classify failures for the retry policy.
type AllocationActivities struct {
	service *application.AllocationService
}

func NewAllocationActivities(service *application.AllocationService) *AllocationActivities {
	return &AllocationActivities{service: service}
}

// AllocateOrder runs the allocation decision table for one order
func (a *AllocationActivities) AllocateOrder(ctx context.Context, input workflows.AllocateOrderInput) (*application.AllocationResultDTO, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Allocating order", "orderId", input.OrderID, "allowPartial", input.AllowPartial)

	result, err := a.service.AllocateOrder(ctx, application.AllocateOrderCommand{
		OrderID:      input.OrderID,
		AllowPartial: input.AllowPartial,
		ActorID:      "temporal-worker",
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidStatus) || errors.Is(err, domain.ErrOrderNotFound) {
			return nil, temporal.NewNonRetryableApplicationError(
				err.Error(), workflows.ErrTypeInvalidOrderState, err)
		}
		return nil, err
	}

	logger.Info("Order allocated", "orderId", input.OrderID, "status", result.Status)
	return result, nil
}

// CheckBackorderedOrders enqueues allocation for orders waiting on a SKU
func (a *AllocationActivities) CheckBackorderedOrders(ctx context.Context, input workflows.BackorderSweepInput) (*application.BackorderRecheckDTO, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Rechecking backorders", "sku", input.SKU)

	result, err := a.service.CheckBackorderedOrders(ctx, application.CheckBackordersCommand{
		SKU:     input.SKU,
		ActorID: "temporal-worker",
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Backorder recheck done", "sku", input.SKU, "enqueued", len(result.Enqueued))
	return result, nil
}
