package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fulfillment-platform/fulfillment-service/internal/application"
)

// BackorderSweepInput is the input for BackorderSweepWorkflow
type BackorderSweepInput struct {
	SKU string `json:"sku"`
}

// BackorderSweepWorkflow re-enqueues allocation for orders waiting on a
// SKU after stock for it arrives. The sweep activity only starts
// allocation workflows; each order's outcome is decided by its own
// AllocateOrderWorkflow run.
func BackorderSweepWorkflow(ctx workflow.Context, input BackorderSweepInput) (*application.BackorderRecheckDTO, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting backorder sweep", "sku", input.SKU)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result *application.BackorderRecheckDTO
	err := workflow.ExecuteActivity(ctx, "CheckBackorderedOrders", input).Get(ctx, &result)
	if err != nil {
		return nil, fmt.Errorf("backorder sweep failed for %s: %w", input.SKU, err)
	}

	logger.Info("Backorder sweep finished", "sku", input.SKU, "enqueued", len(result.Enqueued))
	return result, nil
}
