package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fulfillment-platform/fulfillment-service/internal/application"
)

// AllocateOrderInput is the input for AllocateOrderWorkflow
type AllocateOrderInput struct {
	OrderID      string `json:"orderId"`
	AllowPartial bool   `json:"allowPartial"`
}

// AllocateOrderWorkflow runs inventory allocation for one order. The
// allocation activity is atomic on the service side, so retries here are
// safe: a re-run against an already allocated order is a no-op.
func AllocateOrderWorkflow(ctx workflow.Context, input AllocateOrderInput) (*application.AllocationResultDTO, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting order allocation", "orderId", input.OrderID, "allowPartial", input.AllowPartial)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
			// invalid-state failures do not heal on retry
			NonRetryableErrorTypes: []string{ErrTypeInvalidOrderState},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result *application.AllocationResultDTO
	err := workflow.ExecuteActivity(ctx, "AllocateOrder", input).Get(ctx, &result)
	if err != nil {
		return nil, fmt.Errorf("allocation failed for order %s: %w", input.OrderID, err)
	}

	logger.Info("Order allocation finished",
		"orderId", input.OrderID,
		"status", result.Status,
		"allocated", result.TotalAllocated,
		"required", result.TotalRequired,
	)
	return result, nil
}
