package workflows

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	temporalClient "github.com/fulfillment-platform/fulfillment-service/pkg/temporal"
)

// Enqueuer starts allocation workflows on the allocation task queue.
// The workflow ID is derived from the order ID, so an order already
// being allocated is not enqueued twice.
type Enqueuer struct {
	client *temporalClient.Client
}

func NewEnqueuer(c *temporalClient.Client) *Enqueuer {
	return &Enqueuer{client: c}
}

func (e *Enqueuer) EnqueueAllocation(ctx context.Context, orderID string) error {
	options := client.StartWorkflowOptions{
		ID:                    "allocate-order-" + orderID,
		TaskQueue:             temporalClient.TaskQueues.Allocation,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}
	_, err := e.client.StartWorkflowWithOptions(ctx, options,
		temporalClient.WorkflowNames.AllocateOrder,
		AllocateOrderInput{OrderID: orderID})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			// an allocation run for this order is in flight
			return nil
		}
		return fmt.Errorf("starting allocation workflow for %s: %w", orderID, err)
	}
	return nil
}
