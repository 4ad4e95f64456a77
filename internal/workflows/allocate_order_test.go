package workflows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/fulfillment-platform/fulfillment-service/internal/application"
)

// The real activities live in internal/activities, which imports this
// package, so they cannot be registered here without an import cycle.
// Name-based OnActivity mocks need a registered activity with a matching
// signature; these stubs provide that and are never executed because the
// mocks intercept the calls.
func registerStubActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivityWithOptions(
		func(ctx context.Context, input AllocateOrderInput) (*application.AllocationResultDTO, error) {
			return nil, nil
		},
		activity.RegisterOptions{Name: "AllocateOrder"},
	)
	env.RegisterActivityWithOptions(
		func(ctx context.Context, input BackorderSweepInput) (*application.BackorderRecheckDTO, error) {
			return nil, nil
		},
		activity.RegisterOptions{Name: "CheckBackorderedOrders"},
	)
}

func TestAllocateOrderWorkflow_Success(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	registerStubActivities(env)

	allocated := &application.AllocationResultDTO{
		OrderID:        "ORD-20260101A",
		Status:         "allocated",
		TotalRequired:  8,
		TotalAllocated: 8,
	}
	env.OnActivity("AllocateOrder", mock.Anything, AllocateOrderInput{OrderID: "ORD-20260101A"}).
		Return(allocated, nil)

	env.ExecuteWorkflow(AllocateOrderWorkflow, AllocateOrderInput{OrderID: "ORD-20260101A"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result application.AllocationResultDTO
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "allocated", result.Status)
	require.Equal(t, 8, result.TotalAllocated)
}

func TestAllocateOrderWorkflow_BackorderedIsNotAnError(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	registerStubActivities(env)

	backordered := &application.AllocationResultDTO{
		OrderID:   "ORD-20260101A",
		Status:    "backordered",
		ShortSKUs: []string{"SKU-100"},
	}
	env.OnActivity("AllocateOrder", mock.Anything, mock.Anything).Return(backordered, nil)

	env.ExecuteWorkflow(AllocateOrderWorkflow, AllocateOrderInput{OrderID: "ORD-20260101A"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError(), "a backordered outcome completes the workflow")

	var result application.AllocationResultDTO
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "backordered", result.Status)
}

func TestAllocateOrderWorkflow_InvalidStateDoesNotRetry(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	registerStubActivities(env)

	stateErr := temporal.NewNonRetryableApplicationError(
		"order ORD-20260101A: cannot allocate from status shipped",
		ErrTypeInvalidOrderState, nil)
	env.OnActivity("AllocateOrder", mock.Anything, mock.Anything).Return(nil, stateErr).Once()

	env.ExecuteWorkflow(AllocateOrderWorkflow, AllocateOrderInput{OrderID: "ORD-20260101A"})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}

func TestBackorderSweepWorkflow(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	registerStubActivities(env)

	recheck := &application.BackorderRecheckDTO{
		SKU:      "SKU-100",
		Enqueued: []string{"ORD-20260101A", "ORD-20260102B"},
	}
	env.OnActivity("CheckBackorderedOrders", mock.Anything, BackorderSweepInput{SKU: "SKU-100"}).
		Return(recheck, nil)

	env.ExecuteWorkflow(BackorderSweepWorkflow, BackorderSweepInput{SKU: "SKU-100"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result application.BackorderRecheckDTO
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Len(t, result.Enqueued, 2)
}
