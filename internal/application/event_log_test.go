package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulfillment-platform/fulfillment-service/internal/domain"
)

func TestEventLogAppendAndReplay(t *testing.T) {
	repo := newMemEventRepo()
	notifier := &fakeNotifier{}
	log := NewEventLog(repo, notifier, newTestLogger(), nil)

	err := log.Append(context.Background(), "ORD-20260101A", "worker-1", "corr-1",
		Entry{Type: domain.EventOrderAllocated, Payload: domain.OrderAllocatedPayload{AllocationCount: 2}},
		Entry{Type: domain.EventPickListGenerated, Payload: domain.PickListGeneratedPayload{TaskID: "T1", ItemCount: 2}},
		Entry{Type: domain.EventOrderPicked, Payload: domain.OrderPickedPayload{TaskID: "T1"}},
	)
	require.NoError(t, err)
	require.Len(t, repo.events, 3)
	assert.Len(t, notifier.published, 3)

	for _, event := range repo.events {
		assert.Equal(t, "ORD-20260101A", event.OrderID)
		assert.Equal(t, "worker-1", event.ActorID)
		assert.Equal(t, "corr-1", event.CorrelationID)
		assert.NotEmpty(t, event.EventID)
	}

	// batch entries share one timestamp; replay order comes from insertion
	assert.Equal(t, repo.events[0].CreatedAt, repo.events[2].CreatedAt)

	since, err := log.EventsSince(context.Background(), "ORD-20260101A", repo.events[0].EventID)
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, domain.EventPickListGenerated, since[0].Type)
	assert.Equal(t, domain.EventOrderPicked, since[1].Type)

	all, err := log.EventsSince(context.Background(), "ORD-20260101A", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEventLogUnknownAnchor(t *testing.T) {
	repo := newMemEventRepo()
	log := NewEventLog(repo, &fakeNotifier{}, newTestLogger(), nil)

	require.NoError(t, log.Append(context.Background(), "ORD-20260101A", "", "",
		Entry{Type: domain.EventOrderAllocated, Payload: domain.OrderAllocatedPayload{}}))

	_, err := log.EventsSince(context.Background(), "ORD-20260101A", "no-such-event")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	// anchors belong to the order they are replayed against
	_, err = log.EventsSince(context.Background(), "ORD-20260102B", repo.events[0].EventID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

// TestEventLogPublishFailureIsSwallowed verifies the durable write wins:
// a broken notifier never fails the append.
func TestEventLogPublishFailureIsSwallowed(t *testing.T) {
	repo := newMemEventRepo()
	notifier := &fakeNotifier{failWith: errors.New("broker unreachable")}
	log := NewEventLog(repo, notifier, newTestLogger(), nil)

	err := log.Append(context.Background(), "ORD-20260101A", "worker-1", "",
		Entry{Type: domain.EventOrderAllocated, Payload: domain.OrderAllocatedPayload{AllocationCount: 1}})

	require.NoError(t, err)
	assert.Len(t, repo.events, 1)
	assert.Empty(t, notifier.published)
}

func TestEventLogRecent(t *testing.T) {
	repo := newMemEventRepo()
	log := NewEventLog(repo, &fakeNotifier{}, newTestLogger(), nil)

	require.NoError(t, log.Append(context.Background(), "ORD-20260101A", "", "",
		Entry{Type: domain.EventOrderAllocated, Payload: domain.OrderAllocatedPayload{}},
		Entry{Type: domain.EventPickListGenerated, Payload: domain.PickListGeneratedPayload{TaskID: "T1"}},
		Entry{Type: domain.EventOrderPicked, Payload: domain.OrderPickedPayload{TaskID: "T1"}},
	))

	recent, err := log.Recent(context.Background(), "ORD-20260101A", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, domain.EventPickListGenerated, recent[0].Type)
	assert.Equal(t, domain.EventOrderPicked, recent[1].Type)
}
