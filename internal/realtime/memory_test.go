package realtime

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func waitForEvent(t *testing.T, sub *Subscription) ChangeEvent {
	t.Helper()
	select {
	case event := <-sub.C:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change event")
		return ChangeEvent{}
	}
}

func TestMemoryBrokerFanOut(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	deliveryID := uuid.New()

	// One subscriber on the coarse topic, one on the delivery's own
	coarse, err := broker.Subscribe(context.Background(), TopicDeliveries)
	require.NoError(t, err)
	defer coarse.Close()

	fine, err := broker.Subscribe(context.Background(), DeliveryTopic(deliveryID))
	require.NoError(t, err)
	defer fine.Close()

	event := ChangeEvent{
		Table:      TableDeliveries,
		Action:     ActionUpdate,
		DeliveryID: deliveryID,
		At:         time.Now(),
	}
	require.NoError(t, broker.Publish(context.Background(), event))

	got := waitForEvent(t, coarse)
	require.Equal(t, deliveryID, got.DeliveryID)
	require.Equal(t, ActionUpdate, got.Action)

	got = waitForEvent(t, fine)
	require.Equal(t, deliveryID, got.DeliveryID)
}

func TestMemoryBrokerTwoSubscribersConverge(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	deliveryID := uuid.New()

	// Two independent viewers of the same delivery
	first, err := broker.Subscribe(context.Background(), DeliveryTopic(deliveryID))
	require.NoError(t, err)
	defer first.Close()

	second, err := broker.Subscribe(context.Background(), DeliveryTopic(deliveryID))
	require.NoError(t, err)
	defer second.Close()

	event := ChangeEvent{Table: TableTrackingUpdates, Action: ActionInsert, DeliveryID: deliveryID}
	require.NoError(t, broker.Publish(context.Background(), event))

	for _, sub := range []*Subscription{first, second} {
		got := waitForEvent(t, sub)
		require.Equal(t, deliveryID, got.DeliveryID)
		require.Equal(t, TableTrackingUpdates, got.Table)
	}
}

func TestMemoryBrokerScopesTopics(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	other, err := broker.Subscribe(context.Background(), DeliveryTopic(uuid.New()))
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, broker.Publish(context.Background(), ChangeEvent{
		Table:      TableDeliveries,
		Action:     ActionInsert,
		DeliveryID: uuid.New(),
	}))

	select {
	case event := <-other.C:
		t.Fatalf("subscriber for another delivery received %v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBrokerSlowSubscriberIsSkipped(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	sub, err := broker.Subscribe(context.Background(), TopicDeliveries)
	require.NoError(t, err)
	defer sub.Close()

	// Overrun the buffer without draining; publishes must not block
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*3; i++ {
			_ = broker.Publish(context.Background(), ChangeEvent{DeliveryID: uuid.New()})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	require.Len(t, sub.C, subscriberBuffer)
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	sub, err := broker.Subscribe(context.Background(), TopicDeliveries)
	require.NoError(t, err)

	sub.Close()
	sub.Close()
}

func TestSubscriptionCloseReleasesWatcher(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	before := runtime.NumGoroutine()

	// Background contexts never cancel; Close alone must release the
	// watcher goroutine
	sub, err := broker.Subscribe(context.Background(), TopicDeliveries)
	require.NoError(t, err)

	sub.Close()

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, time.Second, 10*time.Millisecond)
}

func TestSubscriptionCancelledByContext(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := broker.Subscribe(ctx, TopicDeliveries)
	require.NoError(t, err)
	defer sub.Close()

	cancel()

	// Cancellation removes the subscriber from the topic registry
	require.Eventually(t, func() bool {
		broker.mu.RLock()
		defer broker.mu.RUnlock()
		return len(broker.subs[TopicDeliveries]) == 0
	}, time.Second, 10*time.Millisecond)
}
