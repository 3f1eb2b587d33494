package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/ujenzipro/config"
)

func TestNewBrokerWithRedisDisabled(t *testing.T) {
	// An unreachable address must not matter when Redis is switched off
	broker, err := NewBroker(config.RedisConfig{Enabled: false, Host: "127.0.0.1", Port: 1})

	require.NoError(t, err)
	require.IsType(t, &MemoryBroker{}, broker)
	defer broker.Close()

	// The fallback broker is fully functional
	deliveryID := uuid.New()
	sub, err := broker.Subscribe(context.Background(), DeliveryTopic(deliveryID))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, broker.Publish(context.Background(), ChangeEvent{
		Table:      TableDeliveries,
		Action:     ActionInsert,
		DeliveryID: deliveryID,
		At:         time.Now(),
	}))

	got := waitForEvent(t, sub)
	require.Equal(t, deliveryID, got.DeliveryID)
}
