package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/ujenzipro/config"
)

// RedisBroker implements Broker on Redis pub/sub, so change events
// reach subscribers on every running instance, not just the one that
// performed the write.
type RedisBroker struct {
	client *redis.Client
}

// NewBroker selects the change feed implementation: Redis pub/sub when
// Redis is enabled, otherwise the in-process broker. Honoring the
// enabled flag here keeps the feed consistent with the cache, which
// no-ops against the same switch.
func NewBroker(cfg config.RedisConfig) (Broker, error) {
	if !cfg.Enabled {
		return NewMemoryBroker(), nil
	}
	return NewRedisBroker(cfg)
}

// NewRedisBroker creates a broker backed by Redis pub/sub
func NewRedisBroker(cfg config.RedisConfig) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis for change feed")
	}

	return &RedisBroker{client: client}, nil
}

// Publish sends the event to the coarse topic and, for events tied to a
// delivery, to that delivery's fine-grained topic as well
func (b *RedisBroker) Publish(ctx context.Context, event ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal change event")
	}

	if err := b.client.Publish(ctx, TopicDeliveries, data).Err(); err != nil {
		return errors.Wrap(err, "failed to publish change event")
	}

	if err := b.client.Publish(ctx, DeliveryTopic(event.DeliveryID), data).Err(); err != nil {
		return errors.Wrap(err, "failed to publish delivery-scoped change event")
	}

	return nil
}

// Subscribe opens a change feed on one topic. The feed stops when the
// context is cancelled or Close is called on the subscription; missed
// events are not replayed.
func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, topic)

	// Force the subscription to be established before returning
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrap(err, "failed to subscribe to change feed")
	}

	events := make(chan ChangeEvent, subscriberBuffer)
	done := make(chan struct{})

	go func() {
		defer close(events)
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Warn().Err(err).Str("topic", topic).Msg("Dropping malformed change event")
					continue
				}
				select {
				case events <- event:
				default:
					// Subscriber is behind; coalesce
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("Failed to close pubsub channel")
			}
		})
	}

	return &Subscription{C: events, cancel: cancel}, nil
}

// Close closes the underlying Redis connection
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
