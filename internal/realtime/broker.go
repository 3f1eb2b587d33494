package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of row change an event describes
type Action string

// Row change actions
const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ChangeEvent notifies subscribers that a delivery or one of its
// tracking updates changed. It intentionally carries no row data:
// consumers re-fetch the full record, so a coalesced or dropped
// intermediate event only skips a transient state, never the final one.
type ChangeEvent struct {
	Table      string    `json:"table"`
	Action     Action    `json:"action"`
	DeliveryID uuid.UUID `json:"delivery_id"`
	At         time.Time `json:"at"`
}

// Tables that emit change events
const (
	TableDeliveries      = "deliveries"
	TableTrackingUpdates = "tracking_updates"
)

// TopicDeliveries is the coarse topic covering every delivery change,
// used by list and management views
const TopicDeliveries = "changes:deliveries"

// DeliveryTopic returns the fine-grained topic for a single delivery,
// used by the single-delivery tracker view
func DeliveryTopic(id uuid.UUID) string {
	return TopicDeliveries + ":" + id.String()
}

// Subscription is one open change feed. The caller owns it and must
// call Close when done to release the underlying channel.
type Subscription struct {
	C      <-chan ChangeEvent
	cancel func()
}

// Close tears down the subscription
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Broker fans change events out to subscribers. Delivery is best
// effort and eventually consistent: no replay after a disconnect, and
// slow subscribers may miss intermediate events.
type Broker interface {
	Publish(ctx context.Context, event ChangeEvent) error
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
	Close() error
}

// subscriberBuffer bounds each subscriber channel. Consumers re-fetch
// on every event, so overflow drops are harmless coalescing.
const subscriberBuffer = 16
