package realtime

import (
	"context"
	"sync"
)

// MemoryBroker implements Broker with in-process fan-out. It backs
// single-instance deployments where Redis is disabled, and tests.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan ChangeEvent
	nextID int
	closed bool
}

// NewMemoryBroker creates an in-process broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs: make(map[string]map[int]chan ChangeEvent),
	}
}

// Publish fans the event out to subscribers of the coarse topic and of
// the delivery's own topic. Slow subscribers are skipped rather than
// blocked on.
func (b *MemoryBroker) Publish(_ context.Context, event ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	for _, topic := range []string{TopicDeliveries, DeliveryTopic(event.DeliveryID)} {
		for _, ch := range b.subs[topic] {
			select {
			case ch <- event:
			default:
				// Subscriber is behind; coalesce
			}
		}
	}

	return nil
}

// Subscribe opens a change feed on one topic
func (b *MemoryBroker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ch := make(chan ChangeEvent, subscriberBuffer)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan ChangeEvent)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = ch
	b.mu.Unlock()

	remove := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subs[topic]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(b.subs, topic)
			}
		}
	}

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			remove()
			close(done)
		})
	}

	// Tear down with the caller's context so an abandoned subscription
	// does not leak its channel; done releases the watcher when the
	// subscription is closed explicitly instead
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return &Subscription{C: ch, cancel: cancel}, nil
}

// Close drops all subscriptions
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string]map[int]chan ChangeEvent)
	return nil
}
