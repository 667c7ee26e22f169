package messaging

import (
	"context"
	"log/slog"
	"sync"

	"ballotcore/internal/shared/events"
)

// Bus is the broadcast channel adapter: an in-process publish/subscribe
// fan-out keyed by topic and event name. Delivery is at-most-once and
// fire-and-forget with no replay; a subscriber that attaches after a publish
// never sees it and must fetch authoritative state from the ledger instead.
// Per subscription, events of one name on one topic arrive in publish order.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan events.Envelope
	logger      *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]chan events.Envelope),
		logger:      logger,
	}
}

func subscriptionKey(topic string, eventName string) string {
	return topic + "/" + eventName
}

// Publish fans the envelope out to every subscriber of (topic, EventType).
// Slow subscribers are dropped rather than blocked; there is no backpressure
// and no acknowledgment.
func (b *Bus) Publish(ctx context.Context, topic string, event events.Envelope) error {
	key := subscriptionKey(topic, event.EventType)
	b.mu.RLock()
	subs := append([]chan events.Envelope(nil), b.subscribers[key]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- event:
		default:
			if b.logger != nil {
				b.logger.Warn("dropping event for slow subscriber",
					"event", "bus_publish_drop",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"event_name", event.EventType,
					"event_id", event.EventID,
				)
			}
		}
	}

	if b.logger != nil {
		b.logger.Info("event published",
			"event", "bus_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_name", event.EventType,
			"event_id", event.EventID,
		)
	}
	return nil
}

// Subscribe attaches a handler for one event name on a topic. The handler
// runs on a dedicated goroutine until ctx is cancelled; handler errors are
// logged and never propagate back to the publisher.
func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	eventName string,
	handler func(context.Context, events.Envelope) error,
) error {
	key := subscriptionKey(topic, eventName)
	ch := make(chan events.Envelope, 128)

	b.mu.Lock()
	b.subscribers[key] = append(b.subscribers[key], ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.removeSubscriber(key, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil && b.logger != nil {
					b.logger.Error("subscriber handler failed",
						"event", "bus_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"event_name", eventName,
						"event_id", event.EventID,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (b *Bus) removeSubscriber(key string, target chan events.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[key]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan events.Envelope, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[key] = filtered
}
