// Package eventbus is the in-process publish/subscribe hub that decouples
// document state changes from their consequences.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"

	"github.com/dukex/supplyflow/pkg/events"
)

var ErrClosed = errors.New("event bus is closed")

// Handler reacts to one event. Returned errors and panics are contained by the bus.
type Handler func(ctx context.Context, event events.SystemEvent) error

// Publisher is the producing side of the bus.
type Publisher interface {
	Publish(ctx context.Context, event events.SystemEvent) error
}

// Subscriber is the consuming side of the bus.
type Subscriber interface {
	Subscribe(eventType events.EventType, handler Handler) string
	Unsubscribe(id string) bool
}

type subscription struct {
	id        string
	eventType events.EventType
	handler   Handler
}

// Bus fans events out synchronously to exact-type subscribers, then to
// wildcard subscribers, each bucket in subscription order.
type Bus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	seq      uint64
	byType   map[events.EventType][]subscription
	wildcard []subscription
	closed   bool
}

func New(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger.With("module", "event_bus"),
		byType: make(map[events.EventType][]subscription),
	}
}

// Subscribe registers handler for eventType, or for every event when eventType is events.Wildcard.
// The returned id is passed to Unsubscribe.
func (b *Bus) Subscribe(eventType events.EventType, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	sub := subscription{
		id:        "sub-" + strconv.FormatUint(b.seq, 10),
		eventType: eventType,
		handler:   handler,
	}

	if eventType == events.Wildcard {
		b.wildcard = append(b.wildcard, sub)
	} else {
		b.byType[eventType] = append(b.byType[eventType], sub)
	}

	b.logger.Debug("subscribed", "subscription_id", sub.id, "event_type", eventType)

	return sub.id
}

// Unsubscribe removes a subscription. It reports whether the id was known.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i := indexOf(b.wildcard, id); i >= 0 {
		b.wildcard = remove(b.wildcard, i)

		return true
	}

	for eventType, subs := range b.byType {
		if i := indexOf(subs, id); i >= 0 {
			subs = remove(subs, i)
			if len(subs) == 0 {
				delete(b.byType, eventType)
			} else {
				b.byType[eventType] = subs
			}

			return true
		}
	}

	return false
}

// Publish delivers event to every matching subscriber before returning.
// Subscriber failures are logged and never reach the caller.
func (b *Bus) Publish(ctx context.Context, event events.SystemEvent) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()

		return ErrClosed
	}

	exact := b.byType[event.Type]
	targets := make([]subscription, 0, len(exact)+len(b.wildcard))
	targets = append(targets, exact...)
	targets = append(targets, b.wildcard...)
	b.mu.RUnlock()

	for _, sub := range targets {
		err := b.deliver(ctx, sub, event)
		if err != nil {
			b.logger.ErrorContext(ctx, "subscriber failed",
				"subscription_id", sub.id,
				"event_id", event.ID,
				"event_type", event.Type,
				"error", err,
			)
		}
	}

	return nil
}

// SubscriberCount returns how many handlers would receive an event of eventType.
func (b *Bus) SubscriberCount(eventType events.EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.byType[eventType]) + len(b.wildcard)
}

// Close drops every subscription. Later publishes fail with ErrClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.byType = make(map[events.EventType][]subscription)
	b.wildcard = nil

	return nil
}

func (b *Bus) deliver(ctx context.Context, sub subscription, event events.SystemEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
			b.logger.DebugContext(ctx, "handler panic stack", "subscription_id", sub.id, "stack", string(debug.Stack()))
		}
	}()

	return sub.handler(ctx, event)
}

func indexOf(subs []subscription, id string) int {
	for i, sub := range subs {
		if sub.id == id {
			return i
		}
	}

	return -1
}

func remove(subs []subscription, i int) []subscription {
	out := make([]subscription, 0, len(subs)-1)
	out = append(out, subs[:i]...)

	return append(out, subs[i+1:]...)
}
