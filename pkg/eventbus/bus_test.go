package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dukex/supplyflow/pkg/events"
	"github.com/dukex/supplyflow/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(eventType events.EventType) events.SystemEvent {
	return events.New(eventType, "wt", "doc-1", "test", "user-1", nil)
}

func TestBus_DeliversToExactAndWildcardSubscribers(t *testing.T) {
	bus := New(log.Discard())

	var calls []string

	bus.Subscribe(events.DocumentStatusChanged, func(_ context.Context, _ events.SystemEvent) error {
		calls = append(calls, "exact")

		return nil
	})
	bus.Subscribe(events.Wildcard, func(_ context.Context, _ events.SystemEvent) error {
		calls = append(calls, "wildcard")

		return nil
	})
	bus.Subscribe(events.DocumentCreated, func(_ context.Context, _ events.SystemEvent) error {
		calls = append(calls, "other")

		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), newEvent(events.DocumentStatusChanged)))

	assert.Equal(t, []string{"exact", "wildcard"}, calls)
	assert.Equal(t, 2, bus.SubscriberCount(events.DocumentStatusChanged))
	assert.Equal(t, 1, bus.SubscriberCount(events.ApprovalApproved))
}

func TestBus_ContainsSubscriberFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler Handler
	}{
		{
			name: "error",
			handler: func(_ context.Context, _ events.SystemEvent) error {
				return errors.New("boom")
			},
		},
		{
			name: "panic",
			handler: func(_ context.Context, _ events.SystemEvent) error {
				panic("boom")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := New(log.Discard())
			reached := false

			bus.Subscribe(events.DocumentCreated, tt.handler)
			bus.Subscribe(events.Wildcard, func(_ context.Context, _ events.SystemEvent) error {
				reached = true

				return nil
			})

			assert.NotPanics(t, func() {
				assert.NoError(t, bus.Publish(context.Background(), newEvent(events.DocumentCreated)))
			})
			assert.True(t, reached)
		})
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New(log.Discard())
	count := 0

	handler := func(_ context.Context, _ events.SystemEvent) error {
		count++

		return nil
	}

	exactID := bus.Subscribe(events.DocumentCreated, handler)
	wildcardID := bus.Subscribe(events.Wildcard, handler)

	require.NoError(t, bus.Publish(context.Background(), newEvent(events.DocumentCreated)))
	assert.Equal(t, 2, count)

	assert.True(t, bus.Unsubscribe(exactID))
	assert.True(t, bus.Unsubscribe(wildcardID))
	assert.False(t, bus.Unsubscribe(wildcardID))
	assert.False(t, bus.Unsubscribe("sub-unknown"))

	require.NoError(t, bus.Publish(context.Background(), newEvent(events.DocumentCreated)))
	assert.Equal(t, 2, count)
}

func TestBus_PreservesPublishOrderPerPublisher(t *testing.T) {
	bus := New(log.Discard())

	var (
		mu       sync.Mutex
		received = map[string][]int{}
	)

	bus.Subscribe(events.InventoryAdjusted, func(_ context.Context, event events.SystemEvent) error {
		mu.Lock()
		defer mu.Unlock()

		received[event.EntityID] = append(received[event.EntityID], event.Payload["seq"].(int))

		return nil
	})

	var wg sync.WaitGroup

	for _, publisher := range []string{"a", "b", "c"} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for seq := range 50 {
				event := events.New(events.InventoryAdjusted, "item", publisher, "adjust", "", map[string]any{"seq": seq})
				_ = bus.Publish(context.Background(), event)
			}
		}()
	}

	wg.Wait()

	for _, publisher := range []string{"a", "b", "c"} {
		require.Len(t, received[publisher], 50)

		for i, seq := range received[publisher] {
			assert.Equal(t, i, seq)
		}
	}
}

func TestBus_HandlerMaySubscribeDuringPublish(t *testing.T) {
	bus := New(log.Discard())

	bus.Subscribe(events.DocumentCreated, func(_ context.Context, _ events.SystemEvent) error {
		bus.Subscribe(events.DocumentCreated, func(_ context.Context, _ events.SystemEvent) error { return nil })

		return nil
	})

	assert.NoError(t, bus.Publish(context.Background(), newEvent(events.DocumentCreated)))
	assert.Equal(t, 2, bus.SubscriberCount(events.DocumentCreated))
}

func TestBus_Close(t *testing.T) {
	bus := New(log.Discard())
	bus.Subscribe(events.Wildcard, func(_ context.Context, _ events.SystemEvent) error { return nil })

	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), newEvent(events.DocumentCreated))
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, bus.SubscriberCount(events.DocumentCreated))
}
