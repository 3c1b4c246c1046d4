package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomhq/loom/pkg/channels/gochannel"
	"github.com/loomhq/loom/pkg/eventbus"
	"github.com/loomhq/loom/pkg/events"
	"github.com/loomhq/loom/pkg/models"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestPublishDeliversTypedEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan any, 1)
	err := bus.Handle(events.ExecutionRequestedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	event := events.ExecutionRequested{
		BaseEvent:   events.NewBaseEvent(events.ExecutionRequestedEvent, "wf-1"),
		ExecutionID: "exec-1",
		TriggerData: map[string]any{"order": "ord-9"},
		Source:      "manual",
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", event))

	select {
	case got := <-received:
		requested, ok := got.(*events.ExecutionRequested)
		require.True(t, ok, "expected *events.ExecutionRequested, got %T", got)
		assert.Equal(t, "wf-1", requested.WorkflowID)
		assert.Equal(t, "exec-1", requested.ExecutionID)
		assert.Equal(t, "manual", requested.Source)
		assert.Equal(t, "ord-9", requested.TriggerData["order"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestEventsWithoutHandlerAreAcked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan any, 1)
	err := bus.Handle(events.ExecutionFinishedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	// No handler is registered for this type. It must be acked and
	// skipped without blocking later deliveries.
	requested := events.ExecutionRequested{
		BaseEvent:   events.NewBaseEvent(events.ExecutionRequestedEvent, "wf-1"),
		ExecutionID: "exec-1",
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", requested))

	finished := events.ExecutionFinished{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFinishedEvent, "wf-1"),
		ExecutionID: "exec-2",
		Status:      models.ExecutionStatusSuccess,
		Duration:    120 * time.Millisecond,
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", finished))

	select {
	case got := <-received:
		typed, ok := got.(*events.ExecutionFinished)
		require.True(t, ok)
		assert.Equal(t, "exec-2", typed.ExecutionID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}
