package execution

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomhq/loom/pkg/eventbus"
	"github.com/loomhq/loom/pkg/events"
	"github.com/loomhq/loom/pkg/models"
	"github.com/loomhq/loom/pkg/persistence"
	"github.com/loomhq/loom/pkg/persistence/file"
	"github.com/loomhq/loom/pkg/testutil"
)

type recordingBus struct {
	published []eventbus.Event
}

func (b *recordingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.published = append(b.published, event)

	return nil
}

func (b *recordingBus) Handle(events.EventType, eventbus.EventHandler) error { return nil }
func (b *recordingBus) Subscribe(context.Context) error                      { return nil }
func (b *recordingBus) Close() error                                         { return nil }
func (b *recordingBus) GenerateID() string                                   { return uuid.NewString() }

func newTestTriggerService(t *testing.T) (*TriggerService, *file.Persistence, *recordingBus) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	bus := &recordingBus{}
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	return NewTriggerService(store, bus, logger), store, bus
}

func TestRequestCreatesPendingExecution(t *testing.T) {
	ctx := context.Background()
	service, store, bus := newTestTriggerService(t)

	workflow := testutil.LinearWorkflow("n1")
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	execution, err := service.Request(ctx, TriggerRequest{
		WorkflowID:  workflow.ID,
		TriggerData: map[string]any{"email": "a@b.com"},
		Source:      SourceManual,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, execution.Status)

	loaded, err := store.Executions().ByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, loaded.Status)
	assert.Equal(t, "a@b.com", loaded.TriggerData["email"])

	require.Len(t, bus.published, 1)

	requested, ok := bus.published[0].(events.ExecutionRequested)
	require.True(t, ok)
	assert.Equal(t, execution.ID, requested.ExecutionID)
	assert.Equal(t, workflow.ID, requested.WorkflowID)
	assert.Equal(t, SourceManual, requested.Source)
}

func TestRequestRejectsDisabledWorkflow(t *testing.T) {
	ctx := context.Background()
	service, store, bus := newTestTriggerService(t)

	workflow := testutil.LinearWorkflow("n1")
	workflow.Enabled = false
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	_, err := service.Request(ctx, TriggerRequest{WorkflowID: workflow.ID, Source: SourceWebhook})
	assert.ErrorIs(t, err, ErrWorkflowDisabled)
	assert.Empty(t, bus.published)

	executions, err := store.Executions().ByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Empty(t, executions)
}

func TestRequestAllowsDisabledWorkflowWhenOverridden(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newTestTriggerService(t)

	workflow := testutil.LinearWorkflow("n1")
	workflow.Enabled = false
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	execution, err := service.Request(ctx, TriggerRequest{
		WorkflowID:    workflow.ID,
		Source:        SourceManual,
		AllowDisabled: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, execution.ID)
}

func TestRequestRejectsMismatchedTriggerKind(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newTestTriggerService(t)

	workflow := testutil.LinearWorkflow("n1")
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	_, err := service.Request(ctx, TriggerRequest{WorkflowID: workflow.ID, Source: SourceWebhook})
	assert.ErrorIs(t, err, ErrTriggerKindMismatch)

	_, err = service.Request(ctx, TriggerRequest{WorkflowID: workflow.ID, Source: SourceSchedule})
	assert.ErrorIs(t, err, ErrTriggerKindMismatch)
}

func TestRequestUnknownWorkflow(t *testing.T) {
	service, _, _ := newTestTriggerService(t)

	_, err := service.Request(context.Background(), TriggerRequest{WorkflowID: "missing", Source: SourceManual})
	assert.True(t, persistence.IsWorkflowNotFound(err))
}
