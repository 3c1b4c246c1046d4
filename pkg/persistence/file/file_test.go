package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomhq/loom/pkg/models"
	"github.com/loomhq/loom/pkg/persistence"
	"github.com/loomhq/loom/pkg/testutil"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func TestWorkflowRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	workflow := testutil.LinearWorkflow("a", "b")
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	loaded, err := store.Workflows().ByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.ID, loaded.ID)
	assert.Len(t, loaded.Nodes, 3)
	assert.Len(t, loaded.Edges, 2)
	assert.Equal(t, models.TriggerKindManual, loaded.Trigger.Kind)

	all, err := store.Workflows().All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.Workflows().Delete(ctx, workflow.ID))

	_, err = store.Workflows().ByID(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowNotFound(t *testing.T) {
	store := newTestPersistence(t)

	_, err := store.Workflows().ByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = store.Workflows().Delete(context.Background(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestExecutionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	execution := &models.Execution{
		ID:          "exec-1",
		WorkflowID:  "wf-1",
		Status:      models.ExecutionStatusPending,
		TriggerData: map[string]any{"email": "a@b.com"},
		StartedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.Executions().Create(ctx, execution))

	require.NoError(t, store.Executions().MarkRunning(ctx, "exec-1", time.Now().UTC()))

	result := models.NodeResult{
		NodeID:     "n1",
		Status:     models.NodeResultSuccess,
		Output:     map[string]any{"ok": true},
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Executions().AppendResult(ctx, "exec-1", result))

	finishedAt := time.Now().UTC()
	require.NoError(t, store.Executions().Finalize(ctx, "exec-1", models.ExecutionStatusSuccess, "", finishedAt))

	loaded, err := store.Executions().ByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusSuccess, loaded.Status)
	require.Len(t, loaded.Log, 1)
	assert.Equal(t, "n1", loaded.Log[0].NodeID)
	require.NotNil(t, loaded.FinishedAt)
}

func TestExecutionImmutableOnceTerminal(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	execution := &models.Execution{
		ID:         "exec-2",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusPending,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.Executions().Create(ctx, execution))
	require.NoError(t, store.Executions().Finalize(ctx, "exec-2", models.ExecutionStatusFailed, "boom", time.Now().UTC()))

	err := store.Executions().Finalize(ctx, "exec-2", models.ExecutionStatusSuccess, "", time.Now().UTC())
	assert.True(t, persistence.IsExecutionFinalized(err))

	err = store.Executions().AppendResult(ctx, "exec-2", models.NodeResult{NodeID: "n1"})
	assert.True(t, persistence.IsExecutionFinalized(err))

	err = store.Executions().MarkRunning(ctx, "exec-2", time.Now().UTC())
	assert.True(t, persistence.IsExecutionFinalized(err))
}

func TestFinalizeRejectsNonTerminalStatus(t *testing.T) {
	store := newTestPersistence(t)

	err := store.Executions().Finalize(context.Background(), "exec-x", models.ExecutionStatusRunning, "", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrInvalidStatus)
}

func TestExecutionsByWorkflow(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	base := time.Now().UTC()
	for i, id := range []string{"e1", "e2", "e3"} {
		workflowID := "wf-1"
		if id == "e3" {
			workflowID = "wf-2"
		}

		require.NoError(t, store.Executions().Create(ctx, &models.Execution{
			ID:         id,
			WorkflowID: workflowID,
			Status:     models.ExecutionStatusPending,
			StartedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	executions, err := store.Executions().ByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "e1", executions[0].ID)
	assert.Equal(t, "e2", executions[1].ID)
}

func TestHealthCheck(t *testing.T) {
	store := newTestPersistence(t)
	assert.NoError(t, store.HealthCheck(context.Background()))

	missing := NewPersistence("/nonexistent/loom-test")
	assert.Error(t, missing.HealthCheck(context.Background()))
}
