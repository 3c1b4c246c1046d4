package schedule

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomhq/loom/pkg/channels/gochannel"
	"github.com/loomhq/loom/pkg/eventbus"
	"github.com/loomhq/loom/pkg/execution"
	"github.com/loomhq/loom/pkg/models"
	"github.com/loomhq/loom/pkg/persistence/file"
	"github.com/loomhq/loom/pkg/testutil"
)

func scheduleWorkflow(expr string) *models.Workflow {
	workflow := testutil.LinearWorkflow("n1")
	workflow.Trigger = models.Trigger{
		Kind:   models.TriggerKindSchedule,
		Config: map[string]any{"cron": expr},
	}

	return workflow
}

func TestCronExpression(t *testing.T) {
	workflow := scheduleWorkflow("*/5 * * * *")

	expr, err := CronExpression(workflow)
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", expr)
}

func TestCronExpressionMissing(t *testing.T) {
	workflow := scheduleWorkflow("")

	_, err := CronExpression(workflow)
	assert.Error(t, err)
}

func TestCronExpressionInvalid(t *testing.T) {
	workflow := scheduleWorkflow("not a cron line")

	_, err := CronExpression(workflow)
	assert.Error(t, err)
}

func TestStartSkipsInvalidAndDisabledWorkflows(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	store := file.NewPersistence(t.TempDir())

	valid := scheduleWorkflow("@hourly")
	invalid := scheduleWorkflow("banana")
	disabled := scheduleWorkflow("@hourly")
	disabled.Enabled = false

	for _, workflow := range []*models.Workflow{valid, invalid, disabled} {
		require.NoError(t, store.Workflows().Save(ctx, workflow))
	}

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	triggers := execution.NewTriggerService(store, bus, logger)

	source := NewSource(store, triggers, logger)
	require.NoError(t, source.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	require.NoError(t, source.Stop(stopCtx))
}
