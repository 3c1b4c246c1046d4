// Package schedule fires executions for workflows with cron based triggers.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/loomhq/loom/pkg/execution"
	"github.com/loomhq/loom/pkg/models"
	"github.com/loomhq/loom/pkg/persistence"
)

// Source owns one cron runner covering every enabled schedule workflow.
type Source struct {
	store    persistence.Persistence
	triggers *execution.TriggerService
	logger   *slog.Logger
	cron     *cron.Cron
}

// NewSource creates a schedule source.
func NewSource(store persistence.Persistence, triggers *execution.TriggerService, logger *slog.Logger) *Source {
	return &Source{
		store:    store,
		triggers: triggers,
		logger:   logger.With("module", "schedule_source"),
	}
}

// Start loads enabled schedule workflows and registers their cron entries.
func (s *Source) Start(ctx context.Context) error {
	workflows, err := s.store.Workflows().All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	for _, workflow := range workflows {
		if workflow.Trigger.Kind != models.TriggerKindSchedule || !workflow.Enabled {
			continue
		}

		expr, err := CronExpression(workflow)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping workflow with invalid schedule",
				"workflow_id", workflow.ID, "error", err)

			continue
		}

		workflowID := workflow.ID

		_, err = s.cron.AddFunc(expr, func() {
			s.fire(workflowID)
		})
		if err != nil {
			return fmt.Errorf("failed to add cron entry for workflow %s: %w", workflowID, err)
		}

		s.logger.InfoContext(ctx, "Scheduled workflow", "workflow_id", workflowID, "cron", expr)
	}

	s.cron.Start()

	return nil
}

// Stop halts the cron runner and waits for in-flight fires to return.
func (s *Source) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping schedule source")

	if s.cron != nil {
		stopCtx := s.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func (s *Source) fire(workflowID string) {
	ctx := context.Background()

	triggerData := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	_, err := s.triggers.Request(ctx, execution.TriggerRequest{
		WorkflowID:  workflowID,
		TriggerData: triggerData,
		Source:      execution.SourceSchedule,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to request scheduled execution",
			"workflow_id", workflowID, "error", err)
	}
}

// CronExpression extracts and validates the cron expression of a schedule
// trigger.
func CronExpression(workflow *models.Workflow) (string, error) {
	expr, _ := workflow.Trigger.Config["cron"].(string)
	if expr == "" {
		return "", fmt.Errorf("workflow %s has no cron expression", workflow.ID)
	}

	if _, err := cron.ParseStandard(expr); err != nil {
		return "", fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	return expr, nil
}
