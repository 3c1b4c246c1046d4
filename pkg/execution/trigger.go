package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loomhq/loom/pkg/eventbus"
	"github.com/loomhq/loom/pkg/events"
	"github.com/loomhq/loom/pkg/models"
	"github.com/loomhq/loom/pkg/persistence"
)

// ErrWorkflowDisabled is returned when a trigger arrives for a disabled
// workflow. No execution record is created in that case.
var ErrWorkflowDisabled = errors.New("workflow is disabled")

// ErrTriggerKindMismatch is returned when the ingress channel does not match
// the workflow's declared trigger kind.
var ErrTriggerKindMismatch = errors.New("trigger kind does not match workflow trigger")

// Trigger sources.
const (
	SourceManual   = "manual"
	SourceWebhook  = "webhook"
	SourceSchedule = "schedule"
)

// TriggerRequest asks for a new execution of a workflow.
type TriggerRequest struct {
	WorkflowID  string
	TriggerData map[string]any
	Source      string
	// AllowDisabled lets explicit manual runs bypass the enabled check.
	AllowDisabled bool
}

// TriggerService is the single ingress point for new executions. It creates
// the pending execution record and hands it off to workers through the bus,
// returning before any node runs.
type TriggerService struct {
	persistence persistence.Persistence
	bus         eventbus.EventBus
	logger      *slog.Logger
}

// NewTriggerService creates a trigger service.
func NewTriggerService(store persistence.Persistence, bus eventbus.EventBus, logger *slog.Logger) *TriggerService {
	return &TriggerService{
		persistence: store,
		bus:         bus,
		logger:      logger.With("module", "trigger"),
	}
}

// Request validates the trigger against the workflow, creates a pending
// execution and publishes it for asynchronous processing.
func (s *TriggerService) Request(ctx context.Context, req TriggerRequest) (*models.Execution, error) {
	workflow, err := s.persistence.Workflows().ByID(ctx, req.WorkflowID)
	if err != nil {
		return nil, err
	}

	if !workflow.Enabled && !req.AllowDisabled {
		return nil, ErrWorkflowDisabled
	}

	if req.Source == SourceWebhook && workflow.Trigger.Kind != models.TriggerKindWebhook {
		return nil, ErrTriggerKindMismatch
	}

	if req.Source == SourceSchedule && workflow.Trigger.Kind != models.TriggerKindSchedule {
		return nil, ErrTriggerKindMismatch
	}

	execution := &models.Execution{
		ID:          uuid.NewString(),
		WorkflowID:  workflow.ID,
		Status:      models.ExecutionStatusPending,
		TriggerData: req.TriggerData,
		Log:         []models.NodeResult{},
		StartedAt:   time.Now().UTC(),
	}

	err = s.persistence.Executions().Create(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	event := events.ExecutionRequested{
		BaseEvent:     events.NewBaseEvent(events.ExecutionRequestedEvent, workflow.ID),
		ExecutionID:   execution.ID,
		TriggerData:   req.TriggerData,
		Source:        req.Source,
		AllowDisabled: req.AllowDisabled,
	}

	err = s.bus.Publish(ctx, workflow.ID, event)
	if err != nil {
		// The pending record stays behind for inspection; without the event
		// no worker will ever claim it.
		return nil, fmt.Errorf("failed to publish execution request: %w", err)
	}

	s.logger.InfoContext(ctx, "Execution requested",
		"workflow_id", workflow.ID,
		"execution_id", execution.ID,
		"source", req.Source,
	)

	return execution, nil
}
