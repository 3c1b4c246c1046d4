package main

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/loomhq/loom/pkg/eventbus"
	"github.com/loomhq/loom/pkg/events"
	"github.com/loomhq/loom/pkg/execution"
	"github.com/loomhq/loom/pkg/models"
	"github.com/loomhq/loom/pkg/otelhelper"
	"github.com/loomhq/loom/pkg/persistence"
)

// Worker consumes execution requests and drives them to a terminal status.
type Worker struct {
	id          string
	persistence persistence.Persistence
	executor    *execution.Executor
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewWorker(
	id string,
	store persistence.Persistence,
	executor *execution.Executor,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		id:          id,
		persistence: store,
		executor:    executor,
		eventBus:    eventBus,
		tracer:      tracer,
		logger:      logger,
	}
}

// Start registers the handler and begins consuming. It returns once the
// subscription is established.
func (w *Worker) Start(ctx context.Context) error {
	err := w.eventBus.Handle(events.ExecutionRequestedEvent, w.handleExecutionRequested)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Worker started")

	return nil
}

func (w *Worker) handleExecutionRequested(ctx context.Context, event any) error {
	requested, ok := event.(*events.ExecutionRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event payload for execution request")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "worker.execute",
		attribute.String(otelhelper.WorkflowIDKey, requested.WorkflowID),
		attribute.String(otelhelper.ExecutionIDKey, requested.ExecutionID),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	logger := w.logger.With(
		"workflow_id", requested.WorkflowID,
		"execution_id", requested.ExecutionID,
	)
	logger.InfoContext(ctx, "Processing execution request", "source", requested.Source)

	startedAt := time.Now()

	workflow, err := w.persistence.Workflows().ByID(ctx, requested.WorkflowID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to fetch workflow", "error", err)
		otelhelper.SetError(span, err)

		return w.abort(ctx, requested, "workflow not found", startedAt)
	}

	// A workflow disabled after the request was accepted no longer runs,
	// unless the request explicitly allowed disabled workflows.
	if !workflow.Enabled && !requested.AllowDisabled {
		logger.InfoContext(ctx, "Workflow disabled, aborting execution")

		return w.abort(ctx, requested, "workflow is disabled", startedAt)
	}

	executionRecord, err := w.persistence.Executions().ByID(ctx, requested.ExecutionID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to fetch execution record", "error", err)
		otelhelper.SetError(span, err)

		return err
	}

	status, err := w.executor.Run(ctx, workflow, executionRecord)
	duration := time.Since(startedAt)

	if err != nil {
		logger.ErrorContext(ctx, "Execution failed", "error", err)
		otelhelper.SetError(span, err)

		failed := events.ExecutionFailed{
			BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, requested.WorkflowID),
			ExecutionID: requested.ExecutionID,
			Error:       err.Error(),
			Duration:    duration,
		}

		publishErr := w.eventBus.Publish(ctx, requested.WorkflowID, failed)
		if publishErr != nil {
			logger.ErrorContext(ctx, "Failed to publish failure event", "error", publishErr)
		}

		return nil
	}

	finished := events.ExecutionFinished{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFinishedEvent, requested.WorkflowID),
		ExecutionID: requested.ExecutionID,
		Status:      status,
		Duration:    duration,
	}

	err = w.eventBus.Publish(ctx, requested.WorkflowID, finished)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to publish finished event", "error", err)
	}

	logger.InfoContext(ctx, "Execution processed", "status", status, "duration", duration)

	return nil
}

// abort finalizes an execution that never reached the executor and reports
// the failure on the bus.
func (w *Worker) abort(ctx context.Context, requested *events.ExecutionRequested, reason string, startedAt time.Time) error {
	err := w.persistence.Executions().Finalize(ctx, requested.ExecutionID,
		models.ExecutionStatusFailed, reason, time.Now().UTC())
	if err != nil && !persistence.IsExecutionFinalized(err) && !persistence.IsExecutionNotFound(err) {
		w.logger.ErrorContext(ctx, "Failed to finalize aborted execution", "error", err)
	}

	failed := events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, requested.WorkflowID),
		ExecutionID: requested.ExecutionID,
		Error:       reason,
		Duration:    time.Since(startedAt),
	}

	publishErr := w.eventBus.Publish(ctx, requested.WorkflowID, failed)
	if publishErr != nil {
		w.logger.ErrorContext(ctx, "Failed to publish failure event", "error", publishErr)
	}

	return nil
}
