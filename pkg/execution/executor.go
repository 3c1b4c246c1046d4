// Package execution runs workflows level by level over a validated schedule.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/loomhq/loom/pkg/adapter"
	"github.com/loomhq/loom/pkg/graph"
	"github.com/loomhq/loom/pkg/models"
	"github.com/loomhq/loom/pkg/persistence"
	"github.com/loomhq/loom/pkg/registry"
	"github.com/loomhq/loom/pkg/template"
)

const (
	defaultNodeTimeout = 2 * time.Minute
	defaultMaxRetries  = 3
)

// Executor drives a single execution from running to a terminal status.
type Executor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	logger      *slog.Logger
	nodeTimeout time.Duration
	maxRetries  uint64
}

// Option configures an Executor.
type Option func(*Executor)

// WithNodeTimeout bounds each adapter call.
func WithNodeTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.nodeTimeout = timeout
	}
}

// WithMaxRetries bounds retry attempts for transient adapter failures.
func WithMaxRetries(retries uint64) Option {
	return func(e *Executor) {
		e.maxRetries = retries
	}
}

// NewExecutor creates a workflow executor.
func NewExecutor(store persistence.Persistence, reg *registry.Registry, logger *slog.Logger, opts ...Option) *Executor {
	executor := &Executor{
		persistence: store,
		registry:    reg,
		logger:      logger.With("module", "executor"),
		nodeTimeout: defaultNodeTimeout,
		maxRetries:  defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// nodeOutcome is the in-flight result of one node before it is appended to
// the execution log.
type nodeOutcome struct {
	result models.NodeResult
	gated  bool
}

// Run executes the workflow and finalizes the execution record. It always
// reaches a terminal status, including on panic and cancellation.
func (e *Executor) Run(ctx context.Context, workflow *models.Workflow, execution *models.Execution) (status models.ExecutionStatus, err error) {
	logger := e.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.ErrorContext(ctx, "Execution panicked", "panic", recovered)

			err = fmt.Errorf("execution panicked: %v", recovered)
			status = models.ExecutionStatusFailed

			e.finalize(ctx, execution.ID, status, err.Error())
		}
	}()

	logger.InfoContext(ctx, "Starting execution")

	markErr := e.persistence.Executions().MarkRunning(ctx, execution.ID, time.Now().UTC())
	if markErr != nil {
		err = fmt.Errorf("failed to mark execution running: %w", markErr)

		// Best effort: a record already terminal stays untouched, anything
		// else should not be left pending without an error written.
		if !persistence.IsExecutionFinalized(markErr) {
			e.finalize(ctx, execution.ID, models.ExecutionStatusFailed, err.Error())
		}

		return models.ExecutionStatusFailed, err
	}

	schedule, planErr := graph.Plan(workflow)
	if planErr != nil {
		logger.ErrorContext(ctx, "Workflow failed validation", "error", planErr)
		e.finalize(ctx, execution.ID, models.ExecutionStatusFailed, planErr.Error())

		return models.ExecutionStatusFailed, planErr
	}

	execCtx := models.NewExecutionContext(execution.ID, workflow.ID, execution.TriggerData)

	statuses := make(map[string]models.NodeResultStatus, len(workflow.Nodes))
	gated := make(map[string]bool)

	for _, level := range schedule.Levels {
		outcomes := e.runLevel(ctx, logger, workflow, schedule, execCtx, statuses, gated, level)

		for _, id := range level {
			outcome := outcomes[id]

			appendErr := e.persistence.Executions().AppendResult(context.WithoutCancel(ctx), execution.ID, outcome.result)
			if appendErr != nil {
				logger.ErrorContext(ctx, "Failed to append node result", "node_id", id, "error", appendErr)
			}

			statuses[id] = outcome.result.Status
			gated[id] = outcome.gated

			if outcome.result.Status == models.NodeResultSuccess {
				execCtx.SetOutput(id, outcome.result.Output)
			}
		}
	}

	status = finalStatus(workflow, statuses)

	logger.InfoContext(ctx, "Execution finished", "status", status)
	e.finalize(ctx, execution.ID, status, "")

	return status, nil
}

// runLevel executes every node of one level concurrently. Nodes in a level
// never depend on each other, so they all resolve against the same snapshot.
func (e *Executor) runLevel(
	ctx context.Context,
	logger *slog.Logger,
	workflow *models.Workflow,
	schedule *graph.Schedule,
	execCtx *models.ExecutionContext,
	statuses map[string]models.NodeResultStatus,
	gated map[string]bool,
	level []string,
) map[string]nodeOutcome {
	snapshot := execCtx.Snapshot()
	outcomes := make(map[string]nodeOutcome, len(level))

	var (
		group sync.WaitGroup
		mu    sync.Mutex
	)

	for _, id := range level {
		node, _ := workflow.NodeByID(id)

		group.Add(1)

		go func() {
			defer group.Done()

			startedAt := time.Now().UTC()

			// A panicking adapter fails its node, not the process. The
			// level still completes and the execution still finalizes.
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.ErrorContext(ctx, "Node panicked", "node_id", node.ID, "panic", recovered)

					panicErr := fmt.Errorf("node panicked: %v", recovered)

					mu.Lock()
					outcomes[node.ID] = failedOutcome(node.ID, startedAt, string(adapter.KindRejected), panicErr)
					mu.Unlock()
				}
			}()

			outcome := e.runNode(ctx, logger, workflow, node, schedule.Incoming[node.ID], snapshot, statuses, gated)

			mu.Lock()
			outcomes[node.ID] = outcome
			mu.Unlock()
		}()
	}

	group.Wait()

	return outcomes
}

func (e *Executor) runNode(
	ctx context.Context,
	logger *slog.Logger,
	workflow *models.Workflow,
	node *models.Node,
	inbound []string,
	snapshot map[string]any,
	statuses map[string]models.NodeResultStatus,
	gated map[string]bool,
) nodeOutcome {
	startedAt := time.Now().UTC()
	logger = logger.With("node_id", node.ID, "adapter", node.AdapterID())

	if shouldSkip(inbound, statuses, gated) {
		logger.InfoContext(ctx, "Skipping node, no live upstream path")

		return skippedOutcome(node.ID, startedAt, "all upstream paths failed, skipped or gated")
	}

	if ctx.Err() != nil {
		logger.InfoContext(ctx, "Skipping node, run cancelled")

		return skippedOutcome(node.ID, startedAt, "run cancelled before node started")
	}

	if node.Type == models.NodeTypeTrigger {
		payload, _ := snapshot[models.TriggerNodeID].(map[string]any)

		return nodeOutcome{result: models.NodeResult{
			NodeID:     node.ID,
			Status:     models.NodeResultSuccess,
			Output:     payload,
			StartedAt:  startedAt,
			FinishedAt: time.Now().UTC(),
		}}
	}

	config, err := template.ResolveConfig(node.Config, snapshot)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to resolve node config", "error", err)

		return failedOutcome(node.ID, startedAt, errorKind(err), err)
	}

	instance, err := e.registry.Create(node.AdapterID(), config)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create adapter", "error", err)

		return failedOutcome(node.ID, startedAt, errorKind(err), err)
	}

	output, err := e.executeWithRetry(ctx, logger, instance)
	if err != nil {
		logger.ErrorContext(ctx, "Node failed", "error", err)

		return failedOutcome(node.ID, startedAt, errorKind(err), err)
	}

	outcome := nodeOutcome{result: models.NodeResult{
		NodeID:     node.ID,
		Status:     models.NodeResultSuccess,
		Output:     output,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}}

	// A false condition or filter succeeds but gates every outgoing edge.
	if node.Gating() && !truthy(output["result"]) {
		logger.InfoContext(ctx, "Condition evaluated false, gating outgoing edges")

		outcome.gated = true
	}

	return outcome
}

// executeWithRetry retries transient adapter failures with exponential
// backoff. A node already running when the run is cancelled finishes on a
// detached context bounded by the node timeout.
func (e *Executor) executeWithRetry(ctx context.Context, logger *slog.Logger, instance adapter.Adapter) (map[string]any, error) {
	operation := func() (map[string]any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.nodeTimeout)
		defer cancel()

		output, err := instance.Execute(runCtx, logger)
		if err != nil {
			if !adapter.KindOf(err).Transient() {
				return nil, backoff.Permanent(err)
			}

			logger.WarnContext(ctx, "Transient adapter failure, retrying", "error", err)

			return nil, err
		}

		return output, nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.maxRetries)

	return backoff.RetryWithData(operation, policy)
}

// finalize writes the terminal status on a detached context so cancellation
// cannot leave the execution dangling in running state.
func (e *Executor) finalize(ctx context.Context, executionID string, status models.ExecutionStatus, runError string) {
	err := e.persistence.Executions().Finalize(context.WithoutCancel(ctx), executionID, status, runError, time.Now().UTC())
	if err != nil && !persistence.IsExecutionFinalized(err) {
		e.logger.ErrorContext(ctx, "Failed to finalize execution", "execution_id", executionID, "error", err)
	}
}

// shouldSkip reports whether every inbound edge comes from a failed, skipped
// or gated source. One successful ungated upstream keeps the node alive.
func shouldSkip(inbound []string, statuses map[string]models.NodeResultStatus, gated map[string]bool) bool {
	if len(inbound) == 0 {
		return false
	}

	for _, source := range inbound {
		if statuses[source] == models.NodeResultSuccess && !gated[source] {
			return false
		}
	}

	return true
}

// finalStatus derives the terminal execution status from the non-trigger
// node results.
func finalStatus(workflow *models.Workflow, statuses map[string]models.NodeResultStatus) models.ExecutionStatus {
	var succeeded, failed, skipped int

	for _, node := range workflow.Nodes {
		if node.Type == models.NodeTypeTrigger {
			continue
		}

		switch statuses[node.ID] {
		case models.NodeResultSuccess:
			succeeded++
		case models.NodeResultFailed:
			failed++
		case models.NodeResultSkipped:
			skipped++
		}
	}

	switch {
	case failed == 0 && skipped == 0:
		return models.ExecutionStatusSuccess
	case succeeded == 0:
		return models.ExecutionStatusFailed
	default:
		return models.ExecutionStatusPartial
	}
}

func skippedOutcome(nodeID string, startedAt time.Time, reason string) nodeOutcome {
	return nodeOutcome{result: models.NodeResult{
		NodeID:     nodeID,
		Status:     models.NodeResultSkipped,
		Error:      reason,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}}
}

func failedOutcome(nodeID string, startedAt time.Time, kind string, err error) nodeOutcome {
	return nodeOutcome{result: models.NodeResult{
		NodeID:     nodeID,
		Status:     models.NodeResultFailed,
		ErrorKind:  kind,
		Error:      err.Error(),
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}}
}

// errorKind classifies a node failure for the execution log.
func errorKind(err error) string {
	var resolutionErr *template.ResolutionError
	if errors.As(err, &resolutionErr) {
		return string(resolutionErr.Kind)
	}

	return string(adapter.KindOf(err))
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return typed != "" && typed != "false"
	case float64:
		return typed != 0
	case int:
		return typed != 0
	case nil:
		return false
	default:
		return true
	}
}
