package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loomhq/loom/pkg/models"
	"github.com/loomhq/loom/pkg/persistence"
)

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// Create inserts a new execution record.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	triggerJSON, err := json.Marshal(execution.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	logJSON, err := json.Marshal(execution.Log)
	if err != nil {
		return fmt.Errorf("failed to marshal execution log: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, status, trigger_data, log, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		string(execution.Status),
		triggerJSON,
		logJSON,
		execution.Error,
		execution.StartedAt,
		execution.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

// ByID returns an execution by its ID.
func (r *ExecutionRepository) ByID(ctx context.Context, id string) (*models.Execution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , status
		  , trigger_data
		  , log
		  , error
		  , started_at
		  , finished_at
		FROM executions
		WHERE id = $1
	`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.ExecutionError{Op: "by_id", ExecutionID: id, Err: persistence.ErrExecutionNotFound}
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// ByWorkflow returns all executions of a workflow ordered by start time.
func (r *ExecutionRepository) ByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , status
		  , trigger_data
		  , log
		  , error
		  , started_at
		  , finished_at
		FROM executions
		WHERE workflow_id = $1
		ORDER BY started_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

// MarkRunning transitions a pending execution to running.
func (r *ExecutionRepository) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	query := `
		UPDATE executions
		SET status = $2, started_at = $3
		WHERE id = $1 AND status NOT IN ('success', 'failed', 'partial')
	`

	result, err := r.db.ExecContext(ctx, query, id, string(models.ExecutionStatusRunning), startedAt)
	if err != nil {
		return fmt.Errorf("failed to mark execution running: %w", err)
	}

	return r.checkMutated(ctx, id, result, "mark_running")
}

// AppendResult appends a node result to the execution log.
func (r *ExecutionRepository) AppendResult(ctx context.Context, id string, result models.NodeResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal node result: %w", err)
	}

	query := `
		UPDATE executions
		SET log = log || $2::jsonb
		WHERE id = $1 AND status NOT IN ('success', 'failed', 'partial')
	`

	res, err := r.db.ExecContext(ctx, query, id, resultJSON)
	if err != nil {
		return fmt.Errorf("failed to append node result: %w", err)
	}

	return r.checkMutated(ctx, id, res, "append_result")
}

// Finalize transitions an execution to a terminal status exactly once.
func (r *ExecutionRepository) Finalize(ctx context.Context, id string, status models.ExecutionStatus, runError string, finishedAt time.Time) error {
	if !status.Terminal() {
		return &persistence.ExecutionError{Op: "finalize", ExecutionID: id, Err: persistence.ErrInvalidStatus}
	}

	query := `
		UPDATE executions
		SET status = $2, error = $3, finished_at = $4
		WHERE id = $1 AND status NOT IN ('success', 'failed', 'partial')
	`

	result, err := r.db.ExecContext(ctx, query, id, string(status), runError, finishedAt)
	if err != nil {
		return fmt.Errorf("failed to finalize execution: %w", err)
	}

	return r.checkMutated(ctx, id, result, "finalize")
}

// checkMutated distinguishes a missing execution from an already finalized one
// when a guarded update touched no rows.
func (r *ExecutionRepository) checkMutated(ctx context.Context, id string, result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}

	if affected > 0 {
		return nil
	}

	var exists bool

	err = r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM executions WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check execution existence: %w", err)
	}

	if !exists {
		return &persistence.ExecutionError{Op: op, ExecutionID: id, Err: persistence.ErrExecutionNotFound}
	}

	return &persistence.ExecutionError{Op: op, ExecutionID: id, Err: persistence.ErrExecutionFinalized}
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution   models.Execution
		status      string
		triggerJSON []byte
		logJSON     []byte
		runError    sql.NullString
		finishedAt  sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&status,
		&triggerJSON,
		&logJSON,
		&runError,
		&execution.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)

	err = json.Unmarshal(triggerJSON, &execution.TriggerData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
	}

	err = json.Unmarshal(logJSON, &execution.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution log: %w", err)
	}

	if runError.Valid {
		execution.Error = runError.String
	}

	if finishedAt.Valid {
		finished := finishedAt.Time

		execution.FinishedAt = &finished
	}

	return &execution, nil
}
