// Package persistence provides the storage abstraction for workflows
// and execution records. The engine does not own persistence; it talks
// to these interfaces only.
package persistence

import (
	"context"
	"time"

	"github.com/loomhq/loom/pkg/models"
)

type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository is the read-mostly workflow source. Workflows are
// authored by an external surface; the engine only fetches them.
type WorkflowRepository interface {
	All(ctx context.Context) ([]*models.Workflow, error)
	ByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository is the execution sink. Executions are created
// pending, claimed running, receive append-only node results and are
// finalized exactly once.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	ByID(ctx context.Context, id string) (*models.Execution, error)
	ByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)

	MarkRunning(ctx context.Context, id string, startedAt time.Time) error
	AppendResult(ctx context.Context, id string, result models.NodeResult) error
	Finalize(ctx context.Context, id string, status models.ExecutionStatus, runError string, finishedAt time.Time) error
}
