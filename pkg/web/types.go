// Package web provides the HTTP surface for workflow management and trigger
// ingress.
package web

import (
	"time"

	"github.com/loomhq/loom/pkg/models"
)

// CreateWorkflowRequest is the request body for creating a workflow.
type CreateWorkflowRequest struct {
	Name    string         `json:"name"     validate:"required,min=3"`
	OwnerID string         `json:"owner_id" validate:"required"`
	Trigger models.Trigger `json:"trigger"`
	Nodes   []*models.Node `json:"nodes"    validate:"required,min=1,dive"`
	Edges   []models.Edge  `json:"edges"    validate:"dive"`
	Enabled *bool          `json:"enabled"`
}

// TriggerExecutionRequest is the request body for a manual run.
type TriggerExecutionRequest struct {
	TriggerData   map[string]any `json:"trigger_data"`
	AllowDisabled bool           `json:"allow_disabled"`
}

// ExecutionAcceptedResponse acknowledges an asynchronous execution request.
type ExecutionAcceptedResponse struct {
	ExecutionID string                 `json:"execution_id"`
	WorkflowID  string                 `json:"workflow_id"`
	Status      models.ExecutionStatus `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
}

// NewExecutionAcceptedResponse builds the 202 body for a pending execution.
func NewExecutionAcceptedResponse(execution *models.Execution) ExecutionAcceptedResponse {
	return ExecutionAcceptedResponse{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		Status:      execution.Status,
		StartedAt:   execution.StartedAt,
	}
}
