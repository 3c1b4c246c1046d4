package models

import "time"

// ExecutionStatus is the lifecycle state of an execution.
type ExecutionStatus string

const (
	ExecutionStatusPending ExecutionStatus = "pending"
	ExecutionStatusRunning ExecutionStatus = "running"
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
	ExecutionStatusPartial ExecutionStatus = "partial"
)

// Terminal reports whether the status ends the execution lifecycle.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusSuccess || s == ExecutionStatusFailed || s == ExecutionStatusPartial
}

// NodeResultStatus is the terminal state of a single node within a run.
type NodeResultStatus string

const (
	NodeResultSuccess NodeResultStatus = "success"
	NodeResultFailed  NodeResultStatus = "failed"
	NodeResultSkipped NodeResultStatus = "skipped"
)

// NodeResult records the outcome of one scheduled node. Skipped nodes
// still get an entry so the log stays auditable.
type NodeResult struct {
	NodeID     string           `json:"node_id"`
	Status     NodeResultStatus `json:"status"`
	Output     map[string]any   `json:"output,omitempty"`
	ErrorKind  string           `json:"error_kind,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Execution is one runtime instance of a workflow run against a
// specific trigger payload. It is created pending, claimed as running
// by the executor, and terminates in exactly one of success, failed or
// partial. Terminal executions are immutable.
type Execution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	Status      ExecutionStatus `json:"status"`
	TriggerData map[string]any  `json:"trigger_data,omitempty"`
	Log         []NodeResult    `json:"log"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}
