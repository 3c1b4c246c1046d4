// Package models defines the core domain models for DAG workflow automation.
package models

import "time"

// TriggerKind identifies how an execution of a workflow is initiated.
type TriggerKind string

const (
	TriggerKindManual   TriggerKind = "manual"
	TriggerKindWebhook  TriggerKind = "webhook"
	TriggerKindSchedule TriggerKind = "schedule"
)

// Trigger declares how a workflow is started, plus kind-specific
// configuration (e.g. a cron expression for schedule triggers).
type Trigger struct {
	Kind   TriggerKind    `json:"kind"             validate:"required,oneof=manual webhook schedule"`
	Config map[string]any `json:"config,omitempty"`
}

// Workflow is the immutable-per-execution definition of a node graph.
// It is authored externally and read-only to the engine: the engine
// never mutates a Workflow during a run.
type Workflow struct {
	ID        string    `json:"id"         validate:"required"`
	OwnerID   string    `json:"owner_id"   validate:"required"`
	Name      string    `json:"name"       validate:"required,min=3"`
	Trigger   Trigger   `json:"trigger"`
	Nodes     []*Node   `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeByID returns the node with the given id, if present.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// TriggerNodes returns the trigger-typed nodes of the workflow.
func (w *Workflow) TriggerNodes() []*Node {
	nodes := make([]*Node, 0, 1)

	for _, node := range w.Nodes {
		if node.Type == NodeTypeTrigger {
			nodes = append(nodes, node)
		}
	}

	return nodes
}
