// Package testutil provides test data builders for workflow tests.
package testutil

import (
	"github.com/google/uuid"

	"github.com/loomhq/loom/pkg/models"
)

// NewNode creates a test node with sane defaults that can be overridden.
func NewNode(id string, overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:      id,
		Type:    models.NodeTypeAction,
		Adapter: models.AdapterFormatter,
		Config:  map[string]any{"operation": "trim", "input": "test"},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// AsTrigger configures a node as a trigger entry point.
func AsTrigger() func(*models.Node) {
	return func(n *models.Node) {
		n.Type = models.NodeTypeTrigger
		n.Adapter = ""
		n.Config = map[string]any{}
	}
}

// AsCondition configures a node as a gating condition.
func AsCondition(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = models.NodeTypeCondition
		n.Adapter = ""
		n.Config = config
	}
}

// WithAdapter sets the adapter family the node dispatches to.
func WithAdapter(adapter string) func(*models.Node) {
	return func(n *models.Node) {
		n.Adapter = adapter
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// NewWorkflow creates an enabled manual-trigger workflow from the given
// nodes and edges. Edges are written as "source->target" pairs.
func NewWorkflow(nodes []*models.Node, edges ...models.Edge) *models.Workflow {
	return &models.Workflow{
		ID:      uuid.New().String(),
		OwnerID: "test-user",
		Name:    "Test Workflow",
		Trigger: models.Trigger{Kind: models.TriggerKindManual},
		Nodes:   nodes,
		Edges:   edges,
		Enabled: true,
	}
}

// Edge is shorthand for a directed edge.
func Edge(source, target string) models.Edge {
	return models.Edge{Source: source, Target: target}
}

// LinearWorkflow builds trigger -> a1 -> a2 ... using formatter nodes.
func LinearWorkflow(actionIDs ...string) *models.Workflow {
	nodes := []*models.Node{NewNode("start", AsTrigger())}
	edges := make([]models.Edge, 0, len(actionIDs))

	previous := "start"
	for _, id := range actionIDs {
		nodes = append(nodes, NewNode(id))
		edges = append(edges, Edge(previous, id))
		previous = id
	}

	return NewWorkflow(nodes, edges...)
}
