package models

// NodeType classifies a node's role in the graph.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeAction    NodeType = "action"
	NodeTypeCondition NodeType = "condition"
	NodeTypeFilter    NodeType = "filter"
)

// Built-in adapter families dispatched by action nodes.
const (
	AdapterPayment   = "payment"
	AdapterEmail     = "email"
	AdapterChat      = "chat"
	AdapterDatastore = "datastore"
	AdapterFormatter = "formatter"
	AdapterCondition = "condition"
)

// Node is a single vertex of a workflow graph. Config values may
// contain placeholder expressions resolved at execution time against
// the outputs of upstream nodes.
type Node struct {
	ID      string         `json:"id"      validate:"required"`
	Type    NodeType       `json:"type"    validate:"required,oneof=trigger action condition filter"`
	Adapter string         `json:"adapter,omitempty"`
	Config  map[string]any `json:"config,omitempty"`
}

// Gating reports whether the node produces a boolean result that
// gates its successors.
func (n *Node) Gating() bool {
	return n.Type == NodeTypeCondition || n.Type == NodeTypeFilter
}

// AdapterID returns the adapter family the node dispatches to.
// Condition and filter nodes always evaluate through the condition
// adapter regardless of the declared adapter field.
func (n *Node) AdapterID() string {
	if n.Gating() {
		return AdapterCondition
	}

	return n.Adapter
}

// Edge is a directed dependency between two nodes. It defines both
// execution order and the availability of the source's output to the
// target during template resolution.
type Edge struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}
