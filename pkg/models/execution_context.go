package models

import "sync"

// TriggerNodeID is the reserved context key holding the trigger payload.
const TriggerNodeID = "trigger"

// ExecutionContext accumulates resolved node outputs during a single
// run, keyed by node id and seeded with the trigger payload under the
// reserved trigger key. It grows monotonically and is discarded when
// the execution finishes. Writes are guarded so that nodes of the same
// topological level can complete concurrently.
type ExecutionContext struct {
	ID         string
	WorkflowID string

	mu      sync.RWMutex
	outputs map[string]map[string]any
}

// NewExecutionContext creates a context for one run, seeded with the
// trigger payload.
func NewExecutionContext(executionID, workflowID string, triggerData map[string]any) *ExecutionContext {
	if triggerData == nil {
		triggerData = map[string]any{}
	}

	return &ExecutionContext{
		ID:         executionID,
		WorkflowID: workflowID,
		outputs: map[string]map[string]any{
			TriggerNodeID: triggerData,
		},
	}
}

// SetOutput records a completed node's output. Each node writes exactly
// one key, once.
func (c *ExecutionContext) SetOutput(nodeID string, output map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.outputs[nodeID] = output
}

// Output returns the recorded output of a node.
func (c *ExecutionContext) Output(nodeID string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out, ok := c.outputs[nodeID]

	return out, ok
}

// Snapshot returns a copy of the node output map suitable for template
// resolution while sibling nodes keep writing.
func (c *ExecutionContext) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]any, len(c.outputs))
	for nodeID, output := range c.outputs {
		snapshot[nodeID] = output
	}

	return snapshot
}
