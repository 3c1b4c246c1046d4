// Package condition provides the boolean gating adapter used by
// condition and filter nodes.
package condition

import (
	"github.com/loomhq/loom/pkg/adapter"
)

// NewFactory creates the condition adapter factory.
func NewFactory() *Factory {
	return &Factory{}
}

type Factory struct{}

func (*Factory) ID() string {
	return "condition"
}

func (*Factory) Name() string {
	return "Condition"
}

func (*Factory) Description() string {
	return "Compares two values and produces the boolean result that gates downstream nodes."
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"left": map[string]any{
				"description": "Left operand. Supports placeholder expressions.",
			},
			"operator": map[string]any{
				"type":        "string",
				"description": "Comparison operator.",
				"enum": []any{
					"eq", "neq", "gt", "gte", "lt", "lte",
					"contains", "exists", "truthy",
				},
			},
			"right": map[string]any{
				"description": "Right operand. Unused by exists and truthy.",
			},
		},
		"required": []any{"operator"},
	}
}

func (f *Factory) Create(config map[string]any) (adapter.Adapter, error) {
	return New(config)
}
