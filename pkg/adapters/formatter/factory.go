// Package formatter provides the pure data formatting adapter.
package formatter

import (
	"github.com/loomhq/loom/pkg/adapter"
)

// NewFactory creates the formatter adapter factory.
func NewFactory() *Factory {
	return &Factory{}
}

type Factory struct{}

func (*Factory) ID() string {
	return "formatter"
}

func (*Factory) Name() string {
	return "Formatter"
}

func (*Factory) Description() string {
	return "Formats and transforms data without external side effects."
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"description": "Transformation to apply to the input value.",
				"enum": []any{
					"uppercase", "lowercase", "trim", "join", "split",
					"template", "json", "parse_json", "number",
				},
			},
			"input": map[string]any{
				"description": "Input value. Supports placeholder expressions.",
			},
			"separator": map[string]any{
				"type":        "string",
				"description": "Separator for join and split operations.",
				"default":     ",",
			},
			"template": map[string]any{
				"type":        "string",
				"format":      "code",
				"description": "Go text/template body for the template operation.",
			},
			"precision": map[string]any{
				"type":        "integer",
				"description": "Decimal places for the number operation.",
				"default":     2,
			},
		},
		"required": []any{"operation"},
	}
}

func (f *Factory) Create(config map[string]any) (adapter.Adapter, error) {
	return New(config)
}
