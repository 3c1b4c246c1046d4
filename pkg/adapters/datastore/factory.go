// Package datastore provides the key/value record adapter backed by Redis.
package datastore

import (
	"github.com/loomhq/loom/pkg/adapter"
)

// NewFactory creates the datastore adapter factory.
func NewFactory() *Factory {
	return &Factory{}
}

type Factory struct{}

func (*Factory) ID() string {
	return "datastore"
}

func (*Factory) Name() string {
	return "Datastore"
}

func (*Factory) Description() string {
	return "Reads, writes and deletes JSON records in the configured Redis datastore."
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"description": "Datastore operation to perform.",
				"enum":        []any{"get", "set", "delete"},
			},
			"key": map[string]any{
				"type":        "string",
				"description": "Record key. Supports placeholder expressions.",
			},
			"value": map[string]any{
				"description": "Value to store (set operation only). Stored as JSON.",
			},
			"ttl_seconds": map[string]any{
				"type":        "integer",
				"description": "Optional expiry for set operations, in seconds.",
			},
			"connection": map[string]any{
				"type":        "object",
				"description": "Redis connection settings.",
				"properties": map[string]any{
					"addr":     map[string]any{"type": "string"},
					"password": map[string]any{"type": "string"},
					"db":       map[string]any{"type": "integer"},
				},
				"required": []any{"addr"},
			},
		},
		"required": []any{"operation", "key", "connection"},
	}
}

func (f *Factory) Create(config map[string]any) (adapter.Adapter, error) {
	return New(config)
}
