// Package email provides the transactional email adapter.
package email

import (
	"github.com/loomhq/loom/pkg/adapter"
)

// NewFactory creates the email adapter factory.
func NewFactory() *Factory {
	return &Factory{}
}

type Factory struct{}

func (*Factory) ID() string {
	return "email"
}

func (*Factory) Name() string {
	return "Email"
}

func (*Factory) Description() string {
	return "Sends a transactional email through the configured delivery API."
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"api_url": map[string]any{
				"type":        "string",
				"description": "Base URL of the email delivery API.",
			},
			"api_key": map[string]any{
				"type":        "string",
				"description": "Bearer token for the delivery API.",
			},
			"from": map[string]any{
				"type":        "string",
				"description": "Sender address.",
			},
			"to": map[string]any{
				"description": "Recipient address, or a list of addresses.",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Message subject. Supports placeholder expressions.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Plain-text message body. Supports placeholder expressions.",
			},
			"html": map[string]any{
				"type":        "string",
				"description": "Optional HTML body.",
			},
		},
		"required": []any{"api_url", "api_key", "from", "to", "subject"},
	}
}

func (f *Factory) Create(config map[string]any) (adapter.Adapter, error) {
	return New(config)
}
