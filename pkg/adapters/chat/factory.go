// Package chat provides the chat notification adapter for incoming
// webhook endpoints (Slack/Discord style).
package chat

import (
	"github.com/loomhq/loom/pkg/adapter"
)

// NewFactory creates the chat adapter factory.
func NewFactory() *Factory {
	return &Factory{}
}

type Factory struct{}

func (*Factory) ID() string {
	return "chat"
}

func (*Factory) Name() string {
	return "Chat"
}

func (*Factory) Description() string {
	return "Posts a notification message to a chat incoming-webhook URL."
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"webhook_url": map[string]any{
				"type":        "string",
				"description": "Incoming webhook URL of the chat channel.",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "Message text. Supports placeholder expressions.",
			},
			"username": map[string]any{
				"type":        "string",
				"description": "Optional display name override.",
			},
			"channel": map[string]any{
				"type":        "string",
				"description": "Optional channel override.",
			},
		},
		"required": []any{"webhook_url", "text"},
	}
}

func (f *Factory) Create(config map[string]any) (adapter.Adapter, error) {
	return New(config)
}
