// Package payment provides the payment provider adapter.
package payment

import (
	"github.com/loomhq/loom/pkg/adapter"
)

// NewFactory creates the payment adapter factory.
func NewFactory() *Factory {
	return &Factory{}
}

type Factory struct{}

func (*Factory) ID() string {
	return "payment"
}

func (*Factory) Name() string {
	return "Payment"
}

func (*Factory) Description() string {
	return "Creates charges and refunds against the configured payment provider API."
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"description": "Payment operation to perform.",
				"enum":        []any{"charge", "refund"},
			},
			"api_url": map[string]any{
				"type":        "string",
				"description": "Base URL of the payment provider API.",
			},
			"api_key": map[string]any{
				"type":        "string",
				"description": "Bearer token for the payment provider API.",
			},
			"amount": map[string]any{
				"type":        "number",
				"description": "Amount in the smallest currency unit (e.g. cents).",
			},
			"currency": map[string]any{
				"type":        "string",
				"description": "ISO 4217 currency code.",
				"default":     "usd",
			},
			"customer": map[string]any{
				"type":        "string",
				"description": "Customer identifier at the payment provider.",
			},
			"charge_id": map[string]any{
				"type":        "string",
				"description": "Charge to refund (refund operation only).",
			},
			"idempotency_key": map[string]any{
				"type":        "string",
				"description": "Key sent to the provider to deduplicate retried requests. Generated when empty.",
			},
		},
		"required": []any{"operation", "api_url", "api_key"},
	}
}

func (f *Factory) Create(config map[string]any) (adapter.Adapter, error) {
	return New(config)
}
