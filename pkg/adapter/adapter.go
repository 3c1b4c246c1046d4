// Package adapter defines the uniform contract implemented by every
// integration family the engine can dispatch a node to.
package adapter

import (
	"context"
	"log/slog"
)

// Adapter executes one node against an external capability (or a pure
// transform). The configuration it was created with is already fully
// resolved: adapters never see placeholder syntax. Each Execute call
// performs at most one external side effect; idempotency under retry
// is the adapter's responsibility.
type Adapter interface {
	Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error)
}

// Factory creates adapter instances bound to a resolved node
// configuration and describes the adapter family for registration and
// config validation.
type Factory interface {
	// Create builds an adapter bound to the given resolved config.
	Create(config map[string]any) (Adapter, error)

	// ID returns the unique identifier for this adapter family.
	ID() string

	// Name returns the human-readable name for this adapter family.
	Name() string

	// Description returns what this adapter does.
	Description() string

	// Schema returns the JSON schema for this adapter's configuration.
	Schema() map[string]any
}
