// Package registry holds the set of adapter factories an executor can
// dispatch nodes to. A registry is an explicit value injected into the
// executor at construction, never a package-level singleton.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/loomhq/loom/pkg/adapter"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]adapter.Factory
}

// NewRegistry creates an empty adapter registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]adapter.Factory),
	}
}

// Register adds an adapter factory, replacing any factory previously
// registered under the same id.
func (r *Registry) Register(factory adapter.Factory) {
	r.factories[factory.ID()] = factory
	r.logger.Debug("Registered adapter", "adapter", factory.ID())
}

// Has reports whether an adapter family is registered.
func (r *Registry) Has(adapterID string) bool {
	_, ok := r.factories[adapterID]

	return ok
}

// IDs returns the registered adapter ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Create validates the resolved configuration against the factory's
// JSON schema and builds an adapter instance. Schema violations are
// reported as InvalidConfig adapter errors.
func (r *Registry) Create(adapterID string, config map[string]any) (adapter.Adapter, error) {
	factory, ok := r.factories[adapterID]
	if !ok {
		return nil, adapter.NewError(adapter.KindInvalidConfig,
			fmt.Sprintf("adapter %q not registered", adapterID))
	}

	if err := validateConfig(factory.Schema(), config); err != nil {
		return nil, err
	}

	return factory.Create(config)
}

// ValidateConfig checks a node configuration against the schema of the
// given adapter family without creating an adapter. Used at workflow
// save time so config mistakes surface before execution.
func (r *Registry) ValidateConfig(adapterID string, config map[string]any) error {
	factory, ok := r.factories[adapterID]
	if !ok {
		return adapter.NewError(adapter.KindInvalidConfig,
			fmt.Sprintf("adapter %q not registered", adapterID))
	}

	return validateConfig(factory.Schema(), config)
}

func validateConfig(schema, config map[string]any) error {
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return adapter.WrapError(adapter.KindInvalidConfig, "config schema validation failed", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		details = append(details, resultErr.String())
	}

	return adapter.NewError(adapter.KindInvalidConfig, strings.Join(details, "; "))
}
