package registry

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomhq/loom/pkg/adapter"
)

type stubAdapter struct{}

func (stubAdapter) Execute(_ context.Context, _ *slog.Logger) (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

type stubFactory struct{}

func (stubFactory) ID() string          { return "stub" }
func (stubFactory) Name() string        { return "Stub" }
func (stubFactory) Description() string { return "Test adapter." }

func (stubFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target": map[string]any{"type": "string"},
			"count":  map[string]any{"type": "integer"},
		},
		"required": []any{"target"},
	}
}

func (stubFactory) Create(_ map[string]any) (adapter.Adapter, error) {
	return stubAdapter{}, nil
}

func newTestRegistry() *Registry {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	reg := NewRegistry(logger)
	reg.Register(stubFactory{})

	return reg
}

func TestRegistryCreate(t *testing.T) {
	reg := newTestRegistry()

	created, err := reg.Create("stub", map[string]any{"target": "x"})
	require.NoError(t, err)
	assert.NotNil(t, created)
}

func TestRegistryUnknownAdapter(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.Create("missing", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, adapter.KindInvalidConfig, adapter.KindOf(err))
	assert.False(t, reg.Has("missing"))
	assert.True(t, reg.Has("stub"))
}

func TestRegistrySchemaValidation(t *testing.T) {
	reg := newTestRegistry()

	// Missing required key.
	_, err := reg.Create("stub", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, adapter.KindInvalidConfig, adapter.KindOf(err))

	// Wrong type.
	_, err = reg.Create("stub", map[string]any{"target": "x", "count": "three"})
	require.Error(t, err)
	assert.Equal(t, adapter.KindInvalidConfig, adapter.KindOf(err))

	err = reg.ValidateConfig("stub", map[string]any{"target": "x", "count": float64(3)})
	require.NoError(t, err)
}

func TestDefaultRegistryHasAllFamilies(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	reg := NewDefaultRegistry(logger)

	assert.Equal(t,
		[]string{"chat", "condition", "datastore", "email", "formatter", "payment"},
		reg.IDs())
}
