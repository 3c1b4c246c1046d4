package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testData() map[string]any {
	return map[string]any{
		"trigger": map[string]any{
			"email": "a@b.com",
			"order": map[string]any{
				"id":    "ord_42",
				"total": 19.99,
				"items": []any{
					map[string]any{"sku": "A-1"},
					map[string]any{"sku": "B-2"},
				},
			},
		},
		"n1": map[string]any{
			"status": "ok",
			"count":  float64(3),
			"paid":   true,
		},
	}
}

func TestResolveFullTokenKeepsType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"string", "{{trigger.email}}", "a@b.com"},
		{"number", "{{n1.count}}", float64(3)},
		{"boolean", "{{n1.paid}}", true},
		{"object", "{{trigger.order}}", testData()["trigger"].(map[string]any)["order"]},
		{"array element", "{{trigger.order.items.1.sku}}", "B-2"},
		{"whole node output", "{{n1}}", testData()["n1"]},
		{"padded token", "{{ trigger.email }}", "a@b.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.input, testData())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveInterpolation(t *testing.T) {
	got, err := Resolve("status={{n1.status}}", testData())
	require.NoError(t, err)
	assert.Equal(t, "status=ok", got)

	got, err = Resolve("order {{trigger.order.id}} has {{n1.count}} items ({{n1.paid}})", testData())
	require.NoError(t, err)
	assert.Equal(t, "order ord_42 has 3 items (true)", got)
}

func TestResolveConfigRecursesValuesOnly(t *testing.T) {
	config := map[string]any{
		"to":   "{{trigger.email}}",
		"note": "status={{n1.status}}",
		"nested": map[string]any{
			"amount": "{{trigger.order.total}}",
			"tags":   []any{"{{n1.status}}", "literal"},
		},
		"{{n1.status}}": "keys are not resolved",
	}

	resolved, err := ResolveConfig(config, testData())
	require.NoError(t, err)

	assert.Equal(t, "a@b.com", resolved["to"])
	assert.Equal(t, "status=ok", resolved["note"])

	nested := resolved["nested"].(map[string]any)
	assert.Equal(t, 19.99, nested["amount"])
	assert.Equal(t, []any{"ok", "literal"}, nested["tags"])

	_, keptLiteralKey := resolved["{{n1.status}}"]
	assert.True(t, keptLiteralKey)
}

func TestResolveMissingPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown node", "{{nope.value}}"},
		{"unknown key", "{{n1.nope}}"},
		{"index out of range", "{{trigger.order.items.7.sku}}"},
		{"non-numeric index", "{{trigger.order.items.first}}"},
		{"walk into scalar", "{{n1.status.deeper}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.input, testData())
			require.Error(t, err)
			assert.True(t, IsResolutionError(err))

			var resolutionErr *ResolutionError
			require.ErrorAs(t, err, &resolutionErr)
			assert.Equal(t, MissingPath, resolutionErr.Kind)
			assert.NotEmpty(t, resolutionErr.Path)
		})
	}
}

func TestResolveIdempotentOnResolvedValues(t *testing.T) {
	inputs := []any{
		"plain string",
		float64(12),
		true,
		nil,
		map[string]any{"a": "b", "n": float64(1)},
		[]any{"x", float64(2)},
	}

	for _, input := range inputs {
		once, err := Resolve(input, testData())
		require.NoError(t, err)

		twice, err := Resolve(once, testData())
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestResolveScalarsPassThrough(t *testing.T) {
	got, err := Resolve(42, testData())
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = Resolve(nil, testData())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHasPlaceholder(t *testing.T) {
	assert.True(t, HasPlaceholder("{{trigger.email}}"))
	assert.True(t, HasPlaceholder("x {{n1.status}} y"))
	assert.False(t, HasPlaceholder("plain"))
	assert.False(t, HasPlaceholder("{single brace}"))
}
