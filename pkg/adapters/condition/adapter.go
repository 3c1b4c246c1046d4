package condition

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/loomhq/loom/pkg/adapter"
)

// Condition evaluates a single comparison over resolved operands. The
// boolean result is written to the output under "result"; the executor
// uses it to gate the node's outgoing edges.
type Condition struct {
	Left     any
	Operator string
	Right    any

	hasLeft bool
}

// New builds a condition from resolved configuration.
func New(config map[string]any) (*Condition, error) {
	operator, _ := config["operator"].(string)
	if operator == "" {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "condition requires an operator")
	}

	_, hasLeft := config["left"]

	return &Condition{
		Left:     config["left"],
		Operator: operator,
		Right:    config["right"],
		hasLeft:  hasLeft,
	}, nil
}

func (c *Condition) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("adapter", "condition", "operator", c.Operator)

	result, err := c.evaluate()
	if err != nil {
		return nil, err
	}

	logger.Debug("Condition evaluated", "result", result)

	return map[string]any{"result": result}, nil
}

func (c *Condition) evaluate() (bool, error) {
	switch c.Operator {
	case "eq":
		return looselyEqual(c.Left, c.Right), nil
	case "neq":
		return !looselyEqual(c.Left, c.Right), nil
	case "gt", "gte", "lt", "lte":
		return c.compareNumeric()
	case "contains":
		return c.contains()
	case "exists":
		return c.hasLeft && c.Left != nil, nil
	case "truthy":
		return truthy(c.Left), nil
	default:
		return false, adapter.NewError(adapter.KindInvalidConfig,
			fmt.Sprintf("unknown condition operator %q", c.Operator))
	}
}

func (c *Condition) compareNumeric() (bool, error) {
	left, leftOK := asNumber(c.Left)
	right, rightOK := asNumber(c.Right)

	if !leftOK || !rightOK {
		return false, adapter.NewError(adapter.KindRejected,
			fmt.Sprintf("operator %q requires numeric operands", c.Operator))
	}

	switch c.Operator {
	case "gt":
		return left > right, nil
	case "gte":
		return left >= right, nil
	case "lt":
		return left < right, nil
	default:
		return left <= right, nil
	}
}

func (c *Condition) contains() (bool, error) {
	needle := fmt.Sprintf("%v", c.Right)

	switch haystack := c.Left.(type) {
	case string:
		return strings.Contains(haystack, needle), nil
	case []any:
		for _, item := range haystack {
			if looselyEqual(item, c.Right) {
				return true, nil
			}
		}

		return false, nil
	case map[string]any:
		_, ok := haystack[needle]

		return ok, nil
	default:
		return false, adapter.NewError(adapter.KindRejected,
			"contains requires a string, array or object left operand")
	}
}

// looselyEqual compares operands after numeric normalization, so that
// a JSON-decoded float64(2) equals an authored int 2.
func looselyEqual(left, right any) bool {
	if leftNum, ok := asNumber(left); ok {
		if rightNum, rightOK := asNumber(right); rightOK {
			return leftNum == rightNum
		}
	}

	return reflect.DeepEqual(left, right)
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && v != "false" && v != "0"
	case float64:
		return v != 0
	case int:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
