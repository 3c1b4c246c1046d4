package formatter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/template"

	"github.com/loomhq/loom/pkg/adapter"
)

// Formatter applies a single pure transformation to its input. It is
// the only built-in adapter with no external side effect.
type Formatter struct {
	Operation string
	Input     any
	Separator string
	Template  string
	Precision int
}

// New builds a formatter from resolved configuration.
func New(config map[string]any) (*Formatter, error) {
	operation, _ := config["operation"].(string)
	if operation == "" {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "formatter requires an operation")
	}

	separator, _ := config["separator"].(string)
	if separator == "" {
		separator = ","
	}

	precision := 2
	if p, ok := config["precision"].(float64); ok {
		precision = int(p)
	}

	templateBody, _ := config["template"].(string)

	return &Formatter{
		Operation: operation,
		Input:     config["input"],
		Separator: separator,
		Template:  templateBody,
		Precision: precision,
	}, nil
}

func (f *Formatter) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("adapter", "formatter", "operation", f.Operation)
	logger.Debug("Executing formatter")

	result, err := f.apply()
	if err != nil {
		return nil, err
	}

	return map[string]any{"result": result}, nil
}

func (f *Formatter) apply() (any, error) {
	switch f.Operation {
	case "uppercase":
		return strings.ToUpper(f.inputString()), nil
	case "lowercase":
		return strings.ToLower(f.inputString()), nil
	case "trim":
		return strings.TrimSpace(f.inputString()), nil
	case "join":
		return f.join()
	case "split":
		parts := strings.Split(f.inputString(), f.Separator)
		out := make([]any, len(parts))

		for i, part := range parts {
			out[i] = part
		}

		return out, nil
	case "template":
		return f.render()
	case "json":
		encoded, err := json.Marshal(f.Input)
		if err != nil {
			return nil, adapter.WrapError(adapter.KindRejected, "input is not JSON-encodable", err)
		}

		return string(encoded), nil
	case "parse_json":
		var decoded any
		if err := json.Unmarshal([]byte(f.inputString()), &decoded); err != nil {
			return nil, adapter.WrapError(adapter.KindRejected, "input is not valid JSON", err)
		}

		return decoded, nil
	case "number":
		return f.number()
	default:
		return nil, adapter.NewError(adapter.KindInvalidConfig,
			fmt.Sprintf("unknown formatter operation %q", f.Operation))
	}
}

func (f *Formatter) inputString() string {
	switch v := f.Input.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (f *Formatter) join() (any, error) {
	items, ok := f.Input.([]any)
	if !ok {
		return nil, adapter.NewError(adapter.KindInvalidConfig, "join requires an array input")
	}

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%v", item)
	}

	return strings.Join(parts, f.Separator), nil
}

func (f *Formatter) render() (any, error) {
	tmpl, err := template.New("formatter").Parse(f.Template)
	if err != nil {
		return nil, adapter.WrapError(adapter.KindInvalidConfig, "failed to parse template", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, f.Input); err != nil {
		return nil, adapter.WrapError(adapter.KindRejected, "failed to execute template", err)
	}

	return buf.String(), nil
}

func (f *Formatter) number() (any, error) {
	var value float64

	switch v := f.Input.(type) {
	case float64:
		value = v
	case int:
		value = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, adapter.WrapError(adapter.KindRejected, "input is not numeric", err)
		}

		value = parsed
	default:
		return nil, adapter.NewError(adapter.KindRejected, "input is not numeric")
	}

	return strconv.FormatFloat(value, 'f', f.Precision, 64), nil
}
