// Package template resolves placeholder expressions embedded in node
// configuration against the accumulated outputs of upstream nodes.
//
// A placeholder has the form {{nodeId.dotted.path}} where the first
// segment names a node (or the reserved trigger id) and the remaining
// segments walk into that node's output, with integer segments used as
// array indices. A string that consists of exactly one placeholder
// resolves to the typed value found at the path; placeholders mixed
// with literal text are stringified and interpolated in place.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Resolve applies placeholder resolution recursively through maps and
// slices. Map keys are never resolved, only values. Values without
// placeholders pass through unchanged, so resolution is idempotent on
// already-resolved data. Resolution is pure: no I/O, deterministic for
// a given data map.
func Resolve(value any, data map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return resolveString(v, data)
	case map[string]any:
		resolved := make(map[string]any, len(v))

		for key, item := range v {
			out, err := Resolve(item, data)
			if err != nil {
				return nil, err
			}

			resolved[key] = out
		}

		return resolved, nil
	case []any:
		resolved := make([]any, len(v))

		for i, item := range v {
			out, err := Resolve(item, data)
			if err != nil {
				return nil, err
			}

			resolved[i] = out
		}

		return resolved, nil
	default:
		return value, nil
	}
}

// ResolveConfig resolves every value of a node configuration map.
func ResolveConfig(config map[string]any, data map[string]any) (map[string]any, error) {
	resolved, err := Resolve(config, data)
	if err != nil {
		return nil, err
	}

	if resolved == nil {
		return map[string]any{}, nil
	}

	out, ok := resolved.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("resolved config is not an object: %T", resolved)
	}

	return out, nil
}

// HasPlaceholder reports whether the string contains a placeholder token.
func HasPlaceholder(s string) bool {
	return tokenPattern.MatchString(s)
}

func resolveString(s string, data map[string]any) (any, error) {
	match := tokenPattern.FindStringSubmatch(s)
	if match == nil {
		return s, nil
	}

	// A string that is exactly one token adopts the typed value at the
	// path instead of a stringified form.
	if strings.TrimSpace(s) == match[0] {
		return lookupPath(match[1], data)
	}

	var lookupErr error

	interpolated := tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		path := tokenPattern.FindStringSubmatch(token)[1]

		value, err := lookupPath(path, data)
		if err != nil {
			if lookupErr == nil {
				lookupErr = err
			}

			return token
		}

		return stringify(value)
	})
	if lookupErr != nil {
		return nil, lookupErr
	}

	return interpolated, nil
}

func lookupPath(path string, data map[string]any) (any, error) {
	segments := strings.Split(path, ".")

	nodeID := segments[0]

	current, ok := data[nodeID]
	if !ok {
		return nil, NewMissingPathError(path)
	}

	for _, segment := range segments[1:] {
		switch container := current.(type) {
		case map[string]any:
			value, exists := container[segment]
			if !exists {
				return nil, NewMissingPathError(path)
			}

			current = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(container) {
				return nil, NewMissingPathError(path)
			}

			current = container[index]
		default:
			return nil, NewMissingPathError(path)
		}
	}

	return current, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	}
}
