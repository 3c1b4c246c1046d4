package graph

import (
	"errors"
	"fmt"
)

// ValidationKind classifies graph validation failures.
type ValidationKind string

const (
	// CycleDetected means the node/edge set contains a directed cycle.
	CycleDetected ValidationKind = "cycle_detected"

	// DanglingEdge means an edge endpoint references a missing node id.
	DanglingEdge ValidationKind = "dangling_edge"

	// NoEntryPoint means no zero-indegree node matches the declared
	// trigger, or the workflow has no nodes at all.
	NoEntryPoint ValidationKind = "no_entry_point"
)

// ValidationError is fatal to an entire run: the execution terminates
// failed before any node executes.
type ValidationError struct {
	Kind   ValidationKind
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid workflow graph (%s): %s", e.Kind, e.Detail)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}
