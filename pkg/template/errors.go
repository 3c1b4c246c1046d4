package template

import (
	"errors"
	"fmt"
)

// ErrorKind classifies resolution failures.
type ErrorKind string

// MissingPath indicates a placeholder referenced a node output key or
// array index that does not exist in the execution context.
const MissingPath ErrorKind = "missing_path"

// ResolutionError is fatal to the single node whose configuration is
// being resolved; it propagates as that node's failure.
type ResolutionError struct {
	Kind ErrorKind
	Path string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("template resolution failed (%s): %s", e.Kind, e.Path)
}

// NewMissingPathError creates a ResolutionError for an unresolvable path.
func NewMissingPathError(path string) *ResolutionError {
	return &ResolutionError{Kind: MissingPath, Path: path}
}

// IsResolutionError reports whether err is (or wraps) a ResolutionError.
func IsResolutionError(err error) bool {
	var resolutionErr *ResolutionError

	return errors.As(err, &resolutionErr)
}
