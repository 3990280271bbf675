package sync

import (
	"errors"
	"fmt"
)

// DependencyError reports that a nested reference could not be resolved or
// created at the target. It is entity scoped: the failing entity is skipped
// and recorded, the rest of the batch proceeds.
type DependencyError struct {
	EntityType EntityType
	// Key is the missing source id or natural key value
	Key   string
	Cause error
}

// Error implements the error interface
func (e *DependencyError) Error() string {
	return fmt.Sprintf("sync: dependency %s %q unresolvable: %v", e.EntityType, e.Key, e.Cause)
}

// Unwrap returns the underlying cause
func (e *DependencyError) Unwrap() error { return e.Cause }

// NewDependencyError wraps a dependency resolution failure
func NewDependencyError(entityType EntityType, key string, cause error) *DependencyError {
	return &DependencyError{EntityType: entityType, Key: key, Cause: cause}
}

// IsDependencyError reports whether err is (or wraps) a DependencyError
func IsDependencyError(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
