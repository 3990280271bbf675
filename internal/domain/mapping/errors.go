package mapping

import (
	"errors"
	"fmt"
)

// TransformationFailedError aborts the transform of a whole entity; no
// partial payload is ever produced.
type TransformationFailedError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (e *TransformationFailedError) Error() string {
	return fmt.Sprintf("mapping: transformation failed on %q: %s", e.Field, e.Reason)
}

// NewTransformationFailed creates a TransformationFailedError
func NewTransformationFailed(field, reason string) *TransformationFailedError {
	return &TransformationFailedError{Field: field, Reason: reason}
}

// RequiredFieldMissingError reports a required field that resolved to null
// after transformation and carries no default.
type RequiredFieldMissingError struct {
	Field string
}

// Error implements the error interface
func (e *RequiredFieldMissingError) Error() string {
	return fmt.Sprintf("mapping: required field %q is missing", e.Field)
}

// NewRequiredFieldMissing creates a RequiredFieldMissingError
func NewRequiredFieldMissing(field string) *RequiredFieldMissingError {
	return &RequiredFieldMissingError{Field: field}
}

// IsMappingError reports whether err is one of the mapping engine's entity
// scoped errors.
func IsMappingError(err error) bool {
	var tf *TransformationFailedError
	var rf *RequiredFieldMissingError
	return errors.As(err, &tf) || errors.As(err, &rf)
}
