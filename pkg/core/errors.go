package core

import (
	"errors"
	"fmt"
)

// Configuration errors
var (
	ErrUnsupportedTest     = errors.New("unsupported test")
	ErrUnsupportedBehavior = errors.New("unsupported behavior")
	ErrUnsupportedMethod   = errors.New("unsupported correction method")
	ErrUnsupportedKind     = errors.New("unsupported file kind")
	ErrUnknownCondition    = errors.New("condition not present in metadata")
	ErrArity               = errors.New("comparison must have exactly two elements")
	ErrNoConditions        = errors.New("no conditions declared")
)

// Structural errors, fatal for the whole unit
var (
	ErrDuplicateSample = errors.New("duplicate sample name in metadata")
	ErrAmbiguousTime   = errors.New("timepoints share the same numeric time")
	ErrLengthMismatch  = errors.New("array length mismatch between comparison sides")
	ErrJoin            = errors.New("isotopologue index does not join with table")
	ErrUnknownSample   = errors.New("table column not present in metadata")
)

// ValidationError represents an error found while validating a table or metadata.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}
