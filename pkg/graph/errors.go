package graph

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNodeNotFound      = errors.New("node not found")
	ErrEdgeNotFound      = errors.New("edge not found")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrGraphNotLoaded    = errors.New("graph not loaded")
	ErrMissingLength     = errors.New("edge missing length")
	ErrMissingEndpoint   = errors.New("edge references unknown node")
)

// Error provides structured error information for graph operations.
type Error struct {
	Op     string // Operation that failed (e.g., "Load", "UpdateEdgeRisk")
	Entity string // Entity kind ("node", "edge", "index")
	Detail string // Additional context
	Cause  error  // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether the target error matches this error's cause.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

func opError(op, entity, detail string, cause error) error {
	return &Error{Op: op, Entity: entity, Detail: detail, Cause: cause}
}
