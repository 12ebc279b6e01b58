package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPath means the goal is unreachable under the active risk
	// threshold. Callers may retry with a higher threshold.
	ErrNoPath = errors.New("no path to destination")

	// ErrNoNearbyNode means a coordinate could not be snapped to the graph
	// within the snap radius.
	ErrNoNearbyNode = errors.New("no graph node near coordinate")

	// ErrNoShelterReachable means no shelter candidate produced a route.
	ErrNoShelterReachable = errors.New("no reachable shelter")
)

// Error wraps a planner failure with the operation that produced it.
type Error struct {
	Op     string
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("planner: %s: %s: %v", e.Op, e.Detail, e.Cause)
	}
	return fmt.Sprintf("planner: %s: %v", e.Op, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool { return errors.Is(e.Cause, target) }

func opError(op, detail string, cause error) *Error {
	return &Error{Op: op, Detail: detail, Cause: cause}
}
