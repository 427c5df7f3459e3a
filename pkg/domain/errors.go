package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrLocked is returned when the throw log is mutated while locked.
	ErrLocked = errors.New("throw log is locked")
	// ErrEmptyLog is returned when amending with no throw recorded.
	ErrEmptyLog = errors.New("throw log is empty")
	// ErrEmptyHistory is returned when there is nothing to undo.
	ErrEmptyHistory = errors.New("no undo history")
	// ErrDegenerateGeometry marks a singular or numerically unstable triangulation.
	ErrDegenerateGeometry = errors.New("degenerate throw geometry")
)

// MalformedObservationError reports an input line rejected at the boundary.
type MalformedObservationError struct {
	Line   string
	Reason string
}

func (e MalformedObservationError) Error() string {
	return fmt.Sprintf("malformed observation %q: %s", e.Line, e.Reason)
}
