package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for connection and binding failures.
var (
	// ErrUnknownNode is returned for a handle the binding did not issue or
	// has already destroyed.
	ErrUnknownNode = errors.New("server: unknown node")

	// ErrNotElement is returned for element operations on a text node.
	ErrNotElement = errors.New("server: node is not an element")

	// ErrOutOfRange is returned for a child index outside the child list.
	ErrOutOfRange = errors.New("server: child index out of range")

	// ErrAttached is returned when inserting a node that has a parent.
	ErrAttached = errors.New("server: node is already attached")

	// ErrNoListener is returned when an event names a listener the node
	// does not have.
	ErrNoListener = errors.New("server: no listener for event")

	// ErrInvalidHandshake is returned when the WebSocket handshake fails.
	ErrInvalidHandshake = errors.New("server: invalid handshake")

	// ErrMaxSessionsReached is returned when the maximum number of sessions is reached.
	ErrMaxSessionsReached = errors.New("server: max sessions reached")

	// ErrSessionClosed is returned when writing to a closed session.
	ErrSessionClosed = errors.New("server: session closed")
)

// SessionError wraps an error with session context for debugging.
type SessionError struct {
	SessionID string
	Op        string // Operation that failed
	Err       error  // Underlying error
}

// Error returns the error message with session context.
func (e *SessionError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SessionError) Unwrap() error {
	return e.Err
}
