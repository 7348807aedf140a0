package program

import (
	"errors"
	"fmt"
)

// Sentinel errors for runtime lifecycle conditions.
var (
	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("program: runtime already running")

	// ErrStopped is returned by Sync after the runtime stopped.
	ErrStopped = errors.New("program: runtime stopped")

	// ErrInvalidProgram is returned when Init, Update or View is missing.
	ErrInvalidProgram = errors.New("program: Init, Update and View are required")

	// ErrInitPanic is returned when Init or the first View panics.
	ErrInitPanic = errors.New("program: init panicked")
)

// RuntimeError wraps a fatal error with runtime context.
type RuntimeError struct {
	ProgramID string
	Op        string // Operation that failed
	Err       error  // Underlying error
}

// Error returns the error message with runtime context.
func (e *RuntimeError) Error() string {
	if e.ProgramID == "" {
		return fmt.Sprintf("program: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("program: runtime %s: %s: %v", e.ProgramID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// PanicError describes a recovered panic in Update or View.
type PanicError struct {
	Op    string
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("program: panic in %s: %v", e.Op, e.Value)
}
