package live

import (
	"errors"
	"fmt"

	"github.com/vango-dev/retain/pkg/vdom"
)

var (
	// ErrPatchMismatch is returned when a patch addresses a position or layer
	// the live tree does not have.
	ErrPatchMismatch = errors.New("live: patch does not match live tree")

	// ErrUnmounted is returned when applying to a tree after Unmount.
	ErrUnmounted = errors.New("live: tree is unmounted")
)

// ApplyError wraps a failure while applying one patch operation.
type ApplyError struct {
	Op   vdom.OpKind
	Path []int // child indices from the root
	Err  error
}

// Error implements the error interface.
func (e *ApplyError) Error() string {
	return fmt.Sprintf("live: apply %s at %v: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ApplyError) Unwrap() error {
	return e.Err
}
