package notebook

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by a Store when no document exists at a path.
	ErrNotFound = errors.New("notebook not found")

	// ErrIndexOutOfRange is returned for cell indexes outside the document.
	ErrIndexOutOfRange = errors.New("cell index out of range")

	// ErrLastCell is returned when deleting the last remaining cell.
	ErrLastCell = errors.New("cannot delete the last cell")

	// ErrRunInFlight is returned when an execution request arrives while
	// another run holds the coordinator.
	ErrRunInFlight = errors.New("execution already in flight")

	// ErrNoDocument is returned for operations before a document is loaded.
	ErrNoDocument = errors.New("no document loaded")

	// ErrInvalidPath is returned for notebook paths escaping the store root.
	ErrInvalidPath = errors.New("invalid notebook path")
)

// IsValidationError reports whether err is rejected before any network call,
// leaving all state unchanged.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrLastCell) ||
		errors.Is(err, ErrRunInFlight) ||
		errors.Is(err, ErrNoDocument) ||
		errors.Is(err, ErrInvalidPath)
}

// StoreError wraps an I/O failure from a document store. The coordinator
// surfaces it without retrying.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("notebook store %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ExecutionError wraps a failed execution request, including timeouts. It
// never corrupts the coordinator's run-state cleanup.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("notebook execution %s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
