package browser

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Manager operations. Callers branch with
// errors.Is; the underlying driver error, when present, is wrapped and
// reachable through errors.Unwrap.
var (
	// ErrNotStarted is returned when an operation requires the browser
	// process and EnsureStarted has not succeeded yet.
	ErrNotStarted = errors.New("browser not started")

	// ErrStart is returned when the browser process cannot be launched,
	// for example when the driver binary is missing.
	ErrStart = errors.New("browser start failed")

	// ErrClosed is returned by operations racing with CloseAll.
	ErrClosed = errors.New("browser closed")

	// ErrContextNotFound is returned for an unknown context key.
	ErrContextNotFound = errors.New("browser context not found")

	// ErrPageNotFound is returned for an unknown page key.
	ErrPageNotFound = errors.New("page not found")

	// ErrPageExists is returned by RenamePage when the target key is
	// already taken within the context.
	ErrPageExists = errors.New("page already exists")

	// ErrTooManyContexts is returned when creating a context would exceed
	// the configured cap.
	ErrTooManyContexts = errors.New("maximum number of contexts reached")

	// ErrNavigation wraps navigation failures, including timeouts.
	ErrNavigation = errors.New("navigation failed")

	// ErrInvalidAction is returned for malformed input actions, for
	// example a key press without a key.
	ErrInvalidAction = errors.New("invalid action")

	// ErrDriver wraps opaque failures from the underlying driver.
	ErrDriver = errors.New("driver error")
)

// DragError reports which primitive of a drag sequence failed. Drag is
// composed of move, down, move, up; a failure mid-sequence can leave the
// mouse button logically held down, so the failing step matters to the
// caller.
type DragError struct {
	Step string // "move", "down", "drag-move", "up"
	Err  error
}

func (e *DragError) Error() string {
	return fmt.Sprintf("drag failed at %s step: %v", e.Step, e.Err)
}

func (e *DragError) Unwrap() error { return e.Err }

// driverErr wraps a raw driver failure with the action that triggered it.
func driverErr(action string, err error) error {
	return fmt.Errorf("%s: %w: %v", action, ErrDriver, err)
}
