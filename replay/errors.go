package replay

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned by Start while a run is active
var ErrAlreadyRunning = errors.New("replay already running")

// ValidationError reports a bad replay parameter at start time
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// LoadError is a window-level source failure. The loader retries the
// window once; a LoadError reaching the coordinator is run-fatal.
type LoadError struct {
	Window Window
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load window %s: %v", e.Window, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
