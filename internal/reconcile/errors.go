package reconcile

import (
	"errors"
	"fmt"
)

// ErrReadyTimeout marks a deploy whose readiness budget elapsed before the
// stack became healthy. The infrastructure is left as-is for inspection; a
// later deploy tears down before re-upping.
var ErrReadyTimeout = errors.New("readiness timeout")

// DriverError wraps a failed deployment driver operation. Driver failures
// are surfaced to the caller and never retried automatically.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver %s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// ProbeError wraps a failed runtime observation. It maps to the Error
// status and triggers a redeploy attempt rather than aborting.
type ProbeError struct {
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("runtime probe: %v", e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
