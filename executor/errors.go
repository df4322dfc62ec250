package executor

import (
	"fmt"
	"time"
)

// RemoteThrowError reports an exception raised by the remote function, a
// rejected promise, or a throwing Wait predicate.
type RemoteThrowError struct {
	Target      string
	Description string
}

func (e *RemoteThrowError) Error() string {
	return fmt.Sprintf("%s: remote error: %s", e.Target, e.Description)
}

// TimeoutError reports a Wait whose predicate never became truthy.
type TimeoutError struct {
	Target      string
	Description string
	Timeout     time.Duration
	Polls       int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timeout after %v waiting %s (%d polls)", e.Target, e.Timeout, e.Description, e.Polls)
}
