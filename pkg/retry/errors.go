package retry

import (
	"errors"
	"fmt"
)

// ErrRetriesExhausted matches every RetriesExhaustedError with errors.Is.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetriesExhaustedError is returned when every allowed attempt failed with a
// retryable error. It unwraps to both ErrRetriesExhausted and the last failure.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Last}
}

// CanceledError is returned when the context ends the loop before it could
// finish. Last is nil if no attempt ran.
type CanceledError struct {
	Attempts int
	Last     error
	Cause    error
}

func (e *CanceledError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("retry canceled before first attempt: %v", e.Cause)
	}
	return fmt.Sprintf("retry canceled after %d attempts: %v (last error: %v)", e.Attempts, e.Cause, e.Last)
}

func (e *CanceledError) Unwrap() []error {
	if e.Last == nil {
		return []error{e.Cause}
	}
	return []error{e.Cause, e.Last}
}

// IsExhausted reports whether err came from a loop that used up its attempts.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrRetriesExhausted)
}
