package background

import (
	"errors"
	"fmt"

	gferrors "github.com/vnykmshr/taskrun/pkg/common/errors"
)

var (
	// ErrSchedulingFailed matches every SchedulingError with errors.Is.
	ErrSchedulingFailed = errors.New("background task could not be scheduled")

	// ErrSchedulerClosed is the cause of a SchedulingError raised after Close.
	ErrSchedulerClosed = fmt.Errorf("scheduler is closed: %w", gferrors.ErrClosed)
)

// SchedulingError reports that a task was never accepted for execution.
// It says nothing about how an accepted task later ran.
type SchedulingError struct {
	Scheduler string
	Err       error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("scheduler %s: cannot schedule task: %v", e.Scheduler, e.Err)
}

func (e *SchedulingError) Unwrap() []error {
	return []error{ErrSchedulingFailed, e.Err}
}
