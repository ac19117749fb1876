/*
Package taskrun runs work reliably in the background of a Go service.

Retry (pkg/retry):
  - Policy: attempt budget, constant pause and a retryable-error classifier
  - Executor: runs an operation until it succeeds, fails terminally or runs out of attempts

Scheduling (pkg/scheduling):
  - workerpool: bounded concurrency with a FIFO queue
  - background: fire-and-forget submission with error reporting and graceful close

Example usage:

	import (
		"github.com/vnykmshr/taskrun/pkg/retry"
		"github.com/vnykmshr/taskrun/pkg/scheduling/background"
		"github.com/vnykmshr/taskrun/pkg/scheduling/workerpool"
	)

	pool := workerpool.New(5, 100) // 5 workers, queue 100
	sched := background.New(pool)

	_ = sched.RunInBackground(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
			return notify(ctx, user)
		})
	})
*/
package taskrun
