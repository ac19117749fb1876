/*
Package background runs fire-and-forget work on a shared worker pool.

A Scheduler wraps a workerpool.Pool. RunInBackground hands an operation to the
pool and returns as soon as the pool accepted it; the caller never waits for
the operation and never sees its error.

	pool := workerpool.New(10, 100)
	sched := background.New(pool, background.WithName("mailer"))

	err := sched.RunInBackground(ctx, func(ctx context.Context) error {
		return sendWelcomeMail(ctx, user)
	})
	if err != nil {
		// not scheduled: scheduler closed, pool shut down or ctx expired
	}

# Concurrency

At most pool.Size() operations run at once. Further operations wait in the
pool's queue and start in submission order. RunInBackground blocks while the
queue is full; the ctx passed to it bounds that wait and nothing else.

# Failures

Errors and panics raised by an operation go to the ErrorHandler, which by
default logs them at error level. Failing to schedule returns a
*SchedulingError that matches ErrSchedulingFailed with errors.Is and unwraps
to the cause, such as workerpool.ErrPoolClosed.

# Shutdown

Close stops accepting work and waits for accepted operations. If its context
expires first, the context of every remaining operation is canceled. The pool
belongs to the caller:

	_ = sched.Close(ctx)
	<-pool.Shutdown()
*/
package background
