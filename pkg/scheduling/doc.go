/*
Package scheduling groups the task execution primitives of taskrun.

  - workerpool: fixed set of workers draining a bounded FIFO queue
  - background: fire-and-forget submission on top of a shared pool

A program typically builds one pool at startup and hands it to a scheduler:

	pool := workerpool.New(4, 100)
	sched := background.New(pool)

	_ = sched.RunInBackground(ctx, func(ctx context.Context) error {
		return refreshCache(ctx)
	})

	_ = sched.Close(shutdownCtx)
	<-pool.Shutdown()

Both packages are safe for concurrent use.
*/
package scheduling
