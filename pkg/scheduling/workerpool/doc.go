/*
Package workerpool provides the bounded concurrency pool behind taskrun's
background scheduler.

A worker pool manages a fixed number of worker goroutines that execute tasks
concurrently. The worker count is the concurrency limit: no more than Size()
tasks ever run at the same time. Excess submissions wait in a single FIFO
queue, so tasks start in the order they were accepted.

Basic usage:

	pool := workerpool.New(4, 100) // 4 workers, queue size 100
	defer func() { <-pool.Shutdown() }()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

	if err := pool.Submit(task); err != nil {
		log.Printf("Failed to submit: %v", err)
	}

Submission:

Submit returns as soon as the task is accepted into the queue. When the queue
is full the submitter blocks until a worker frees a slot; SubmitWithContext and
SubmitWithTimeout bound that wait. The submission context never reaches the
task: tasks run under the pool's own context, narrowed by Config.TaskTimeout.

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := pool.SubmitWithContext(ctx, task)

After Shutdown every submission fails with ErrPoolClosed, which wraps the
common ErrClosed sentinel.

Observing Tasks:

The pool never hands results back to the submitter. Outcomes are visible
through lifecycle callbacks and counters:

	pool := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount: 4,
		QueueSize:   100,
		TaskTimeout: 30 * time.Second,
		OnTaskComplete: func(workerID int, result workerpool.Result) {
			if result.Error != nil {
				log.Printf("worker %d: task failed: %v", workerID, result.Error)
			}
		},
	})

	fmt.Println(pool.ActiveWorkers(), pool.QueueSize(), pool.TotalFailed())

Panics inside tasks are recovered, reported to PanicHandler, and counted as
failures. The worker keeps running.

Shutdown:

	// Graceful shutdown - queued tasks still run
	<-pool.Shutdown()

	// Cancel the context of whatever is still running after 30s
	<-pool.ShutdownWithTimeout(30 * time.Second)

Metrics:

NewWithMetrics returns a pool that reports size, active workers, queue depth,
queue wait and task outcomes to a metrics.Registry.

Thread Safety:

All pool operations are safe for concurrent use from multiple goroutines.
*/
package workerpool
