package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	gfcontext "github.com/vnykmshr/taskrun/pkg/common/context"
	gferrors "github.com/vnykmshr/taskrun/pkg/common/errors"
)

// ErrPoolClosed is returned by the Submit family once Shutdown has been called.
var ErrPoolClosed = fmt.Errorf("worker pool has been shut down: %w", gferrors.ErrClosed)

// Submit adds a task to the pool for execution.
// It blocks while the queue is full.
func (p *workerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithTimeout submits a task, giving up if it cannot be queued within timeout.
func (p *workerPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := p.SubmitWithContext(ctx, task)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("cannot submit task within %v: %w", timeout, gferrors.ErrTimeout)
	}
	return err
}

// SubmitWithContext adds a task to the pool for execution. The context bounds
// only the wait for queue space; the task itself runs under the pool's context
// and the configured TaskTimeout.
func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return gferrors.NewValidationError("workerpool", "task", nil, "cannot be nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.RLock()
	if p.isShutdown {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.submitWg.Add(1)
	p.mu.RUnlock()
	defer p.submitWg.Done()

	// Check if context is already canceled before attempting to queue
	// This ensures deterministic behavior for pre-canceled contexts
	if gfcontext.IsCanceled(ctx) {
		return fmt.Errorf("cannot submit task: context canceled: %w", ctx.Err())
	}

	select {
	case p.taskQueue <- task:
		p.totalSubmitted.Add(1)
		return nil
	case <-p.shutdownCh:
		return ErrPoolClosed
	case <-ctx.Done():
		return fmt.Errorf("cannot submit task: context canceled: %w", ctx.Err())
	}
}

// Shutdown initiates a graceful shutdown of the pool. Queued tasks still run.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		p.mu.Unlock()

		// Wake submitters blocked on a full queue
		close(p.shutdownCh)

		go func() {
			// No submitter can send once this returns, so closing is safe
			p.submitWg.Wait()
			close(p.taskQueue)
		}()

		p.logger.Debug("worker pool shutting down", "queued", len(p.taskQueue))
	})

	return p.done
}

// ShutdownWithTimeout shuts down the pool and cancels the context of running
// and still-queued tasks if they have not finished within timeout.
func (p *workerPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	done := p.Shutdown()

	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-done:
		case <-timer.C:
			p.logger.Warn("worker pool shutdown timed out, canceling remaining tasks",
				"timeout", timeout,
				"active", p.ActiveWorkers(),
				"queued", p.QueueSize())
			p.cancel()
		}
	}()

	return done
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	return len(p.taskQueue)
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	return int(p.activeWorkers.Load())
}

// TotalSubmitted returns the total number of tasks accepted by the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return p.totalSubmitted.Load()
}

// TotalCompleted returns the total number of tasks that finished.
func (p *workerPool) TotalCompleted() int64 {
	return p.totalCompleted.Load()
}

// TotalFailed returns the number of finished tasks that failed.
func (p *workerPool) TotalFailed() int64 {
	return p.totalFailed.Load()
}

// run is the main loop for a worker. It exits once the queue is closed and drained.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	if w.pool.config.OnWorkerStart != nil {
		w.pool.config.OnWorkerStart(w.id)
	}
	defer func() {
		if w.pool.config.OnWorkerStop != nil {
			w.pool.config.OnWorkerStop(w.id)
		}
	}()

	for task := range w.pool.taskQueue {
		w.executeTask(task)
	}
}

// executeTask executes a single task under the pool context.
func (w *worker) executeTask(task Task) {
	p := w.pool
	p.activeWorkers.Add(1)

	if p.config.OnTaskStart != nil {
		p.config.OnTaskStart(w.id, task)
	}

	start := time.Now()
	var err error

	// Handle panics during task execution
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
			p.logger.Error("task panicked", "worker_id", w.id, "panic", r)
			if p.config.PanicHandler != nil {
				p.config.PanicHandler(task, r)
			}
		}

		p.totalCompleted.Add(1)
		if err != nil {
			p.totalFailed.Add(1)
		}
		p.activeWorkers.Add(-1)

		if p.config.OnTaskComplete != nil {
			p.config.OnTaskComplete(w.id, Result{
				Task:     task,
				Error:    err,
				Duration: time.Since(start),
				WorkerID: w.id,
			})
		}
	}()

	// Tasks still queued after a timed shutdown gave up run with an
	// already-canceled context and are expected to return promptly.
	ctx := p.baseCtx

	// Apply TaskTimeout if configured
	if p.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.TaskTimeout)
		defer cancel()
	}

	err = task.Execute(ctx)
}
