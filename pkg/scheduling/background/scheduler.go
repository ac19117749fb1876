package background

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	gfcontext "github.com/vnykmshr/taskrun/pkg/common/context"
	gferrors "github.com/vnykmshr/taskrun/pkg/common/errors"
	"github.com/vnykmshr/taskrun/pkg/metrics"
	"github.com/vnykmshr/taskrun/pkg/scheduling/workerpool"
)

// Operation is a zero-argument background job. Arguments are bound by closure.
type Operation func(ctx context.Context) error

// ErrorHandler receives failures of tasks that were already scheduled.
type ErrorHandler func(ctx context.Context, taskID uuid.UUID, err error)

// Scheduler submits fire-and-forget operations to a shared worker pool.
// It does not own the pool; construct one pool at startup and share it.
type Scheduler struct {
	pool     workerpool.Pool
	name     string
	logger   *slog.Logger
	registry *metrics.Registry
	onError  ErrorHandler

	// baseCtx is linked into every task context; Close cancels it on timeout.
	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.RWMutex
	closed  bool
	tasks   sync.WaitGroup
	active  atomic.Int64
	pending atomic.Int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(registry *metrics.Registry) Option {
	return func(s *Scheduler) { s.registry = registry }
}

// WithName sets the scheduler label used in logs, errors and metrics.
func WithName(name string) Option {
	return func(s *Scheduler) { s.name = name }
}

// WithErrorHandler replaces the default handler, which logs task failures at error level.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(s *Scheduler) { s.onError = handler }
}

// New creates a Scheduler on top of pool.
func New(pool workerpool.Pool, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		pool:    pool,
		name:    "default",
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "background", "scheduler", s.name)
	if s.onError == nil {
		s.onError = s.logFailure
	}
	return s
}

// RunInBackground schedules op and returns once the pool has accepted it.
// ctx bounds only the hand-off to the pool; op never sees it. Failures of op
// go to the error handler, never to the caller. A *SchedulingError is
// returned if the task could not be accepted.
func (s *Scheduler) RunInBackground(ctx context.Context, op Operation) error {
	if op == nil {
		return gferrors.NewValidationError("background", "operation", nil, "cannot be nil").
			WithHint("bind arguments into a closure before submitting")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return s.reject(ErrSchedulerClosed)
	}
	s.tasks.Add(1)
	s.pending.Add(1)
	s.mu.RUnlock()

	id := uuid.New()
	task := workerpool.TaskFunc(func(poolCtx context.Context) error {
		return s.execute(poolCtx, id, op)
	})

	if err := s.pool.SubmitWithContext(ctx, task); err != nil {
		s.pending.Add(-1)
		s.tasks.Done()
		return s.reject(err)
	}

	if s.registry != nil {
		s.registry.TasksScheduled.WithLabelValues(s.name).Inc()
	}
	s.logger.DebugContext(ctx, "task scheduled", "task_id", id)
	return nil
}

// Go schedules a value-returning operation, discarding its value.
func Go[T any](ctx context.Context, s *Scheduler, op func(ctx context.Context) (T, error)) error {
	if op == nil {
		return gferrors.NewValidationError("background", "operation", nil, "cannot be nil")
	}
	return s.RunInBackground(ctx, func(ctx context.Context) error {
		_, err := op(ctx)
		return err
	})
}

// Active returns the number of tasks currently running.
func (s *Scheduler) Active() int {
	return int(s.active.Load())
}

// Pending returns the number of accepted tasks that have not started yet.
func (s *Scheduler) Pending() int {
	return int(s.pending.Load())
}

// Closed reports whether Close has been called.
func (s *Scheduler) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close stops accepting tasks and waits for every accepted task to finish.
// If ctx ends first, running and pending tasks have their context canceled
// and ctx's error is returned. Close does not shut the pool down.
func (s *Scheduler) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.logger.Warn("close timed out, canceling background tasks",
			"active", s.Active(),
			"pending", s.Pending())
		s.cancel()
		return fmt.Errorf("closing scheduler %s: %w", s.name, ctx.Err())
	}
}

func (s *Scheduler) execute(poolCtx context.Context, id uuid.UUID, op Operation) (err error) {
	defer s.tasks.Done()
	s.pending.Add(-1)
	s.active.Add(1)
	defer s.active.Add(-1)

	ctx, release := gfcontext.Link(poolCtx, s.baseCtx)
	defer release()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("background task panicked: %v\nStack trace:\n%s", r, debug.Stack())
		}
		s.finish(ctx, id, err, time.Since(start))
	}()

	// Tasks still pending when Close gave up are not started
	if gfcontext.IsCanceled(ctx) {
		return fmt.Errorf("background task canceled before start: %w", ctx.Err())
	}

	s.logger.DebugContext(ctx, "task started", "task_id", id)
	return op(ctx)
}

func (s *Scheduler) finish(ctx context.Context, id uuid.UUID, err error, elapsed time.Duration) {
	if s.registry != nil {
		s.registry.TaskExecutionDuration.WithLabelValues(s.name).Observe(elapsed.Seconds())
		if err != nil {
			s.registry.TasksFailed.WithLabelValues(s.name).Inc()
		} else {
			s.registry.TasksCompleted.WithLabelValues(s.name).Inc()
		}
	}

	if err == nil {
		s.logger.DebugContext(ctx, "task completed", "task_id", id, "elapsed", elapsed)
		return
	}
	s.onError(ctx, id, err)
}

func (s *Scheduler) logFailure(ctx context.Context, id uuid.UUID, err error) {
	s.logger.ErrorContext(ctx, "background task failed", "task_id", id, "error", err)
}

func (s *Scheduler) reject(cause error) error {
	if s.registry != nil {
		s.registry.TasksRejected.WithLabelValues(s.name).Inc()
	}
	s.logger.Warn("task rejected", "error", cause)
	return &SchedulingError{Scheduler: s.name, Err: cause}
}
