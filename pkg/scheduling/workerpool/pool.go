package workerpool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gferrors "github.com/vnykmshr/taskrun/pkg/common/errors"
	"github.com/vnykmshr/taskrun/pkg/common/validation"
)

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result represents the result of a task execution.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Error is any error that occurred during task execution
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration

	// WorkerID identifies which worker executed the task
	WorkerID int
}

// Pool represents a worker pool that can execute tasks concurrently.
// Tasks start in submission order; at most Size() of them run at once.
type Pool interface {
	// Submit adds a task to the pool for execution.
	// Returns an error if the pool is shut down.
	Submit(task Task) error

	// SubmitWithTimeout submits a task with a timeout for queuing.
	// If the task cannot be queued within the timeout, it returns an error.
	SubmitWithTimeout(task Task, timeout time.Duration) error

	// SubmitWithContext submits a task with a context for cancellation.
	// The context applies to the queuing operation, not the task execution itself.
	SubmitWithContext(ctx context.Context, task Task) error

	// Shutdown initiates a graceful shutdown of the pool.
	// No new tasks will be accepted, but queued tasks will be completed.
	// Returns a channel that closes when shutdown is complete.
	Shutdown() <-chan struct{}

	// ShutdownWithTimeout shuts down the pool with a timeout.
	// If shutdown doesn't complete within the timeout, remaining tasks are canceled.
	ShutdownWithTimeout(timeout time.Duration) <-chan struct{}

	// Size returns the number of workers in the pool.
	Size() int

	// QueueSize returns the current number of queued tasks waiting for execution.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of tasks accepted by the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of tasks that finished, successfully or not.
	TotalCompleted() int64

	// TotalFailed returns the number of finished tasks that returned an error or panicked.
	TotalFailed() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers in the pool, which is also the
	// maximum number of tasks running at once. Must be greater than 0.
	WorkerCount int

	// QueueSize is the number of tasks that can wait for a free worker
	// without blocking the submitter. Zero means every submission hands
	// off directly to an idle worker.
	QueueSize int

	// TaskTimeout is the default timeout for individual task execution.
	// Zero means no timeout.
	TaskTimeout time.Duration

	// Logger receives worker lifecycle and panic records. Defaults to slog.Default().
	Logger *slog.Logger

	// PanicHandler is called when a task panics during execution.
	// Panics are always recovered and reported as task errors.
	PanicHandler func(task Task, recovered interface{})

	// OnWorkerStart is called when a worker starts.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops.
	OnWorkerStop func(workerID int)

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID int, task Task)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(workerID int, result Result)
}

// workerPool implements the Pool interface.
type workerPool struct {
	config Config
	logger *slog.Logger

	// Core pool state
	taskQueue    chan Task
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	// baseCtx is the parent of every task context; cancel aborts running tasks.
	baseCtx context.Context
	cancel  context.CancelFunc

	// State tracking
	mu             sync.RWMutex
	isShutdown     bool
	activeWorkers  atomic.Int64
	totalSubmitted atomic.Int64
	totalCompleted atomic.Int64
	totalFailed    atomic.Int64

	// Worker management
	workerWg sync.WaitGroup
	// submitWg counts submitters that passed the shutdown check and may still send.
	submitWg sync.WaitGroup
}

// New creates a new worker pool with the specified number of workers and queue size.
// It panics on invalid arguments; use NewSafe to get an error instead.
func New(workerCount, queueSize int) Pool {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewSafe creates a new worker pool with validation that returns an error instead of panicking.
// This is the recommended way to create pools for production use.
func NewSafe(workerCount, queueSize int) (Pool, error) {
	return NewWithConfigSafe(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a new worker pool with the specified configuration.
// It panics on invalid configuration.
func NewWithConfig(config Config) Pool {
	pool, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err.Error())
	}
	return pool
}

// NewWithConfigSafe creates a new worker pool with validation that returns an error instead of panicking.
func NewWithConfigSafe(config Config) (Pool, error) {
	if err := validation.ValidatePositive("workerpool", "worker_count", config.WorkerCount); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegativeInt("workerpool", "queue_size", config.QueueSize); err != nil {
		return nil, err
	}
	if config.TaskTimeout < 0 {
		return nil, gferrors.NewValidationError("workerpool", "task_timeout", config.TaskTimeout, "cannot be negative").
			WithHint("use 0 for no timeout")
	}
	return newPool(config), nil
}

func newPool(config Config) *workerPool {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &workerPool{
		config:     config,
		logger:     logger.With("component", "workerpool"),
		taskQueue:  make(chan Task, config.QueueSize),
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
		baseCtx:    ctx,
		cancel:     cancel,
	}

	// Create and start workers
	for i := 0; i < config.WorkerCount; i++ {
		w := &worker{id: i, pool: pool}
		pool.workerWg.Add(1)
		go w.run()
	}

	go func() {
		pool.workerWg.Wait()
		pool.cancel()
		close(pool.done)
	}()

	return pool
}

// worker represents a single worker in the pool.
type worker struct {
	id   int
	pool *workerPool
}
