package workerpool

import (
	"context"
	"time"

	"github.com/vnykmshr/taskrun/pkg/metrics"
)

// MetricsPool wraps a worker Pool with Prometheus metrics collection.
type MetricsPool struct {
	pool     Pool
	name     string
	registry *metrics.Registry
}

// NewWithMetrics creates a worker pool whose tasks and state are reported
// under the given pool name. When metricsConfig is disabled the plain pool
// is returned.
func NewWithMetrics(config Config, name string, metricsConfig metrics.Config) (Pool, error) {
	return NewWithRegistry(config, name, metricsConfig.Resolve())
}

// NewWithRegistry is NewWithMetrics for callers that already hold a Registry,
// typically one shared with a background.Scheduler and a retry.Executor.
// A nil registry returns the plain pool.
func NewWithRegistry(config Config, name string, registry *metrics.Registry) (Pool, error) {
	if registry == nil {
		return NewWithConfigSafe(config)
	}

	mp := &MetricsPool{
		name:     name,
		registry: registry,
	}

	// Refresh the gauges once the worker no longer counts as active
	onComplete := config.OnTaskComplete
	config.OnTaskComplete = func(workerID int, result Result) {
		mp.updateMetrics()
		if onComplete != nil {
			onComplete(workerID, result)
		}
	}

	basePool, err := NewWithConfigSafe(config)
	if err != nil {
		return nil, err
	}
	mp.pool = basePool

	// Initialize metrics
	mp.updateMetrics()

	return mp, nil
}

// updateMetrics updates the current state metrics.
func (mp *MetricsPool) updateMetrics() {
	mp.registry.WorkerPoolSize.WithLabelValues(mp.name).Set(float64(mp.pool.Size()))
	mp.registry.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(mp.pool.ActiveWorkers()))
	mp.registry.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(mp.pool.QueueSize()))
}

// Submit adds a task to the pool for execution.
func (mp *MetricsPool) Submit(task Task) error {
	return mp.SubmitWithContext(context.Background(), task)
}

// SubmitWithTimeout submits a task with a timeout for queuing.
func (mp *MetricsPool) SubmitWithTimeout(task Task, timeout time.Duration) error {
	if task == nil {
		return mp.pool.SubmitWithTimeout(nil, timeout)
	}
	err := mp.pool.SubmitWithTimeout(mp.wrap(task), timeout)
	mp.updateMetrics()
	return err
}

// SubmitWithContext submits a task with a context for cancellation.
func (mp *MetricsPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return mp.pool.SubmitWithContext(ctx, nil)
	}
	err := mp.pool.SubmitWithContext(ctx, mp.wrap(task))
	mp.updateMetrics()
	return err
}

func (mp *MetricsPool) wrap(task Task) Task {
	return &metricsTask{
		original:   task,
		pool:       mp,
		submitTime: time.Now(),
	}
}

// metricsTask wraps a Task to collect execution metrics.
type metricsTask struct {
	original   Task
	pool       *MetricsPool
	submitTime time.Time
}

// Execute runs the original task and records metrics. A panicking task is
// counted as failed; the worker recovers the panic itself.
func (mt *metricsTask) Execute(ctx context.Context) (err error) {
	reg := mt.pool.registry
	name := mt.pool.name

	reg.WorkerPoolQueueWait.WithLabelValues(name).Observe(time.Since(mt.submitTime).Seconds())
	mt.pool.updateMetrics()

	returned := false
	defer func() {
		outcome := metrics.OutcomeOK
		if err != nil || !returned {
			outcome = metrics.OutcomeFailed
		}
		reg.WorkerPoolExecuted.WithLabelValues(name, outcome).Inc()
	}()

	err = mt.original.Execute(ctx)
	returned = true
	return err
}

// Shutdown initiates graceful shutdown of the pool.
func (mp *MetricsPool) Shutdown() <-chan struct{} {
	return mp.pool.Shutdown()
}

// ShutdownWithTimeout shuts down the pool with a timeout.
func (mp *MetricsPool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	return mp.pool.ShutdownWithTimeout(timeout)
}

// Size returns the current number of workers.
func (mp *MetricsPool) Size() int {
	return mp.pool.Size()
}

// QueueSize returns the current number of queued tasks.
func (mp *MetricsPool) QueueSize() int {
	queueSize := mp.pool.QueueSize()
	mp.registry.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(queueSize))
	return queueSize
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (mp *MetricsPool) ActiveWorkers() int {
	activeWorkers := mp.pool.ActiveWorkers()
	mp.registry.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(activeWorkers))
	return activeWorkers
}

// TotalSubmitted returns the total number of tasks submitted.
func (mp *MetricsPool) TotalSubmitted() int64 {
	return mp.pool.TotalSubmitted()
}

// TotalCompleted returns the total number of tasks completed.
func (mp *MetricsPool) TotalCompleted() int64 {
	return mp.pool.TotalCompleted()
}

// TotalFailed returns the total number of tasks that failed.
func (mp *MetricsPool) TotalFailed() int64 {
	return mp.pool.TotalFailed()
}
