package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/taskrun/internal/testutil"
	gferrors "github.com/vnykmshr/taskrun/pkg/common/errors"
	"github.com/vnykmshr/taskrun/pkg/metrics"
)

// TestTask is a simple task for testing.
type TestTask struct {
	ID          int
	Duration    time.Duration
	ShouldErr   bool
	ShouldPanic bool
	Executed    *int32 // Atomic counter
}

func (t *TestTask) Execute(ctx context.Context) error {
	atomic.AddInt32(t.Executed, 1)

	if t.ShouldPanic {
		panic("test panic")
	}

	if t.Duration > 0 {
		select {
		case <-time.After(t.Duration):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if t.ShouldErr {
		return errors.New("test error")
	}

	return nil
}

// shutdown waits for the pool to stop so goleak sees no stray workers.
func shutdown(t *testing.T, pool Pool) {
	t.Helper()
	testutil.WaitClosed(t, pool.Shutdown(), testutil.TestTimeout)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		workerCount int
		queueSize   int
		expectPanic bool
	}{
		{"valid params", 2, 10, false},
		{"single worker", 1, 5, false},
		{"direct hand-off", 3, 0, false},
		{"zero workers", 0, 10, true},
		{"negative workers", -1, 10, true},
		{"invalid queue size", 2, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.expectPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Error("expected panic")
					}
				}()
			}

			pool := New(tt.workerCount, tt.queueSize)
			if !tt.expectPanic {
				testutil.AssertEqual(t, pool.Size(), tt.workerCount)
				shutdown(t, pool)
			}
		})
	}
}

func TestNewSafe(t *testing.T) {
	_, err := NewSafe(0, 1)
	testutil.AssertErrorIs(t, err, gferrors.ErrInvalidConfiguration)
	testutil.AssertEqual(t, gferrors.IsValidationError(err), true)

	_, err = NewWithConfigSafe(Config{WorkerCount: 1, TaskTimeout: -time.Second})
	testutil.AssertEqual(t, gferrors.IsValidationError(err), true)

	pool, err := NewSafe(2, 4)
	testutil.AssertNoError(t, err)
	shutdown(t, pool)
}

func TestBasicTaskExecution(t *testing.T) {
	results := make(chan Result, 1)
	pool := NewWithConfig(Config{
		WorkerCount: 2,
		QueueSize:   5,
		OnTaskComplete: func(_ int, r Result) {
			results <- r
		},
	})
	defer shutdown(t, pool)

	var executed int32
	task := &TestTask{
		ID:       1,
		Duration: 10 * time.Millisecond,
		Executed: &executed,
	}

	testutil.AssertNoError(t, pool.Submit(task))

	select {
	case result := <-results:
		testutil.AssertEqual(t, result.Error, nil)
		testutil.AssertEqual(t, result.Task == Task(task), true)
		testutil.AssertEqual(t, result.WorkerID >= 0, true)
		testutil.AssertEqual(t, result.Duration >= 10*time.Millisecond, true)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for result")
	}

	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(1))
}

func TestMultipleTaskExecution(t *testing.T) {
	pool := New(3, 10)

	const numTasks = 10
	var executed int32

	for i := 0; i < numTasks; i++ {
		task := &TestTask{
			ID:       i,
			Duration: 5 * time.Millisecond,
			Executed: &executed,
		}
		testutil.AssertNoError(t, pool.Submit(task))
	}

	shutdown(t, pool)

	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(numTasks))
	testutil.AssertEqual(t, pool.TotalSubmitted(), int64(numTasks))
	testutil.AssertEqual(t, pool.TotalCompleted(), int64(numTasks))
	testutil.AssertEqual(t, pool.TotalFailed(), int64(0))
}

func TestConcurrencyLimit(t *testing.T) {
	pool := New(2, 10)

	var tracker testutil.ConcurrencyTracker
	var executed int32

	for i := 0; i < 5; i++ {
		err := pool.Submit(TaskFunc(func(ctx context.Context) error {
			defer tracker.Enter()()
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&executed, 1)
			return nil
		}))
		testutil.AssertNoError(t, err)
	}

	shutdown(t, pool)

	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(5))
	if peak := tracker.Peak(); peak > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestFIFOStartOrder(t *testing.T) {
	pool := New(1, 10)

	var mu sync.Mutex
	var order []int

	for i := 0; i < 8; i++ {
		id := i
		err := pool.Submit(TaskFunc(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil
		}))
		testutil.AssertNoError(t, err)
	}

	shutdown(t, pool)

	testutil.AssertEqual(t, len(order), 8)
	for i, id := range order {
		testutil.AssertEqual(t, id, i)
	}
}

func TestTaskError(t *testing.T) {
	results := make(chan Result, 1)
	pool := NewWithConfig(Config{
		WorkerCount:    1,
		QueueSize:      1,
		OnTaskComplete: func(_ int, r Result) { results <- r },
	})
	defer shutdown(t, pool)

	var executed int32
	task := &TestTask{ID: 1, ShouldErr: true, Executed: &executed}

	testutil.AssertNoError(t, pool.Submit(task))

	select {
	case result := <-results:
		testutil.AssertNotEqual(t, result.Error, nil)
		testutil.AssertEqual(t, result.Error.Error(), "test error")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for result")
	}

	testutil.AssertEqual(t, pool.TotalFailed(), int64(1))
}

func TestTaskPanic(t *testing.T) {
	var panicHandlerCalled atomic.Bool
	var recoveredValue atomic.Value

	pool := NewWithConfig(Config{
		WorkerCount: 1,
		QueueSize:   2,
		PanicHandler: func(task Task, recovered interface{}) {
			panicHandlerCalled.Store(true)
			recoveredValue.Store(recovered)
		},
	})

	var executed int32
	testutil.AssertNoError(t, pool.Submit(&TestTask{ID: 1, ShouldPanic: true, Executed: &executed}))
	// The same worker must survive to run the next task
	testutil.AssertNoError(t, pool.Submit(&TestTask{ID: 2, Executed: &executed}))

	shutdown(t, pool)

	testutil.AssertEqual(t, panicHandlerCalled.Load(), true)
	testutil.AssertEqual(t, recoveredValue.Load(), interface{}("test panic"))
	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(2))
	testutil.AssertEqual(t, pool.TotalFailed(), int64(1))
	testutil.AssertEqual(t, pool.TotalCompleted(), int64(2))
}

func TestSubmitWithTimeout(t *testing.T) {
	pool := New(1, 0)
	defer shutdown(t, pool)

	release := make(chan struct{})
	blocker := TaskFunc(func(ctx context.Context) error {
		<-release
		return nil
	})

	testutil.AssertNoError(t, pool.Submit(blocker))

	err := pool.SubmitWithTimeout(blocker, 20*time.Millisecond)
	testutil.AssertErrorIs(t, err, gferrors.ErrTimeout)

	close(release)
}

func TestSubmitWithContext(t *testing.T) {
	pool := New(1, 1)
	defer shutdown(t, pool)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var executed int32
	err := pool.SubmitWithContext(ctx, &TestTask{Executed: &executed})
	testutil.AssertErrorIs(t, err, context.Canceled)
	testutil.AssertEqual(t, pool.TotalSubmitted(), int64(0))
}

func TestSubmissionContextDoesNotReachTask(t *testing.T) {
	pool := New(1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	var taskErr atomic.Value

	err := pool.SubmitWithContext(ctx, TaskFunc(func(taskCtx context.Context) error {
		<-release
		taskErr.Store(taskCtx.Err() == nil)
		return nil
	}))
	testutil.AssertNoError(t, err)

	cancel()
	close(release)
	shutdown(t, pool)

	testutil.AssertEqual(t, taskErr.Load(), interface{}(true))
}

func TestSubmitNilTask(t *testing.T) {
	pool := New(1, 1)
	defer shutdown(t, pool)

	err := pool.Submit(nil)
	testutil.AssertEqual(t, gferrors.IsValidationError(err), true)
}

func TestSubmitToShutdownPool(t *testing.T) {
	pool := New(1, 1)
	shutdown(t, pool)

	var executed int32
	err := pool.Submit(&TestTask{Executed: &executed})
	testutil.AssertErrorIs(t, err, ErrPoolClosed)
	testutil.AssertErrorIs(t, err, gferrors.ErrClosed)

	// Shutdown is idempotent
	testutil.WaitClosed(t, pool.Shutdown(), time.Second)
}

func TestShutdownDrainsQueue(t *testing.T) {
	pool := New(1, 5)

	release := make(chan struct{})
	var executed int32

	testutil.AssertNoError(t, pool.Submit(TaskFunc(func(ctx context.Context) error {
		<-release
		return nil
	})))
	for i := 0; i < 4; i++ {
		testutil.AssertNoError(t, pool.Submit(&TestTask{ID: i, Executed: &executed}))
	}

	done := pool.Shutdown()
	close(release)
	testutil.WaitClosed(t, done, time.Second)

	testutil.AssertEqual(t, atomic.LoadInt32(&executed), int32(4))
}

func TestShutdownWithTimeout(t *testing.T) {
	pool := New(1, 1)

	var runningErr atomic.Value
	testutil.AssertNoError(t, pool.Submit(TaskFunc(func(ctx context.Context) error {
		<-ctx.Done()
		runningErr.Store(ctx.Err())
		return ctx.Err()
	})))

	testutil.Eventually(t, func() bool { return pool.ActiveWorkers() == 1 }, time.Second, time.Millisecond)

	var queuedErr atomic.Value
	testutil.AssertNoError(t, pool.Submit(TaskFunc(func(ctx context.Context) error {
		queuedErr.Store(ctx.Err())
		return ctx.Err()
	})))

	testutil.WaitClosed(t, pool.ShutdownWithTimeout(20*time.Millisecond), time.Second)

	testutil.AssertEqual(t, runningErr.Load(), interface{}(context.Canceled))
	testutil.AssertEqual(t, queuedErr.Load(), interface{}(context.Canceled))
	testutil.AssertEqual(t, pool.TotalFailed(), int64(2))
}

func TestTaskTimeout(t *testing.T) {
	results := make(chan Result, 1)
	pool := NewWithConfig(Config{
		WorkerCount:    1,
		QueueSize:      1,
		TaskTimeout:    20 * time.Millisecond,
		OnTaskComplete: func(_ int, r Result) { results <- r },
	})
	defer shutdown(t, pool)

	var executed int32
	testutil.AssertNoError(t, pool.Submit(&TestTask{Duration: time.Second, Executed: &executed}))

	select {
	case result := <-results:
		testutil.AssertErrorIs(t, result.Error, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for result")
	}
}

func TestWorkerCallbacks(t *testing.T) {
	var started, stopped, taskStarted, taskCompleted int32

	pool := NewWithConfig(Config{
		WorkerCount:    3,
		QueueSize:      5,
		OnWorkerStart:  func(int) { atomic.AddInt32(&started, 1) },
		OnWorkerStop:   func(int) { atomic.AddInt32(&stopped, 1) },
		OnTaskStart:    func(int, Task) { atomic.AddInt32(&taskStarted, 1) },
		OnTaskComplete: func(int, Result) { atomic.AddInt32(&taskCompleted, 1) },
	})

	var executed int32
	for i := 0; i < 4; i++ {
		testutil.AssertNoError(t, pool.Submit(&TestTask{ID: i, Executed: &executed}))
	}

	shutdown(t, pool)

	testutil.AssertEqual(t, atomic.LoadInt32(&started), int32(3))
	testutil.AssertEqual(t, atomic.LoadInt32(&stopped), int32(3))
	testutil.AssertEqual(t, atomic.LoadInt32(&taskStarted), int32(4))
	testutil.AssertEqual(t, atomic.LoadInt32(&taskCompleted), int32(4))
}

func TestConcurrentSubmitAndShutdown(t *testing.T) {
	pool := New(4, 10)

	var accepted, executed int64
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				err := pool.Submit(TaskFunc(func(ctx context.Context) error {
					atomic.AddInt64(&executed, 1)
					return nil
				}))
				if err == nil {
					atomic.AddInt64(&accepted, 1)
					continue
				}
				if !errors.Is(err, ErrPoolClosed) {
					t.Errorf("unexpected submit error: %v", err)
				}
				return
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	done := pool.Shutdown()
	wg.Wait()
	testutil.WaitClosed(t, done, testutil.TestTimeout)

	testutil.AssertEqual(t, atomic.LoadInt64(&executed), atomic.LoadInt64(&accepted))
	testutil.AssertEqual(t, pool.TotalSubmitted(), atomic.LoadInt64(&accepted))
}

func TestActiveWorkersAndQueueSize(t *testing.T) {
	pool := New(2, 5)

	release := make(chan struct{})
	blocker := TaskFunc(func(ctx context.Context) error {
		<-release
		return nil
	})

	for i := 0; i < 5; i++ {
		testutil.AssertNoError(t, pool.Submit(blocker))
	}

	testutil.Eventually(t, func() bool {
		return pool.ActiveWorkers() == 2 && pool.QueueSize() == 3
	}, time.Second, time.Millisecond)

	close(release)
	shutdown(t, pool)

	testutil.AssertEqual(t, pool.ActiveWorkers(), 0)
	testutil.AssertEqual(t, pool.QueueSize(), 0)
}

func TestMetricsPool(t *testing.T) {
	pool, err := NewWithMetrics(Config{WorkerCount: 2, QueueSize: 4}, "test_pool", metrics.Config{
		Enabled:  true,
		Registry: prometheus.NewRegistry(),
	})
	testutil.AssertNoError(t, err)

	mp, ok := pool.(*MetricsPool)
	testutil.AssertEqual(t, ok, true)

	var executed int32
	for i := 0; i < 3; i++ {
		testutil.AssertNoError(t, pool.Submit(&TestTask{ID: i, Executed: &executed}))
	}
	testutil.AssertNoError(t, pool.Submit(&TestTask{ID: 3, ShouldErr: true, Executed: &executed}))

	shutdown(t, pool)

	reg := mp.registry
	testutil.AssertEqual(t, promtestutil.ToFloat64(reg.WorkerPoolExecuted.WithLabelValues("test_pool", metrics.OutcomeOK)), float64(3))
	testutil.AssertEqual(t, promtestutil.ToFloat64(reg.WorkerPoolExecuted.WithLabelValues("test_pool", metrics.OutcomeFailed)), float64(1))
	testutil.AssertEqual(t, promtestutil.ToFloat64(reg.WorkerPoolSize.WithLabelValues("test_pool")), float64(2))
	testutil.AssertEqual(t, pool.TotalFailed(), int64(1))
}

func TestNewWithMetricsDisabled(t *testing.T) {
	pool, err := NewWithMetrics(Config{WorkerCount: 1}, "plain", metrics.Config{})
	testutil.AssertNoError(t, err)

	_, isMetrics := pool.(*MetricsPool)
	testutil.AssertEqual(t, isMetrics, false)
	shutdown(t, pool)
}

func TestNewWithRegistryShared(t *testing.T) {
	registry := metrics.NewRegistry(prometheus.NewRegistry())

	a, err := NewWithRegistry(Config{WorkerCount: 1}, "a", registry)
	testutil.AssertNoError(t, err)
	b, err := NewWithRegistry(Config{WorkerCount: 3}, "b", registry)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, promtestutil.ToFloat64(registry.WorkerPoolSize.WithLabelValues("a")), float64(1))
	testutil.AssertEqual(t, promtestutil.ToFloat64(registry.WorkerPoolSize.WithLabelValues("b")), float64(3))

	shutdown(t, a)
	shutdown(t, b)

	_, err = NewWithRegistry(Config{WorkerCount: 0}, "bad", registry)
	testutil.AssertErrorIs(t, err, gferrors.ErrInvalidConfiguration)
}

func TestMetricsPoolPanicAndActiveGauge(t *testing.T) {
	registry := metrics.NewRegistry(prometheus.NewRegistry())
	completed := make(chan Result, 2)

	pool, err := NewWithRegistry(Config{
		WorkerCount:    1,
		QueueSize:      2,
		OnTaskComplete: func(_ int, r Result) { completed <- r },
	}, "gauges", registry)
	testutil.AssertNoError(t, err)

	release := make(chan struct{})
	testutil.AssertNoError(t, pool.Submit(TaskFunc(func(ctx context.Context) error {
		<-release
		return nil
	})))

	active := func() float64 {
		return promtestutil.ToFloat64(registry.WorkerPoolActive.WithLabelValues("gauges"))
	}
	testutil.Eventually(t, func() bool { return active() == 1 }, time.Second, time.Millisecond)

	close(release)
	<-completed
	// No further submit: completion alone must refresh the gauge
	testutil.AssertEqual(t, active(), float64(0))

	var executed int32
	testutil.AssertNoError(t, pool.Submit(&TestTask{ID: 1, ShouldPanic: true, Executed: &executed}))
	r := <-completed
	testutil.AssertError(t, r.Error)

	shutdown(t, pool)

	testutil.AssertEqual(t, promtestutil.ToFloat64(registry.WorkerPoolExecuted.WithLabelValues("gauges", metrics.OutcomeFailed)), float64(1))
	testutil.AssertEqual(t, promtestutil.ToFloat64(registry.WorkerPoolExecuted.WithLabelValues("gauges", metrics.OutcomeOK)), float64(1))
	testutil.AssertEqual(t, active(), float64(0))
}
