// Package metrics provides Prometheus instrumentation for taskrun components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskrun"

// Outcome label values shared by the retry and scheduling metrics.
const (
	OutcomeOK        = "ok"
	OutcomeRetryable = "retryable"
	OutcomeTerminal  = "terminal"
	OutcomeFailed    = "failed"
)

// Registry holds all metric instances for taskrun components.
type Registry struct {
	// Retry Metrics
	RetryAttempts        *prometheus.CounterVec
	RetryExhausted       *prometheus.CounterVec
	RetryAttemptDuration *prometheus.HistogramVec

	// Background Scheduling Metrics
	TasksScheduled        *prometheus.CounterVec
	TasksRejected         *prometheus.CounterVec
	TasksCompleted        *prometheus.CounterVec
	TasksFailed           *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec

	// Worker Pool Metrics
	WorkerPoolSize      *prometheus.GaugeVec
	WorkerPoolActive    *prometheus.GaugeVec
	WorkerPoolQueued    *prometheus.GaugeVec
	WorkerPoolExecuted  *prometheus.CounterVec
	WorkerPoolQueueWait *prometheus.HistogramVec
}

// DefaultRegistry is the default metrics registry used by taskrun components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
// Creating two registries on the same registerer panics on duplicate registration.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Retry Metrics
		RetryAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retry",
				Name:      "attempts_total",
				Help:      "Total number of attempts made by retry executors, by outcome",
			},
			[]string{"executor", "outcome"},
		),

		RetryExhausted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retry",
				Name:      "exhausted_total",
				Help:      "Total number of retry loops that used up every attempt",
			},
			[]string{"executor"},
		),

		RetryAttemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "retry",
				Name:      "attempt_duration_seconds",
				Help:      "Time spent in a single attempt",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"executor"},
		),

		// Background Scheduling Metrics
		TasksScheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_scheduled_total",
				Help:      "Total number of background tasks accepted for execution",
			},
			[]string{"scheduler_name"},
		),

		TasksRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_rejected_total",
				Help:      "Total number of background tasks that could not be scheduled",
			},
			[]string{"scheduler_name"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_completed_total",
				Help:      "Total number of background tasks completed successfully",
			},
			[]string{"scheduler_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "tasks_failed_total",
				Help:      "Total number of background tasks that failed",
			},
			[]string{"scheduler_name"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing background tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"scheduler_name"},
		),

		// Worker Pool Metrics
		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "size",
				Help:      "Current worker pool size",
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "active_workers",
				Help:      "Number of active workers",
			},
			[]string{"pool_name"},
		),

		WorkerPoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "queued_tasks",
				Help:      "Number of queued tasks",
			},
			[]string{"pool_name"},
		),

		WorkerPoolExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "tasks_executed_total",
				Help:      "Total number of tasks executed by pool workers, by outcome",
			},
			[]string{"pool_name", "outcome"},
		),

		WorkerPoolQueueWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "workerpool",
				Name:      "queue_wait_seconds",
				Help:      "Time tasks spent queued before a worker picked them up",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),
	}
}
