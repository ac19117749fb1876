// Package metrics provides Prometheus instrumentation for taskrun components.
//
// This package exposes counters, gauges and histograms for the retry executor,
// the background scheduler and the worker pool that backs it.
//
// # Overview
//
// The metrics package provides instrumentation for:
//   - Retry executors (attempts by outcome, exhausted loops, attempt duration)
//   - Background scheduling (scheduled, rejected, completed, failed tasks)
//   - Worker pools (pool size, active workers, queued tasks, queue wait)
//
// # Quick Start
//
// Build a registry on your own registerer and hand it to the components:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewRegistry(reg)
//
//	exec := retry.New(retry.WithMetrics(m), retry.WithName("billing"))
//	sched := background.New(pool, background.WithMetrics(m))
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Default Registry
//
// DefaultRegistry is registered against prometheus.DefaultRegisterer at init
// time. A Config with Enabled set and a nil Registry resolves to it.
//
// # Metric Names
//
// All metrics use the "taskrun" namespace:
//
//	taskrun_retry_attempts_total{executor,outcome}
//	taskrun_retry_exhausted_total{executor}
//	taskrun_retry_attempt_duration_seconds{executor}
//	taskrun_scheduler_tasks_scheduled_total{scheduler_name}
//	taskrun_scheduler_tasks_rejected_total{scheduler_name}
//	taskrun_scheduler_tasks_completed_total{scheduler_name}
//	taskrun_scheduler_tasks_failed_total{scheduler_name}
//	taskrun_scheduler_task_duration_seconds{scheduler_name}
//	taskrun_workerpool_size{pool_name}
//	taskrun_workerpool_active_workers{pool_name}
//	taskrun_workerpool_queued_tasks{pool_name}
//	taskrun_workerpool_tasks_executed_total{pool_name,outcome}
//	taskrun_workerpool_queue_wait_seconds{pool_name}
package metrics
