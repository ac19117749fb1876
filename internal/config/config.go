package config

import (
	"time"

	"github.com/vnykmshr/taskrun/pkg/retry"
	"github.com/vnykmshr/taskrun/pkg/scheduling/workerpool"
)

// Config holds all taskrun configuration.
type Config struct {
	Retry   RetryConfig   `mapstructure:"retry"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// RetryConfig is the default retry policy.
type RetryConfig struct {
	Tries int           `mapstructure:"tries" validate:"min=1"`
	Pause time.Duration `mapstructure:"pause" validate:"gte=0"`
}

// PoolConfig sizes the shared worker pool behind background scheduling.
type PoolConfig struct {
	Workers         int           `mapstructure:"workers" validate:"min=1"`
	QueueSize       int           `mapstructure:"queue_size" validate:"gte=0"`
	TaskTimeout     time.Duration `mapstructure:"task_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

// Policy converts the retry section into a retry.Policy that retries any error.
func (c RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		Tries:     c.Tries,
		Pause:     c.Pause,
		Retryable: retry.AnyError(),
	}
}

// WorkerPool converts the pool section into a workerpool.Config.
func (c PoolConfig) WorkerPool() workerpool.Config {
	return workerpool.Config{
		WorkerCount: c.Workers,
		QueueSize:   c.QueueSize,
		TaskTimeout: c.TaskTimeout,
	}
}
