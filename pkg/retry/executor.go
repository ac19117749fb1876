package retry

import (
	"context"
	"log/slog"
	"time"

	goretry "github.com/sethvargo/go-retry"

	gferrors "github.com/vnykmshr/taskrun/pkg/common/errors"
	"github.com/vnykmshr/taskrun/pkg/metrics"
)

// Operation is the unit of work driven by an Executor.
type Operation func(ctx context.Context) error

// Attempt describes one invocation of an operation. It is handed to hooks
// and log records and is not retained.
type Attempt struct {
	// Number is the 1-based attempt sequence number.
	Number int

	// Err is the attempt's failure, nil on success and in Before hooks.
	Err error

	// Elapsed is how long the attempt ran. Zero in Before hooks.
	Elapsed time.Duration
}

// Hooks are called around every attempt, in the goroutine running the loop.
type Hooks struct {
	Before func(ctx context.Context, attempt Attempt)
	After  func(ctx context.Context, attempt Attempt)
}

// Executor runs operations under a Policy. It holds no per-call state, so one
// Executor may serve any number of concurrent loops.
type Executor struct {
	name    string
	logger  *slog.Logger
	metrics *metrics.Registry
	hooks   Hooks
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for attempt records. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(registry *metrics.Registry) Option {
	return func(e *Executor) { e.metrics = registry }
}

// WithName sets the executor label used in logs and metrics.
func WithName(name string) Option {
	return func(e *Executor) { e.name = name }
}

// WithHooks installs before/after attempt callbacks.
func WithHooks(hooks Hooks) Option {
	return func(e *Executor) { e.hooks = hooks }
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{name: "default"}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Default is the executor used by the package-level Do and by Run with a nil executor.
var Default = New()

// Do runs op with Default.
func Do(ctx context.Context, p Policy, op Operation) error {
	return Default.Do(ctx, p, op)
}

// Run calls op until it succeeds, fails with a non-retryable error, or the
// policy runs out of attempts, and returns op's value on success.
func Run[T any](ctx context.Context, e *Executor, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if op == nil {
		return zero, gferrors.NewValidationError("retry", "operation", nil, "cannot be nil")
	}
	if e == nil {
		e = Default
	}

	var result T
	err := e.Do(ctx, p, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return zero, err
	}
	return result, nil
}

// Do calls op until it succeeds, fails with a non-retryable error, or the
// policy runs out of attempts.
//
// A non-retryable failure is returned exactly as op produced it. Running out
// of attempts returns a *RetriesExhaustedError wrapping the last failure. If
// ctx ends the loop first, a *CanceledError is returned.
func (e *Executor) Do(ctx context.Context, p Policy, op Operation) error {
	if op == nil {
		return gferrors.NewValidationError("retry", "operation", nil, "cannot be nil")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger := e.log().With("executor", e.name)

	if err := ctx.Err(); err != nil {
		return &CanceledError{Cause: err}
	}

	var (
		attempts      int
		last          error
		lastRetryable bool
	)

	backoff := goretry.WithMaxRetries(uint64(p.Tries-1), constantBackoff(p.Pause))

	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		e.before(ctx, logger, attempts, p.Tries)

		start := time.Now()
		err := op(ctx)
		elapsed := time.Since(start)

		if err == nil {
			e.after(ctx, logger, Attempt{Number: attempts, Elapsed: elapsed}, metrics.OutcomeOK, 0)
			return nil
		}

		last = err
		lastRetryable = p.classify(err)
		if !lastRetryable {
			e.after(ctx, logger, Attempt{Number: attempts, Err: err, Elapsed: elapsed}, metrics.OutcomeTerminal, 0)
			return terminalError{err}
		}

		var pause time.Duration
		if attempts < p.Tries {
			pause = p.Pause
		}
		e.after(ctx, logger, Attempt{Number: attempts, Err: err, Elapsed: elapsed}, metrics.OutcomeRetryable, pause)
		return goretry.RetryableError(err)
	})

	switch {
	case err == nil:
		return nil
	case attempts > 0 && !lastRetryable:
		return last
	case lastRetryable && attempts >= p.Tries:
		if e.metrics != nil {
			e.metrics.RetryExhausted.WithLabelValues(e.name).Inc()
		}
		logger.Debug("retries exhausted", "attempts", attempts, "error", last)
		return &RetriesExhaustedError{Attempts: attempts, Last: last}
	default:
		logger.Debug("retry canceled", "attempts", attempts, "error", err)
		return &CanceledError{Attempts: attempts, Last: last, Cause: err}
	}
}

func (e *Executor) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

func (e *Executor) before(ctx context.Context, logger *slog.Logger, n, tries int) {
	logger.DebugContext(ctx, "starting attempt", "attempt", n, "tries", tries)
	if e.hooks.Before != nil {
		e.hooks.Before(ctx, Attempt{Number: n})
	}
}

func (e *Executor) after(ctx context.Context, logger *slog.Logger, a Attempt, outcome string, pause time.Duration) {
	attrs := []any{
		"attempt", a.Number,
		"elapsed", a.Elapsed,
		"outcome", outcome,
	}
	if a.Err != nil {
		attrs = append(attrs, "error", a.Err)
	}
	if pause > 0 {
		attrs = append(attrs, "pause", pause)
	}
	logger.DebugContext(ctx, "finished attempt", attrs...)

	if e.metrics != nil {
		e.metrics.RetryAttempts.WithLabelValues(e.name, outcome).Inc()
		e.metrics.RetryAttemptDuration.WithLabelValues(e.name).Observe(a.Elapsed.Seconds())
	}
	if e.hooks.After != nil {
		e.hooks.After(ctx, a)
	}
}

// terminalError hides err from go-retry, which would otherwise retry any
// chain carrying its own retryable marker. It must not implement Unwrap.
type terminalError struct{ error }

// constantBackoff waits the same pause before every retry. goretry.NewConstant
// rejects a zero duration, which is a valid pause here.
func constantBackoff(pause time.Duration) goretry.Backoff {
	return goretry.BackoffFunc(func() (time.Duration, bool) {
		return pause, false
	})
}
