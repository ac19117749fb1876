/*
Package retry runs an operation under a bounded, policy-driven retry loop.

A Policy names the total number of attempts (Tries), a fixed Pause between
attempts, and a Classifier that decides which failures are worth another
attempt:

	policy := retry.Policy{
		Tries:     3,
		Pause:     200 * time.Millisecond,
		Retryable: retry.OnErrors(io.ErrUnexpectedEOF, syscall.ECONNRESET),
	}

	body, err := retry.Run(ctx, nil, policy, func(ctx context.Context) ([]byte, error) {
		return fetch(ctx, url)
	})

Arguments are bound by closure. Run returns the operation's value on success;
otherwise it returns exactly one error:

  - a failure the Classifier rejects is returned unwrapped on its first
    occurrence, without waiting and without further attempts;
  - when all Tries attempts fail with retryable errors, a
    *RetriesExhaustedError wrapping the last failure is returned, so
    errors.Is(err, retry.ErrRetriesExhausted) and errors.Is(err, cause)
    both hold;
  - when ctx is canceled before an attempt or during a pause, a
    *CanceledError carrying ctx.Err() and the last failure is returned.

Attempts within one call are strictly sequential: attempt N+1 starts no
earlier than Pause after attempt N failed. Independent calls share nothing
but the Executor's logger and metrics, so their pauses never block each other.

Executors:

An Executor carries the ambient collaborators. Every attempt is logged at
debug level before and after it runs, with the attempt number, elapsed time
and outcome:

	exec := retry.New(
		retry.WithName("billing"),
		retry.WithLogger(logger),
		retry.WithMetrics(metrics.NewRegistry(reg)),
	)
	err := exec.Do(ctx, retry.DefaultPolicy(), charge)

Classifiers:

	retry.AnyError()                  // every failure (the default)
	retry.OnErrors(ErrBusy, ErrStale) // errors.Is membership
	retry.OnType[*net.OpError]()      // errors.As membership
	retry.Any(a, b)                   // union
	retry.Not(retry.OnErrors(ErrNotFound))

The wait and attempt bookkeeping are delegated to github.com/sethvargo/go-retry.
*/
package retry
