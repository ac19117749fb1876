package retry

import (
	"errors"
	"time"

	"github.com/vnykmshr/taskrun/pkg/common/validation"
)

// Default policy values.
const (
	DefaultTries = 2
	DefaultPause = 15 * time.Second
)

// Classifier reports whether a failure should trigger another attempt.
// Failures it rejects end the loop immediately and are returned unwrapped.
type Classifier func(err error) bool

// Policy describes how many times an operation may run and how long to wait
// between attempts.
type Policy struct {
	// Tries is the total number of attempts, including the first one.
	Tries int

	// Pause is the fixed delay between a failed attempt and the next one.
	Pause time.Duration

	// Retryable decides which failures are retried. Nil means AnyError.
	Retryable Classifier
}

// DefaultPolicy returns two tries, a 15 second pause, and every error retryable.
func DefaultPolicy() Policy {
	return Policy{
		Tries:     DefaultTries,
		Pause:     DefaultPause,
		Retryable: AnyError(),
	}
}

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	if err := validation.ValidatePositive("retry", "tries", p.Tries); err != nil {
		return err
	}
	return validation.ValidateNonNegativeDuration("retry", "pause", p.Pause)
}

func (p Policy) classify(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// AnyError treats every failure as retryable.
func AnyError() Classifier {
	return func(error) bool { return true }
}

// OnErrors retries failures that match any of targets with errors.Is.
func OnErrors(targets ...error) Classifier {
	return func(err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

// OnType retries failures whose chain contains an error of type E.
func OnType[E error]() Classifier {
	return func(err error) bool {
		var target E
		return errors.As(err, &target)
	}
}

// Any combines classifiers; a failure is retryable if any of them accepts it.
func Any(classifiers ...Classifier) Classifier {
	return func(err error) bool {
		for _, c := range classifiers {
			if c != nil && c(err) {
				return true
			}
		}
		return false
	}
}

// Not inverts a classifier, e.g. Not(OnErrors(ErrNotFound)) retries
// everything except not-found.
func Not(c Classifier) Classifier {
	return func(err error) bool {
		return !c(err)
	}
}
