// Package retry runs fallible operations a bounded number of times.
package retry

import "context"

// WarnFunc is called after a failed attempt that will be retried.
// Attempts are numbered from 1.
type WarnFunc func(attempt int, err error)

// Do calls op up to attempts times and returns the first successful result.
// Attempts run back to back. After the last failure the error of that attempt
// is returned. A cancelled context stops further attempts and the last
// operation error is returned. Values below 1 are treated as a single attempt.
func Do[T any](ctx context.Context, attempts int, op func(ctx context.Context) (T, error), warn WarnFunc) (T, error) {
	if attempts < 1 {
		attempts = 1
	}

	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err = op(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == attempts || ctx.Err() != nil {
			break
		}
		if warn != nil {
			warn(attempt, err)
		}
	}

	var zero T
	return zero, err
}
