// Package retry provides exponential backoff retry logic with jitter.
//
// The package is deliberately small: a Config describing the backoff curve,
// a Do function that runs an operation under that config, and a generic
// DoWithResult variant for operations returning a value.
//
// Basic usage:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return store.Put(ctx, key, data)
//	})
//
// With a result:
//
//	entry, err := retry.DoWithResult(ctx, retry.Quick(), func() ([]byte, error) {
//	    return store.Get(ctx, key)
//	})
//
// Errors that should never be retried (validation failures, not-found
// conditions) are wrapped with NonRetryable so Do fails fast:
//
//	return retry.NonRetryable(errors.ErrProfileInvalid)
//
// Jitter adds up to 25% randomness to each delay to prevent thundering-herd
// behavior when many callers retry against the same backend.
package retry
