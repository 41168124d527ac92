// Package errors provides standardized error handling for the insight engine.
//
// # Error Classification
//
// Errors are classified into three categories that drive the engine's
// propagation policy:
//
//   - Transient: temporary failures that may be retried (analyzer hiccups,
//     storage blips, rate limits). The orchestrator compensates for these
//     with empty contributions and keeps going.
//   - Invalid: bad input or configuration (malformed cache keys, invalid
//     regex patterns, profile records failing schema validation). These are
//     skipped or rejected, never retried.
//   - Fatal: unrecoverable conditions (corrupted data, missing required
//     configuration) that should stop processing.
//
// # Propagation Policy
//
// The engine is fail-soft everywhere except entity resolution: only
// ErrEntityNotFound (checked via IsNotFound) may surface to callers of the
// public analytics API. Construct it with NotFound:
//
//	if !known {
//	    return errors.NotFound(entityID, "Orchestrator", "GetAnalytics")
//	}
//
// All other failures are wrapped with context and logged at the failure site:
//
//	if err := store.Put(ctx, key, data); err != nil {
//	    return errors.WrapTransient(err, "ProfileStore", "Save", "persist profiles")
//	}
//
// # Wrapping
//
// Wrap helpers follow the pattern "component.method: action failed: %w" so
// errors.Is / errors.As keep working through the chain:
//
//	err := errors.WrapInvalid(errors.ErrInvalidData, "cache", "Set", "empty key")
//	errors.IsInvalid(err) // true
//
// # Retry Integration
//
// RetryConfig bridges classification into the pkg/retry framework:
//
//	cfg := errors.DefaultRetryConfig()
//	retry.Do(ctx, cfg.ToRetryConfig(), func() error { return op() })
package errors
