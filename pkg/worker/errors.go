package worker

import "errors"

// Lifecycle and submission errors. Callers submitting refresh jobs treat
// ErrQueueFull and ErrPoolStopped as drop signals; the next tick resubmits.
var (
	// ErrPoolNotStarted is returned by Submit before Start has run.
	ErrPoolNotStarted = errors.New("worker pool not started")

	// ErrPoolStopped is returned by Submit once the pool has shut down.
	ErrPoolStopped = errors.New("worker pool stopped")

	// ErrPoolAlreadyStarted is returned by a second Start on a running pool.
	ErrPoolAlreadyStarted = errors.New("worker pool already started")

	// ErrQueueFull is returned by Submit when the job queue is at capacity.
	ErrQueueFull = errors.New("worker pool queue full")

	// ErrNilProcessor reports a pool constructed without a job processor.
	ErrNilProcessor = errors.New("processor function cannot be nil")

	// ErrStopTimeout reports in-flight jobs that did not drain before the
	// Stop deadline. The pool is stopped regardless.
	ErrStopTimeout = errors.New("timeout waiting for workers to stop")
)
