package executor

import "errors"

var (
	// ErrPoolClosed is returned by Submit once shutdown has begun
	ErrPoolClosed = errors.New("pool closed")

	// ErrInvalidTask is returned by Submit for a task without an id or operation
	ErrInvalidTask = errors.New("invalid task")

	// ErrTaskTimeout is the cancellation cause of a task whose outcome was not
	// available within the per-task timeout
	ErrTaskTimeout = errors.New("task timed out")

	// ErrForcedShutdown is the cancellation cause used by the forced drain phase
	ErrForcedShutdown = errors.New("forced shutdown")

	// ErrAbandoned marks a task still running when the forced window elapsed
	ErrAbandoned = errors.New("task abandoned")

	// ErrInterrupted is returned when the waiting side was asked to stop
	ErrInterrupted = errors.New("interrupted")

	// ErrTaskPanic wraps a panic recovered from a task operation
	ErrTaskPanic = errors.New("task panicked")
)
