package executor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Operation is the work a task performs.
// It must poll ctx and return promptly once ctx is done; an operation that
// ignores ctx can only be abandoned by the pool, never stopped.
type Operation func(ctx context.Context) (interface{}, error)

// Task represents a unit of work to be executed by the worker pool
type Task struct {
	// ID identifies the task in logs and outcomes
	ID string

	// Input is the source locator the task works on
	Input string

	// Operation is the function run for this task
	Operation Operation
}

// OutcomeKind is the terminal state of a task
type OutcomeKind int

const (
	// OutcomeSuccess means the operation returned without error
	OutcomeSuccess OutcomeKind = iota
	// OutcomeFailure means the operation returned an error
	OutcomeFailure
	// OutcomeTimedOut means the operation was cancelled after its wait timed out
	OutcomeTimedOut
	// OutcomeCancelled means the task was cancelled by a forced drain, possibly before it started
	OutcomeCancelled
)

// String returns the lower-case name of the kind
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome represents the result of executing a task
type Outcome struct {
	// TaskID and Input identify the task this outcome belongs to
	TaskID string
	Input  string

	// Kind is the terminal state
	Kind OutcomeKind

	// Data contains the successful result data (nil if error occurred)
	Data interface{}

	// Err contains any error that occurred during execution (nil if successful)
	Err error

	// Duration is how long the operation ran (zero if it never started)
	Duration time.Duration

	// WorkerID is the worker that ran the task, or -1 if it never started
	WorkerID int

	// Late is set on a timed-out outcome whose operation went on to succeed.
	// Data then holds what the operation returned.
	Late bool
}

// OK reports whether the task succeeded
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Handle tracks a submitted task until it reaches a terminal outcome
type Handle struct {
	task  Task
	index int

	ctx    context.Context
	cancel context.CancelCauseFunc

	done     chan struct{}
	once     sync.Once
	outcome  Outcome
	submitAt time.Time
}

func newHandle(parent context.Context, task Task, index int) *Handle {
	ctx, cancel := context.WithCancelCause(parent)
	return &Handle{
		task:     task,
		index:    index,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		submitAt: time.Now(),
	}
}

// Task returns the task this handle tracks
func (h *Handle) Task() Task {
	return h.task
}

// Index returns the submission order of the task, starting at 0
func (h *Handle) Index() int {
	return h.index
}

// Done is closed once the task has a terminal outcome
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// IsDone reports whether the task has a terminal outcome
func (h *Handle) IsDone() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Outcome returns the terminal outcome and true, or a zero Outcome and false if
// the task is still pending or running
func (h *Handle) Outcome() (Outcome, bool) {
	if !h.IsDone() {
		return Outcome{}, false
	}
	return h.outcome, true
}

// Cancel requests cancellation of this task only.
// The cause is visible to the operation through context.Cause.
func (h *Handle) Cancel(cause error) {
	h.cancel(cause)
}

// Wait blocks until the task is done, timeout elapses, or ctx is cancelled.
// A timeout <= 0 waits without a bound.
func (h *Handle) Wait(ctx context.Context, timeout time.Duration) (Outcome, error) {
	// Prefer an already available outcome over a racing timer or cancellation
	if out, ok := h.Outcome(); ok {
		return out, nil
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-h.done:
		return h.outcome, nil
	case <-expired:
		return Outcome{}, fmt.Errorf("%w after %s", ErrTaskTimeout, timeout)
	case <-ctx.Done():
		return Outcome{}, fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
	}
}

// finish records the outcome exactly once and releases waiters
func (h *Handle) finish(out Outcome) bool {
	finished := false
	h.once.Do(func() {
		out.TaskID = h.task.ID
		out.Input = h.task.Input
		h.outcome = out
		close(h.done)
		finished = true
	})
	// Release the context's resources; the cause recorded earlier is kept
	h.cancel(nil)
	return finished
}
