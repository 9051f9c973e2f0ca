package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// State is the lifecycle state of a pool
type State int32

const (
	// StateRunning accepts submissions
	StateRunning State = iota
	// StateDraining rejects submissions; queued and in-flight tasks still run
	StateDraining
	// StateTerminated means every worker exited, or the remaining ones were abandoned
	StateTerminated
)

// String returns the lower-case name of the state
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Pool manages a fixed set of workers that execute submitted tasks concurrently.
// Tasks are started in submission order; they may complete in any order.
type Pool struct {
	// workers is the number of concurrent workers
	workers int

	// logger for structured logging
	logger *slog.Logger

	// ctx is the parent of every task context
	ctx    context.Context
	cancel context.CancelFunc

	// mu protects everything below and backs cond
	mu        sync.Mutex
	cond      *sync.Cond
	state     State
	queue     []*Handle
	active    map[*Handle]int
	submitted int
	dropped   int

	// stopCtx, once done, keeps workers from starting anything still queued
	stopCtx context.Context

	wg         sync.WaitGroup
	terminated chan struct{}
}

// NewPool creates a pool and starts its workers.
// workers must be > 0, otherwise it defaults to 1
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}

	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		workers:    workers,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		active:     make(map[*Handle]int),
		terminated: make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	p.logger.Debug("starting workers", "count", workers)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go func() {
		p.wg.Wait()
		p.mu.Lock()
		p.state = StateTerminated
		p.mu.Unlock()
		p.cancel()
		close(p.terminated)
		p.logger.Debug("all workers exited")
	}()

	return p
}

// Submit queues a task and returns its handle.
// Returns ErrPoolClosed once Close has been called and ErrInvalidTask when the
// task has no id or no operation.
func (p *Pool) Submit(task Task) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateRunning {
		return nil, fmt.Errorf("%w: cannot submit task %q", ErrPoolClosed, task.ID)
	}

	if task.ID == "" {
		return nil, fmt.Errorf("%w: task must have an id", ErrInvalidTask)
	}

	if task.Operation == nil {
		return nil, fmt.Errorf("%w: task %q must have an operation", ErrInvalidTask, task.ID)
	}

	h := newHandle(p.ctx, task, p.submitted)
	p.submitted++
	p.queue = append(p.queue, h)
	p.cond.Signal()

	p.logger.Debug("task submitted", "task", task.ID, "input", task.Input, "queued", len(p.queue))

	return h, nil
}

// worker is the worker goroutine that processes queued tasks
func (p *Pool) worker(workerID int) {
	defer p.wg.Done()

	p.logger.Debug("worker started", "worker_id", workerID)

	for {
		h, ok := p.next(workerID)
		if !ok {
			p.logger.Debug("worker finished (no more tasks)", "worker_id", workerID)
			return
		}

		out := p.executeTask(workerID, h)
		h.finish(out)

		p.mu.Lock()
		delete(p.active, h)
		p.mu.Unlock()

		p.logger.Debug("task completed",
			"worker_id", workerID,
			"task", h.task.ID,
			"outcome", out.Kind.String(),
			"duration", out.Duration)
	}
}

// next blocks until a task is queued or the pool stops running with an empty queue
func (p *Pool) next(workerID int) (*Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && p.state == StateRunning {
		p.cond.Wait()
	}

	if len(p.queue) == 0 {
		return nil, false
	}

	h := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	p.active[h] = workerID

	return h, true
}

// executeTask runs a single task and returns its outcome.
// Errors and panics from the operation stay inside the outcome.
func (p *Pool) executeTask(workerID int, h *Handle) (out Outcome) {
	out.WorkerID = workerID

	if cause := p.stopCause(); cause != nil {
		h.Cancel(cause)
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		out.WorkerID = -1
		out.Kind = OutcomeCancelled
		out.Err = fmt.Errorf("task dropped before execution: %w", cause)
		return out
	}

	// Check context before execution
	if h.ctx.Err() != nil {
		cause := context.Cause(h.ctx)
		out.Kind = classify(h.ctx, cause)
		out.Err = fmt.Errorf("task cancelled before execution: %w", cause)
		return out
	}

	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out.Data = nil
			out.Err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
			out.Kind = OutcomeFailure
			out.Duration = time.Since(startTime)
			p.logger.Error("task panicked", "task", h.task.ID, "input", h.task.Input, "panic", r)
		}
	}()

	data, err := h.task.Operation(h.ctx)

	out.Duration = time.Since(startTime)
	out.Data = data
	out.Err = err
	out.Kind = classify(h.ctx, err)

	if err != nil {
		p.logger.Debug("task returned error",
			"task", h.task.ID,
			"error", err,
			"duration", out.Duration)
	}

	return out
}

// classify maps an operation result to an outcome kind using the cancellation cause
func classify(ctx context.Context, err error) OutcomeKind {
	if err == nil {
		return OutcomeSuccess
	}
	if ctx.Err() == nil {
		return OutcomeFailure
	}
	if errors.Is(context.Cause(ctx), ErrTaskTimeout) {
		return OutcomeTimedOut
	}
	return OutcomeCancelled
}

// Close stops accepting submissions and lets workers exit once the queue is empty.
// It returns false if the pool was already closed.
func (p *Pool) Close() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateRunning {
		return false
	}

	p.state = StateDraining
	p.cond.Broadcast()
	p.logger.Info("worker pool draining", "queued", len(p.queue), "active", len(p.active))

	return true
}

// Terminated is closed once every worker goroutine has exited
func (p *Pool) Terminated() <-chan struct{} {
	return p.terminated
}

// StopOn ties the queue to ctx: once ctx is done, queued tasks are dropped as
// cancelled and no worker starts another one. Running tasks are left alone.
// The returned function detaches ctx and reports whether it did so before ctx
// fired.
func (p *Pool) StopOn(ctx context.Context) (stop func() bool) {
	p.mu.Lock()
	p.stopCtx = ctx
	p.mu.Unlock()

	detach := context.AfterFunc(ctx, func() {
		p.CancelPending(interruptCause(ctx))
	})

	return func() bool {
		p.mu.Lock()
		if p.stopCtx == ctx {
			p.stopCtx = nil
		}
		p.mu.Unlock()
		return detach()
	}
}

// stopCause returns the reason queued tasks must not start, or nil
func (p *Pool) stopCause() error {
	p.mu.Lock()
	ctx := p.stopCtx
	p.mu.Unlock()

	if ctx == nil || ctx.Err() == nil {
		return nil
	}
	return interruptCause(ctx)
}

func interruptCause(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
}

// CancelPending removes every queued task, records it as cancelled, and returns
// how many were dropped
func (p *Pool) CancelPending(cause error) int {
	p.mu.Lock()
	dropped := p.queue
	p.queue = nil
	p.dropped += len(dropped)
	p.mu.Unlock()

	for _, h := range dropped {
		h.Cancel(cause)
		h.finish(Outcome{
			Kind:     OutcomeCancelled,
			Err:      fmt.Errorf("task dropped before execution: %w", cause),
			WorkerID: -1,
		})
	}

	if len(dropped) > 0 {
		p.logger.Warn("dropped pending tasks", "count", len(dropped))
	}

	return len(dropped)
}

// CancelRunning cancels the context of every in-flight task and returns how many were signalled
func (p *Pool) CancelRunning(cause error) int {
	running := p.activeHandles()
	for _, h := range running {
		h.Cancel(cause)
	}
	return len(running)
}

// Abandon marks the pool terminated and returns the tasks still in flight.
// Their workers keep running until the operations return; nothing waits for them.
func (p *Pool) Abandon() []*Handle {
	p.mu.Lock()
	p.state = StateTerminated
	p.cond.Broadcast()
	p.mu.Unlock()

	var stuck []*Handle
	for _, h := range p.activeHandles() {
		if !h.IsDone() {
			stuck = append(stuck, h)
		}
	}
	return stuck
}

// activeHandles returns in-flight handles in submission order
func (p *Pool) activeHandles() []*Handle {
	p.mu.Lock()
	handles := make([]*Handle, 0, len(p.active))
	for h := range p.active {
		handles = append(handles, h)
	}
	p.mu.Unlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i].index < handles[j].index })
	return handles
}

// State returns the current lifecycle state
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// WorkerCount returns the number of workers in the pool
func (p *Pool) WorkerCount() int {
	return p.workers
}

// QueuedCount returns the number of tasks waiting for a worker
func (p *Pool) QueuedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// ActiveCount returns the number of tasks currently executing
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// SubmittedCount returns the number of tasks accepted so far
func (p *Pool) SubmittedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submitted
}

// DroppedCount returns the number of tasks removed from the queue without running
func (p *Pool) DroppedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}
