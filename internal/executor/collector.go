package executor

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Report aggregates outcome counts for one batch of handles
type Report struct {
	Submitted   int
	Succeeded   int
	Failed      int
	Abandoned   int
	Interrupted bool
}

// Accounted returns the number of tasks with a recorded verdict
func (r Report) Accounted() int {
	return r.Succeeded + r.Failed + r.Abandoned
}

// Collector waits on task handles with a per-task bound and tallies their outcomes.
// A Collector is used by a single goroutine for one batch.
type Collector struct {
	timeout  time.Duration
	logger   *slog.Logger
	progress func(completed, total int)

	report   Report
	outcomes []Outcome

	// provisional handles were counted as failed without a terminal outcome
	provisional []pendingVerdict
	// unvisited handles were never waited on because collection was interrupted
	unvisited []*Handle
	abandoned []Task
	settled   bool
}

// pendingVerdict is a failure counted before the task reached a terminal outcome
type pendingVerdict struct {
	handle *Handle
	kind   OutcomeKind
	err    error
}

// NewCollector creates a collector that waits at most timeout for each task.
// A timeout <= 0 waits without a bound.
func NewCollector(timeout time.Duration, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		timeout: timeout,
		logger:  logger,
	}
}

// OnProgress registers a callback invoked after each handle is accounted for
func (c *Collector) OnProgress(fn func(completed, total int)) {
	c.progress = fn
}

// Collect waits on each handle in order and returns the partial report.
// A handle that times out is counted as failed and cancelled; collection moves on.
// If ctx is cancelled, the in-flight wait counts as a failure and collection stops.
func (c *Collector) Collect(ctx context.Context, handles []*Handle) Report {
	c.report.Submitted += len(handles)
	total := len(handles)

	for i, h := range handles {
		out, err := h.Wait(ctx, c.timeout)

		switch {
		case err == nil:
			c.record(out)

		case errors.Is(err, ErrTaskTimeout):
			c.report.Failed++
			c.provisional = append(c.provisional, pendingVerdict{handle: h, kind: OutcomeTimedOut, err: err})
			h.Cancel(ErrTaskTimeout)
			c.logger.Error("timeout waiting for task result; cancelling",
				"task", h.task.ID,
				"input", h.task.Input,
				"timeout", c.timeout)

		default:
			c.report.Failed++
			c.report.Interrupted = true
			c.provisional = append(c.provisional, pendingVerdict{handle: h, kind: OutcomeCancelled, err: err})
			c.unvisited = append(c.unvisited, handles[i+1:]...)
			c.logger.Error("interrupted waiting for tasks",
				"task", h.task.ID,
				"remaining", len(handles)-i-1,
				"error", err)
			return c.report
		}

		if c.progress != nil {
			c.progress(i+1, total)
		}
	}

	return c.report
}

// record tallies a terminal outcome observed during collection
func (c *Collector) record(out Outcome) {
	c.outcomes = append(c.outcomes, out)

	if out.OK() {
		c.report.Succeeded++
		return
	}

	c.report.Failed++
	c.logger.Error("task failed",
		"task", out.TaskID,
		"input", out.Input,
		"outcome", out.Kind.String(),
		"error", out.Err)
}

// Settle finalizes the report after the pool has been drained.
// Provisional failures that are still running, or were abandoned by the drain,
// become abandoned. A task whose wait was interrupted is counted by its own
// outcome, as are unvisited handles. A timed-out task keeps its verdict even if
// the operation later succeeded; that outcome is marked Late.
func (c *Collector) Settle(abandoned []*Handle) Report {
	if c.settled {
		return c.report
	}
	c.settled = true

	gone := make(map[*Handle]bool, len(abandoned))
	for _, h := range abandoned {
		gone[h] = true
	}

	for _, p := range c.provisional {
		h := p.handle
		if gone[h] || !h.IsDone() {
			c.report.Failed--
			c.abandon(h)
			continue
		}

		out, _ := h.Outcome()
		if p.kind == OutcomeCancelled {
			c.report.Failed--
			c.record(out)
			continue
		}

		if out.OK() {
			out.Kind = p.kind
			out.Err = p.err
			out.Late = true
			c.logger.Warn("task finished after its timeout; output kept",
				"task", h.task.ID,
				"input", h.task.Input)
		}
		c.outcomes = append(c.outcomes, out)
	}

	for _, h := range c.unvisited {
		if gone[h] || !h.IsDone() {
			c.abandon(h)
			continue
		}
		out, _ := h.Outcome()
		c.record(out)
	}

	return c.report
}

func (c *Collector) abandon(h *Handle) {
	c.report.Abandoned++
	c.abandoned = append(c.abandoned, h.task)
	c.logger.Error("task abandoned", "task", h.task.ID, "input", h.task.Input, "error", ErrAbandoned)
}

// AbandonedTasks returns the tasks counted as abandoned by Settle
func (c *Collector) AbandonedTasks() []Task {
	tasks := make([]Task, len(c.abandoned))
	copy(tasks, c.abandoned)
	return tasks
}

// Report returns the report accumulated so far
func (c *Collector) Report() Report {
	return c.report
}

// Outcomes returns the terminal outcomes observed, in the order they were accounted
func (c *Collector) Outcomes() []Outcome {
	outcomes := make([]Outcome, len(c.outcomes))
	copy(outcomes, c.outcomes)
	return outcomes
}
