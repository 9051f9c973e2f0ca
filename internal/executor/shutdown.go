package executor

import (
	"fmt"
	"log/slog"
	"time"
)

// Phase is a state of the drain state machine
type Phase int

const (
	// PhaseRunning is the initial phase; the pool still accepts submissions
	PhaseRunning Phase = iota
	// PhaseDraining waits for in-flight and queued tasks to finish naturally
	PhaseDraining
	// PhaseForcing cancels everything left and waits for cancellation to take effect
	PhaseForcing
	// PhaseTerminated is final
	PhaseTerminated
)

// String returns the lower-case name of the phase
func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseForcing:
		return "forcing"
	case PhaseTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Transition records one step of a drain
type Transition struct {
	From Phase
	To   Phase
	At   time.Time
}

// DrainResult describes how a drain ended
type DrainResult struct {
	// Transitions lists every phase change in order
	Transitions []Transition

	// Forced is true when the graceful window elapsed with work outstanding
	Forced bool

	// Dropped is the number of queued tasks cancelled before they started
	Dropped int

	// Signalled is the number of in-flight tasks whose context was cancelled
	Signalled int

	// Abandoned lists tasks still running after the forced window
	Abandoned []*Handle

	// Unresponsive is true when some task ignored cancellation
	Unresponsive bool

	// Duration is the total time spent draining
	Duration time.Duration
}

// Phases returns the sequence of phases visited, starting with PhaseRunning
func (r DrainResult) Phases() []Phase {
	if len(r.Transitions) == 0 {
		return nil
	}
	phases := []Phase{r.Transitions[0].From}
	for _, t := range r.Transitions {
		phases = append(phases, t.To)
	}
	return phases
}

// Coordinator drains a pool in two phases: a graceful window in which accepted
// tasks may finish, then forced cancellation with a bounded wait.
type Coordinator struct {
	pool     *Pool
	graceful time.Duration
	forced   time.Duration
	logger   *slog.Logger

	onTransition func(Transition)
}

// NewCoordinator creates a coordinator for pool with the given windows
func NewCoordinator(pool *Pool, graceful, forced time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		pool:     pool,
		graceful: graceful,
		forced:   forced,
		logger:   logger,
	}
}

// OnTransition registers a hook called synchronously for every phase change
func (c *Coordinator) OnTransition(fn func(Transition)) {
	c.onTransition = fn
}

// Drain runs the state machine to PhaseTerminated.
// It returns once every task finished or, at the latest, after both windows elapsed.
func (c *Coordinator) Drain() DrainResult {
	start := time.Now()
	var res DrainResult

	phase := PhaseRunning
	for phase != PhaseTerminated {
		next := c.step(phase, &res)

		t := Transition{From: phase, To: next, At: time.Now()}
		res.Transitions = append(res.Transitions, t)
		if c.onTransition != nil {
			c.onTransition(t)
		}
		c.logger.Debug("drain transition", "from", phase.String(), "to", next.String())

		phase = next
	}

	res.Duration = time.Since(start)
	return res
}

// step performs the work of one phase and returns the next phase
func (c *Coordinator) step(phase Phase, res *DrainResult) Phase {
	switch phase {
	case PhaseRunning:
		c.pool.Close()
		return PhaseDraining

	case PhaseDraining:
		if c.await(c.graceful) {
			return PhaseTerminated
		}
		c.logger.Warn("timeout waiting for workers, forcing shutdown",
			"graceful_window", c.graceful,
			"queued", c.pool.QueuedCount(),
			"active", c.pool.ActiveCount())
		return PhaseForcing

	case PhaseForcing:
		res.Forced = true
		res.Dropped = c.pool.CancelPending(ErrForcedShutdown)
		res.Signalled = c.pool.CancelRunning(ErrForcedShutdown)

		if c.await(c.forced) {
			return PhaseTerminated
		}

		res.Abandoned = c.pool.Abandon()
		res.Unresponsive = len(res.Abandoned) > 0
		c.logger.Error("workers did not terminate after forced shutdown",
			"forced_window", c.forced,
			"abandoned", len(res.Abandoned),
			"error", ErrAbandoned)
		return PhaseTerminated

	default:
		return PhaseTerminated
	}
}

// await waits up to window for the pool to terminate and reports whether it did
func (c *Coordinator) await(window time.Duration) bool {
	select {
	case <-c.pool.Terminated():
		return true
	default:
	}

	if window <= 0 {
		return false
	}

	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case <-c.pool.Terminated():
		return true
	case <-timer.C:
		return false
	}
}
