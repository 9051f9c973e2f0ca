// Package orchestrator runs one mirroring job end to end: it validates the
// roots, discovers input files, runs one task per file on a bounded pool,
// drains the pool and returns a report in which every task has exactly one
// verdict.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aryankumar/linemill/internal/executor"
	"github.com/aryankumar/linemill/internal/metrics"
	"github.com/aryankumar/linemill/internal/mirror"
	"github.com/aryankumar/linemill/internal/util"
)

// DiscoverFunc lists the input files under root
type DiscoverFunc func(ctx context.Context, root string, match mirror.Matcher) ([]string, error)

// OperationFactory builds the task operation for one input file
type OperationFactory func(input string, processor *mirror.Processor) executor.Operation

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithDiscover replaces file discovery
func WithDiscover(fn DiscoverFunc) Option {
	return func(o *Orchestrator) {
		o.discover = fn
	}
}

// WithOperation replaces the per-file operation
func WithOperation(fn OperationFactory) Option {
	return func(o *Orchestrator) {
		o.operation = fn
	}
}

// WithTransitionHook observes every drain phase change
func WithTransitionHook(fn func(executor.Transition)) Option {
	return func(o *Orchestrator) {
		o.onTransition = fn
	}
}

// Orchestrator wires discovery, the worker pool, the collector and the drain together
type Orchestrator struct {
	opts   Options
	logger *slog.Logger

	discover     DiscoverFunc
	operation    OperationFactory
	onTransition func(executor.Transition)
}

// New creates an orchestrator for opts
func New(opts Options, logger *slog.Logger, options ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		opts:      opts,
		logger:    logger,
		discover:  mirror.Discover,
		operation: processFile,
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Run mirrors inputRoot into outputRoot with poolSize workers and default windows
func Run(ctx context.Context, inputRoot, outputRoot string, poolSize int) (*Report, error) {
	opts := DefaultOptions()
	opts.InputRoot = inputRoot
	opts.OutputRoot = outputRoot
	opts.PoolSize = poolSize
	return New(opts, nil).Run(ctx)
}

// processFile is the default operation: transform one file through the processor
func processFile(input string, processor *mirror.Processor) executor.Operation {
	return func(ctx context.Context) (interface{}, error) {
		res, err := processor.Process(ctx, input)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
}

// Run executes the job.
// It returns an error only for setup failures; once tasks were submitted the
// report is always returned, even when ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	startedAt := time.Now()
	runID := uuid.New()
	logger := o.logger.With("run_id", runID.String())

	if err := o.opts.Validate(); err != nil {
		return nil, err
	}
	transform, err := mirror.LookupTransform(o.opts.Transform)
	if err != nil {
		return nil, util.NewSetupError("resolve transform", "", err)
	}

	if err := o.prepareRoots(); err != nil {
		return nil, err
	}

	files, err := o.discover(ctx, o.opts.InputRoot, mirror.ExtensionMatcher(o.opts.Extension))
	if err != nil {
		return nil, util.NewSetupError("discover inputs", o.opts.InputRoot, err)
	}

	logger.Info("starting run",
		"input", o.opts.InputRoot,
		"output", o.opts.OutputRoot,
		"files", len(files),
		"workers", o.opts.PoolSize)

	recorder := metrics.NewRecorder(metrics.NewCounter())
	processor := mirror.NewProcessor(
		mirror.NewSink(o.opts.InputRoot, o.opts.OutputRoot),
		transform,
		recorder.Lines(),
		logger,
	)

	pool := executor.NewPool(o.opts.PoolSize, logger)
	stop := pool.StopOn(ctx)
	defer stop()

	handles := make([]*executor.Handle, 0, len(files))
	for _, file := range files {
		h, err := pool.Submit(executor.Task{
			ID:        uuid.NewSHA1(runID, []byte(file)).String(),
			Input:     file,
			Operation: o.operation(file, processor),
		})
		if err != nil {
			logger.Error("failed to submit task", "input", file, "error", err)
			continue
		}
		handles = append(handles, h)
	}

	collector := executor.NewCollector(o.opts.PerTaskTimeout, logger)
	collector.OnProgress(func(completed, total int) {
		logger.Debug("progress", "completed", completed, "total", total)
	})
	collector.Collect(ctx, handles)

	coordinator := executor.NewCoordinator(pool, o.opts.GracefulWindow, o.opts.ForcedWindow, logger)
	if o.onTransition != nil {
		coordinator.OnTransition(o.onTransition)
	}
	drain := coordinator.Drain()

	final := collector.Settle(drain.Abandoned)
	if ctx.Err() != nil {
		final.Interrupted = true
	}
	report := o.buildReport(runID.String(), startedAt, final, drain, pool.DroppedCount(), collector, recorder)

	if err := recorder.WriteTextfile(o.opts.MetricsFile); err != nil {
		logger.Warn("failed to write metrics", "path", o.opts.MetricsFile, "error", err)
	}

	logger.Info("run complete",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"abandoned", report.Abandoned,
		"dropped", report.Dropped,
		"lines", report.UnitsProcessed,
		"duration", report.Duration)
	logger.Debug("task summary", "summary", executor.Summarize(collector.Outcomes()).String())

	return report, nil
}

// prepareRoots checks the input root and creates the output root
func (o *Orchestrator) prepareRoots() error {
	in := o.opts.InputRoot
	info, err := os.Stat(in)
	if err != nil {
		return util.NewSetupError("open input root", in, fmt.Errorf("%w: %w", util.ErrInvalidInputRoot, err))
	}
	if !info.IsDir() {
		return util.NewSetupError("open input root", in, fmt.Errorf("%w: not a directory", util.ErrInvalidInputRoot))
	}

	out := o.opts.OutputRoot
	info, err = os.Stat(out)
	switch {
	case err == nil && !info.IsDir():
		return util.NewSetupError("create output root", out, util.ErrOutputNotDirectory)
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return util.NewSetupError("create output root", out, fmt.Errorf("%w: %w", util.ErrOutputUncreatable, err))
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		return util.NewSetupError("create output root", out, fmt.Errorf("%w: %w", util.ErrOutputUncreatable, err))
	}
	return nil
}

func (o *Orchestrator) buildReport(
	runID string,
	startedAt time.Time,
	final executor.Report,
	drain executor.DrainResult,
	dropped int,
	collector *executor.Collector,
	recorder *metrics.Recorder,
) *Report {
	outcomes := collector.Outcomes()
	for _, out := range outcomes {
		recorder.ObserveTask(out.Kind.String(), out.Duration, out.WorkerID >= 0)
	}
	recorder.ObserveAbandoned(final.Abandoned)
	recorder.Finish(time.Now())

	var failures []Failure
	for _, out := range executor.FilterFailed(outcomes) {
		msg := ""
		if out.Err != nil {
			msg = out.Err.Error()
		}
		if out.Late {
			msg += "; output was committed after the timeout"
		}
		failures = append(failures, Failure{
			Input:     out.Input,
			Outcome:   out.Kind.String(),
			Error:     msg,
			Committed: out.Late,
		})
	}
	for _, task := range collector.AbandonedTasks() {
		failures = append(failures, Failure{Input: task.Input, Outcome: OutcomeAbandoned, Error: executor.ErrAbandoned.Error()})
	}

	byOutcome := make(map[string]int)
	for kind, n := range executor.CountByKind(outcomes) {
		byOutcome[kind.String()] = n
	}
	if final.Abandoned > 0 {
		byOutcome[OutcomeAbandoned] = final.Abandoned
	}

	phases := make([]string, 0, len(drain.Transitions)+1)
	for _, p := range drain.Phases() {
		phases = append(phases, p.String())
	}

	return &Report{
		RunID:          runID,
		InputRoot:      filepath.Clean(o.opts.InputRoot),
		OutputRoot:     filepath.Clean(o.opts.OutputRoot),
		PoolSize:       o.opts.PoolSize,
		Submitted:      final.Submitted,
		Succeeded:      final.Succeeded,
		Failed:         final.Failed,
		Abandoned:      final.Abandoned,
		Dropped:        dropped,
		ByOutcome:      byOutcome,
		UnitsProcessed: recorder.Lines().Value(),
		Interrupted:    final.Interrupted,
		Unresponsive:   drain.Unresponsive,
		DrainPhases:    phases,
		StartedAt:      startedAt,
		Duration:       time.Since(startedAt),
		Latency:        recorder.Latency(),
		Failures:       failures,
	}
}
