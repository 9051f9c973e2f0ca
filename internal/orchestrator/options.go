package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/aryankumar/linemill/internal/mirror"
	"github.com/aryankumar/linemill/internal/util"
)

// Defaults used by Run and by the CLI
const (
	DefaultInputRoot      = "in"
	DefaultOutputRoot     = "out"
	DefaultPoolSize       = 6
	DefaultPerTaskTimeout = 2 * time.Minute
	DefaultGracefulWindow = time.Minute
	DefaultForcedWindow   = 30 * time.Second
)

// Options configures a run
type Options struct {
	InputRoot  string
	OutputRoot string
	PoolSize   int

	// PerTaskTimeout bounds the wait for each task's outcome; <= 0 disables it
	PerTaskTimeout time.Duration
	// GracefulWindow is how long the drain waits before forcing cancellation
	GracefulWindow time.Duration
	// ForcedWindow is how long the drain waits after forcing before abandoning tasks
	ForcedWindow time.Duration

	// Extension selects input files by suffix, ignoring case
	Extension string
	// Transform names the per-line transform
	Transform string

	// MetricsFile, when set, receives the run metrics in Prometheus textfile format
	MetricsFile string
}

// DefaultOptions returns options with every default applied
func DefaultOptions() Options {
	return Options{
		InputRoot:      DefaultInputRoot,
		OutputRoot:     DefaultOutputRoot,
		PoolSize:       DefaultPoolSize,
		PerTaskTimeout: DefaultPerTaskTimeout,
		GracefulWindow: DefaultGracefulWindow,
		ForcedWindow:   DefaultForcedWindow,
		Extension:      mirror.DefaultExtension,
		Transform:      mirror.DefaultTransform,
	}
}

// Validate checks option values that do not touch the filesystem.
// Every failure is returned as a util.SetupError.
func (o Options) Validate() error {
	errs := &util.MultiError{}

	if o.PoolSize < 1 {
		errs.Add(util.NewValidationError("pool_size", o.PoolSize, "must be at least 1"))
	}
	if o.InputRoot == "" {
		errs.Add(util.NewValidationError("input_root", o.InputRoot, "must not be empty"))
	}
	if o.OutputRoot == "" {
		errs.Add(util.NewValidationError("output_root", o.OutputRoot, "must not be empty"))
	}
	if o.GracefulWindow < 0 {
		errs.Add(util.NewValidationError("graceful_window", o.GracefulWindow, "must not be negative"))
	}
	if o.ForcedWindow < 0 {
		errs.Add(util.NewValidationError("forced_window", o.ForcedWindow, "must not be negative"))
	}
	if o.Extension != "" && !strings.HasPrefix(o.Extension, ".") {
		errs.Add(util.NewValidationError("extension", o.Extension, "must start with '.'"))
	}
	if _, err := mirror.LookupTransform(o.Transform); err != nil {
		errs.Add(util.NewValidationError("transform", o.Transform, err.Error()))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return util.NewSetupError("validate options", "", fmt.Errorf("%w: %w", util.ErrInvalidConfig, err))
	}
	return nil
}
