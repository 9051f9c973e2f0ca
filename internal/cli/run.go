package cli

import (
	"errors"
	"fmt"

	"github.com/aryankumar/linemill/internal/config"
	"github.com/aryankumar/linemill/internal/orchestrator"
	"github.com/aryankumar/linemill/internal/output"
	"github.com/aryankumar/linemill/internal/util"
	"github.com/spf13/cobra"
)

// ErrTasksFailed is returned by the run command when the report contains
// failed or abandoned tasks
var ErrTasksFailed = errors.New("one or more files were not processed")

// tasksFailedError carries the report counts and maps to exit status 1
type tasksFailedError struct {
	failed    int
	abandoned int
	submitted int
}

func (e *tasksFailedError) Error() string {
	return fmt.Sprintf("%s: %d of %d failed, %d abandoned", ErrTasksFailed, e.failed, e.submitted, e.abandoned)
}

func (e *tasksFailedError) Unwrap() error { return ErrTasksFailed }

func (e *tasksFailedError) ExitCode() int { return util.ExitTaskFailures }

// newRunCmd creates the run command
func newRunCmd(st *state) *cobra.Command {
	var wide bool

	cmd := &cobra.Command{
		Use:   "run [input] [output]",
		Short: "Mirror the input tree into the output tree",
		Long: `Transform every matching file under the input directory line by line and
write the result to the same relative path under the output directory.

The input and output directories default to the values in the configuration
file, or "in" and "out". Existing output files are overwritten.

On SIGINT or SIGTERM queued files are dropped, running files get the graceful
window to finish, then are cancelled and get the forced window before being
abandoned. A second signal exits immediately.

Exit status is 0 when every file succeeded, 1 when some files failed or were
abandoned, and 2 when the run could not start.`,
		Example: `  # Upper-case every .txt file under ./in into ./out with 6 workers
  linemill run

  # Lower-case .log files with 16 workers and a 30s per-file timeout
  linemill run logs/ logs-lower/ --ext .log --transform lower -p 16 --task-timeout 30s

  # Print the report as JSON
  linemill run in out -o json`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(cmd, st, args, wide)
		},
	}

	cmd.Flags().IntP("parallel", "p", config.DefaultParallel, "number of concurrent workers")
	cmd.Flags().String("ext", config.DefaultExtension, "extension of input files, matched case-insensitively")
	cmd.Flags().String("transform", config.DefaultTransform, "line transform (identity, lower, title, upper)")
	cmd.Flags().Duration("task-timeout", config.DefaultTaskTimeout, "per-file timeout (0 disables it)")
	cmd.Flags().Duration("graceful-window", config.DefaultGracefulWindow, "time running files get to finish on shutdown")
	cmd.Flags().Duration("forced-window", config.DefaultForcedWindow, "time cancelled files get to stop before being abandoned")
	cmd.Flags().String("metrics-file", "", "write Prometheus textfile metrics to this path")
	cmd.Flags().BoolVar(&wide, "wide", false, "show full errors and run details in table output")

	return cmd
}

// runMirror executes one mirroring run and prints its report
func runMirror(cmd *cobra.Command, st *state, args []string, wide bool) error {
	cfg := st.config

	opts := orchestrator.Options{
		InputRoot:      cfg.Run.Input,
		OutputRoot:     cfg.Run.Output,
		PoolSize:       cfg.Run.Parallel,
		PerTaskTimeout: cfg.Run.TaskTimeout,
		GracefulWindow: cfg.Run.GracefulWindow,
		ForcedWindow:   cfg.Run.ForcedWindow,
		Extension:      cfg.Run.Extension,
		Transform:      cfg.Run.Transform,
		MetricsFile:    cfg.Run.MetricsFile,
	}
	if len(args) > 0 {
		opts.InputRoot = args[0]
	}
	if len(args) > 1 {
		opts.OutputRoot = args[1]
	}

	format, ok := output.ParseFormat(cfg.Output.Format)
	if !ok {
		return fmt.Errorf("%w: unsupported output format %q", util.ErrInvalidConfig, cfg.Output.Format)
	}

	report, err := orchestrator.New(opts, st.logger).Run(cmd.Context())
	if err != nil {
		return err
	}

	formatter := output.NewFormatter(format,
		output.WithNoColor(cfg.Output.NoColor),
		output.WithWide(wide),
	)
	if err := formatter.FormatReport(cmd.OutOrStdout(), report); err != nil {
		return fmt.Errorf("failed to print report: %w", err)
	}

	if !report.OK() {
		return &tasksFailedError{
			failed:    report.Failed,
			abandoned: report.Abandoned,
			submitted: report.Submitted,
		}
	}
	return nil
}
