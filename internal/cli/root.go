package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/aryankumar/linemill/internal/config"
	"github.com/spf13/cobra"
)

// state carries what PersistentPreRunE resolves to the subcommands
type state struct {
	cfgFile string
	manager *config.Manager
	config  *config.Config
	logger  *slog.Logger

	// logCloser releases the rotated log file, if one was opened
	logCloser io.Closer
}

func (s *state) close() {
	if s.logCloser != nil {
		s.logCloser.Close()
		s.logCloser = nil
	}
}

// flagBindings maps configuration keys to the flags that override them.
// Flags missing from a command are skipped.
var flagBindings = map[string]string{
	"run.parallel":       "parallel",
	"run.extension":      "ext",
	"run.transform":      "transform",
	"run.taskTimeout":    "task-timeout",
	"run.gracefulWindow": "graceful-window",
	"run.forcedWindow":   "forced-window",
	"run.metricsFile":    "metrics-file",
	"log.format":         "log-format",
	"log.file":           "log-file",
	"output.format":      "output",
	"output.noColor":     "no-color",
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	cmd, st := newRootCmd()
	defer st.close()
	return cmd.ExecuteContext(ctx)
}

// newRootCmd creates the root command
func newRootCmd() (*cobra.Command, *state) {
	st := &state{}

	rootCmd := &cobra.Command{
		Use:   "linemill",
		Short: "linemill - mirror a directory of text files through a line transform",
		Long: `linemill walks an input directory, transforms every line of each matching
text file with a bounded pool of workers and writes the results to the same
relative paths under an output directory.

Failures of individual files never stop the run; a report of every file that
did not succeed is printed at the end.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, st)
		},
	}

	// Define persistent flags
	rootCmd.PersistentFlags().StringVar(&st.cfgFile, "config", "", "config file (default is $HOME/.linemill/config.yaml or $HOME/.linemill.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", config.DefaultOutputFormat, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output with debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "log format (text, json)")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file, rotated by size")

	// Add subcommands
	rootCmd.AddCommand(newRunCmd(st))
	rootCmd.AddCommand(newConfigCmd(st))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd, st
}

// initConfig loads the layered configuration and sets up logging
func initConfig(cmd *cobra.Command, st *state) error {
	st.manager = config.NewManager(st.cfgFile)
	if err := st.manager.BindFlags(cmd.Flags(), flagBindings); err != nil {
		return err
	}

	cfg, err := st.manager.Load()
	if err != nil {
		return err
	}
	st.config = cfg

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger, closer := setupLogging(cmd.ErrOrStderr(), cfg.Log, verbose, cfg.Output.NoColor)
	st.logger = logger
	st.logCloser = closer

	if verbose && st.manager.ConfigFileUsed() != "" {
		logger.Debug("loaded configuration", "file", st.manager.ConfigFileUsed())
	}

	return nil
}
