package cli

import (
	"fmt"

	"github.com/aryankumar/linemill/internal/config"
	"github.com/aryankumar/linemill/internal/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newConfigCmd creates the config command group
func newConfigCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the linemill configuration file",
		Long: `Manage the linemill configuration file.

Settings are resolved from command-line flags, then LINEMILL_* environment
variables (for example LINEMILL_RUN_PARALLEL), then the configuration file,
then built-in defaults.`,
	}

	cmd.AddCommand(newConfigInitCmd(st))
	cmd.AddCommand(newConfigShowCmd(st))

	return cmd
}

func newConfigInitCmd(st *state) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Long: `Write a configuration file with every setting at its default value.

The file is written to --config, or $HOME/.linemill/config.yaml. An existing
file is only replaced with --force.`,
		Args: cobra.NoArgs,
		// The existing file may be invalid; init must not depend on loading it
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.NewManager(st.cfgFile).Save(config.Default(), force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	return cmd
}

func newConfigShowCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, st)
		},
	}
}

// runConfigShow prints the merged configuration in the selected output format
func runConfigShow(cmd *cobra.Command, st *state) error {
	data, err := config.Marshal(st.config)
	if err != nil {
		return err
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}

	format, ok := output.ParseFormat(st.config.Output.Format)
	if !ok {
		format = output.FormatTable
	}
	formatter := output.NewFormatter(format, output.WithNoColor(st.config.Output.NoColor))

	if format == output.FormatTable {
		if used := st.manager.ConfigFileUsed(); used != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", used)
		}
		return formatter.Format(cmd.OutOrStdout(), flatten("", doc))
	}
	return formatter.Format(cmd.OutOrStdout(), doc)
}

// flatten turns nested sections into dotted keys such as run.parallel
func flatten(prefix string, doc map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{})

	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			for nk, nv := range flatten(key, nested) {
				flat[nk] = nv
			}
			continue
		}
		flat[key] = v
	}

	return flat
}
