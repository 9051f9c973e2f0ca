// Package output provides formatters for displaying linemill results.
//
// The package supports multiple output formats (table, JSON, YAML) and a
// unified interface for formatting both arbitrary data and run reports.
//
// # Basic Usage
//
//	formatter := output.NewFormatter(output.FormatTable)
//
//	// Format single data item
//	data := map[string]interface{}{"key": "value"}
//	formatter.Format(os.Stdout, data)
//
//	// Format the report of a run
//	report, err := orchestrator.Run(ctx, "in", "out", 6)
//	formatter.FormatReport(os.Stdout, report)
//
// # Options
//
// Formatters can be configured with functional options:
//
//	formatter := output.NewFormatter(
//	    output.FormatTable,
//	    output.WithNoColor(true),
//	    output.WithWide(true),
//	)
//
// # Formatters
//
// Table Formatter (kubectl-style):
//   - Borderless table of failed files with tab-separated columns
//   - Summary line with totals, line count and wall time
//   - Wide mode adds full error messages, run id, latency and shutdown phases
//
// JSON and YAML Formatters emit the whole report with durations as strings,
// suitable for scripting.
//
// # Color Support
//
// Colors are automatically enabled for TTY outputs and can be disabled with
// WithNoColor(true). Non-TTY output (pipes, redirects) is never colored.
//
// Color scheme:
//   - File paths: Cyan, Bold
//   - Success: Green
//   - Failures: Red, Bold
//   - Abandoned tasks and warnings: Yellow
//   - Headers: White, Bold
//   - Durations: Blue
package output
