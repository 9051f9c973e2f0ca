package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aryankumar/linemill/internal/orchestrator"
	"github.com/olekukonko/tablewriter"
)

// maxErrorWidth bounds the ERROR column outside wide mode
const maxErrorWidth = 60

// TableFormatter formats output as a table (kubectl-style)
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format outputs a single data item as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	table := f.createTable(w)

	// Handle different data types
	switch v := data.(type) {
	case map[string]interface{}:
		return f.formatMap(table, v)
	case []map[string]interface{}:
		return f.formatMapSlice(table, v)
	case string:
		fmt.Fprintln(w, v)
		return nil
	default:
		// Fallback to simple string representation
		fmt.Fprintln(w, v)
		return nil
	}
}

// FormatReport prints the failed tasks of a run followed by a summary line
func (f *TableFormatter) FormatReport(w io.Writer, report *orchestrator.Report) error {
	colors := NewColorScheme(w, f.options.NoColor)

	if report.Submitted == 0 {
		fmt.Fprintf(w, "No input files found under %s\n", report.InputRoot)
		return nil
	}

	if len(report.Failures) > 0 {
		table := f.createTable(w)

		headers := []string{"INPUT", "OUTCOME", "ERROR"}
		if !f.options.NoHeaders {
			if colors.Disabled {
				table.SetHeader(headers)
			} else {
				coloredHeaders := make([]string, len(headers))
				for i, h := range headers {
					coloredHeaders[i] = colors.Header(h)
				}
				table.SetHeader(coloredHeaders)
			}
		}

		for _, failure := range report.Failures {
			table.Append(f.formatFailureRow(failure, colors))
		}

		table.Render()
		fmt.Fprintln(w, "")
	}

	f.printSummary(w, report, colors)
	return nil
}

// formatFailureRow formats a single failure as a table row
func (f *TableFormatter) formatFailureRow(failure orchestrator.Failure, colors *ColorScheme) []string {
	input := failure.Input
	if !colors.Disabled {
		input = colors.Path(input)
	}

	outcome := failure.Outcome
	if !colors.Disabled {
		if outcome == orchestrator.OutcomeAbandoned {
			outcome = colors.Warning(outcome)
		} else {
			outcome = colors.Error(outcome)
		}
	}

	message := failure.Error
	if !f.options.Wide && len(message) > maxErrorWidth {
		message = message[:maxErrorWidth-3] + "..."
	}

	return []string{input, outcome, message}
}

// formatMap formats a map as a two-column table (key-value pairs)
func (f *TableFormatter) formatMap(table *tablewriter.Table, data map[string]interface{}) error {
	if !f.options.NoHeaders {
		table.SetHeader([]string{"KEY", "VALUE"})
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		table.Append([]string{k, fmt.Sprintf("%v", data[k])})
	}

	table.Render()
	return nil
}

// formatMapSlice formats a slice of maps as a table
func (f *TableFormatter) formatMapSlice(table *tablewriter.Table, data []map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}

	// Extract headers from the first map
	keys := make([]string, 0, len(data[0]))
	for k := range data[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if !f.options.NoHeaders {
		headers := make([]string, len(keys))
		for i, k := range keys {
			headers[i] = strings.ToUpper(k)
		}
		table.SetHeader(headers)
	}

	// Add rows
	for _, item := range data {
		row := make([]string, len(keys))
		for i, k := range keys {
			row[i] = fmt.Sprintf("%v", item[k])
		}
		table.Append(row)
	}

	table.Render()
	return nil
}

// createTable creates a new table with kubectl-style configuration
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	// kubectl-style configuration
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t") // Tab-separated like kubectl
	table.SetNoWhiteSpace(true)

	return table
}

// printSummary prints the run totals
func (f *TableFormatter) printSummary(w io.Writer, report *orchestrator.Report, colors *ColorScheme) {
	label := "Summary:"
	if !colors.Disabled {
		label = colors.StatusColor(!report.OK())(label)
	}
	fmt.Fprintf(w, "%s ", label)

	successText := fmt.Sprintf("%d/%d succeeded", report.Succeeded, report.Submitted)
	if !colors.Disabled {
		successText = colors.Success(successText)
	}

	failedText := fmt.Sprintf("%d failed", report.Failed)
	if !colors.Disabled && report.Failed > 0 {
		failedText = colors.Error(failedText)
	}

	abandonedText := fmt.Sprintf("%d abandoned", report.Abandoned)
	if !colors.Disabled && report.Abandoned > 0 {
		abandonedText = colors.Warning(abandonedText)
	}

	durationText := fmt.Sprintf("took=%s", report.Duration.Round(time.Millisecond))
	if !colors.Disabled {
		durationText = colors.Duration(durationText)
	}

	fmt.Fprintf(w, "%s, %s, %s, %d lines, %s\n",
		successText, failedText, abandonedText, report.UnitsProcessed, durationText)

	if report.Interrupted {
		msg := "Run was interrupted; queued files were not processed"
		if !colors.Disabled {
			msg = colors.Warning(msg)
		}
		fmt.Fprintln(w, msg)
	}
	if report.Unresponsive {
		msg := "Some workers ignored cancellation and were abandoned"
		if !colors.Disabled {
			msg = colors.Warning(msg)
		}
		fmt.Fprintln(w, msg)
	}

	if f.options.Wide {
		fmt.Fprintf(w, "Run:      %s\n", report.RunID)
		fmt.Fprintf(w, "Workers:  %d\n", report.PoolSize)
		fmt.Fprintf(w, "Latency:  %s\n", report.Latency)
		fmt.Fprintf(w, "Outcomes: %s\n", formatCounts(report.ByOutcome))
		fmt.Fprintf(w, "Shutdown: %s\n", strings.Join(report.DrainPhases, " -> "))
	}
}

// formatCounts renders counts as name=n pairs sorted by name
func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, counts[name])
	}
	return strings.Join(parts, " ")
}
