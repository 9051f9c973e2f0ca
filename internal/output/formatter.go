package output

import (
	"io"
	"strings"
	"time"

	"github.com/aryankumar/linemill/internal/orchestrator"
)

// Format represents the output format type
type Format string

const (
	// FormatTable outputs data in a table format (kubectl-style)
	FormatTable Format = "table"
	// FormatJSON outputs data in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs data in YAML format
	FormatYAML Format = "yaml"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	// Format outputs a single data item to the writer
	Format(w io.Writer, data interface{}) error

	// FormatReport outputs the report of a mirroring run to the writer
	FormatReport(w io.Writer, report *orchestrator.Report) error
}

// Option is a functional option for configuring formatters
type Option func(*Options)

// Options holds configuration for formatters
type Options struct {
	// NoColor disables color output
	NoColor bool

	// NoHeaders disables table headers
	NoHeaders bool

	// Wide shows full error messages and drain details
	Wide bool
}

// WithNoColor disables color output
func WithNoColor(noColor bool) Option {
	return func(o *Options) {
		o.NoColor = noColor
	}
}

// WithNoHeaders disables table headers
func WithNoHeaders(noHeaders bool) Option {
	return func(o *Options) {
		o.NoHeaders = noHeaders
	}
}

// WithWide enables wide output
func WithWide(wide bool) Option {
	return func(o *Options) {
		o.Wide = wide
	}
}

// NewFormatter creates a new formatter based on the specified format
func NewFormatter(format Format, opts ...Option) Formatter {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		fallthrough
	default:
		return NewTableFormatter(options)
	}
}

// ParseFormat converts a user supplied name into a Format, ignoring case
func ParseFormat(name string) (Format, bool) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, true
	case "":
		return FormatTable, true
	default:
		return "", false
	}
}

// reportDocument is the structured form of a report, with durations rendered
// as strings so JSON and YAML stay readable
type reportDocument struct {
	RunID      string `json:"runId" yaml:"runId"`
	InputRoot  string `json:"inputRoot" yaml:"inputRoot"`
	OutputRoot string `json:"outputRoot" yaml:"outputRoot"`
	PoolSize   int    `json:"poolSize" yaml:"poolSize"`

	Submitted      int            `json:"submitted" yaml:"submitted"`
	Succeeded      int            `json:"succeeded" yaml:"succeeded"`
	Failed         int            `json:"failed" yaml:"failed"`
	Abandoned      int            `json:"abandoned" yaml:"abandoned"`
	Dropped        int            `json:"dropped" yaml:"dropped"`
	ByOutcome      map[string]int `json:"byOutcome" yaml:"byOutcome"`
	UnitsProcessed int64          `json:"linesProcessed" yaml:"linesProcessed"`

	Interrupted  bool     `json:"interrupted" yaml:"interrupted"`
	Unresponsive bool     `json:"unresponsive" yaml:"unresponsive"`
	DrainPhases  []string `json:"drainPhases" yaml:"drainPhases"`

	StartedAt string          `json:"startedAt" yaml:"startedAt"`
	Duration  string          `json:"duration" yaml:"duration"`
	Latency   latencyDocument `json:"latency" yaml:"latency"`

	Failures []orchestrator.Failure `json:"failures" yaml:"failures"`
}

type latencyDocument struct {
	Count int64  `json:"count" yaml:"count"`
	P50   string `json:"p50" yaml:"p50"`
	P95   string `json:"p95" yaml:"p95"`
	P99   string `json:"p99" yaml:"p99"`
	Max   string `json:"max" yaml:"max"`
}

func newReportDocument(r *orchestrator.Report) reportDocument {
	failures := r.Failures
	if failures == nil {
		failures = []orchestrator.Failure{}
	}
	phases := r.DrainPhases
	if phases == nil {
		phases = []string{}
	}
	byOutcome := r.ByOutcome
	if byOutcome == nil {
		byOutcome = map[string]int{}
	}

	return reportDocument{
		RunID:          r.RunID,
		InputRoot:      r.InputRoot,
		OutputRoot:     r.OutputRoot,
		PoolSize:       r.PoolSize,
		Submitted:      r.Submitted,
		Succeeded:      r.Succeeded,
		Failed:         r.Failed,
		Abandoned:      r.Abandoned,
		Dropped:        r.Dropped,
		ByOutcome:      byOutcome,
		UnitsProcessed: r.UnitsProcessed,
		Interrupted:    r.Interrupted,
		Unresponsive:   r.Unresponsive,
		DrainPhases:    phases,
		StartedAt:      r.StartedAt.UTC().Format(time.RFC3339),
		Duration:       r.Duration.Round(time.Millisecond).String(),
		Latency: latencyDocument{
			Count: r.Latency.Count,
			P50:   r.Latency.P50.Round(time.Microsecond).String(),
			P95:   r.Latency.P95.Round(time.Microsecond).String(),
			P99:   r.Latency.P99.Round(time.Microsecond).String(),
			Max:   r.Latency.Max.Round(time.Microsecond).String(),
		},
		Failures: failures,
	}
}
