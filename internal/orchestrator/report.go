package orchestrator

import (
	"time"

	"github.com/aryankumar/linemill/internal/metrics"
)

// OutcomeAbandoned labels failures for tasks abandoned by the drain
const OutcomeAbandoned = "abandoned"

// Failure describes one task that did not succeed
type Failure struct {
	Input   string `json:"input" yaml:"input"`
	Outcome string `json:"outcome" yaml:"outcome"`
	Error   string `json:"error" yaml:"error"`
	// Committed is set when a timed-out task still wrote its output file
	Committed bool `json:"committed,omitempty" yaml:"committed,omitempty"`
}

// Report is the result of a run that got past setup
type Report struct {
	RunID      string `json:"run_id" yaml:"run_id"`
	InputRoot  string `json:"input_root" yaml:"input_root"`
	OutputRoot string `json:"output_root" yaml:"output_root"`
	PoolSize   int    `json:"pool_size" yaml:"pool_size"`

	Submitted int `json:"submitted" yaml:"submitted"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Abandoned int `json:"abandoned" yaml:"abandoned"`
	// Dropped counts queued tasks cancelled before they started; they are included in Failed
	Dropped int `json:"dropped" yaml:"dropped"`
	// ByOutcome counts verdicts by outcome name
	ByOutcome map[string]int `json:"by_outcome" yaml:"by_outcome"`

	// UnitsProcessed is the number of lines written to committed output files,
	// including files committed by a task that had already timed out
	UnitsProcessed int64 `json:"units_processed" yaml:"units_processed"`

	Interrupted  bool     `json:"interrupted" yaml:"interrupted"`
	Unresponsive bool     `json:"unresponsive" yaml:"unresponsive"`
	DrainPhases  []string `json:"drain_phases" yaml:"drain_phases"`

	StartedAt time.Time               `json:"started_at" yaml:"started_at"`
	Duration  time.Duration           `json:"duration" yaml:"duration"`
	Latency   metrics.LatencySnapshot `json:"latency" yaml:"latency"`

	Failures []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// OK reports whether every submitted task succeeded
func (r *Report) OK() bool {
	return r.Failed == 0 && r.Abandoned == 0
}

// Accounted reports whether every submitted task has exactly one verdict
func (r *Report) Accounted() bool {
	return r.Succeeded+r.Failed+r.Abandoned == r.Submitted
}
