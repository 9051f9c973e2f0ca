package executor

import (
	"fmt"
	"strings"
	"time"
)

// CountSuccessful returns the number of successful outcomes
func CountSuccessful(outcomes []Outcome) int {
	count := 0
	for _, o := range outcomes {
		if o.OK() {
			count++
		}
	}
	return count
}

// CountFailed returns the number of outcomes that are not successful
func CountFailed(outcomes []Outcome) int {
	return len(outcomes) - CountSuccessful(outcomes)
}

// CountByKind groups outcome counts by kind
func CountByKind(outcomes []Outcome) map[OutcomeKind]int {
	counts := make(map[OutcomeKind]int)
	for _, o := range outcomes {
		counts[o.Kind]++
	}
	return counts
}

// FilterFailed returns only the outcomes that are not successful
func FilterFailed(outcomes []Outcome) []Outcome {
	filtered := make([]Outcome, 0, CountFailed(outcomes))
	for _, o := range outcomes {
		if !o.OK() {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// AverageDuration calculates the average duration of outcomes that ran
func AverageDuration(outcomes []Outcome) time.Duration {
	var total time.Duration
	ran := 0
	for _, o := range outcomes {
		if o.WorkerID < 0 {
			continue
		}
		total += o.Duration
		ran++
	}

	if ran == 0 {
		return 0
	}
	return total / time.Duration(ran)
}

// MaxDuration returns the maximum duration among all outcomes
func MaxDuration(outcomes []Outcome) time.Duration {
	var max time.Duration
	for _, o := range outcomes {
		if o.Duration > max {
			max = o.Duration
		}
	}
	return max
}

// Summary provides a summary of outcomes
type Summary struct {
	Total       int
	Successful  int
	Failed      int
	TimedOut    int
	Cancelled   int
	AvgDuration time.Duration
	MaxDuration time.Duration
}

// Summarize creates a summary of the outcomes
func Summarize(outcomes []Outcome) Summary {
	byKind := CountByKind(outcomes)
	return Summary{
		Total:       len(outcomes),
		Successful:  byKind[OutcomeSuccess],
		Failed:      byKind[OutcomeFailure],
		TimedOut:    byKind[OutcomeTimedOut],
		Cancelled:   byKind[OutcomeCancelled],
		AvgDuration: AverageDuration(outcomes),
		MaxDuration: MaxDuration(outcomes),
	}
}

// String returns a human-readable string representation of the summary
func (s Summary) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d, ", s.Total))
	sb.WriteString(fmt.Sprintf("Successful: %d, ", s.Successful))
	sb.WriteString(fmt.Sprintf("Failed: %d", s.Failed))

	if s.TimedOut > 0 {
		sb.WriteString(fmt.Sprintf(", Timed out: %d", s.TimedOut))
	}
	if s.Cancelled > 0 {
		sb.WriteString(fmt.Sprintf(", Cancelled: %d", s.Cancelled))
	}

	if s.Total > 0 {
		sb.WriteString(fmt.Sprintf(", Avg: %s", s.AvgDuration.Round(time.Millisecond)))
		sb.WriteString(fmt.Sprintf(", Max: %s", s.MaxDuration.Round(time.Millisecond)))
	}

	return sb.String()
}
