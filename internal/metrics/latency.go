package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minTrackable = int64(time.Microsecond)
	maxTrackable = int64(time.Hour)
	sigFigs      = 3
)

// LatencySnapshot holds task duration percentiles
type LatencySnapshot struct {
	Count int64         `json:"count" yaml:"count"`
	P50   time.Duration `json:"p50" yaml:"p50"`
	P95   time.Duration `json:"p95" yaml:"p95"`
	P99   time.Duration `json:"p99" yaml:"p99"`
	Max   time.Duration `json:"max" yaml:"max"`
}

// String formats the snapshot for logs and tables
func (s LatencySnapshot) String() string {
	if s.Count == 0 {
		return "n/a"
	}
	return fmt.Sprintf("p50=%s p95=%s p99=%s max=%s",
		s.P50.Round(time.Microsecond),
		s.P95.Round(time.Microsecond),
		s.P99.Round(time.Microsecond),
		s.Max.Round(time.Microsecond))
}

// Latency records task durations in an HDR histogram
type Latency struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// NewLatency creates a histogram tracking 1µs to 1h with 3 significant digits
func NewLatency() *Latency {
	return &Latency{hist: hdrhistogram.New(minTrackable, maxTrackable, sigFigs)}
}

// Observe records one duration, clamped to the trackable range
func (l *Latency) Observe(d time.Duration) {
	v := int64(d)
	if v < minTrackable {
		v = minTrackable
	}
	if v > maxTrackable {
		v = maxTrackable
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// Cannot fail: v is within the histogram range
	_ = l.hist.RecordValue(v)
}

// Snapshot returns the current percentiles
func (l *Latency) Snapshot() LatencySnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hist.TotalCount() == 0 {
		return LatencySnapshot{}
	}

	return LatencySnapshot{
		Count: l.hist.TotalCount(),
		P50:   time.Duration(l.hist.ValueAtQuantile(50)),
		P95:   time.Duration(l.hist.ValueAtQuantile(95)),
		P99:   time.Duration(l.hist.ValueAtQuantile(99)),
		Max:   time.Duration(l.hist.Max()),
	}
}
