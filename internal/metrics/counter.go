// Package metrics collects per-run measurements: a low-contention line counter,
// a task latency histogram and a Prometheus registry that can be exported as a
// node_exporter textfile.
package metrics

import (
	"math/rand/v2"
	"runtime"
	"sync/atomic"
)

// cacheLine is the assumed size of a CPU cache line
const cacheLine = 64

type stripe struct {
	n atomic.Int64
	_ [cacheLine - 8]byte
}

// Counter is a striped counter for concurrent increments.
// Writers spread over independent cache lines; Value sums them and is only
// exact once every writer has finished.
type Counter struct {
	stripes []stripe
}

// NewCounter creates a counter with one stripe per CPU, rounded up to a power of two
func NewCounter() *Counter {
	n := 1
	for n < runtime.GOMAXPROCS(0) {
		n <<= 1
	}
	return &Counter{stripes: make([]stripe, n)}
}

// Add adds delta to the counter
func (c *Counter) Add(delta int64) {
	i := rand.Uint32() & uint32(len(c.stripes)-1)
	c.stripes[i].n.Add(delta)
}

// Inc adds one to the counter
func (c *Counter) Inc() {
	c.Add(1)
}

// Value returns the sum of all stripes
func (c *Counter) Value() int64 {
	var total int64
	for i := range c.stripes {
		total += c.stripes[i].n.Load()
	}
	return total
}
