package ui

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// LatencyTracker keeps a bounded ring of durations for percentile estimates.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	count   int
	idx     int
}

func NewLatencyTracker(size int) *LatencyTracker {
	if size <= 0 {
		size = 256
	}
	return &LatencyTracker{samples: make([]time.Duration, size)}
}

func (t *LatencyTracker) Observe(d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.samples[t.idx] = d
	t.idx = (t.idx + 1) % len(t.samples)
	if t.count < len(t.samples) {
		t.count++
	}
	t.mu.Unlock()
}

type LatencySnapshot struct {
	P50 time.Duration
	P99 time.Duration
	N   int
}

func (t *LatencyTracker) Snapshot() LatencySnapshot {
	if t == nil {
		return LatencySnapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return LatencySnapshot{}
	}
	values := make([]time.Duration, t.count)
	copy(values, t.samples[:t.count])
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	p50 := values[t.count/2]
	p99 := values[int(float64(t.count-1)*0.99)]
	return LatencySnapshot{P50: p50, P99: p99, N: t.count}
}

// Metrics tracks node draw cost, fetch latency, queue delay and counters.
type Metrics struct {
	renderLatency *LatencyTracker
	fetchLatency  *LatencyTracker
	queueDelay    *LatencyTracker
	frames        atomic.Uint64
	refreshes     atomic.Uint64
	failures      atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{
		renderLatency: NewLatencyTracker(512),
		fetchLatency:  NewLatencyTracker(64),
		queueDelay:    NewLatencyTracker(512),
	}
}

// ObserveRender records one node draw.
func (m *Metrics) ObserveRender(d time.Duration) {
	if m == nil {
		return
	}
	m.frames.Add(1)
	m.renderLatency.Observe(d)
}

func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchLatency.Observe(d)
}

func (m *Metrics) ObserveQueueDelay(d time.Duration) {
	if m == nil {
		return
	}
	m.queueDelay.Observe(d)
}

// Refresh counts a triggered check; failed marks it as ending in the
// error snapshot.
func (m *Metrics) Refresh(failed bool) {
	if m == nil {
		return
	}
	m.refreshes.Add(1)
	if failed {
		m.failures.Add(1)
	}
}

func (m *Metrics) RenderSnapshot() LatencySnapshot {
	if m == nil {
		return LatencySnapshot{}
	}
	return m.renderLatency.Snapshot()
}

func (m *Metrics) FetchSnapshot() LatencySnapshot {
	if m == nil {
		return LatencySnapshot{}
	}
	return m.fetchLatency.Snapshot()
}

func (m *Metrics) QueueSnapshot() LatencySnapshot {
	if m == nil {
		return LatencySnapshot{}
	}
	return m.queueDelay.Snapshot()
}

func (m *Metrics) Frames() uint64 {
	if m == nil {
		return 0
	}
	return m.frames.Load()
}

func (m *Metrics) Refreshes() (total, failed uint64) {
	if m == nil {
		return 0, 0
	}
	return m.refreshes.Load(), m.failures.Load()
}
