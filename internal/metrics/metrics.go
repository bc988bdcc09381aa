// Package metrics collects request counters and latency observations
// without a shared lock on the hot path: counters are atomics, timings are
// fed through a channel into a single aggregation goroutine.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type observation struct {
	name string
	ms   float64
}

// TimingStats is the aggregated view of one timing series.
type TimingStats struct {
	Count int     `json:"count"`
	P50MS float64 `json:"p50_ms"`
	P95MS float64 `json:"p95_ms"`
}

// Snapshot is a point-in-time copy of all collected metrics.
type Snapshot struct {
	Counters map[string]int64       `json:"counters"`
	Timings  map[string]TimingStats `json:"timings_ms"`
}

type Metrics struct {
	counters     sync.Map // string -> *atomic.Int64
	observations chan observation
	snapshots    chan chan Snapshot
	done         chan struct{}
	closeOnce    sync.Once
}

func New() *Metrics {
	m := &Metrics{
		observations: make(chan observation, 1024),
		snapshots:    make(chan chan Snapshot),
		done:         make(chan struct{}),
	}
	go m.aggregate()
	return m
}

// Inc increments a named counter.
func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, delta int64) {
	v, ok := m.counters.Load(name)
	if !ok {
		v, _ = m.counters.LoadOrStore(name, new(atomic.Int64))
	}
	v.(*atomic.Int64).Add(delta)
}

// ObserveMS records one latency sample. When the aggregator is saturated
// the sample is dropped rather than blocking the request path.
func (m *Metrics) ObserveMS(name string, ms float64) {
	select {
	case m.observations <- observation{name: name, ms: ms}:
	default:
	}
}

// SnapshotNow returns current counters and p50/p95 per timing series.
func (m *Metrics) SnapshotNow() Snapshot {
	reply := make(chan Snapshot, 1)
	select {
	case m.snapshots <- reply:
		return <-reply
	case <-m.done:
		return Snapshot{Counters: m.counterValues(), Timings: map[string]TimingStats{}}
	}
}

// Close stops the aggregation goroutine.
func (m *Metrics) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *Metrics) aggregate() {
	timings := make(map[string][]float64)
	for {
		select {
		case obs := <-m.observations:
			timings[obs.name] = append(timings[obs.name], obs.ms)
		case reply := <-m.snapshots:
			out := make(map[string]TimingStats, len(timings))
			for name, xs := range timings {
				if len(xs) == 0 {
					continue
				}
				ys := make([]float64, len(xs))
				copy(ys, xs)
				sort.Float64s(ys)
				out[name] = TimingStats{
					Count: len(ys),
					P50MS: percentile(ys, 50),
					P95MS: percentile(ys, 95),
				}
			}
			reply <- Snapshot{Counters: m.counterValues(), Timings: out}
		case <-m.done:
			return
		}
	}
}

func (m *Metrics) counterValues() map[string]int64 {
	out := make(map[string]int64)
	m.counters.Range(func(key, value any) bool {
		out[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return out
}

// percentile expects sorted input and uses nearest-rank interpolation.
func percentile(sorted []float64, p float64) float64 {
	i := int(p/100.0*float64(len(sorted)-1) + 0.5)
	if i < 0 {
		i = 0
	}
	if i > len(sorted)-1 {
		i = len(sorted) - 1
	}
	return sorted[i]
}

// Timer measures elapsed milliseconds for one pipeline stage.
type Timer struct {
	t0 time.Time
}

func StartTimer() Timer {
	return Timer{t0: time.Now()}
}

func (t Timer) MS() float64 {
	return float64(time.Since(t.t0)) / float64(time.Millisecond)
}
