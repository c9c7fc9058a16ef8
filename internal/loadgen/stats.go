package loadgen

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

// maxSamples caps the latencies kept per target for percentile estimates.
const maxSamples = 10000

// Stats accumulates per-target latencies and status codes for a run summary.
// Count, min, max and mean are exact. Percentiles come from a uniform
// reservoir of at most maxSamples latencies, so memory stays flat on
// unbounded runs.
type Stats struct {
	mu         sync.Mutex
	iterations int
	targets    map[string]*targetStats
	order      []string
}

type targetStats struct {
	count    int
	total    time.Duration
	min, max time.Duration
	samples  []time.Duration
	statuses map[int]int
}

// Summary is a point-in-time view of Stats.
type Summary struct {
	Iterations int
	Targets    []TargetSummary
}

// TargetSummary describes the requests sent to one target.
type TargetSummary struct {
	Name     string
	Count    int
	Min      time.Duration
	Mean     time.Duration
	P50      time.Duration
	P99      time.Duration
	Max      time.Duration
	Statuses map[int]int
}

// NewStats returns an empty collector.
func NewStats() *Stats {
	return &Stats{targets: make(map[string]*targetStats)}
}

// Record adds one completed request.
func (s *Stats) Record(name string, status int, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.targets[name]
	if !ok {
		ts = &targetStats{statuses: make(map[int]int)}
		s.targets[name] = ts
		s.order = append(s.order, name)
	}
	ts.count++
	ts.total += d
	if ts.count == 1 || d < ts.min {
		ts.min = d
	}
	if d > ts.max {
		ts.max = d
	}
	if len(ts.samples) < maxSamples {
		ts.samples = append(ts.samples, d)
	} else if j := rand.IntN(ts.count); j < maxSamples {
		ts.samples[j] = d
	}
	ts.statuses[status]++
}

func (s *Stats) iteration() {
	s.mu.Lock()
	s.iterations++
	s.mu.Unlock()
}

// Summary computes latency percentiles per target, in first-seen order.
func (s *Stats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{Iterations: s.iterations}
	for _, name := range s.order {
		ts := s.targets[name]
		sorted := slices.Clone(ts.samples)
		slices.Sort(sorted)

		statuses := make(map[int]int, len(ts.statuses))
		for code, n := range ts.statuses {
			statuses[code] = n
		}

		out := TargetSummary{Name: name, Count: ts.count, Statuses: statuses}
		if ts.count > 0 {
			out.Min = ts.min
			out.Max = ts.max
			out.Mean = ts.total / time.Duration(ts.count)
			out.P50 = percentile(sorted, 50)
			out.P99 = percentile(sorted, 99)
		}
		sum.Targets = append(sum.Targets, out)
	}
	return sum
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
