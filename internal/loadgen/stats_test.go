package loadgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_Summary(t *testing.T) {
	s := NewStats()
	for i := 1; i <= 100; i++ {
		s.Record(TargetEval, 200, time.Duration(i)*time.Millisecond)
	}
	s.Record(TargetIndex, 201, 4*time.Millisecond)
	s.Record(TargetIndex, 500, 2*time.Millisecond)
	s.iteration()

	sum := s.Summary()
	assert.Equal(t, 1, sum.Iterations)
	require.Len(t, sum.Targets, 2)

	eval := sum.Targets[0]
	assert.Equal(t, TargetEval, eval.Name)
	assert.Equal(t, 100, eval.Count)
	assert.Equal(t, time.Millisecond, eval.Min)
	assert.Equal(t, 100*time.Millisecond, eval.Max)
	assert.Equal(t, 50*time.Millisecond, eval.P50)
	assert.Equal(t, 99*time.Millisecond, eval.P99)
	assert.Equal(t, 50500*time.Microsecond, eval.Mean)

	index := sum.Targets[1]
	assert.Equal(t, map[int]int{201: 1, 500: 1}, index.Statuses)
	assert.Equal(t, 3*time.Millisecond, index.Mean)
	assert.Equal(t, 2*time.Millisecond, index.P50)
}

func TestStats_Empty(t *testing.T) {
	sum := NewStats().Summary()
	assert.Zero(t, sum.Iterations)
	assert.Empty(t, sum.Targets)
}

func TestPercentile_SingleSample(t *testing.T) {
	one := []time.Duration{7 * time.Millisecond}
	assert.Equal(t, 7*time.Millisecond, percentile(one, 50))
	assert.Equal(t, 7*time.Millisecond, percentile(one, 99))
}

func TestStats_SamplesBounded(t *testing.T) {
	s := NewStats()
	n := 3 * maxSamples
	for i := 1; i <= n; i++ {
		s.Record(TargetEval, 200, time.Duration(i)*time.Microsecond)
	}

	assert.Len(t, s.targets[TargetEval].samples, maxSamples)

	sum := s.Summary()
	require.Len(t, sum.Targets, 1)
	eval := sum.Targets[0]
	assert.Equal(t, n, eval.Count)
	assert.Equal(t, time.Microsecond, eval.Min)
	assert.Equal(t, time.Duration(n)*time.Microsecond, eval.Max)
	assert.Equal(t, time.Duration(n+1)*time.Microsecond/2, eval.Mean)
	assert.Equal(t, n, eval.Statuses[200])
	assert.InDelta(t, float64(n/2), float64(eval.P50/time.Microsecond), float64(n)/10)
}
