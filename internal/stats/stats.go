package stats

import (
	"fmt"
	"sort"
	"time"
)

// Aggregate summarizes the timed runs of one revision.
type Aggregate struct {
	Runs   int
	Min    time.Duration
	Median time.Duration
	Max    time.Duration
}

// FromDurations computes min/median/max over the sample.
// The median of an even-sized sample is the mean of the two central
// values. Empty samples yield a zero Aggregate.
func FromDurations(samples []time.Duration) Aggregate {
	n := len(samples)
	if n == 0 {
		return Aggregate{}
	}

	sorted := make([]time.Duration, n)
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var median time.Duration
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return Aggregate{
		Runs:   n,
		Min:    sorted[0],
		Median: median,
		Max:    sorted[n-1],
	}
}

// Seconds renders d as seconds with two decimals, the precision
// used everywhere timings are displayed or stored.
func Seconds(d time.Duration) string {
	return fmt.Sprintf("%.2f", d.Seconds())
}
