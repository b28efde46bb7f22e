package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/flow.report/internal/crossing"
)

// LatencyStats summarises per-frame processing time in milliseconds.
type LatencyStats struct {
	Samples int
	Mean    float64
	StdDev  float64
	P50     float64
	P95     float64
	Max     float64
}

// computeLatency derives LatencyStats from raw samples. samples is sorted
// in place.
func computeLatency(samples []float64) LatencyStats {
	if len(samples) == 0 {
		return LatencyStats{}
	}
	sort.Float64s(samples)
	out := LatencyStats{
		Samples: len(samples),
		P50:     stat.Quantile(0.5, stat.Empirical, samples, nil),
		P95:     stat.Quantile(0.95, stat.Empirical, samples, nil),
		Max:     samples[len(samples)-1],
	}
	if len(samples) == 1 {
		out.Mean = samples[0]
		return out
	}
	out.Mean, out.StdDev = stat.MeanStdDev(samples, nil)
	return out
}

// Summary is the outcome of one run.
type Summary struct {
	RunID         string
	Source        string
	StartedAt     time.Time
	Elapsed       time.Duration
	Frames        int64
	Pauses        int
	PausedFor     time.Duration
	TracksCreated int
	Events        int
	Counts        []crossing.LineCount
	Latency       LatencyStats
	Err           error // Why the loop stopped early; nil on a clean stop
}

// Total sums the counts across lines.
func (s Summary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c.Count
	}
	return n
}

// String renders the console summary printed when a run ends.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d frames in %.2fs\n", s.RunID, s.Frames, s.Elapsed.Seconds())
	for _, c := range s.Counts {
		fmt.Fprintf(&b, "  %-12s %d\n", c.Name, c.Count)
	}
	fmt.Fprintf(&b, "  %-12s %d\n", "total", s.Total())
	if s.Latency.Samples > 0 {
		fmt.Fprintf(&b, "frame latency: mean %.1fms p95 %.1fms max %.1fms\n",
			s.Latency.Mean, s.Latency.P95, s.Latency.Max)
	}
	return b.String()
}
