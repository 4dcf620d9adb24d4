package replay

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// LapSummary aggregates an entity's lap-time history.
type LapSummary struct {
	EntityID int
	Laps     int // completed laps with a measurable duration
	Best     float64
	Mean     float64
	Median   float64
	StdDev   float64
}

// LapDurations converts an entity's start/finish crossing times into
// per-lap durations. The first crossing only opens lap one, so n
// crossings yield n-1 durations.
func LapDurations(crossTimes []float64) []float64 {
	if len(crossTimes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(crossTimes)-1)
	for i := 1; i < len(crossTimes); i++ {
		d := crossTimes[i] - crossTimes[i-1]
		if d > 0 {
			out = append(out, d)
		}
	}
	return out
}

// SummariseLaps computes the per-entity lap statistics for every ledger
// entry with at least one complete lap, ordered by best lap ascending.
func SummariseLaps(entries []*EntityProgress) []LapSummary {
	var out []LapSummary
	for _, e := range entries {
		laps := LapDurations(e.LapTimes)
		if len(laps) == 0 {
			continue
		}
		sorted := append([]float64(nil), laps...)
		sort.Float64s(sorted)

		sum := LapSummary{
			EntityID: e.EntityID,
			Laps:     len(laps),
			Best:     sorted[0],
			Mean:     stat.Mean(laps, nil),
			Median:   stat.Quantile(0.5, stat.Empirical, sorted, nil),
		}
		if len(laps) > 1 {
			sum.StdDev = stat.StdDev(laps, nil)
		}
		if math.IsNaN(sum.StdDev) {
			sum.StdDev = 0
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Best < out[j].Best })
	return out
}
