package sim

import "math"

// OccupancyStats summarizes a count vector.
type OccupancyStats struct {
	Nodes    int     `json:"nodes"`
	Rats     int64   `json:"rats"`
	Empty    int     `json:"empty"`
	Min      int32   `json:"min"`
	Max      int32   `json:"max"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"stddev"`
}

// ComputeStats returns the population statistics of counts.
func ComputeStats(counts []int32) OccupancyStats {
	st := OccupancyStats{Nodes: len(counts)}
	if len(counts) == 0 {
		return st
	}
	st.Min, st.Max = counts[0], counts[0]
	for _, c := range counts {
		st.Rats += int64(c)
		if c == 0 {
			st.Empty++
		}
		st.Min = min(st.Min, c)
		st.Max = max(st.Max, c)
	}
	st.Mean = float64(st.Rats) / float64(len(counts))
	for _, c := range counts {
		d := float64(c) - st.Mean
		st.Variance += d * d
	}
	st.Variance /= float64(len(counts))
	st.StdDev = math.Sqrt(st.Variance)
	return st
}
