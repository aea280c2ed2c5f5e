package derive

import (
	"math"
	"slices"

	"tms-dashboard/internal/models"
)

// TimingStats summarizes delivery offsets in days. Negative offsets are early.
func TimingStats(table *models.TimingTable) models.TimingStats {
	var stats models.TimingStats
	if table == nil {
		return stats
	}

	var values []float64
	for _, r := range table.Records {
		if !r.TimeDiffDays.Present() {
			continue
		}
		v := r.TimeDiffDays.Value
		values = append(values, v)
		switch {
		case v < 0:
			stats.Early++
		case v > 0:
			stats.Late++
		default:
			stats.OnTarget++
		}
	}
	if len(values) == 0 {
		return stats
	}

	stats.Samples = len(values)
	stats.Mean = mean(values)
	stats.Median = median(values)
	stats.StdDev = stddev(values, stats.Mean)
	stats.Min = slices.Min(values)
	stats.Max = slices.Max(values)
	return stats
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// stddev is the sample standard deviation; 0 below two samples.
func stddev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
