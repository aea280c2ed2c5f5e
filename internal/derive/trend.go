package derive

import (
	"fmt"
	"math"
	"slices"

	"tms-dashboard/internal/models"
)

const outlierFence = 1.5

// FinancialTrend groups records by calendar month and quarter of their
// order date. Records without a valid date are counted as undated.
func FinancialTrend(records []models.FinancialRecord) models.FinancialTrend {
	var trend models.FinancialTrend
	monthly := make(map[string]*periodAcc)
	quarterly := make(map[string]*periodAcc)

	for _, r := range records {
		if !r.OrderDate.Known() {
			trend.Undated++
			continue
		}
		t := r.OrderDate.Time
		month := t.Format("2006-01")
		quarter := fmt.Sprintf("%dQ%d", t.Year(), (int(t.Month())-1)/3+1)
		accumulate(monthly, month, r)
		accumulate(quarterly, quarter, r)
	}

	trend.Monthly = periods(monthly)
	trend.Quarterly = periods(quarterly)
	return trend
}

type periodAcc struct {
	revenue, cost, diff money
	orders              int
}

func accumulate(groups map[string]*periodAcc, key string, r models.FinancialRecord) {
	acc, ok := groups[key]
	if !ok {
		acc = &periodAcc{}
		groups[key] = acc
	}
	acc.revenue.add(r.NetRevenue)
	acc.cost.add(r.TotalCost)
	acc.diff.add(r.Diff)
	acc.orders++
}

// periods sorts by key; both key formats sort chronologically as text.
func periods(groups map[string]*periodAcc) []models.PeriodTotals {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]models.PeriodTotals, 0, len(keys))
	var running money
	for _, k := range keys {
		acc := groups[k]
		running.Decimal = running.Add(acc.diff.Decimal)
		out = append(out, models.PeriodTotals{
			Period:           k,
			Orders:           acc.orders,
			Revenue:          acc.revenue.InexactFloat64(),
			Cost:             acc.cost.InexactFloat64(),
			Diff:             acc.diff.InexactFloat64(),
			CumulativeProfit: running.InexactFloat64(),
		})
	}
	return out
}

// DiffOutliers flags Diff values outside [Q1 − 1.5·IQR, Q3 + 1.5·IQR].
// Quartiles interpolate linearly between order statistics.
func DiffOutliers(records []models.FinancialRecord) models.DiffOutliers {
	var values []float64
	for _, r := range records {
		if r.Diff.Present() {
			values = append(values, r.Diff.Value)
		}
	}
	out := models.DiffOutliers{Samples: len(values)}
	if len(values) == 0 {
		return out
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	out.Q1 = quantile(sorted, 0.25)
	out.Q3 = quantile(sorted, 0.75)
	out.IQR = out.Q3 - out.Q1
	out.Lower = out.Q1 - outlierFence*out.IQR
	out.Upper = out.Q3 + outlierFence*out.IQR

	for _, v := range sorted {
		switch {
		case v < out.Lower:
			out.Low++
		case v > out.Upper:
			out.High++
		}
	}
	out.Outliers = out.Low + out.High
	return out
}

// quantile expects sorted input.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// ProfitPerShipment divides the total margin by the total volume.
func ProfitPerShipment(m models.DerivedMetrics) float64 {
	if m.TotalVolume == 0 {
		return 0
	}
	return m.TotalMargin / float64(m.TotalVolume)
}
