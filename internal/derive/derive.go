// Package derive computes summary statistics from a normalized dataset.
// Every function is pure: the same dataset always yields identical output.
package derive

import (
	"strings"

	"github.com/shopspring/decimal"

	"tms-dashboard/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Negations that contain "billed" but mean the opposite.
var unbilledMarkers = []string{"unbilled", "not billed", "not-billed", "non-billed", "non billed"}

// Compute derives the headline metrics from whichever entities are present.
func Compute(ds *models.Dataset) models.DerivedMetrics {
	return computeWith(ds, IsBilled)
}

func computeWith(ds *models.Dataset, billedFn func(string) bool) models.DerivedMetrics {
	var m models.DerivedMetrics
	if ds == nil {
		return m
	}

	m.TotalVolume = TotalVolume(ds.Volumes)

	if ds.Timing != nil {
		for _, r := range ds.Timing.Records {
			switch r.Status {
			case models.StatusEmpty:
				continue
			case models.StatusOnTime:
				m.OnTimeOrders++
			case models.StatusLate:
				m.LateOrders++
			}
			m.TotalOrders++
		}
		m.OnTimePercent = ratio(m.OnTimeOrders, m.TotalOrders)
	}

	if ds.Financials != nil {
		billed := filterBilled(ds.Financials, billedFn)
		var revenue, cost, diff money
		for _, r := range billed {
			revenue.add(r.NetRevenue)
			cost.add(r.TotalCost)
			diff.add(r.Diff)
		}

		margin := revenue.Sub(cost.Decimal)
		if ds.Financials.HasColumn("Diff") {
			margin = diff.Decimal
		}

		m.BilledRecords = len(billed)
		m.TotalRevenue = revenue.InexactFloat64()
		m.TotalCost = cost.InexactFloat64()
		m.TotalMargin = margin.InexactFloat64()
		m.MarginPercent = percent(margin, revenue.Decimal)
	}

	return m
}

// TotalVolume prefers the sheet's reported grand total over the row sum.
func TotalVolume(v *models.VolumeTables) int {
	if v == nil {
		return 0
	}
	if v.ReportedTotal != nil {
		return *v.ReportedTotal
	}
	return v.Services.Sum()
}

// IsBilled matches "billed" case-insensitively, excluding negated forms.
func IsBilled(status string) bool {
	return matchBilled(status, unbilledMarkers)
}

// ContainsBilled is the bare case-insensitive substring match. Negated
// forms such as "Unbilled" count as billed.
func ContainsBilled(status string) bool {
	return matchBilled(status, nil)
}

func matchBilled(status string, exclude []string) bool {
	s := strings.ToLower(status)
	if !strings.Contains(s, "billed") {
		return false
	}
	for _, neg := range exclude {
		if strings.Contains(s, neg) {
			return false
		}
	}
	return true
}

// BilledRecords keeps billed rows that carry an order number.
func BilledRecords(table *models.FinancialTable) []models.FinancialRecord {
	return filterBilled(table, IsBilled)
}

func filterBilled(table *models.FinancialTable, billed func(string) bool) []models.FinancialRecord {
	if table == nil {
		return nil
	}
	out := make([]models.FinancialRecord, 0, len(table.Records))
	for _, r := range table.Records {
		if billed(r.BillingStatus) && strings.TrimSpace(r.OrderNumber) != "" {
			out = append(out, r)
		}
	}
	return out
}

// money sums values exactly; missing and unparseable numbers count as 0.
type money struct {
	decimal.Decimal
}

func (m *money) add(n models.Number) {
	if n.Present() {
		m.Decimal = m.Decimal.Add(decimal.NewFromFloat(n.Value))
	}
}

func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
