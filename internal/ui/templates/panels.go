package templates

import (
	"fmt"
	"strconv"

	"tms-dashboard/internal/models"
)

// maxTableRows caps every table patched into the page.
const maxTableRows = 50

type kpi struct {
	label string
	value string
}

func kpiCards(m models.DerivedMetrics) []kpi {
	return []kpi{
		{"Total volume", count(m.TotalVolume)},
		{"Orders", count(m.TotalOrders)},
		{"On-time", pct(m.OnTimePercent)},
		{"Revenue", money(m.TotalRevenue)},
		{"Cost", money(m.TotalCost)},
		{"Margin", fmt.Sprintf("%s (%s)", money(m.TotalMargin), pct(m.MarginPercent))},
	}
}

func onTimeLine(m models.DerivedMetrics) string {
	return fmt.Sprintf("%d of %d orders on time (%s), %d late.",
		m.OnTimeOrders, m.TotalOrders, pct(m.OnTimePercent), m.LateOrders)
}

func timingLine(t *models.TimingStats) string {
	return fmt.Sprintf("Delivery offset over %d orders: mean %.2f, median %.2f, std dev %.2f (early %d, on target %d, late %d).",
		t.Samples, t.Mean, t.Median, t.StdDev, t.Early, t.OnTarget, t.Late)
}

func laneLine(s *models.LaneSummary) string {
	return fmt.Sprintf("%d active lanes, %d shipments, %.1f per lane.", s.ActiveLanes, s.TotalShipments, s.AveragePerLane)
}

func billedLine(m models.DerivedMetrics) string {
	return fmt.Sprintf("%d billed orders. Revenue %s, cost %s, margin %s (%s).",
		m.BilledRecords, money(m.TotalRevenue), money(m.TotalCost), money(m.TotalMargin), pct(m.MarginPercent))
}

func costLine(c *models.CostBreakdown) string {
	return fmt.Sprintf("Costs: pickup %s, ship %s, manual %s, delivery %s.",
		money(c.Pickup), money(c.Ship), money(c.Manual), money(c.Delivery))
}

func marginLine(d *models.MarginDistribution) string {
	return fmt.Sprintf("Margins: %s profitable, %s high margin, mean %s, median %s.",
		pct(d.ProfitableShare), pct(d.HighMarginShare), pct(d.Mean), pct(d.Median))
}

func outlierLine(o *models.DiffOutliers) string {
	return fmt.Sprintf("%d of %d orders have an outlying Diff (outside %s to %s).",
		o.Outliers, o.Samples, money(o.Lower), money(o.Upper))
}

func capRows[T any](rows []T) []T {
	return rows[:min(len(rows), maxTableRows)]
}

func count(n int) string {
	return strconv.Itoa(n)
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func money(v float64) string {
	return fmt.Sprintf("€%.2f", v)
}
