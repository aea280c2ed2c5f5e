package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"tms-dashboard/internal/models"
)

func mustRender(t *testing.T, c templ.Component) string {
	t.Helper()
	html, err := Render(context.Background(), c)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return html
}

func TestDashboard(t *testing.T) {
	html := mustRender(t, Dashboard())

	for _, want := range []string{
		"<!DOCTYPE html>",
		`id="` + KPIsID + `"`,
		`id="` + OTPID + `"`,
		`id="` + LanesID + `"`,
		`id="` + FinancialsID + `"`,
		"@get('/sse/refresh-all')",
		`name="file"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestKPIs(t *testing.T) {
	html := mustRender(t, KPIs(models.DerivedMetrics{
		TotalVolume:   1200,
		TotalOrders:   4,
		OnTimePercent: 50,
		TotalRevenue:  100,
		TotalMargin:   20,
		MarginPercent: 20,
	}))

	for _, want := range []string{`id="kpi-content"`, "1200", "50.0%", "€100.00", "€20.00 (20.0%)"} {
		if !strings.Contains(html, want) {
			t.Errorf("KPIs missing %q in %s", want, html)
		}
	}
}

func TestLanes(t *testing.T) {
	html := mustRender(t, Lanes(nil))
	if !strings.Contains(html, "No lane usage sheet") {
		t.Errorf("nil summary should render the empty state: %s", html)
	}

	top := make([]models.RankedLane, maxTableRows+5)
	for i := range top {
		top[i] = models.RankedLane{Label: "NL → DE", Type: models.LaneInternational}
	}
	html = mustRender(t, Lanes(&models.LaneSummary{ActiveLanes: len(top), TopLanes: top}))
	if rows := strings.Count(html, "<tr>") - 1; rows != maxTableRows {
		t.Errorf("rows = %d, want %d", rows, maxTableRows)
	}
}

func TestFinancials_EscapesAccountNames(t *testing.T) {
	s := models.Summary{
		Costs:        &models.CostBreakdown{Pickup: 10},
		LossAccounts: []models.AccountProfit{{Account: "<script>x</script>", Profit: -5, Orders: 1}},
		CountryFinance: []models.CountryFinancial{
			{Country: "NL", Revenue: 100, Cost: 120, Profit: -20},
		},
	}
	html := mustRender(t, Financials(models.DerivedMetrics{}, s))

	if strings.Contains(html, "<script>x</script>") {
		t.Error("account name was not escaped")
	}
	if !strings.Contains(html, `class="negative">€-20.00`) {
		t.Errorf("negative profit not flagged: %s", html)
	}
}

func TestEmpty(t *testing.T) {
	html := mustRender(t, Empty(OTPID))
	if !strings.HasPrefix(html, `<div id="otp-content">`) {
		t.Errorf("Empty() = %s", html)
	}
}

func TestFinancials_TrendAndOutliers(t *testing.T) {
	s := models.Summary{
		Costs:             &models.CostBreakdown{},
		ProfitPerShipment: 2.5,
		Outliers:          &models.DiffOutliers{Samples: 6, Outliers: 2, Lower: -2.5, Upper: 7.5},
		Trend: &models.FinancialTrend{Monthly: []models.PeriodTotals{
			{Period: "2024-01", Revenue: 150, Cost: 130, Diff: 20, CumulativeProfit: 20},
			{Period: "2024-02", Revenue: 50, Cost: 60, Diff: -10, CumulativeProfit: 10},
		}},
	}

	html := mustRender(t, Financials(models.DerivedMetrics{TotalVolume: 8}, s))
	for _, want := range []string{
		"Monthly trend",
		"<td>2024-02</td>",
		`<td class="negative">€-10.00</td><td>€10.00</td>`,
		"Profit per shipment: €2.50",
		"2 of 6 orders have an outlying Diff (outside €-2.50 to €7.50).",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("financials missing %q in %s", want, html)
		}
	}

	html = mustRender(t, Financials(models.DerivedMetrics{}, models.Summary{Costs: &models.CostBreakdown{}}))
	if strings.Contains(html, "Profit per shipment") || strings.Contains(html, "Monthly trend") {
		t.Errorf("views without data should be omitted: %s", html)
	}
}
