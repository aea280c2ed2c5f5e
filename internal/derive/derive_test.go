package derive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tms-dashboard/internal/models"
)

var allFinancialColumns = []string{
	"Order_Date", "Account", "Account_Name", "Office", "Order_Num",
	"PU_Cost", "Ship_Cost", "Man_Cost", "Del_Cost", "Total_Cost",
	"Net_Revenue", "Currency", "Diff", "Gross_Percent", "Invoice_Num",
	"Total_Amount", "Status", "PU_Country",
}

func num(v float64) models.Number { return models.ValidNumber(v) }

func timing(statuses ...string) *models.TimingTable {
	t := &models.TimingTable{Columns: []string{"TMS_Order", "QDT", "POD_DateTime", "Time_Diff", "Status"}}
	for i, s := range statuses {
		rec := models.OrderTimingRecord{Order: string(rune('A' + i)), StatusText: s}
		switch s {
		case "ON TIME":
			rec.Status = models.StatusOnTime
		case "LATE":
			rec.Status = models.StatusLate
		case "":
			rec.Status = models.StatusEmpty
		default:
			rec.Status = models.StatusOther
		}
		t.Records = append(t.Records, rec)
	}
	return t
}

func TestCompute_OnTime(t *testing.T) {
	m := Compute(&models.Dataset{Timing: timing("ON TIME", "LATE", "ON TIME", "", "LATE")})

	assert.Equal(t, 4, m.TotalOrders)
	assert.Equal(t, 2, m.OnTimeOrders)
	assert.Equal(t, 2, m.LateOrders)
	assert.Equal(t, 50.0, m.OnTimePercent)
}

func TestCompute_OnTimeBounds(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     float64
	}{
		{"no rows", nil, 0},
		{"only blank", []string{"", ""}, 0},
		{"all on time", []string{"ON TIME", "ON TIME"}, 100},
		{"other counts as an order", []string{"ON TIME", "CANCELLED"}, 50},
		{"all late", []string{"LATE"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Compute(&models.Dataset{Timing: timing(tt.statuses...)})
			assert.Equal(t, tt.want, m.OnTimePercent)
			assert.GreaterOrEqual(t, m.OnTimePercent, 0.0)
			assert.LessOrEqual(t, m.OnTimePercent, 100.0)
		})
	}
}

func TestCompute_VolumePrefersReportedTotal(t *testing.T) {
	reported := 1000
	tables := &models.VolumeTables{
		Services:      models.VolumeTable{Counts: map[string]int{"CTX": 400, "CX": 350}},
		ReportedTotal: &reported,
	}

	assert.Equal(t, 1000, Compute(&models.Dataset{Volumes: tables}).TotalVolume)

	tables.ReportedTotal = nil
	assert.Equal(t, 750, Compute(&models.Dataset{Volumes: tables}).TotalVolume)

	assert.Zero(t, Compute(&models.Dataset{}).TotalVolume)
	assert.Zero(t, Compute(nil).TotalVolume)
}

func TestCompute_FinancialExample(t *testing.T) {
	// The all-zero row is removed at parse time, so only A1 and A3 remain.
	table := &models.FinancialTable{
		Columns: allFinancialColumns,
		Records: []models.FinancialRecord{
			{OrderNumber: "A1", NetRevenue: num(100), TotalCost: num(80), Diff: models.DerivedNumber(20), BillingStatus: "Billed"},
			{OrderNumber: "A3", NetRevenue: num(50), TotalCost: num(60), Diff: models.DerivedNumber(-10), BillingStatus: "Pending"},
		},
	}

	billed := BilledRecords(table)
	require.Len(t, billed, 1)
	assert.Equal(t, "A1", billed[0].OrderNumber)

	m := Compute(&models.Dataset{Financials: table})
	assert.Equal(t, 100.0, m.TotalRevenue)
	assert.Equal(t, 80.0, m.TotalCost)
	assert.Equal(t, 20.0, m.TotalMargin)
	assert.Equal(t, 20.0, m.MarginPercent)
	assert.Equal(t, 1, m.BilledRecords)
}

func TestCompute_NullOrderNumberExcluded(t *testing.T) {
	table := &models.FinancialTable{
		Columns: allFinancialColumns,
		Records: []models.FinancialRecord{
			{OrderNumber: "", NetRevenue: num(500), TotalCost: num(100), BillingStatus: "billed"},
			{OrderNumber: "B1", NetRevenue: num(10), TotalCost: num(5), BillingStatus: "BILLED"},
		},
	}

	m := Compute(&models.Dataset{Financials: table})
	assert.Equal(t, 10.0, m.TotalRevenue)
	assert.Equal(t, 5.0, m.TotalCost)
}

func TestCompute_MarginWithoutDiffColumn(t *testing.T) {
	table := &models.FinancialTable{
		Columns: allFinancialColumns[:12],
		Records: []models.FinancialRecord{
			{OrderNumber: "C1", NetRevenue: num(200), TotalCost: num(150), BillingStatus: "Billed"},
			{OrderNumber: "C2", NetRevenue: models.Number{State: models.ValueUnparseable}, TotalCost: num(30), BillingStatus: "Billed"},
		},
	}

	m := Compute(&models.Dataset{Financials: table})
	assert.Equal(t, 200.0, m.TotalRevenue)
	assert.Equal(t, 180.0, m.TotalCost)
	assert.Equal(t, 20.0, m.TotalMargin)
	assert.Equal(t, 10.0, m.MarginPercent)
}

func TestCompute_MarginPercentZeroRevenue(t *testing.T) {
	for _, cost := range []float64{0, 50, -50, 1e9} {
		table := &models.FinancialTable{
			Columns: allFinancialColumns,
			Records: []models.FinancialRecord{
				{OrderNumber: "Z", NetRevenue: num(0), TotalCost: num(cost), Diff: models.DerivedNumber(-cost), BillingStatus: "Billed"},
			},
		}
		m := Compute(&models.Dataset{Financials: table})
		assert.Zero(t, m.MarginPercent, "cost %v", cost)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	table := &models.FinancialTable{Columns: allFinancialColumns}
	for i := range 200 {
		table.Records = append(table.Records, models.FinancialRecord{
			OrderNumber:   "O",
			NetRevenue:    num(0.1 * float64(i)),
			TotalCost:     num(0.07 * float64(i)),
			Diff:          num(0.03 * float64(i)),
			BillingStatus: "Billed",
		})
	}
	ds := &models.Dataset{Financials: table, Timing: timing("ON TIME", "LATE", "LATE")}

	first := Compute(ds)
	for range 5 {
		assert.Equal(t, first, Compute(ds))
	}
	assert.InDelta(t, 1990.0, first.TotalRevenue, 1e-9)
}

func TestIsBilled(t *testing.T) {
	tests := []struct {
		status   string
		billed   bool
		contains bool
	}{
		{"Billed", true, true},
		{"billed", true, true},
		{"Partially BILLED", true, true},
		{"Billed - Invoiced", true, true},
		{"Unbilled", false, true},
		{"Not billed", false, true},
		{"Non-Billed", false, true},
		{"Pending", false, false},
		{"Ready to be invoice", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.billed, IsBilled(tt.status), "IsBilled")
			assert.Equal(t, tt.contains, ContainsBilled(tt.status), "ContainsBilled")
		})
	}
}

func TestReportWith_LiteralBilled(t *testing.T) {
	ds := &models.Dataset{Financials: &models.FinancialTable{Columns: allFinancialColumns, Records: []models.FinancialRecord{
		{OrderNumber: "O1", BillingStatus: "Billed", NetRevenue: num(100), TotalCost: num(80), Diff: num(20)},
		{OrderNumber: "O2", BillingStatus: "Unbilled", NetRevenue: num(50), TotalCost: num(40), Diff: num(10)},
	}}}

	s := ReportWith(ds, DefaultOptions())
	assert.Equal(t, 1, s.Metrics.BilledRecords)
	assert.Equal(t, 100.0, s.Metrics.TotalRevenue)

	opts := DefaultOptions()
	opts.LiteralBilled = true
	s = ReportWith(ds, opts)
	assert.Equal(t, 2, s.Metrics.BilledRecords)
	assert.Equal(t, 150.0, s.Metrics.TotalRevenue)
	assert.Equal(t, 2, s.Outliers.Samples, "views share the metrics filter")
}

func TestClassifyDelays_MultiMatch(t *testing.T) {
	table := &models.TimingTable{Records: []models.OrderTimingRecord{
		{Order: "1", DelayReason: "Customer-Changed delivery parameters and Consignee-Driver waiting at delivery"},
		{Order: "2", DelayReason: "MNX-Incorrect QDT"},
		{Order: "3", DelayReason: "Weather"},
		{Order: "4"},
	}}

	got := ClassifyDelays(table)

	counts := make(map[string]int)
	for _, r := range got.Reasons {
		counts[r.Phrase] = r.Count
	}
	assert.Equal(t, 1, counts["Customer-Changed delivery parameters"])
	assert.Equal(t, 1, counts["Consignee-Driver waiting at delivery"])
	assert.Equal(t, 1, counts["MNX-Incorrect QDT"])
	assert.Equal(t, 0, counts["Del Agt-Late del"])
	assert.Len(t, got.Reasons, len(models.DelayReasons))

	assert.Equal(t, map[models.DelayCategory]int{
		models.CategoryCustomer: 1,
		models.CategorySystem:   1,
		models.CategoryDelivery: 1,
	}, got.Categories)
}

func TestClassifyDelays_Nil(t *testing.T) {
	got := ClassifyDelays(nil)
	assert.Len(t, got.Reasons, len(models.DelayReasons))
	assert.Len(t, got.Categories, 3)
}

func TestTimingStats(t *testing.T) {
	table := &models.TimingTable{}
	for _, v := range []float64{-2, -1, 0, 1, 7} {
		table.Records = append(table.Records, models.OrderTimingRecord{Order: "x", TimeDiffDays: num(v)})
	}
	table.Records = append(table.Records, models.OrderTimingRecord{Order: "y", TimeDiffDays: models.Number{State: models.ValueUnparseable}})

	s := TimingStats(table)
	assert.Equal(t, 5, s.Samples)
	assert.InDelta(t, 1.0, s.Mean, 1e-9)
	assert.Equal(t, 0.0, s.Median)
	assert.InDelta(t, 3.5355339, s.StdDev, 1e-6)
	assert.Equal(t, -2.0, s.Min)
	assert.Equal(t, 7.0, s.Max)
	assert.Equal(t, 2, s.Early)
	assert.Equal(t, 1, s.OnTarget)
	assert.Equal(t, 2, s.Late)

	assert.Zero(t, TimingStats(&models.TimingTable{}).Samples)
}

func TestFinancialViews(t *testing.T) {
	records := []models.FinancialRecord{
		{AccountName: "Acme", PickupCountry: "NL", PickupCost: num(10), ShipCost: num(20), NetRevenue: num(100), TotalCost: num(70), Diff: num(30), GrossPercent: num(0.3)},
		{AccountName: "Acme", PickupCountry: "NL", DeliveryCost: num(5), NetRevenue: num(50), TotalCost: num(60), Diff: num(-10), GrossPercent: num(-0.2)},
		{AccountName: "Beta", PickupCountry: "DE", ManualCost: num(2.5), NetRevenue: num(40), TotalCost: num(50), Diff: num(-10), GrossPercent: num(0.1)},
		{AccountName: "Gamma", PickupCountry: "CH", NetRevenue: num(10), TotalCost: num(5), Diff: num(5)},
	}

	costs := CostBreakdown(records)
	assert.Equal(t, models.CostBreakdown{Pickup: 10, Ship: 20, Manual: 2.5, Delivery: 5}, costs)

	margins := MarginDistribution(records)
	assert.Equal(t, 3, margins.Samples)
	assert.InDelta(t, 66.666666, margins.ProfitableShare, 1e-4)
	assert.InDelta(t, 33.333333, margins.HighMarginShare, 1e-4)
	assert.InDelta(t, 10.0, margins.Median, 1e-9)

	countries := CountryFinancials(records)
	assert.Len(t, countries, len(models.Countries)+1, "unlisted pickup countries are appended")
	assert.Equal(t, "NL", countries[0].Country)
	assert.Equal(t, 150.0, countries[0].Revenue)
	assert.Equal(t, 20.0, countries[0].Profit)
	assert.InDelta(t, 5.0, countries[0].MarginPercent, 1e-9)
	assert.Equal(t, 2, countries[0].Orders)
	for _, c := range countries {
		if c.Country == "US" {
			assert.Zero(t, c.Orders)
			assert.Zero(t, c.Revenue)
		}
	}

	accounts := AccountProfitability(records)
	require.Len(t, accounts, 3)
	assert.Equal(t, models.AccountProfit{Account: "Acme", Profit: 20, Orders: 2}, accounts[0])

	losses := LossAccounts(records, 10)
	require.Len(t, losses, 2)
	assert.Equal(t, -10.0, losses[0].Profit)
	assert.Len(t, LossAccounts(records, 1), 1)
}

func TestLaneSummary(t *testing.T) {
	network := &models.LaneNetwork{Lanes: []models.LaneRecord{
		{Origin: "CN", Destination: "NL", Shipments: 7, Recognized: true},
		{Origin: "NL", Destination: "DE", Shipments: 4, Recognized: true},
		{Origin: "NL", Destination: "NL", Shipments: 4, Recognized: true},
		{Origin: "QQ", Destination: "DE", Shipments: 1},
	}}

	s := LaneSummary(network, 2)

	assert.Equal(t, 4, s.ActiveLanes)
	assert.Equal(t, 16, s.TotalShipments)
	assert.Equal(t, 4.0, s.AveragePerLane)
	assert.Equal(t, 1, s.Unrecognized)
	assert.Equal(t, []models.CodeVolume{{Code: "NL", Volume: 8}, {Code: "CN", Volume: 7}, {Code: "QQ", Volume: 1}}, s.Origins)

	require.Len(t, s.TopLanes, 2)
	assert.Equal(t, "CN → NL", s.TopLanes[0].Label)
	assert.Equal(t, models.LaneInternational, s.TopLanes[0].Type)
	assert.Equal(t, "NL → DE", s.TopLanes[1].Label)

	all := LaneSummary(network, 0)
	require.Len(t, all.TopLanes, 4)
	assert.Equal(t, models.LaneDomestic, all.TopLanes[2].Type)

	assert.Equal(t, []string{"CN", "NL", "QQ"}, s.Matrix.Origins)
	assert.Equal(t, []string{"DE", "NL"}, s.Matrix.Destinations)
	assert.Equal(t, [][]int{{0, 7}, {4, 4}, {1, 0}}, s.Matrix.Cells)
}

func TestVolumeShares(t *testing.T) {
	tables := &models.VolumeTables{
		Services:  models.VolumeTable{Counts: map[string]int{"CTX": 30, "CX": 10, "SF": 0}},
		Countries: models.VolumeTable{Counts: map[string]int{"NL": 40}},
	}

	got := VolumeShares(tables)
	assert.Equal(t, []models.Share{
		{Code: "CTX", Volume: 30, Percent: 75},
		{Code: "CX", Volume: 10, Percent: 25},
		{Code: "SF", Volume: 0, Percent: 0},
	}, got.Services)
	assert.Equal(t, 100.0, got.Countries[0].Percent)

	empty := VolumeShares(&models.VolumeTables{Services: models.VolumeTable{Counts: map[string]int{"CTX": 0}}})
	assert.Zero(t, empty.Services[0].Percent)
}

func dated(layout string) models.Timestamp {
	t, err := time.Parse("2006-01-02", layout)
	if err != nil {
		panic(err)
	}
	return models.ValidTimestamp(t)
}

func TestFinancialTrend(t *testing.T) {
	records := []models.FinancialRecord{
		{OrderDate: dated("2024-01-15"), NetRevenue: num(100), TotalCost: num(70), Diff: num(30)},
		{OrderDate: dated("2024-01-20"), NetRevenue: num(50), TotalCost: num(60), Diff: num(-10)},
		{OrderDate: dated("2024-04-02"), NetRevenue: num(40), TotalCost: num(50), Diff: num(-10)},
		{OrderDate: dated("2023-12-31"), NetRevenue: num(10), TotalCost: num(5), Diff: num(5)},
		{NetRevenue: num(999), Diff: num(999)},
		{OrderDate: models.Timestamp{State: models.ValueUnparseable}, NetRevenue: num(1)},
	}

	trend := FinancialTrend(records)
	assert.Equal(t, 2, trend.Undated)

	tests := []struct {
		name   string
		got    []models.PeriodTotals
		expect []models.PeriodTotals
	}{
		{"monthly", trend.Monthly, []models.PeriodTotals{
			{Period: "2023-12", Orders: 1, Revenue: 10, Cost: 5, Diff: 5, CumulativeProfit: 5},
			{Period: "2024-01", Orders: 2, Revenue: 150, Cost: 130, Diff: 20, CumulativeProfit: 25},
			{Period: "2024-04", Orders: 1, Revenue: 40, Cost: 50, Diff: -10, CumulativeProfit: 15},
		}},
		{"quarterly", trend.Quarterly, []models.PeriodTotals{
			{Period: "2023Q4", Orders: 1, Revenue: 10, Cost: 5, Diff: 5, CumulativeProfit: 5},
			{Period: "2024Q1", Orders: 2, Revenue: 150, Cost: 130, Diff: 20, CumulativeProfit: 25},
			{Period: "2024Q2", Orders: 1, Revenue: 40, Cost: 50, Diff: -10, CumulativeProfit: 15},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.got)
		})
	}

	empty := FinancialTrend(nil)
	assert.Empty(t, empty.Monthly)
	assert.Zero(t, empty.Undated)
}

func TestDiffOutliers(t *testing.T) {
	tests := []struct {
		name      string
		diffs     []float64
		q1, q3    float64
		low, high int
	}{
		{"one high", []float64{1, 2, 3, 4, 100}, 2, 4, 0, 1},
		{"both sides", []float64{-50, 1, 2, 3, 4, 100}, 1.25, 3.75, 1, 1},
		{"flat", []float64{5, 5, 5}, 5, 5, 0, 0},
		{"single", []float64{7}, 7, 7, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []models.FinancialRecord
			for _, d := range tt.diffs {
				records = append(records, models.FinancialRecord{Diff: num(d)})
			}
			records = append(records, models.FinancialRecord{})

			got := DiffOutliers(records)
			assert.Equal(t, len(tt.diffs), got.Samples)
			assert.InDelta(t, tt.q1, got.Q1, 1e-9)
			assert.InDelta(t, tt.q3, got.Q3, 1e-9)
			assert.InDelta(t, tt.q1-1.5*(tt.q3-tt.q1), got.Lower, 1e-9)
			assert.InDelta(t, tt.q3+1.5*(tt.q3-tt.q1), got.Upper, 1e-9)
			assert.Equal(t, tt.low, got.Low)
			assert.Equal(t, tt.high, got.High)
			assert.Equal(t, tt.low+tt.high, got.Outliers)
		})
	}

	assert.Equal(t, models.DiffOutliers{}, DiffOutliers(nil))
}

func TestProfitPerShipment(t *testing.T) {
	assert.Zero(t, ProfitPerShipment(models.DerivedMetrics{TotalMargin: 50}))
	assert.Equal(t, 12.5, ProfitPerShipment(models.DerivedMetrics{TotalMargin: 50, TotalVolume: 4}))
	assert.Equal(t, -2.5, ProfitPerShipment(models.DerivedMetrics{TotalMargin: -10, TotalVolume: 4}))
}

func TestReport(t *testing.T) {
	s := Report(&models.Dataset{Timing: timing("ON TIME")})
	assert.NotNil(t, s.Delays)
	assert.NotNil(t, s.Timing)
	assert.Nil(t, s.Volumes)
	assert.Nil(t, s.Lanes)
	assert.Nil(t, s.Costs)
	assert.Equal(t, 100.0, s.Metrics.OnTimePercent)
	assert.Nil(t, s.Trend)
	assert.Nil(t, s.Outliers)

	reported := 4
	s = Report(&models.Dataset{
		Volumes: &models.VolumeTables{ReportedTotal: &reported},
		Financials: &models.FinancialTable{Columns: allFinancialColumns, Records: []models.FinancialRecord{
			{OrderNumber: "O1", BillingStatus: "Billed", OrderDate: dated("2024-02-01"), NetRevenue: num(100), TotalCost: num(60), Diff: num(40)},
			{OrderNumber: "O2", BillingStatus: "Unbilled", OrderDate: dated("2024-03-01"), NetRevenue: num(100), Diff: num(100)},
		}},
	})
	require.NotNil(t, s.Trend)
	require.NotNil(t, s.Outliers)
	assert.Len(t, s.Trend.Monthly, 1, "unbilled rows stay out of the trend")
	assert.Equal(t, 1, s.Outliers.Samples)
	assert.Equal(t, 10.0, s.ProfitPerShipment)

	assert.Equal(t, models.Summary{}, Report(nil))
}

func BenchmarkCompute(b *testing.B) {
	table := &models.FinancialTable{Columns: allFinancialColumns}
	for i := range 1000 {
		table.Records = append(table.Records, models.FinancialRecord{
			OrderNumber:   "O",
			NetRevenue:    num(float64(i)),
			TotalCost:     num(float64(i) * 0.8),
			Diff:          num(float64(i) * 0.2),
			BillingStatus: "Billed",
		})
	}
	ds := &models.Dataset{Financials: table, Timing: timing("ON TIME", "LATE")}

	for b.Loop() {
		Report(ds)
	}
}
