package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tms-dashboard/internal/models"
)

func sheetSet(sheets map[string][][]string) models.RawSheetSet {
	set := make(models.RawSheetSet, len(sheets))
	for name, rows := range sheets {
		set[name] = models.RawSheet{Name: name, Rows: rows}
	}
	return set
}

func costRow(values map[int]string) []string {
	row := make([]string, len(financialColumns))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func costHeader() []string {
	return append([]string(nil), financialColumns...)
}

func TestParseTiming_ThreeColumns(t *testing.T) {
	rows := [][]string{
		{"Order", "QDT", "POD"},
		{"T1", "45292", "45293"},
		{"T2", "", "2024-01-03"},
	}

	var res SheetResult
	table, err := parseTiming(rows, &res)
	require.NoError(t, err)

	assert.Equal(t, []string{"TMS_Order", "QDT", "POD_DateTime"}, table.Columns)
	require.Len(t, table.Records, 2)
	assert.Equal(t, models.StatusEmpty, table.Records[0].Status)
	assert.Equal(t, models.ValueMissing, table.Records[0].TimeDiffDays.State)
	assert.True(t, table.Records[0].PromisedAt.Known())
	assert.Equal(t, models.ValueMissing, table.Records[1].PromisedAt.State)
	assert.NotEmpty(t, res.Warnings)
}

func TestParseTiming_Degenerate(t *testing.T) {
	for name, rows := range map[string][][]string{
		"empty sheet":   nil,
		"header only":   {{"TMS Order"}},
		"one column":    {{"TMS Order"}, {"T1"}},
		"blank columns": {{}, {}},
	} {
		t.Run(name, func(t *testing.T) {
			var res SheetResult
			table, err := parseTiming(rows, &res)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(table.Columns), 1)
		})
	}
}

func TestParseTiming_ExtraColumnsAndDrops(t *testing.T) {
	rows := [][]string{
		{"TMS Order", "QDT", "POD", "Diff", "Status", "QC", "Comment", "Extra"},
		{"T1", "45292", "45292.25", "-0.5", "ON TIME", "", "x", "y"},
		{"", "45292", "45293", "1", "LATE", "Del Agt-Late del"},
		{"T3", "45292", "45294", "2", "LATE", "Del Agt-Late del"},
		{},
	}

	var res SheetResult
	table, err := parseTiming(rows, &res)
	require.NoError(t, err)

	assert.Equal(t, timingColumns, table.Columns)
	require.Len(t, table.Records, 2)
	assert.Equal(t, 3, res.RowsRead)
	assert.Equal(t, 1, res.RowsDropped)

	first := table.Records[0]
	assert.Equal(t, "T1", first.Order)
	assert.Equal(t, models.StatusOnTime, first.Status)
	assert.InDelta(t, -0.5, first.TimeDiffDays.Value, 1e-9)
	assert.Equal(t, 6, first.DeliveredAt.Time.Hour())

	assert.Equal(t, "Del Agt-Late del", table.Records[1].DelayReason)
	assert.Equal(t, models.StatusLate, table.Records[1].Status)
}

func TestParseFinancials_ZeroRowExcluded(t *testing.T) {
	rows := [][]string{
		costHeader(),
		costRow(map[int]string{finOrderNum: "A1", finTotalCost: "80", finNetRevenue: "100", finStatus: "Billed"}),
		costRow(map[int]string{finOrderNum: "A2", finTotalCost: "0", finNetRevenue: "0", finStatus: "Billed"}),
	}

	var res SheetResult
	table, err := parseFinancials(rows, &res)
	require.NoError(t, err)

	require.Len(t, table.Records, 1)
	assert.Equal(t, "A1", table.Records[0].OrderNumber)
	assert.Equal(t, 1, res.RowsDropped)
}

func TestParseFinancials_Cleaning(t *testing.T) {
	rows := [][]string{
		costHeader(),
		costRow(map[int]string{finOrderNum: "M1", finStatus: "Billed"}),
		costRow(map[int]string{finOrderNum: "M2", finNetRevenue: "0", finStatus: "Billed"}),
		costRow(map[int]string{finOrderNum: "M3", finNetRevenue: "abc", finTotalCost: "?"}),
		costRow(map[int]string{finOrderNum: "K1", finNetRevenue: "0", finTotalCost: "15"}),
		costRow(map[int]string{finOrderNum: "K2", finNetRevenue: "20"}),
		costRow(nil),
	}

	var res SheetResult
	table, err := parseFinancials(rows, &res)
	require.NoError(t, err)

	var kept []string
	for _, r := range table.Records {
		kept = append(kept, r.OrderNumber)
	}
	assert.Equal(t, []string{"K1", "K2"}, kept)
	assert.Equal(t, 5, res.RowsRead)
	assert.Equal(t, 3, res.RowsDropped)
}

func TestParseFinancials_Coercion(t *testing.T) {
	rows := [][]string{
		costHeader(),
		costRow(map[int]string{
			finOrderDate:     "45292",
			finOrderNum:      "C1",
			finPickupCost:    "10",
			finShipCost:      "1,000.50",
			finDeliveryCost:  "(0.50)",
			finNetRevenue:    "1,500",
			finGrossPercent:  "25%",
			finStatus:        "Billed",
			finPickupCountry: " nl ",
		}),
		costRow(map[int]string{
			finOrderDate:  "not a date",
			finOrderNum:   "C2",
			finTotalCost:  "40",
			finNetRevenue: "60",
			finDiff:       "18",
		}),
	}

	var res SheetResult
	table, err := parseFinancials(rows, &res)
	require.NoError(t, err)
	require.Len(t, table.Records, 2)

	c1 := table.Records[0]
	assert.Equal(t, 2024, c1.OrderDate.Time.Year())
	assert.Equal(t, models.ValueDerived, c1.TotalCost.State)
	assert.InDelta(t, 1010.0, c1.TotalCost.Value, 1e-9)
	assert.Equal(t, models.ValueMissing, c1.ManualCost.State)
	assert.Equal(t, models.ValueDerived, c1.Diff.State)
	assert.InDelta(t, 490.0, c1.Diff.Value, 1e-9)
	assert.InDelta(t, 0.25, c1.GrossPercent.Value, 1e-9)
	assert.Equal(t, "NL", c1.PickupCountry)

	c2 := table.Records[1]
	assert.Equal(t, models.ValueUnparseable, c2.OrderDate.State)
	assert.True(t, c2.OrderDate.Time.IsZero())
	assert.Equal(t, models.ValueValid, c2.Diff.State)
	assert.InDelta(t, 18.0, c2.Diff.Value, 1e-9)
	assert.Contains(t, res.Warnings, "1 order dates could not be parsed")
}

func TestParseFinancials_Truncated(t *testing.T) {
	rows := [][]string{
		{"Order Date", "Account", "Account Name", "Office", "Order Num"},
		{"45292", "ACC", "Acme", "AMS", "T1"},
	}

	var res SheetResult
	table, err := parseFinancials(rows, &res)
	require.NoError(t, err)

	assert.Equal(t, financialColumns[:5], table.Columns)
	assert.False(t, table.HasColumn("Net_Revenue"))
	require.Len(t, table.Records, 1, "rows are kept when money columns are absent")
	assert.Equal(t, models.ValueMissing, table.Records[0].NetRevenue.State)
}

func TestParseVolumes(t *testing.T) {
	rows := [][]string{
		{"Count of Order", ""},
		{"Row Labels", "CTX", "CX", "XX", "Grand Total"},
		{"DE", "10", "5", "", "15"},
		{"NL", "3", "0", "2", "5"},
		{"ZZ", "1", "", "", "1"},
		{"Grand Total", "14", "5", "2", "25"},
	}

	var res SheetResult
	tables, err := parseVolumes(rows, &res)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"CTX": 10, "CX": 5}, tables.Matrix["DE"])
	assert.Equal(t, map[string]int{"CTX": 3, "XX": 2}, tables.Matrix["NL"])

	assert.Equal(t, 14, tables.Services.Counts["CTX"])
	assert.Equal(t, 0, tables.Services.Counts["SF"])
	assert.Equal(t, 2, tables.Services.Counts["XX"])
	assert.Equal(t, 15, tables.Countries.Counts["DE"])
	assert.Equal(t, 0, tables.Countries.Counts["US"])
	assert.Equal(t, 1, tables.Countries.Counts["ZZ"])

	assert.Equal(t, []string{"XX"}, tables.Services.Unrecognized)
	assert.Equal(t, []string{"ZZ"}, tables.Countries.Unrecognized)

	assert.Equal(t, 21, tables.Services.Sum())
	assert.Equal(t, tables.Services.Sum(), tables.Countries.Sum())
	require.NotNil(t, tables.ReportedTotal)
	assert.Equal(t, 25, *tables.ReportedTotal)
	assert.Contains(t, res.Warnings, "reported total 25 differs from row sum 21")
}

func TestParseVolumes_Transposed(t *testing.T) {
	rows := [][]string{
		{"Service", "AT", "NL", "Grand Total"},
		{"CTX", "3", "4", "7"},
		{"ROU", "1"},
		{"Grand Total", "4", "4", "8"},
	}

	var res SheetResult
	tables, err := parseVolumes(rows, &res)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"CTX": 3, "ROU": 1}, tables.Matrix["AT"])
	assert.Equal(t, map[string]int{"CTX": 4}, tables.Matrix["NL"])
	assert.Equal(t, 7, tables.Services.Counts["CTX"])
	assert.Equal(t, 1, tables.Services.Counts["ROU"])
	assert.Equal(t, 4, tables.Countries.Counts["AT"])
	assert.Equal(t, 4, tables.Countries.Counts["NL"])
	assert.Empty(t, tables.Services.Unrecognized)
	assert.Empty(t, tables.Countries.Unrecognized)
	require.NotNil(t, tables.ReportedTotal)
	assert.Equal(t, 8, *tables.ReportedTotal)
	assert.Equal(t, 2, res.RowsKept)
	assert.Contains(t, res.Warnings, "countries across the header row, reading the pivot transposed")
}

func TestParseVolumes_Failures(t *testing.T) {
	var res SheetResult
	_, err := parseVolumes([][]string{{"Country", "Orders"}, {"DE", "4"}}, &res)
	assert.ErrorIs(t, err, errNoServiceHeader)

	res = SheetResult{}
	_, err = parseVolumes([][]string{{"", "CTX", "CX"}}, &res)
	assert.Error(t, err)
}

func TestParseLanes_Matrix(t *testing.T) {
	rows := [][]string{
		{"Origin \\ Dest", "DE", "NL", "Total"},
		{"NL", "4", "0", "4"},
		{"CN", "2", "7", "9"},
		{"QQ", "1", "", "1"},
		{"Total", "7", "7", "14"},
	}

	var res SheetResult
	network, err := parseLanes(rows, &res)
	require.NoError(t, err)

	assert.Equal(t, []models.LaneRecord{
		{Origin: "CN", Destination: "DE", Shipments: 2, Recognized: true},
		{Origin: "CN", Destination: "NL", Shipments: 7, Recognized: true},
		{Origin: "NL", Destination: "DE", Shipments: 4, Recognized: true},
		{Origin: "QQ", Destination: "DE", Shipments: 1, Recognized: false},
	}, network.Lanes)
	assert.Equal(t, 3, res.RowsKept)
	assert.Contains(t, res.Warnings, "unrecognized lane QQ-DE")
}

func TestParseLanes_Long(t *testing.T) {
	rows := [][]string{
		{"Origin", "Destination", "Shipments"},
		{"nl", "de", "3"},
		{"NL", "DE", "2"},
		{"CH", "FR", "0"},
		{"", "DE", "1"},
	}

	var res SheetResult
	network, err := parseLanes(rows, &res)
	require.NoError(t, err)

	require.Len(t, network.Lanes, 1)
	assert.Equal(t, models.LaneRecord{Origin: "NL", Destination: "DE", Shipments: 5, Recognized: true}, network.Lanes[0])
	assert.Equal(t, 4, res.RowsRead)
	assert.Equal(t, 2, res.RowsDropped)
}

func TestParseLanes_NoHeader(t *testing.T) {
	var res SheetResult
	_, err := parseLanes([][]string{{"nothing", "here"}}, &res)
	assert.ErrorIs(t, err, errNoLaneHeader)
}

func TestLookup(t *testing.T) {
	sheets := sheetSet(map[string][][]string{
		"Lane usage ": {{"x"}},
		"OTP POD":     {{"y"}},
	})

	s, ok := Lookup(sheets, SheetLanes)
	require.True(t, ok)
	assert.Equal(t, "Lane usage ", s.Name)

	_, ok = Lookup(sheets, "otp  pod")
	assert.True(t, ok)

	_, ok = Lookup(sheets, SheetVolumes)
	assert.False(t, ok)
}

func TestParse_SheetIsolation(t *testing.T) {
	sheets := sheetSet(map[string][][]string{
		"OTP POD":        {{"TMS Order", "QDT", "POD"}, {"T1", "45292", "45293"}},
		"Volume per SVC": {{"nothing recognizable"}},
		"cost sales": {
			costHeader(),
			costRow(map[int]string{finOrderNum: "A1", finTotalCost: "80", finNetRevenue: "100", finStatus: "Billed"}),
		},
	})

	p := NewParser(nil, Options{})
	ds, report := p.Parse(context.Background(), sheets)

	require.NotNil(t, ds.Timing)
	require.NotNil(t, ds.Financials)
	assert.Nil(t, ds.Volumes, "failed sheet omits its entity")
	assert.Nil(t, ds.Lanes)
	assert.Nil(t, ds.RawData)

	assert.Equal(t, 5, report.TotalSheets)
	assert.Equal(t, 2, report.ParsedSheets)
	assert.Equal(t, 2, report.MissingSheets)
	assert.Equal(t, 1, report.FailedSheets)

	vol, ok := report.Sheet(SheetVolumes)
	require.True(t, ok)
	assert.Equal(t, SheetFailed, vol.Status)

	errs := report.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, SheetVolumes, errs[0].Sheet)
}

func TestParse_PanicIsolated(t *testing.T) {
	saved := sheetParsers
	t.Cleanup(func() { sheetParsers = saved })

	sheetParsers = append([]sheetParser(nil), saved...)
	sheetParsers[0].parse = func([][]string, *SheetResult) (applyFunc, error) {
		panic("boom")
	}

	sheets := sheetSet(map[string][][]string{
		SheetRawData: {{"a"}},
		SheetTiming:  {{"TMS Order"}, {"T1"}},
	})

	ds, report := NewParser(nil, Options{}).Parse(context.Background(), sheets)

	assert.Nil(t, ds.RawData)
	require.NotNil(t, ds.Timing)
	raw, _ := report.Sheet(SheetRawData)
	assert.Equal(t, SheetFailed, raw.Status)
	assert.Equal(t, "panic: boom", raw.Error)
}

func TestParseBytes_NotASpreadsheet(t *testing.T) {
	ds, report, err := NewParser(nil, Options{}).ParseBytes(context.Background(), []byte("a,b\n1,2\n"), "export.csv")

	assert.True(t, errors.Is(err, ErrIngestion))
	assert.Nil(t, ds)
	assert.Nil(t, report)
}

func TestParseBytes_Workbook(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })

	require.NoError(t, f.SetSheetName("Sheet1", "OTP POD"))
	require.NoError(t, f.SetSheetRow("OTP POD", "A1", &[]any{"TMS Order", "QDT", "POD", "Diff", "Status", "QC"}))
	require.NoError(t, f.SetSheetRow("OTP POD", "A2", &[]any{"T1", 45292, 45292.5, 0.5, "LATE", "Del Agt-Late del"}))

	_, err := f.NewSheet("Lane usage ")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Lane usage ", "A1", &[]any{"", "DE", "NL"}))
	require.NoError(t, f.SetSheetRow("Lane usage ", "A2", &[]any{"NL", 3, 0}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, report, err := NewParser(nil, Options{}).ParseBytes(context.Background(), buf.Bytes(), "tms.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "xlsx", report.Format)
	assert.Equal(t, "tms.xlsx", ds.Source.FileName)
	assert.EqualValues(t, buf.Len(), ds.Source.SizeBytes)

	require.NotNil(t, ds.Timing)
	require.Len(t, ds.Timing.Records, 1)
	assert.Equal(t, models.StatusLate, ds.Timing.Records[0].Status)
	assert.Equal(t, 12, ds.Timing.Records[0].DeliveredAt.Time.Hour())

	require.NotNil(t, ds.Lanes)
	assert.Equal(t, []models.LaneRecord{{Origin: "NL", Destination: "DE", Shipments: 3, Recognized: true}}, ds.Lanes.Lanes)

	lanes, _ := report.Sheet(SheetLanes)
	assert.Equal(t, "Lane usage ", lanes.MatchedName)
}

func BenchmarkParse(b *testing.B) {
	rows := [][]string{costHeader()}
	for i := range 500 {
		rows = append(rows, costRow(map[int]string{
			finOrderDate:  "45292",
			finOrderNum:   "O" + string(rune('A'+i%26)),
			finTotalCost:  "80",
			finNetRevenue: "100",
			finStatus:     "Billed",
		}))
	}
	sheets := sheetSet(map[string][][]string{SheetFinancials: rows})
	p := NewParser(nil, Options{})

	for b.Loop() {
		p.Parse(context.Background(), sheets)
	}
}
