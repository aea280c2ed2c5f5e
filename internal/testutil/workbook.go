// Package testutil builds spreadsheet fixtures for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

type Sheet struct {
	Name string
	Rows [][]any
}

// Workbook renders sheets into .xlsx bytes in the given order.
func Workbook(t testing.TB, sheets ...Sheet) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			t.Fatalf("new sheet %q: %v", s.Name, err)
		}
		for r, row := range s.Rows {
			cellRef, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetSheetRow(s.Name, cellRef, &row); err != nil {
				t.Fatalf("write %q row %d: %v", s.Name, r+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// WriteFile stores a workbook under the test's temp dir and returns its path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// OTPSheet returns a timing sheet with the given statuses, one order each.
func OTPSheet(statuses ...string) Sheet {
	rows := [][]any{{"TMS Order", "QDT", "POD", "Diff", "Status", "QC"}}
	for i, st := range statuses {
		rows = append(rows, []any{"T" + string(rune('A'+i)), 45292, 45292.5, 0.5, st, ""})
	}
	return Sheet{Name: "OTP POD", Rows: rows}
}

// CostRow is one order line of the cost sheet.
type CostRow struct {
	Account string
	Order   string
	Revenue float64
	Cost    float64
	Gross   float64
	Status  string
	Country string
	// Date is the order date cell; zero means 2024-01-01 as a serial.
	Date any
}

// CostSheet returns a cost sheet in the exported column order.
func CostSheet(lines ...CostRow) Sheet {
	rows := [][]any{{
		"Order_Date", "Account", "Account_Name", "Office", "Order_Num",
		"PU_Cost", "Ship_Cost", "Man_Cost", "Del_Cost", "Total_Cost",
		"Net_Revenue", "Currency", "Diff", "Gross_Percent", "Invoice_Num",
		"Total_Amount", "Status", "PU_Country",
	}}
	for _, l := range lines {
		date := l.Date
		if date == nil {
			date = 45292
		}
		rows = append(rows, []any{
			date, l.Account, l.Account + " BV", "AMS", l.Order,
			l.Cost, 0, 0, 0, l.Cost,
			l.Revenue, "EUR", l.Revenue - l.Cost, l.Gross, "INV-" + l.Order,
			l.Revenue, l.Status, l.Country,
		})
	}
	return Sheet{Name: "cost sales", Rows: rows}
}

// LaneSheet returns a lane matrix with destinations across the top.
func LaneSheet(destinations []string, origins map[string][]int) Sheet {
	header := []any{""}
	for _, d := range destinations {
		header = append(header, d)
	}
	rows := [][]any{header}
	for origin, counts := range origins {
		row := []any{origin}
		for _, c := range counts {
			row = append(row, c)
		}
		rows = append(rows, row)
	}
	return Sheet{Name: "Lane usage", Rows: rows}
}
