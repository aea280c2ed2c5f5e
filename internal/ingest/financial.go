package ingest

import (
	"tms-dashboard/internal/models"
)

// Canonical cost/sales columns, in sheet order.
var financialColumns = []string{
	"Order_Date", "Account", "Account_Name", "Office", "Order_Num",
	"PU_Cost", "Ship_Cost", "Man_Cost", "Del_Cost", "Total_Cost",
	"Net_Revenue", "Currency", "Diff", "Gross_Percent", "Invoice_Num",
	"Total_Amount", "Status", "PU_Country",
}

const (
	finOrderDate = iota
	finAccount
	finAccountName
	finOffice
	finOrderNum
	finPickupCost
	finShipCost
	finManualCost
	finDeliveryCost
	finTotalCost
	finNetRevenue
	finCurrency
	finDiff
	finGrossPercent
	finInvoiceNum
	finTotalAmount
	finStatus
	finPickupCountry
)

// parseFinancials maps columns by position. Columns past the canonical set
// are ignored; a narrower sheet truncates the set.
func parseFinancials(rows [][]string, res *SheetResult) (*models.FinancialTable, error) {
	width := widest(rows, len(financialColumns))
	table := &models.FinancialTable{
		Columns: append([]string(nil), financialColumns[:width]...),
		Records: []models.FinancialRecord{},
	}
	if len(rows) == 0 {
		return table, nil
	}

	text := func(row []string, col int) string {
		if col >= width {
			return ""
		}
		return cell(row, col)
	}
	number := func(row []string, col int) models.Number {
		return parseNumber(text(row, col))
	}

	// Cleaning needs both money columns to exist.
	clean := table.HasColumn("Net_Revenue") && table.HasColumn("Total_Cost")
	var unparseableDates int

	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		res.RowsRead++

		rec := models.FinancialRecord{
			OrderDate:     parseTimestamp(text(row, finOrderDate)),
			Account:       text(row, finAccount),
			AccountName:   text(row, finAccountName),
			Office:        text(row, finOffice),
			OrderNumber:   text(row, finOrderNum),
			PickupCost:    number(row, finPickupCost),
			ShipCost:      number(row, finShipCost),
			ManualCost:    number(row, finManualCost),
			DeliveryCost:  number(row, finDeliveryCost),
			TotalCost:     number(row, finTotalCost),
			NetRevenue:    number(row, finNetRevenue),
			Currency:      text(row, finCurrency),
			Diff:          number(row, finDiff),
			GrossPercent:  number(row, finGrossPercent),
			InvoiceNumber: text(row, finInvoiceNum),
			TotalAmount:   number(row, finTotalAmount),
			BillingStatus: text(row, finStatus),
			PickupCountry: normalizeCode(text(row, finPickupCountry)),
		}
		if rec.OrderDate.State == models.ValueUnparseable {
			unparseableDates++
		}
		fillDerived(&rec)

		if clean && !keepFinancial(rec) {
			res.RowsDropped++
			continue
		}

		table.Records = append(table.Records, rec)
		res.RowsKept++
	}

	if unparseableDates > 0 {
		res.warnf("%d order dates could not be parsed", unparseableDates)
	}
	if width < len(financialColumns) {
		res.warnf("sheet has %d of %d expected columns", width, len(financialColumns))
	}
	return table, nil
}

func fillDerived(rec *models.FinancialRecord) {
	components := []models.Number{rec.PickupCost, rec.ShipCost, rec.ManualCost, rec.DeliveryCost}
	if !rec.TotalCost.Present() {
		var sum float64
		var found bool
		for _, c := range components {
			if c.Present() {
				sum += c.Value
				found = true
			}
		}
		if found {
			rec.TotalCost = models.DerivedNumber(sum)
		}
	}
	if !rec.Diff.Present() && rec.NetRevenue.Present() && rec.TotalCost.Present() {
		rec.Diff = models.DerivedNumber(rec.NetRevenue.Value - rec.TotalCost.Value)
	}
}

// keepFinancial drops rows without revenue and cost, and the all-zero
// placeholder lines the export uses for summaries.
func keepFinancial(rec models.FinancialRecord) bool {
	if !rec.NetRevenue.Present() && !rec.TotalCost.Present() {
		return false
	}
	return rec.NetRevenue.OrZero() != 0 || rec.TotalCost.OrZero() != 0
}
