package ingest

import (
	"strings"

	"tms-dashboard/internal/models"
)

// Canonical on-time sheet columns, in sheet order.
var timingColumns = []string{"TMS_Order", "QDT", "POD_DateTime", "Time_Diff", "Status", "QC_Name"}

const (
	colOrder = iota
	colPromised
	colDelivered
	colTimeDiff
	colStatus
	colReason
)

// parseTiming uses at most the first six columns. Narrower sheets get a
// truncated column list; rows without an order id are dropped.
func parseTiming(rows [][]string, res *SheetResult) (*models.TimingTable, error) {
	width := widest(rows, len(timingColumns))
	table := &models.TimingTable{
		Columns: append([]string(nil), timingColumns[:width]...),
		Records: []models.OrderTimingRecord{},
	}
	if len(rows) == 0 {
		return table, nil
	}

	field := func(row []string, col int) string {
		if col >= width {
			return ""
		}
		return cell(row, col)
	}

	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		res.RowsRead++

		order := field(row, colOrder)
		if order == "" {
			res.RowsDropped++
			continue
		}

		rec := models.OrderTimingRecord{
			Order:        order,
			PromisedAt:   models.Timestamp{State: models.ValueMissing},
			DeliveredAt:  models.Timestamp{State: models.ValueMissing},
			TimeDiffDays: models.Number{State: models.ValueMissing},
			StatusText:   field(row, colStatus),
			DelayReason:  field(row, colReason),
		}
		if width > colPromised {
			rec.PromisedAt = parseTimestamp(field(row, colPromised))
		}
		if width > colDelivered {
			rec.DeliveredAt = parseTimestamp(field(row, colDelivered))
		}
		if width > colTimeDiff {
			rec.TimeDiffDays = parseNumber(field(row, colTimeDiff))
		}
		rec.Status = normalizeStatus(rec.StatusText)

		table.Records = append(table.Records, rec)
		res.RowsKept++
	}

	if width < len(timingColumns) {
		res.warnf("sheet has %d of %d expected columns", width, len(timingColumns))
	}
	return table, nil
}

func normalizeStatus(raw string) models.OrderStatus {
	s := strings.ToUpper(strings.Join(strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), " "))
	switch s {
	case "":
		return models.StatusEmpty
	case "ON TIME", "ONTIME":
		return models.StatusOnTime
	case "LATE":
		return models.StatusLate
	default:
		return models.StatusOther
	}
}
