package ingest

import (
	"tms-dashboard/internal/models"
)

// parseRawData carries the raw export through for the presentation layer.
func parseRawData(rows [][]string, res *SheetResult) (*models.RawTable, error) {
	table := &models.RawTable{Headers: []string{}, Rows: [][]string{}}
	if len(rows) == 0 {
		return table, nil
	}

	for i := range rows[0] {
		table.Headers = append(table.Headers, cell(rows[0], i))
	}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		res.RowsRead++
		table.Rows = append(table.Rows, append([]string(nil), row...))
		res.RowsKept++
	}
	return table, nil
}
