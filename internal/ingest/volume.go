package ingest

import (
	"errors"
	"slices"

	"tms-dashboard/internal/models"
)

var errNoServiceHeader = errors.New("no header row with a known service code")

type codeColumn struct {
	idx  int
	code string
}

// parseVolumes reads a country x service pivot. Every table is aggregated
// from the sheet rows, so matrix rows and columns reconcile with the
// country and service tables. A pivot with countries across the top is
// read transposed.
func parseVolumes(rows [][]string, res *SheetResult) (*models.VolumeTables, error) {
	hdr := findHeaderRow(rows, models.IsServiceType)
	if hdr < 0 {
		if c := findHeaderRow(rows, models.IsCountry); c >= 0 {
			res.warnf("countries across the header row, reading the pivot transposed")
			rows, hdr = transpose(rows[c:]), 0
		}
	}
	if hdr < 0 {
		return nil, errNoServiceHeader
	}

	services, totalCol := codeColumns(rows[hdr])

	matrix := make(models.ServiceCountryMatrix)
	var grand []string
	for _, row := range rows[hdr+1:] {
		if blank(row) {
			continue
		}
		label := normalizeCode(cell(row, 0))
		if isTotalLabel(label) {
			grand = row
			continue
		}
		res.RowsRead++
		if label == "" {
			res.RowsDropped++
			res.warnf("row without a country code skipped")
			continue
		}

		rowSum := 0
		for _, c := range services {
			raw := cell(row, c.idx)
			n, ok := parseCount(raw)
			if !ok {
				if raw != "" {
					res.warnf("%s/%s: invalid count %q", label, c.code, raw)
				}
				continue
			}
			if n == 0 {
				continue
			}
			if matrix[label] == nil {
				matrix[label] = make(map[string]int)
			}
			matrix[label][c.code] += n
			rowSum += n
		}
		if totalCol >= 0 {
			if t, ok := parseCount(cell(row, totalCol)); ok && t != rowSum {
				res.warnf("%s: row total %d differs from service sum %d", label, t, rowSum)
			}
		}
		res.RowsKept++
	}
	if res.RowsKept == 0 {
		return nil, errors.New("no country rows below the service header")
	}

	tables := &models.VolumeTables{
		Services:  seededTable(models.ServiceTypes),
		Countries: seededTable(models.Countries),
		Matrix:    matrix,
	}
	for _, c := range services {
		if _, ok := tables.Services.Counts[c.code]; !ok {
			tables.Services.Counts[c.code] = 0
		}
	}
	for country, byService := range matrix {
		for service, n := range byService {
			tables.Services.Counts[service] += n
			tables.Countries.Counts[country] += n
		}
	}
	for _, row := range rows[hdr+1:] {
		label := normalizeCode(cell(row, 0))
		if label != "" && !isTotalLabel(label) {
			if _, ok := tables.Countries.Counts[label]; !ok {
				tables.Countries.Counts[label] = 0
			}
		}
	}
	tables.Services.Unrecognized = unrecognized(tables.Services.Counts, models.IsServiceType)
	tables.Countries.Unrecognized = unrecognized(tables.Countries.Counts, models.IsCountry)
	for _, code := range tables.Services.Unrecognized {
		res.warnf("unrecognized service code %q", code)
	}
	for _, code := range tables.Countries.Unrecognized {
		res.warnf("unrecognized country code %q", code)
	}

	if grand != nil {
		if total, ok := grandTotal(grand, services, totalCol); ok {
			tables.ReportedTotal = &total
			if sum := tables.Services.Sum(); sum != total {
				res.warnf("reported total %d differs from row sum %d", total, sum)
			}
		}
	}
	return tables, nil
}

// findHeaderRow returns the first row whose cells after the label column
// hold at least one code accepted by known.
func findHeaderRow(rows [][]string, known func(string) bool) int {
	for i, row := range rows {
		for j := 1; j < len(row); j++ {
			if known(normalizeCode(row[j])) {
				return i
			}
		}
	}
	return -1
}

// transpose pads short rows with empty cells.
func transpose(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	out := make([][]string, width)
	for j := range out {
		out[j] = make([]string, len(rows))
		for i, row := range rows {
			out[j][i] = cell(row, j)
		}
	}
	return out
}

func codeColumns(header []string) (cols []codeColumn, totalCol int) {
	totalCol = -1
	for j := 1; j < len(header); j++ {
		code := normalizeCode(header[j])
		switch {
		case code == "":
		case isTotalLabel(code):
			totalCol = j
		default:
			cols = append(cols, codeColumn{idx: j, code: code})
		}
	}
	return cols, totalCol
}

func grandTotal(row []string, services []codeColumn, totalCol int) (int, bool) {
	if totalCol >= 0 {
		return parseCount(cell(row, totalCol))
	}
	sum, seen := 0, false
	for _, c := range services {
		if n, ok := parseCount(cell(row, c.idx)); ok {
			sum += n
			seen = true
		}
	}
	return sum, seen
}

func seededTable(codes []string) models.VolumeTable {
	counts := make(map[string]int, len(codes))
	for _, c := range codes {
		counts[c] = 0
	}
	return models.VolumeTable{Counts: counts}
}

func unrecognized(counts map[string]int, known func(string) bool) []string {
	var out []string
	for code := range counts {
		if !known(code) {
			out = append(out, code)
		}
	}
	slices.Sort(out)
	return out
}
