package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"tms-dashboard/internal/models"
)

// Day 0 of the spreadsheet serial calendar.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Serial 2958465 is 9999-12-31.
const maxSerial = 2958465

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006",
	"02/01/2006 15:04",
	"02/01/2006",
	"02.01.2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"Jan 2, 2006",
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// widest returns the largest row length, capped at limit.
func widest(rows [][]string, limit int) int {
	w := 0
	for _, r := range rows {
		w = max(w, len(r))
	}
	return min(w, limit)
}

func serialToTime(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial < 0 || serial > maxSerial {
		return time.Time{}, false
	}
	days := math.Floor(serial)
	secs := math.Round((serial - days) * 86400)
	return excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second), true
}

// parseTimestamp reads numeric cells as serial days and text cells as
// calendar dates. Anything else is unparseable, never an error.
func parseTimestamp(raw string) models.Timestamp {
	s := strings.TrimSpace(raw)
	if s == "" {
		return models.Timestamp{State: models.ValueMissing}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if t, ok := serialToTime(v); ok {
			return models.ValidTimestamp(t)
		}
		return models.Timestamp{State: models.ValueUnparseable}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.ValidTimestamp(t)
		}
	}
	return models.Timestamp{State: models.ValueUnparseable}
}

// parseNumber accepts thousands separators, currency symbols, accounting
// negatives like (12.50) and a trailing percent sign, which yields a fraction.
func parseNumber(raw string) models.Number {
	s := strings.TrimSpace(raw)
	switch s {
	case "":
		return models.Number{State: models.ValueMissing}
	case "-":
		return models.ValidNumber(0)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "EUR"), "USD")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '\u00a0', '€', '$', '£':
			return -1
		}
		return r
	}, s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return models.Number{State: models.ValueUnparseable}
	}
	if negative {
		v = -v
	}
	if percent {
		v /= 100
	}
	return models.ValidNumber(v)
}

// parseCount reads a non-negative shipment count.
func parseCount(raw string) (int, bool) {
	n := parseNumber(raw)
	if !n.Present() || n.Value < 0 {
		return 0, false
	}
	return int(math.Round(n.Value)), true
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t' || r == '\n'
	}), " "))
}

func isTotalLabel(s string) bool {
	switch normalizeCode(s) {
	case "TOTAL", "GRAND TOTAL", "SUM", "TOTAAL", "EINDTOTAAL":
		return true
	}
	return false
}
