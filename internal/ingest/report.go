package ingest

import (
	"errors"
	"fmt"
	"time"
)

// ErrIngestion marks a file that cannot be processed as a spreadsheet at all.
var ErrIngestion = errors.New("cannot process file")

// SheetError describes one sheet that failed to parse. It is recorded in the
// report and never returned from Parse.
type SheetError struct {
	Sheet string
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q: %v", e.Sheet, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

type SheetStatus string

const (
	SheetParsed  SheetStatus = "parsed"
	SheetMissing SheetStatus = "missing"
	SheetFailed  SheetStatus = "failed"
)

// SheetResult is the outcome of parsing one expected sheet.
type SheetResult struct {
	Sheet       string        `json:"sheet"`
	Entity      string        `json:"entity"`
	Status      SheetStatus   `json:"status"`
	MatchedName string        `json:"matched_name,omitempty"`
	RowsRead    int           `json:"rows_read"`
	RowsKept    int           `json:"rows_kept"`
	RowsDropped int           `json:"rows_dropped"`
	Warnings    []string      `json:"warnings,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

func (r *SheetResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Report summarizes one ingestion pass.
type Report struct {
	FileName      string        `json:"file_name,omitempty"`
	Format        string        `json:"format,omitempty"`
	TotalSheets   int           `json:"total_sheets"`
	ParsedSheets  int           `json:"parsed_sheets"`
	MissingSheets int           `json:"missing_sheets"`
	FailedSheets  int           `json:"failed_sheets"`
	RowsRead      int           `json:"rows_read"`
	RowsKept      int           `json:"rows_kept"`
	RowsDropped   int           `json:"rows_dropped"`
	Sheets        []SheetResult `json:"sheets"`
	Duration      time.Duration `json:"duration"`
}

// Sheet returns the result for an expected sheet name.
func (r *Report) Sheet(name string) (SheetResult, bool) {
	for _, s := range r.Sheets {
		if s.Sheet == name {
			return s, true
		}
	}
	return SheetResult{}, false
}

// Errors returns a SheetError for every failed sheet.
func (r *Report) Errors() []*SheetError {
	var errs []*SheetError
	for _, s := range r.Sheets {
		if s.Status == SheetFailed {
			errs = append(errs, &SheetError{Sheet: s.Sheet, Err: errors.New(s.Error)})
		}
	}
	return errs
}

func (r *Report) tally() {
	r.TotalSheets = len(r.Sheets)
	r.ParsedSheets, r.MissingSheets, r.FailedSheets = 0, 0, 0
	r.RowsRead, r.RowsKept, r.RowsDropped = 0, 0, 0
	for _, s := range r.Sheets {
		switch s.Status {
		case SheetParsed:
			r.ParsedSheets++
		case SheetMissing:
			r.MissingSheets++
		case SheetFailed:
			r.FailedSheets++
		}
		r.RowsRead += s.RowsRead
		r.RowsKept += s.RowsKept
		r.RowsDropped += s.RowsDropped
	}
}
