package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"tms-dashboard/internal/models"
	"tms-dashboard/internal/workbook"
)

// Expected sheet names. Lookup ignores case and surrounding spaces.
const (
	SheetRawData    = "AMS RAW DATA"
	SheetTiming     = "OTP POD"
	SheetVolumes    = "Volume per SVC"
	SheetLanes      = "Lane usage"
	SheetFinancials = "cost sales"
)

var ExpectedSheets = []string{SheetRawData, SheetTiming, SheetVolumes, SheetLanes, SheetFinancials}

type Options struct {
	Workbook workbook.Options
}

type Parser struct {
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
}

func NewParser(logger *slog.Logger, opts Options) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		opts:   opts,
		logger: logger.With("component", "ingest"),
		tracer: otel.Tracer("tms-dashboard/ingest"),
	}
}

type applyFunc func(*models.Dataset)

type sheetParser struct {
	sheet  string
	entity string
	parse  func(rows [][]string, res *SheetResult) (applyFunc, error)
}

func bind[T any](parse func([][]string, *SheetResult) (*T, error), set func(*models.Dataset, *T)) func([][]string, *SheetResult) (applyFunc, error) {
	return func(rows [][]string, res *SheetResult) (applyFunc, error) {
		v, err := parse(rows, res)
		if err != nil {
			return nil, err
		}
		return func(ds *models.Dataset) { set(ds, v) }, nil
	}
}

var sheetParsers = []sheetParser{
	{SheetRawData, "raw_data", bind(parseRawData, func(ds *models.Dataset, v *models.RawTable) { ds.RawData = v })},
	{SheetTiming, "timing", bind(parseTiming, func(ds *models.Dataset, v *models.TimingTable) { ds.Timing = v })},
	{SheetVolumes, "volumes", bind(parseVolumes, func(ds *models.Dataset, v *models.VolumeTables) { ds.Volumes = v })},
	{SheetLanes, "lanes", bind(parseLanes, func(ds *models.Dataset, v *models.LaneNetwork) { ds.Lanes = v })},
	{SheetFinancials, "financials", bind(parseFinancials, func(ds *models.Dataset, v *models.FinancialTable) { ds.Financials = v })},
}

// Parse builds a dataset from already-decoded sheets. It never fails as a
// whole; per-sheet outcomes are in the report.
func (p *Parser) Parse(ctx context.Context, sheets models.RawSheetSet) (*models.Dataset, *Report) {
	ctx, span := p.tracer.Start(ctx, "ingest.Parse")
	defer span.End()

	start := time.Now()
	results := make([]SheetResult, len(sheetParsers))
	applies := make([]applyFunc, len(sheetParsers))

	// Each goroutine owns one slot, so the merge below is deterministic.
	var g errgroup.Group
	for i, sp := range sheetParsers {
		g.Go(func() error {
			results[i], applies[i] = runSheet(sp, sheets)
			return nil
		})
	}
	// Sheet failures are isolated into their SheetResult; no goroutine
	// returns an error, so Wait only joins.
	_ = g.Wait()

	ds := &models.Dataset{}
	for _, apply := range applies {
		if apply != nil {
			apply(ds)
		}
	}

	report := &Report{Sheets: results}
	report.tally()
	report.Duration = time.Since(start)

	for _, r := range results {
		p.logSheet(ctx, r)
	}
	span.SetAttributes(
		attribute.Int("ingest.sheets.parsed", report.ParsedSheets),
		attribute.Int("ingest.sheets.missing", report.MissingSheets),
		attribute.Int("ingest.sheets.failed", report.FailedSheets),
		attribute.Int("ingest.rows.kept", report.RowsKept),
	)
	return ds, report
}

// ParseBytes decodes a spreadsheet container and parses its sheets.
func (p *Parser) ParseBytes(ctx context.Context, data []byte, name string) (*models.Dataset, *Report, error) {
	ctx, span := p.tracer.Start(ctx, "ingest.ParseBytes", trace.WithAttributes(
		attribute.String("file.name", name),
		attribute.Int("file.size", len(data)),
	))
	defer span.End()

	wb, err := workbook.ReadBytes(data, p.opts.Workbook)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cannot process file")
		p.logger.ErrorContext(ctx, "cannot process file", "file", name, "error", err)
		return nil, nil, fmt.Errorf("%w: %w", ErrIngestion, err)
	}

	ds, report := p.Parse(ctx, wb.Sheets)
	markUnreadable(report, wb.Failures)
	report.FileName = name
	report.Format = string(wb.Format)

	ds.Source = models.Source{
		FileName:  name,
		SizeBytes: int64(len(data)),
		ParsedAt:  time.Now().UTC(),
	}

	if report.ParsedSheets == 0 {
		p.logger.WarnContext(ctx, "no expected sheets found", "file", name, "sheets", wb.Order)
	}
	p.logger.InfoContext(ctx, "workbook parsed",
		"file", name,
		"format", wb.Format,
		"parsed", report.ParsedSheets,
		"missing", report.MissingSheets,
		"failed", report.FailedSheets,
		"rows_kept", report.RowsKept,
		"duration", report.Duration)
	return ds, report, nil
}

func (p *Parser) ParseFile(ctx context.Context, r io.Reader, name string) (*models.Dataset, *Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s: %w", ErrIngestion, name, err)
	}
	return p.ParseBytes(ctx, data, name)
}

// Lookup finds a sheet by exact name, then by trimmed case-insensitive name.
func Lookup(sheets models.RawSheetSet, name string) (models.RawSheet, bool) {
	if s, ok := sheets[name]; ok {
		return named(s, name), true
	}
	want := normalizeSheetName(name)
	keys := make([]string, 0, len(sheets))
	for k := range sheets {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if normalizeSheetName(k) == want {
			return named(sheets[k], k), true
		}
	}
	return models.RawSheet{}, false
}

func named(s models.RawSheet, key string) models.RawSheet {
	if s.Name == "" {
		s.Name = key
	}
	return s
}

func normalizeSheetName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func runSheet(sp sheetParser, sheets models.RawSheetSet) (res SheetResult, apply applyFunc) {
	start := time.Now()
	res = SheetResult{Sheet: sp.sheet, Entity: sp.entity}
	defer func() {
		if r := recover(); r != nil {
			res.Status = SheetFailed
			res.Error = fmt.Sprintf("panic: %v", r)
			apply = nil
		}
		res.Duration = time.Since(start)
	}()

	raw, ok := Lookup(sheets, sp.sheet)
	if !ok {
		res.Status = SheetMissing
		return res, nil
	}
	res.MatchedName = raw.Name

	fn, err := sp.parse(raw.Rows, &res)
	if err != nil {
		res.Status = SheetFailed
		res.Error = err.Error()
		return res, nil
	}
	res.Status = SheetParsed
	return res, fn
}

// markUnreadable turns sheets the container listed but could not read
// into failures instead of absences.
func markUnreadable(report *Report, failures map[string]error) {
	if len(failures) == 0 {
		return
	}
	for i, s := range report.Sheets {
		if s.Status != SheetMissing {
			continue
		}
		for name, err := range failures {
			if normalizeSheetName(name) == normalizeSheetName(s.Sheet) {
				report.Sheets[i].Status = SheetFailed
				report.Sheets[i].MatchedName = name
				report.Sheets[i].Error = err.Error()
			}
		}
	}
	report.tally()
}

func (p *Parser) logSheet(ctx context.Context, r SheetResult) {
	switch r.Status {
	case SheetParsed:
		p.logger.DebugContext(ctx, "sheet parsed",
			"sheet", r.Sheet,
			"rows_read", r.RowsRead,
			"rows_kept", r.RowsKept,
			"rows_dropped", r.RowsDropped,
			"warnings", len(r.Warnings),
			"duration", r.Duration)
	case SheetMissing:
		p.logger.InfoContext(ctx, "sheet missing", "sheet", r.Sheet)
	case SheetFailed:
		p.logger.WarnContext(ctx, "sheet failed", "sheet", r.Sheet, "error", r.Error)
	}
}
