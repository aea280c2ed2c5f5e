// Package workbook opens uploaded spreadsheet containers and flattens every
// sheet into rows of cell strings.
package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"tms-dashboard/internal/models"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet container")
	ErrNoSheets          = errors.New("workbook has no sheets")
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

const DefaultMaxLegacyRows = 65536

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

type Options struct {
	// MaxLegacyRows caps how many rows are read from each .xls sheet.
	MaxLegacyRows int
}

type Workbook struct {
	Format Format
	// Order lists sheet names as they appear in the container.
	Order  []string
	Sheets models.RawSheetSet
	// Failures holds sheets that exist but could not be read.
	Failures map[string]error
}

type SheetInfo struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// Detect identifies the container from its leading bytes.
func Detect(data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

func Read(r io.Reader, opts Options) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return ReadBytes(data, opts)
}

// ReadBytes decodes a whole container. Decoder panics on corrupt input are
// returned as errors.
func ReadBytes(data []byte, opts Options) (wb *Workbook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb = nil
			err = fmt.Errorf("decode workbook: %v", r)
		}
	}()

	format, err := Detect(data)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXLSX:
		wb, err = readXLSX(data)
	case FormatXLS:
		wb, err = readXLS(data, opts)
	}
	if err != nil {
		return nil, err
	}
	if len(wb.Order) == 0 {
		return nil, ErrNoSheets
	}
	return wb, nil
}

func (w *Workbook) Sheet(name string) (models.RawSheet, bool) {
	s, ok := w.Sheets[name]
	return s, ok
}

func (w *Workbook) Info() []SheetInfo {
	info := make([]SheetInfo, 0, len(w.Order))
	for _, name := range w.Order {
		info = append(info, SheetInfo{Name: name, Rows: len(w.Sheets[name].Rows)})
	}
	return info
}

func newWorkbook(format Format) *Workbook {
	return &Workbook{
		Format:   format,
		Sheets:   make(models.RawSheetSet),
		Failures: make(map[string]error),
	}
}

func (w *Workbook) add(name string, rows [][]string) {
	w.Order = append(w.Order, name)
	w.Sheets[name] = models.RawSheet{Name: name, Rows: trimTrailingBlank(rows)}
}

func readXLSX(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	wb := newWorkbook(FormatXLSX)
	for _, name := range f.GetSheetList() {
		// Raw values keep date cells as serial numbers instead of locale text.
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			wb.Order = append(wb.Order, name)
			wb.Failures[name] = err
			continue
		}
		wb.add(name, rows)
	}
	return wb, nil
}

func readXLS(data []byte, opts Options) (*Workbook, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}

	maxRows := opts.MaxLegacyRows
	if maxRows <= 0 {
		maxRows = DefaultMaxLegacyRows
	}

	wb := newWorkbook(FormatXLS)
	for i := 0; i < book.NumSheets(); i++ {
		sheet := book.GetSheet(i)
		if sheet == nil {
			continue
		}

		last := int(sheet.MaxRow)
		rows := make([][]string, 0, min(last+1, maxRows))
		for r := 0; r <= last && r < maxRows; r++ {
			row := sheet.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
		wb.add(sheet.Name, rows)
	}
	return wb, nil
}

func trimTrailingBlank(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && isBlankRow(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
