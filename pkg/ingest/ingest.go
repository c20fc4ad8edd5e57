// Package ingest reads bulk expense uploads (CSV or Excel) and coerces their
// rows into expense records.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// Required column headers.
const (
	ColumnDate        = "Date"
	ColumnDescription = "Description"
	ColumnAmount      = "Amount"
)

// ErrMissingColumns is returned when a required header is absent.
var ErrMissingColumns = errors.New("file must contain columns: Date, Description, Amount")

// Row is one data row with the required columns extracted. Any other
// column, including a Category column, is ignored.
type Row struct {
	// Line is the 1-based row number in the file, header included.
	Line        int
	Date        string
	Description string
	Amount      string
}

// Parse picks a parser from the file extension.
func Parse(filename string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx", ".xls":
		return ParseXLSX(r)
	default:
		return nil, api.ErrUnsupportedFormat
	}
}

// ParseCSV reads CSV text. A leading byte order mark is honored, so UTF-16
// exports from spreadsheet tools are read correctly.
func ParseCSV(r io.Reader) ([]Row, error) {
	decoded := transform.NewReader(r, xunicode.BOMOverride(xunicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: reading csv: %v", api.ErrUndecodable, err)
	}
	return fromTable(records)
}

// ParseXLSX reads the first worksheet of an Excel workbook.
func ParseXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: opening workbook: %v", api.ErrUndecodable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", api.ErrUndecodable)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %q: %v", api.ErrUndecodable, sheets[0], err)
	}
	return fromTable(records)
}

func fromTable(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing %s, %s, %s", ErrMissingColumns, ColumnDate, ColumnDescription, ColumnAmount)
	}

	idx := map[string]int{ColumnDate: -1, ColumnDescription: -1, ColumnAmount: -1}
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		for name, pos := range idx {
			if pos == -1 && strings.EqualFold(h, name) {
				idx[name] = i
			}
		}
	}

	var missing []string
	for _, name := range []string{ColumnDate, ColumnDescription, ColumnAmount} {
		if idx[name] == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	cell := func(rec []string, i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		rows = append(rows, Row{
			Line:        i + 2,
			Date:        cell(rec, idx[ColumnDate]),
			Description: cell(rec, idx[ColumnDescription]),
			Amount:      cell(rec, idx[ColumnAmount]),
		})
	}
	return rows, nil
}
