package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ArionMiles/smartspend/pkg/api"
)

// Categorizer assigns a category to free text.
type Categorizer interface {
	Categorize(text string) api.Category
}

// dateLayouts are tried in order. Month-first forms come before day-first
// ones, so an ambiguous 03/04/2025 is read as March 4.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"1/2/2006",
	"2/1/2006",
	"1-2-2006",
	"2-1-2006",
	"2006/1/2",
	"01-02-06",
	"1/2/06",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
}

// zonedLayouts carry an offset, so the instant is converted into the
// configured location before taking its calendar date.
var zonedLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
}

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

// Coerce converts parsed rows into expenses owned by owner. Rows with a
// blank description, an unreadable date or an unreadable amount are
// dropped and counted. Negative amounts are stored as their absolute value.
// The category always comes from c, whatever the file says.
func Coerce(rows []Row, owner string, c Categorizer, loc *time.Location) ([]api.Expense, int) {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]api.Expense, 0, len(rows))
	dropped := 0
	for _, r := range rows {
		desc := strings.TrimSpace(r.Description)
		if desc == "" {
			dropped++
			continue
		}
		date, ok := ParseDate(r.Date, loc)
		if !ok {
			dropped++
			continue
		}
		amount, ok := ParseAmount(r.Amount)
		if !ok {
			dropped++
			continue
		}
		out = append(out, api.Expense{
			OwnerID:     owner,
			Date:        date,
			Description: desc,
			Amount:      amount,
			Category:    c.Categorize(desc),
		})
	}
	return out, dropped
}

// ParseDate reads a calendar date from a spreadsheet cell.
func ParseDate(s string, loc *time.Location) (api.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return api.Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return api.DateOf(t), true
		}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return api.DateOf(t.In(loc)), true
		}
	}

	// Unformatted Excel date cells come through as serial day numbers.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return api.DateOf(t), true
		}
	}
	return api.Date{}, false
}

var amountNoise = strings.NewReplacer(
	"$", "", "₹", "", "€", "", "£", "",
	",", "", " ", "", " ", "",
)

// ParseAmount reads a money amount, ignoring currency symbols and thousands
// separators. Accounting-style parentheses mark a negative value. The result
// is non-negative and rounded to cents.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = amountNoise.Replace(strings.TrimSpace(s))
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d.Abs().Round(2), true
}
