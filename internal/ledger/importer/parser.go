package importer

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/austral-erp/austral-erp/internal/ledger/shared"
)

// Row is one parsed spreadsheet row. SourceRow is the 1-based row in the
// original file, kept only so error messages can point back at it.
type Row struct {
	SourceRow int

	EntryKey               string
	Date                   time.Time
	Description            string
	DocReference           string
	AccountCode            string
	LineDescription        string
	Debit                  decimal.Decimal
	Credit                 decimal.Decimal
	CounterpartyIdentifier string
	LineReference          string
	CostCenterCode         string
	BusinessLineCode       string
	BranchCode             string
	ItemCode               string
	TaxCode                string
	TaxRate                string
}

// Scaffold reports whether the row is blank noise rather than entry content.
func (r Row) Scaffold() bool {
	if !r.Date.IsZero() || r.Description != "" || r.DocReference != "" {
		return false
	}
	if r.AccountCode != "" {
		return false
	}
	if r.Debit.IsPositive() || r.Credit.IsPositive() {
		return false
	}
	if r.LineDescription != "" || r.LineReference != "" {
		return false
	}
	return r.CounterpartyIdentifier == ""
}

// Group is the set of rows sharing one entry_key, in file order.
type Group struct {
	Key  string
	Rows []Row
}

var headerColumns = []string{
	"entry_key", "entry_date", "description", "num_doc", "line_no",
	"account_code", "line_description", "debit", "credit",
	"counterparty_identifier", "line_reference", "cost_center_code",
	"business_line_code", "branch_code", "item_code", "tax_code", "tax_rate",
}

// ParseWorkbook reads the first sheet of an xlsx workbook. Cells come back
// raw so Excel date serials survive; the header row is located by its
// entry_key cell and everything below it becomes rows.
func ParseWorkbook(r io.Reader) ([]Row, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("importer: open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, shared.ErrEmptyWorkbook
	}
	raw, err := wb.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("importer: read sheet: %w", err)
	}

	headerIdx := -1
	var columns map[string]int
	for i, cells := range raw {
		if len(cells) > 0 && strings.TrimSpace(strings.ToLower(cells[0])) == "entry_key" {
			headerIdx = i
			columns = mapColumns(cells)
			break
		}
	}
	if headerIdx == -1 {
		return nil, fmt.Errorf("importer: header row with entry_key column not found")
	}

	var rows []Row
	for i := headerIdx + 1; i < len(raw); i++ {
		row := parseRow(raw[i], columns, i+1)
		if row.Scaffold() {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, shared.ErrEmptyWorkbook
	}
	return rows, nil
}

func mapColumns(header []string) map[string]int {
	columns := make(map[string]int, len(headerColumns))
	for i, cell := range header {
		name := strings.TrimSpace(strings.ToLower(cell))
		if name != "" {
			columns[name] = i
		}
	}
	return columns
}

func parseRow(cells []string, columns map[string]int, sourceRow int) Row {
	get := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}
	return Row{
		SourceRow:              sourceRow,
		EntryKey:               get("entry_key"),
		Date:                   parseDateCell(get("entry_date")),
		Description:            get("description"),
		DocReference:           get("num_doc"),
		AccountCode:            get("account_code"),
		LineDescription:        get("line_description"),
		Debit:                  parseAmountCell(get("debit")),
		Credit:                 parseAmountCell(get("credit")),
		CounterpartyIdentifier: get("counterparty_identifier"),
		LineReference:          get("line_reference"),
		CostCenterCode:         get("cost_center_code"),
		BusinessLineCode:       get("business_line_code"),
		BranchCode:             get("branch_code"),
		ItemCode:               get("item_code"),
		TaxCode:                get("tax_code"),
		TaxRate:                get("tax_rate"),
	}
}

// excelEpoch is the zero day of Excel's 1900 date system.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// parseDateCell accepts an Excel serial number, an ISO-prefixed string, or
// nothing. Anything else yields the zero time and fails header validation
// downstream instead of being silently guessed at.
func parseDateCell(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		days := int(serial)
		return excelEpoch.AddDate(0, 0, days)
	}
	if len(raw) >= 10 {
		if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseAmountCell(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	raw = strings.ReplaceAll(raw, ",", ".")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// GroupRows buckets rows by entry_key. Rows without a key fall into group
// "1". Groups come back in ascending numeric key order; non-numeric keys
// sort after the numeric ones, alphabetically.
func GroupRows(rows []Row) []Group {
	byKey := make(map[string][]Row)
	for _, row := range rows {
		key := row.EntryKey
		if key == "" {
			key = "1"
		}
		byKey[key] = append(byKey[key], row)
	}
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, errI := strconv.ParseFloat(keys[i], 64)
		nj, errJ := strconv.ParseFloat(keys[j], 64)
		switch {
		case errI == nil && errJ == nil:
			return ni < nj
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, Group{Key: key, Rows: byKey[key]})
	}
	return groups
}
