package bankcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/MrJamesThe3rd/spendy/internal/encoding"
	"github.com/MrJamesThe3rd/spendy/internal/transaction"
)

// Parser reads bank CSV statement exports and produces transaction params.
// The column layout is auto-detected by matching headers against known
// profiles; rows before the header (bank preamble) and rows that fail date
// or amount parsing (footers, balance lines) are skipped.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	rows, err := readRows(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, fmt.Errorf("no matching statement layout: expected date, description and amount columns")
	}

	return parseRows(profile, cols, rows[headerIdx+1:])
}

// readRows reads the whole file, retrying with a comma delimiter when the
// semicolon pass yields single-column rows only.
func readRows(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	for _, comma := range []rune{';', ','} {
		reader := csv.NewReader(strings.NewReader(string(raw)))
		reader.Comma = comma
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		rows, err := reader.ReadAll()
		if err != nil {
			continue
		}

		for _, row := range rows {
			if len(row) > 1 {
				return rows, nil
			}
		}
	}

	return nil, fmt.Errorf("could not split columns with ';' or ','")
}

// colIndex maps located column roles to their index in the row.
type colIndex struct {
	date   int
	desc   int
	amount int
	debit  int
	credit int
}

// detectProfile scans rows for a header matching a known profile.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		names := make(map[string]int)

		for i, cell := range row {
			name := strings.TrimSpace(cell)
			if name != "" {
				names[name] = i
			}
		}

		for i := range profiles {
			if cols, ok := matchProfile(&profiles[i], names); ok {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, colIndex{}, 0
}

// matchProfile resolves the profile's column aliases against the header.
func matchProfile(p *Profile, names map[string]int) (colIndex, bool) {
	cols := colIndex{date: -1, desc: -1, amount: -1, debit: -1, credit: -1}

	find := func(aliases []string) int {
		for _, a := range aliases {
			if idx, ok := names[a]; ok {
				return idx
			}
		}

		return -1
	}

	cols.date = find(p.DateCols)
	cols.desc = find(p.DescCols)

	if cols.date == -1 || cols.desc == -1 {
		return cols, false
	}

	switch p.AmountMode {
	case amountSingle:
		cols.amount = find(p.AmountCols)
		return cols, cols.amount != -1
	case amountSplit:
		cols.debit = find(p.DebitCols)
		cols.credit = find(p.CreditCols)

		return cols, cols.debit != -1 && cols.credit != -1
	}

	return cols, false
}

func parseRows(p *Profile, cols colIndex, rows [][]string) ([]transaction.CreateParams, error) {
	var params []transaction.CreateParams

	for _, row := range rows {
		if len(row) <= cols.date || len(row) <= cols.desc {
			continue
		}

		date, ok := parseDate(row[cols.date])
		if !ok {
			// Not a data row (footer, balance line).
			continue
		}

		amount, ok := rowAmount(p, cols, row)
		if !ok {
			continue
		}

		txType := transaction.TypeIncome
		if amount < 0 {
			txType = transaction.TypeExpense
			amount = -amount
		}

		if amount == 0 {
			continue
		}

		description := strings.TrimSpace(row[cols.desc])

		params = append(params, transaction.CreateParams{
			Amount:         amount,
			Type:           txType,
			Description:    description,
			RawDescription: description,
			Date:           date,
		})
	}

	return params, nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// rowAmount extracts the signed amount in cents according to the profile's
// amount mode. Debit values count as negative regardless of their sign in
// the file.
func rowAmount(p *Profile, cols colIndex, row []string) (int64, bool) {
	switch p.AmountMode {
	case amountSingle:
		if len(row) <= cols.amount {
			return 0, false
		}

		v, err := parseAmount(row[cols.amount])
		if err != nil {
			return 0, false
		}

		return v, true

	case amountSplit:
		if len(row) <= cols.debit || len(row) <= cols.credit {
			return 0, false
		}

		debit, derr := parseAmount(row[cols.debit])
		credit, cerr := parseAmount(row[cols.credit])

		if derr != nil && cerr != nil {
			return 0, false
		}

		if derr == nil && debit != 0 {
			if debit < 0 {
				debit = -debit
			}

			return -debit, true
		}

		if cerr == nil {
			return credit, true
		}

		return 0, false
	}

	return 0, false
}
