package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	enc "github.com/valmirpst/gestao-financeira-ai-sub000/internal/encoding"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

// Parser reads bank statement CSV exports and produces paid transaction
// params. The layout is detected by matching column headers against known
// profiles.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	utf8r, charset, err := enc.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}

	for _, comma := range []rune{';', ','} {
		rows, err := readRows(data, comma)
		if err != nil {
			continue
		}

		profile, cols, headerIdx := detectProfile(rows, comma)
		if profile == nil {
			continue
		}

		slog.Debug("statement layout detected", "profile", profile.Name, "charset", charset)

		return parseRows(profile, cols, rows[headerIdx+1:], headerIdx)
	}

	return nil, fmt.Errorf("no matching statement format found: expected a data, description and amount header")
}

func readRows(data []byte, comma rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return rows, nil
}

// colIndex maps lower-cased column names to their index in the row.
type colIndex map[string]int

// detectProfile scans rows for a header matching a profile for comma.
// Returns the profile, column index map and header row index.
func detectProfile(rows [][]string, comma rune) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			if name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if profiles[i].Comma == comma && matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows extracts transactions from data rows. headerRowNum is the 0-based
// index of the header in the file, used for error messages.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]transaction.CreateParams, error) {
	dateIdx := cols[p.DateCol]
	descIdx := cols[p.DescCol]

	var txs []transaction.CreateParams

	for i, row := range rows {
		rowNum := headerRowNum + i + 2

		date, ok := parseDate(row, dateIdx, p.DateLayout)
		if !ok {
			continue
		}

		desc := cellValue(row, descIdx)
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		amount, txType, ok := parseRowAmount(p, cols, row)
		if !ok {
			continue
		}

		paid := date

		txs = append(txs, transaction.CreateParams{
			Amount:      amount,
			Type:        txType,
			Status:      transaction.StatusPaid,
			Description: desc,
			Date:        date,
			PaymentDate: &paid,
		})
	}

	return txs, nil
}

// parseDate returns false for empty or unparseable cells such as footers.
func parseDate(row []string, idx int, layout string) (time.Time, bool) {
	s := cellValue(row, idx)
	if s == "" {
		return time.Time{}, false
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

func parseRowAmount(p *Profile, cols colIndex, row []string) (decimal.Decimal, transaction.Type, bool) {
	switch p.AmountMode {
	case amountSingle:
		amount, t, ok := parseSingleAmount(row, cols[p.AmountCol], p.DecimalComma)
		if ok && p.ChargesPositive {
			t = flip(t)
		}

		return amount, t, ok
	case amountSplit:
		return parseSplitAmount(row, cols[p.DebitCol], cols[p.CreditCol], p.DecimalComma)
	}

	return decimal.Zero, "", false
}

func parseSingleAmount(row []string, idx int, decimalComma bool) (decimal.Decimal, transaction.Type, bool) {
	s := cellValue(row, idx)
	if s == "" {
		return decimal.Zero, "", false
	}

	amount, err := parseAmount(s, decimalComma)
	if err != nil || amount.IsZero() {
		return decimal.Zero, "", false
	}

	if amount.IsNegative() {
		return amount.Neg(), transaction.TypeExpense, true
	}

	return amount, transaction.TypeIncome, true
}

func parseSplitAmount(row []string, debitIdx, creditIdx int, decimalComma bool) (decimal.Decimal, transaction.Type, bool) {
	if s := cellValue(row, debitIdx); s != "" {
		amount, err := parseAmount(s, decimalComma)
		if err == nil && !amount.IsZero() {
			return amount.Abs(), transaction.TypeExpense, true
		}
	}

	if s := cellValue(row, creditIdx); s != "" {
		amount, err := parseAmount(s, decimalComma)
		if err == nil && !amount.IsZero() {
			return amount.Abs(), transaction.TypeIncome, true
		}
	}

	return decimal.Zero, "", false
}

func flip(t transaction.Type) transaction.Type {
	if t == transaction.TypeIncome {
		return transaction.TypeExpense
	}

	return transaction.TypeIncome
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
