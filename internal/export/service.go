// Package export renders transaction listings as spreadsheets.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

const (
	SheetTransactions = "Transações"
	SheetSummary      = "Resumo"

	dateLayout = "02/01/2006"
	moneyFmt   = `"R$" #,##0.00;-"R$" #,##0.00`
)

var header = []any{
	"Data", "Descrição", "Tipo", "Categoria", "Conta", "Valor",
	"Status", "Vencimento", "Pagamento", "Tags",
}

var (
	typeLabels = map[transaction.Type]string{
		transaction.TypeIncome:  "Receita",
		transaction.TypeExpense: "Despesa",
	}
	statusLabels = map[transaction.Status]string{
		transaction.StatusPending:   "Pendente",
		transaction.StatusPaid:      "Pago",
		transaction.StatusOverdue:   "Vencido",
		transaction.StatusCancelled: "Cancelado",
	}
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=export
type Lister interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

type Option func(*Service)

func WithClock(clock calendar.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// Service exports transaction listings.
type Service struct {
	transactions Lister
	clock        calendar.Clock
}

func NewService(transactions Lister, opts ...Option) *Service {
	s := &Service{transactions: transactions, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Totals sums the non-cancelled rows of an export.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

func (t Totals) Net() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

// WriteXLSX lists transactions matching filter and writes them to w as an
// XLSX workbook with a transactions sheet and a summary sheet. Amounts are
// signed: expenses are negative.
func (s *Service) WriteXLSX(ctx context.Context, filter transaction.ListFilter, w io.Writer) (int, error) {
	txs, err := s.transactions.List(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("listing transactions: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTransactions); err != nil {
		return 0, fmt.Errorf("naming sheet: %w", err)
	}

	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: new(moneyFmt)})
	if err != nil {
		return 0, fmt.Errorf("creating money style: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("creating header style: %w", err)
	}

	if err := s.writeTransactions(f, txs, money, bold); err != nil {
		return 0, err
	}

	if err := writeSummary(f, Summarize(txs), money, bold); err != nil {
		return 0, err
	}

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("writing workbook: %w", err)
	}

	return len(txs), nil
}

func (s *Service) writeTransactions(f *excelize.File, txs []*transaction.Transaction, money, bold int) error {
	sheet := SheetTransactions

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	if err := f.SetCellStyle(sheet, "A1", "J1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	today := s.clock.Today()

	for i, tx := range txs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		row := []any{
			tx.Date.Format(dateLayout),
			tx.Description,
			typeLabels[tx.Type],
			categoryName(tx),
			accountName(tx),
			tx.Signed().InexactFloat64(),
			statusLabels[transaction.Classify(tx, today)],
			formatDate(tx.DueDate),
			formatDate(tx.PaymentDate),
			strings.Join(tx.Tags, ", "),
		}

		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if len(txs) > 0 {
		end := fmt.Sprintf("F%d", len(txs)+1)
		if err := f.SetCellStyle(sheet, "F2", end, money); err != nil {
			return fmt.Errorf("styling amounts: %w", err)
		}
	}

	widths := map[string]float64{"A": 12, "B": 40, "C": 10, "D": 20, "E": 20, "F": 14, "G": 12, "H": 12, "I": 12, "J": 30}
	for col, width := range widths {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("sizing column %s: %w", col, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummary(f *excelize.File, totals Totals, money, bold int) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	rows := [][]any{
		{"Receitas", totals.Income.InexactFloat64()},
		{"Despesas", totals.Expense.InexactFloat64()},
		{"Saldo", totals.Net().InexactFloat64()},
	}

	for i, row := range rows {
		if err := f.SetSheetRow(SheetSummary, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	if err := f.SetCellStyle(SheetSummary, "A1", "A3", bold); err != nil {
		return fmt.Errorf("styling summary: %w", err)
	}

	if err := f.SetCellStyle(SheetSummary, "B1", "B3", money); err != nil {
		return fmt.Errorf("styling summary: %w", err)
	}

	return f.SetColWidth(SheetSummary, "A", "B", 16)
}

// Summarize totals income and expense, skipping cancelled transactions.
func Summarize(txs []*transaction.Transaction) Totals {
	totals := Totals{Income: decimal.Zero, Expense: decimal.Zero}

	for _, tx := range txs {
		if tx.Status == transaction.StatusCancelled {
			continue
		}

		switch tx.Type {
		case transaction.TypeIncome:
			totals.Income = totals.Income.Add(tx.Amount)
		case transaction.TypeExpense:
			totals.Expense = totals.Expense.Add(tx.Amount)
		}
	}

	return totals
}

// Filename suggests a download name covering the filter's date range.
func Filename(filter transaction.ListFilter, today time.Time) string {
	switch {
	case filter.StartDate != nil && filter.EndDate != nil:
		return fmt.Sprintf("transacoes_%s_%s.xlsx", filter.StartDate.Format("20060102"), filter.EndDate.Format("20060102"))
	case filter.StartDate != nil:
		return fmt.Sprintf("transacoes_desde_%s.xlsx", filter.StartDate.Format("20060102"))
	default:
		return fmt.Sprintf("transacoes_%s.xlsx", today.Format("20060102"))
	}
}

func categoryName(tx *transaction.Transaction) string {
	if tx.Category == nil {
		return ""
	}

	return tx.Category.Name
}

func accountName(tx *transaction.Transaction) string {
	if tx.Account == nil {
		return ""
	}

	return tx.Account.Name
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}

	return t.Format(dateLayout)
}
