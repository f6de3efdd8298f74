package view

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/account"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/auth"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/budget"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/category"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/export"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/importer"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/matching"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transfer"
)

const dbTimeout = 5 * time.Second

// Services is what the screens operate on, all acting as one user.
type Services struct {
	UserID       uuid.UUID
	Accounts     *account.Service
	Projector    *account.Projector
	Categories   *category.Service
	Transactions *transaction.Service
	Transfers    *transfer.Coordinator
	Budgets      *budget.Service
	Rules        *matching.Service
	Import       *importer.Service
	Export       *export.Service
}

// Ctx returns a context carrying the acting user with the given timeout.
func (s *Services) Ctx(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return auth.WithUser(ctx, s.UserID), cancel
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	faintStyle = lipgloss.NewStyle().Faint(true)
	padded     = lipgloss.NewStyle().Padding(1)
	boxStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

// FormatAmount renders an amount the Brazilian way: R$ -1.234,56.
func FormatAmount(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}

		b.WriteRune(r)
	}

	return "R$ " + sign + b.String() + "," + frac
}

// FormatDate renders a ledger date as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return "-"
	}

	return FormatDate(*t)
}

// parseDate accepts DD/MM/YYYY or YYYY-MM-DD.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse("02/01/2006", s); err == nil {
		return t, nil
	}

	return time.Parse(time.DateOnly, s)
}

// parseAmount accepts "1.234,56", "1234,56" and "1234.56".
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	return decimal.NewFromString(s)
}
