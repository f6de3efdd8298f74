package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/valmirpst/gestao-financeira-ai-sub000/cmd/tui/internal/view"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/account"
	accountStore "github.com/valmirpst/gestao-financeira-ai-sub000/internal/account/store"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/budget"
	budgetStore "github.com/valmirpst/gestao-financeira-ai-sub000/internal/budget/store"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/category"
	categoryStore "github.com/valmirpst/gestao-financeira-ai-sub000/internal/category/store"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/config"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/database"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/export"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/importer"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/matching"
	matchingStore "github.com/valmirpst/gestao-financeira-ai-sub000/internal/matching/store"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
	txStore "github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction/store"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transfer"
)

type screen struct {
	key   string
	label string
	open  func(*view.Services) tea.Model
}

var screens = []screen{
	{"1", "Contas e saldos", func(s *view.Services) tea.Model { return view.NewAccountsModel(s) }},
	{"2", "Transações", func(s *view.Services) tea.Model { return view.NewListModel(s) }},
	{"3", "Nova transação", func(s *view.Services) tea.Model { return view.NewTransactionFormModel(s) }},
	{"4", "Transferência entre contas", func(s *view.Services) tea.Model { return view.NewTransferModel(s) }},
	{"5", "Orçamentos", func(s *view.Services) tea.Model { return view.NewBudgetsModel(s) }},
	{"6", "Revisar sem categoria", func(s *view.Services) tea.Model { return view.NewReviewModel(s) }},
	{"7", "Regras de categorização", func(s *view.Services) tea.Model { return view.NewRulesModel(s) }},
	{"8", "Importar extrato", func(s *view.Services) tea.Model { return view.NewImportModel(s) }},
	{"9", "Exportar planilha", func(s *view.Services) tea.Model { return view.NewExportModel(s) }},
}

type model struct {
	svc     *view.Services
	current tea.Model
	size    *tea.WindowSizeMsg
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.size = &msg
	case view.BackMsg:
		m.current = nil
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.current == nil {
			return m.updateMenu(msg)
		}
	}

	if m.current == nil {
		return m, nil
	}

	var cmd tea.Cmd
	m.current, cmd = m.current.Update(msg)

	return m, cmd
}

func (m model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "q" {
		return m, tea.Quit
	}

	for _, s := range screens {
		if msg.String() != s.key {
			continue
		}

		m.current = s.open(m.svc)

		cmds := []tea.Cmd{m.current.Init()}
		if m.size != nil {
			size := *m.size
			cmds = append(cmds, func() tea.Msg { return size })
		}

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m model) View() string {
	if m.current != nil {
		return m.current.View()
	}

	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Gestão Financeira") + "\n\n")

	for _, s := range screens {
		fmt.Fprintf(&b, "%s. %s\n", s.key, s.label)
	}

	b.WriteString("\nq. Sair")

	return lipgloss.NewStyle().Padding(2).Render(b.String())
}

func newServices(ctx context.Context, cfg *config.Config) (*view.Services, error) {
	if cfg.TUI.UserID == "" {
		return nil, errors.New("TUI_USER_ID is required")
	}

	userID, err := uuid.Parse(cfg.TUI.UserID)
	if err != nil {
		return nil, fmt.Errorf("parsing TUI_USER_ID: %w", err)
	}

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	var (
		ledger             = txStore.New(db)
		accounts           = accountStore.New(db)
		transactionService = transaction.NewService(ledger)
		categoryService    = category.NewService(categoryStore.New(db))
		matchingService    = matching.NewService(matchingStore.New(db))
		projector          = account.NewProjector(accounts, transactionService, account.WithFailSoft(cfg.Ledger.FailSoftBalance))
	)

	return &view.Services{
		UserID:       userID,
		Accounts:     account.NewService(accounts, projector),
		Projector:    projector,
		Categories:   categoryService,
		Transactions: transactionService,
		Transfers: transfer.NewCoordinator(ledger, categoryService,
			transfer.WithLegacyCompensation(cfg.Ledger.LegacyTransferCompensation)),
		Budgets: budget.NewService(budgetStore.New(db), transactionService),
		Rules:   matchingService,
		Import:  importer.NewService(transactionService, matchingService),
		Export:  export.NewService(transactionService),
	}, nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	svc, err := newServices(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}

	p := tea.NewProgram(model{svc: svc}, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
