package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/account"
)

var accountTypeLabels = map[account.Type]string{
	account.TypeChecking:   "Corrente",
	account.TypeSavings:    "Poupança",
	account.TypeCash:       "Dinheiro",
	account.TypeInvestment: "Investimento",
	account.TypeOther:      "Outra",
}

// AccountsModel shows every active account with its current and projected
// balance.
type AccountsModel struct {
	svc *Services

	table    table.Model
	accounts []account.Projection
	form     *huh.Form
	loading  bool
	err      error
	status   string

	in *accountInput
}

type accountInput struct {
	name    string
	kind    string
	initial string
}

func NewAccountsModel(svc *Services) AccountsModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Conta", Width: 24},
			{Title: "Tipo", Width: 14},
			{Title: "Saldo atual", Width: 18},
			{Title: "Saldo previsto", Width: 18},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	return AccountsModel{svc: svc, table: t, loading: true}
}

func (m AccountsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m AccountsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadAccountsMsg:
		m.loading = false
		m.err = msg.err
		m.accounts = msg.accounts
		m.refreshTable()

		return m, nil

	case accountActionMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Erro: %v", msg.err)
		}

		m.form = nil
		m.table.Focus()

		return m, m.loadCmd()
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			return m, m.recalculateCmd()
		case "n":
			return m.startForm()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m AccountsModel) startForm() (tea.Model, tea.Cmd) {
	m.in = &accountInput{kind: string(account.TypeChecking), initial: "0"}

	types := make([]huh.Option[string], 0, len(accountTypeLabels))
	for _, t := range []account.Type{account.TypeChecking, account.TypeSavings, account.TypeCash, account.TypeInvestment, account.TypeOther} {
		types = append(types, huh.NewOption(accountTypeLabels[t], string(t)))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Nome").
				Value(&m.in.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("o nome não pode ficar vazio")
					}

					return nil
				}),
			huh.NewSelect[string]().
				Title("Tipo").
				Options(types...).
				Value(&m.in.kind),
			huh.NewInput().
				Title("Saldo inicial").
				Value(&m.in.initial).
				Validate(func(s string) error {
					if _, err := parseAmount(s); err != nil {
						return fmt.Errorf("valor inválido")
					}

					return nil
				}),
		),
	).WithWidth(40).WithShowHelp(false)

	m.table.Blur()

	return m, m.form.Init()
}

func (m AccountsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	initial, _ := parseAmount(m.in.initial)
	params := account.CreateParams{
		Name:           strings.TrimSpace(m.in.name),
		Type:           account.Type(m.in.kind),
		InitialBalance: initial,
	}
	svc := m.svc

	return m, func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		if _, err := svc.Accounts.Create(ctx, params); err != nil {
			return accountActionMsg{err: err}
		}

		return accountActionMsg{status: "Conta criada."}
	}
}

func (m AccountsModel) View() string {
	if m.loading {
		return padded.Render("Carregando contas...")
	}

	if m.err != nil {
		return padded.Render(errorStyle.Render(fmt.Sprintf("Erro: %v", m.err)))
	}

	var current, projected decimal.Decimal
	for _, a := range m.accounts {
		current = current.Add(a.CurrentBalance)
		projected = projected.Add(a.ProjectedBalance)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		"Contas\n",
		boxStyle.Render(m.table.View()),
		fmt.Sprintf("Total atual: %s | Total previsto: %s", FormatAmount(current), FormatAmount(projected)),
		faintStyle.Render("n: nova conta | r: recalcular saldos | Esc: voltar"),
	)

	if m.form != nil {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content,
			lipgloss.NewStyle().Padding(1, 2).BorderStyle(lipgloss.RoundedBorder()).Render("Nova conta\n\n"+m.form.View()))
	}

	if m.status != "" {
		content = faintStyle.Render(m.status) + "\n" + content
	}

	return padded.Render(content)
}

func (m *AccountsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.accounts))
	for _, a := range m.accounts {
		rows = append(rows, table.Row{
			a.Name,
			accountTypeLabels[a.Type],
			FormatAmount(a.CurrentBalance),
			FormatAmount(a.ProjectedBalance),
		})
	}

	m.table.SetRows(rows)
}

type loadAccountsMsg struct {
	accounts []account.Projection
	err      error
}

type accountActionMsg struct {
	status string
	err    error
}

func (m AccountsModel) loadCmd() tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		accs, err := svc.Accounts.ListWithProjection(ctx, false)

		return loadAccountsMsg{accounts: accs, err: err}
	}
}

func (m AccountsModel) recalculateCmd() tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		n, err := svc.Accounts.RecalculateAll(ctx)
		if err != nil {
			return accountActionMsg{err: err}
		}

		return accountActionMsg{status: fmt.Sprintf("%d saldos recalculados.", n)}
	}
}
