package view

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/account"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/category"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

// ledgerOptions are the accounts and categories forms pick from.
type ledgerOptions struct {
	accounts   []*account.Account
	categories []*category.Category
	err        error
}

func loadOptionsCmd(svc *Services) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		accs, err := svc.Accounts.List(ctx, false)
		if err != nil {
			return ledgerOptions{err: err}
		}

		cats, err := svc.Categories.List(ctx, nil)
		if err != nil {
			return ledgerOptions{err: err}
		}

		return ledgerOptions{accounts: accs, categories: cats}
	}
}

func accountOptions(accs []*account.Account) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(accs))
	for _, a := range accs {
		opts = append(opts, huh.NewOption(a.Name, a.ID.String()))
	}

	return opts
}

func categoryOptions(cats []*category.Category, none string) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption(none, "")}
	for _, c := range cats {
		opts = append(opts, huh.NewOption(c.Name, c.ID.String()))
	}

	return opts
}

func validateAmount(s string) error {
	d, err := parseAmount(s)
	if err != nil || !d.IsPositive() {
		return fmt.Errorf("informe um valor positivo")
	}

	return nil
}

func validateDate(s string) error {
	if _, err := parseDate(s); err != nil {
		return fmt.Errorf("use DD/MM/AAAA")
	}

	return nil
}

func validateOptionalDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	return validateDate(s)
}

func optionalDate(s string) *time.Time {
	t, err := parseDate(s)
	if err != nil {
		return nil
	}

	return &t
}

func optionalID(s string) *uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}

	return &id
}

// TransactionFormModel records a single income or expense.
type TransactionFormModel struct {
	svc *Services

	form    *huh.Form
	loading bool
	err     error
	result  string

	in *txInput
}

// txInput holds the form bindings on the heap so they survive model copies.
type txInput struct {
	txType      string
	accountID   string
	categoryID  string
	amount      string
	description string
	date        string
	status      string
	dueDate     string
	frequency   string
}

func NewTransactionFormModel(svc *Services) TransactionFormModel {
	return TransactionFormModel{
		svc:     svc,
		loading: true,
		in: &txInput{
			txType: string(transaction.TypeExpense),
			status: string(transaction.StatusPaid),
			date:   FormatDate(svc.Transactions.Today()),
		},
	}
}

func (m TransactionFormModel) Init() tea.Cmd {
	return loadOptionsCmd(m.svc)
}

func (m *TransactionFormModel) buildForm(opts ledgerOptions) {
	accounts := append([]huh.Option[string]{huh.NewOption("(sem conta)", "")}, accountOptions(opts.accounts)...)

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Tipo").
				Options(
					huh.NewOption("Despesa", string(transaction.TypeExpense)),
					huh.NewOption("Receita", string(transaction.TypeIncome)),
				).
				Value(&m.in.txType),
			huh.NewSelect[string]().
				Title("Conta").
				Options(accounts...).
				Value(&m.in.accountID),
			huh.NewSelect[string]().
				Title("Categoria").
				Options(categoryOptions(opts.categories, "(sem categoria)")...).
				Value(&m.in.categoryID),
			huh.NewInput().
				Title("Valor").
				Placeholder("1.234,56").
				Value(&m.in.amount).
				Validate(validateAmount),
			huh.NewInput().
				Title("Descrição").
				Value(&m.in.description).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a descrição não pode ficar vazia")
					}

					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Data").
				Value(&m.in.date).
				Validate(validateDate),
			huh.NewSelect[string]().
				Title("Status").
				Options(
					huh.NewOption("Pago", string(transaction.StatusPaid)),
					huh.NewOption("Pendente", string(transaction.StatusPending)),
				).
				Value(&m.in.status),
			huh.NewInput().
				Title("Vencimento (pendente; padrão: a data)").
				Placeholder("DD/MM/AAAA").
				Value(&m.in.dueDate).
				Validate(validateOptionalDate),
			huh.NewSelect[string]().
				Title("Recorrência").
				Options(
					huh.NewOption("Nenhuma", ""),
					huh.NewOption("Diária", string(transaction.FrequencyDaily)),
					huh.NewOption("Semanal", string(transaction.FrequencyWeekly)),
					huh.NewOption("Mensal", string(transaction.FrequencyMonthly)),
					huh.NewOption("Anual", string(transaction.FrequencyYearly)),
				).
				Value(&m.in.frequency),
		),
	).WithShowHelp(false)
}

func (m TransactionFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ledgerOptions:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.buildForm(msg)

		return m, m.form.Init()

	case createTxMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.result = fmt.Sprintf("%s criada: %s", typeLabel(&msg.tx.Type), FormatAmount(msg.tx.Amount))

		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc || m.result != "" || m.err != nil {
			return m, Back
		}
	}

	if m.form == nil {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.createCmd()
	}

	return m, cmd
}

func (m TransactionFormModel) View() string {
	switch {
	case m.err != nil:
		return padded.Render(errorStyle.Render(fmt.Sprintf("Erro: %v", m.err)) + "\n\nPressione qualquer tecla para voltar.")
	case m.result != "":
		return padded.Render(okStyle.Render(m.result) + "\n\nPressione qualquer tecla para voltar.")
	case m.loading || m.form == nil:
		return padded.Render("Carregando...")
	}

	return padded.Render("Nova transação\n\n" + m.form.View())
}

type createTxMsg struct {
	tx  *transaction.Transaction
	err error
}

func (m TransactionFormModel) params() transaction.CreateParams {
	amount, _ := parseAmount(m.in.amount)
	date, _ := parseDate(m.in.date)

	p := transaction.CreateParams{
		Type:        transaction.Type(m.in.txType),
		Amount:      amount,
		Description: strings.TrimSpace(m.in.description),
		CategoryID:  optionalID(m.in.categoryID),
		AccountID:   optionalID(m.in.accountID),
		Date:        date,
		DueDate:     optionalDate(m.in.dueDate),
		Status:      transaction.Status(m.in.status),
	}

	switch p.Status {
	case transaction.StatusPaid:
		p.PaymentDate = &date
	case transaction.StatusPending:
		if p.DueDate == nil {
			p.DueDate = &date
		}
	}

	if m.in.frequency != "" {
		p.IsRecurring = true
		p.Recurrence = &transaction.Recurrence{Frequency: transaction.Frequency(m.in.frequency), Interval: 1}
	}

	return p
}

func (m TransactionFormModel) createCmd() tea.Cmd {
	svc, params := m.svc, m.params()

	return func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		tx, err := svc.Transactions.Create(ctx, params)

		return createTxMsg{tx: tx, err: err}
	}
}
