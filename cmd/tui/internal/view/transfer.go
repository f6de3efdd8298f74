package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transfer"
)

// TransferModel moves money between two accounts.
type TransferModel struct {
	svc *Services

	form    *huh.Form
	loading bool
	err     error
	result  *transfer.Transfer
	balance [2]string

	in *transferInput
}

type transferInput struct {
	from        string
	to          string
	amount      string
	date        string
	description string
	status      string
	dueDate     string
}

func NewTransferModel(svc *Services) TransferModel {
	return TransferModel{
		svc:     svc,
		loading: true,
		in: &transferInput{
			date:   FormatDate(svc.Transactions.Today()),
			status: string(transaction.StatusPaid),
		},
	}
}

func (m TransferModel) Init() tea.Cmd {
	return loadOptionsCmd(m.svc)
}

func (m *TransferModel) buildForm(opts ledgerOptions) error {
	if len(opts.accounts) < 2 {
		return fmt.Errorf("cadastre ao menos duas contas ativas para transferir")
	}

	accounts := accountOptions(opts.accounts)

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("De").
				Options(accounts...).
				Value(&m.in.from),
			huh.NewSelect[string]().
				Title("Para").
				Options(accounts...).
				Value(&m.in.to).
				Validate(func(s string) error {
					if s == m.in.from {
						return fmt.Errorf("as contas de origem e destino devem ser diferentes")
					}

					return nil
				}),
			huh.NewInput().
				Title("Valor").
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
		),
	).WithShowHelp(false)

	return nil
}

func (m TransferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ledgerOptions:
		m.loading = false

		m.err = msg.err
		if m.err == nil {
			m.err = m.buildForm(msg)
		}

		if m.err != nil {
			return m, nil
		}

		return m, m.form.Init()

	case transferDoneMsg:
		m.result, m.err, m.balance = msg.transfer, msg.err, msg.balance
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc || m.result != nil || m.err != nil {
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
		return m, m.submitCmd()
	}

	return m, cmd
}

func (m TransferModel) View() string {
	const hint = "\n\nPressione qualquer tecla para voltar."

	switch {
	case m.err != nil:
		return padded.Render(errorStyle.Render(fmt.Sprintf("Erro: %v", m.err)) + hint)
	case m.result != nil:
		done := okStyle.Render(fmt.Sprintf("Transferência registrada: %s de %s para %s",
			FormatAmount(m.result.Expense.Amount), accountName(m.result.Expense), accountName(m.result.Income)))

		return padded.Render(done + "\n\n" + faintStyle.Render(fmt.Sprintf("Saldo previsto: %s %s | %s %s",
			accountName(m.result.Expense), m.balance[0], accountName(m.result.Income), m.balance[1])) + hint)
	case m.loading || m.form == nil:
		return padded.Render("Carregando contas...")
	}

	return padded.Render("Transferência entre contas\n\n" + m.form.View())
}

func accountName(tx *transaction.Transaction) string {
	if tx == nil || tx.Account == nil {
		return "?"
	}

	return tx.Account.Name
}

type transferDoneMsg struct {
	transfer *transfer.Transfer
	balance  [2]string
	err      error
}

func (m TransferModel) submitCmd() tea.Cmd {
	amount, _ := parseAmount(m.in.amount)
	date, _ := parseDate(m.in.date)

	params := transfer.Params{
		FromAccountID: uuid.MustParse(m.in.from),
		ToAccountID:   uuid.MustParse(m.in.to),
		Amount:        amount,
		Date:          date,
		Description:   strings.TrimSpace(m.in.description),
		Status:        transaction.Status(m.in.status),
		DueDate:       optionalDate(m.in.dueDate),
	}

	if params.Status == transaction.StatusPending && params.DueDate == nil {
		params.DueDate = &date
	}
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		created, err := svc.Transfers.CreateTransfer(ctx, params)
		if err != nil {
			return transferDoneMsg{err: err}
		}

		// Legs come back without their account refs; reload them.
		if loaded, err := svc.Transfers.Get(ctx, created.ID); err == nil {
			created = loaded
		}

		var balance [2]string
		for i, id := range []uuid.UUID{params.FromAccountID, params.ToAccountID} {
			balance[i] = "?"
			if b, err := svc.Projector.Project(ctx, id); err == nil {
				balance[i] = FormatAmount(b)
			}
		}

		return transferDoneMsg{transfer: created, balance: balance}
	}
}
