package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/category"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

type listState int

const (
	listStateBrowse listState = iota
	listStateEdit
)

var (
	statusFilters = []*transaction.Status{
		nil,
		new(transaction.StatusPending),
		new(transaction.StatusOverdue),
		new(transaction.StatusPaid),
		new(transaction.StatusCancelled),
	}
	typeFilters = []*transaction.Type{nil, new(transaction.TypeIncome), new(transaction.TypeExpense)}
	dateFilters = []Timeframe{TimeframeAll, TimeframeThisMonth, TimeframeLastMonth, TimeframeThisYear}
)

// ListModel browses transactions and settles them.
type ListModel struct {
	svc *Services

	state listState
	table table.Model
	txs   []*transaction.Transaction
	form  *huh.Form

	statusFilterIdx int
	typeFilterIdx   int
	dateFilterIdx   int

	filter  transaction.ListFilter
	loading bool
	err     error
	status  string

	edit *txEdit
}

// txEdit holds the edit form bindings. It lives on the heap so the bindings
// survive the model being copied between updates.
type txEdit struct {
	desc     string
	category string
}

func NewListModel(svc *Services) ListModel {
	columns := []table.Column{
		{Title: "Data", Width: 12},
		{Title: "Status", Width: 10},
		{Title: "Tipo", Width: 8},
		{Title: "Valor", Width: 16},
		{Title: "Descrição", Width: 36},
		{Title: "Categoria", Width: 16},
		{Title: "Conta", Width: 16},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return ListModel{
		svc:   svc,
		table: t,
	}
}

func (m ListModel) Init() tea.Cmd {
	return m.loadTxsCmd()
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadListMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.txs = msg.txs
		m.refreshTable()

		return m, nil

	case listActionMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Erro: %v", msg.err)
		}

		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadTxsCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case listStateBrowse:
		return m.updateBrowse(msg)
	case listStateEdit:
		return m.updateEdit(msg)
	}

	return m, nil
}

func (m ListModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadTxsCmd()
		case "e":
			return m.enterEditMode()
		case "p":
			return m, m.actionCmd("Transação paga.", func(s *Services, tx *transaction.Transaction) error {
				ctx, cancel := s.Ctx(dbTimeout)
				defer cancel()

				return s.Transactions.MarkAsPaid(ctx, tx.ID, nil)
			})
		case "c":
			return m, m.actionCmd("Transação cancelada.", func(s *Services, tx *transaction.Transaction) error {
				ctx, cancel := s.Ctx(dbTimeout)
				defer cancel()

				return s.Transactions.Cancel(ctx, tx.ID)
			})
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(statusFilters)
			m.applyFilter()

			return m, m.loadTxsCmd()
		case "t":
			m.typeFilterIdx = (m.typeFilterIdx + 1) % len(typeFilters)
			m.applyFilter()

			return m, m.loadTxsCmd()
		case "d":
			m.dateFilterIdx = (m.dateFilterIdx + 1) % len(dateFilters)
			m.applyFilter()

			return m, m.loadTxsCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ListModel) selected() *transaction.Transaction {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return nil
	}

	return m.txs[idx]
}

func (m ListModel) enterEditMode() (tea.Model, tea.Cmd) {
	tx := m.selected()
	if tx == nil {
		return m, nil
	}

	ctx, cancel := m.svc.Ctx(dbTimeout)
	defer cancel()

	t := category.Type(tx.Type)

	cats, err := m.svc.Categories.List(ctx, &t)
	if err != nil {
		m.status = fmt.Sprintf("Erro: %v", err)
		return m, nil
	}

	m.edit = &txEdit{desc: tx.Description}
	if tx.CategoryID != nil {
		m.edit.category = tx.CategoryID.String()
	}

	options := []huh.Option[string]{huh.NewOption("(sem categoria)", "")}
	for _, c := range cats {
		options = append(options, huh.NewOption(c.Name, c.ID.String()))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("description").
				Title("Descrição").
				Value(&m.edit.desc).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a descrição não pode ficar vazia")
					}

					return nil
				}),

			huh.NewSelect[string]().
				Key("category").
				Title("Categoria").
				Options(options...).
				Value(&m.edit.category),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = listStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m ListModel) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = listStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.saveCmd()
}

func (m ListModel) View() string {
	if m.loading {
		return padded.Render("Carregando transações...")
	}

	if m.err != nil {
		return padded.Render(errorStyle.Render(fmt.Sprintf("Erro: %v", m.err)))
	}

	header := fmt.Sprintf(
		"Filtros: [s] Status: %s | [t] Tipo: %s | [d] Período: %s",
		activeStyle(statusLabel(statusFilters[m.statusFilterIdx])),
		activeStyle(typeLabel(typeFilters[m.typeFilterIdx])),
		activeStyle(dateFilters[m.dateFilterIdx].String()),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxStyle.Render(m.table.View()),
		faintStyle.Render("e: editar | p: pagar | c: cancelar | r: atualizar | Esc: voltar"),
	)

	if m.state == listStateEdit && m.form != nil {
		original := ""
		if tx := m.selected(); tx != nil {
			original = fmt.Sprintf("%s  %s", FormatDate(tx.Date), FormatAmount(tx.Amount))
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(fmt.Sprintf("Editar transação\n\n%s\n\n%s", original, m.form.View()))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = faintStyle.Render(m.status) + "\n" + content
	}

	return padded.Render(content)
}

func (m *ListModel) applyFilter() {
	m.filter.Status = statusFilters[m.statusFilterIdx]
	m.filter.Type = typeFilters[m.typeFilterIdx]

	start, end := dateFilters[m.dateFilterIdx].DateRange(m.svc.Transactions.Today())
	if start.IsZero() {
		m.filter.StartDate = nil
		m.filter.EndDate = nil

		return
	}

	m.filter.StartDate = &start
	m.filter.EndDate = &end
}

func (m *ListModel) refreshTable() {
	today := m.svc.Transactions.Today()

	rows := make([]table.Row, 0, len(m.txs))
	for _, tx := range m.txs {
		cat, acc := "-", "-"
		if tx.Category != nil {
			cat = tx.Category.Name
		}

		if tx.Account != nil {
			acc = tx.Account.Name
		}

		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			statusLabel(new(transaction.Classify(tx, today))),
			typeLabel(&tx.Type),
			FormatAmount(tx.Signed()),
			tx.Description,
			cat,
			acc,
		})
	}

	m.table.SetRows(rows)
}

func statusLabel(s *transaction.Status) string {
	if s == nil {
		return "Todos"
	}

	switch *s {
	case transaction.StatusPending:
		return "Pendente"
	case transaction.StatusPaid:
		return "Pago"
	case transaction.StatusOverdue:
		return "Atrasado"
	case transaction.StatusCancelled:
		return "Cancelado"
	}

	return string(*s)
}

func typeLabel(t *transaction.Type) string {
	if t == nil {
		return "Todos"
	}

	if *t == transaction.TypeIncome {
		return "Receita"
	}

	return "Despesa"
}

type loadListMsg struct {
	txs []*transaction.Transaction
	err error
}

func (m ListModel) loadTxsCmd() tea.Cmd {
	svc, filter := m.svc, m.filter

	return func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		txs, err := svc.Transactions.List(ctx, filter)

		return loadListMsg{txs: txs, err: err}
	}
}

type listActionMsg struct {
	status string
	err    error
}

func (m ListModel) actionCmd(done string, action func(*Services, *transaction.Transaction) error) tea.Cmd {
	tx := m.selected()
	if tx == nil {
		return nil
	}

	svc := m.svc

	return func() tea.Msg {
		if err := action(svc, tx); err != nil {
			return listActionMsg{err: err}
		}

		return listActionMsg{status: done}
	}
}

func (m ListModel) saveCmd() tea.Cmd {
	desc := strings.TrimSpace(m.edit.desc)

	params := transaction.UpdateParams{Description: &desc}
	if m.edit.category == "" {
		params.ClearCategory = true
	} else if id, err := uuid.Parse(m.edit.category); err == nil {
		params.CategoryID = &id
	}

	return m.actionCmd("Transação salva.", func(s *Services, tx *transaction.Transaction) error {
		ctx, cancel := s.Ctx(dbTimeout)
		defer cancel()

		_, err := s.Transactions.Update(ctx, tx.ID, params)

		return err
	})
}
