package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/budget"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/category"
)

var periodLabels = map[budget.Period]string{
	budget.PeriodWeekly:  "Semanal",
	budget.PeriodMonthly: "Mensal",
	budget.PeriodYearly:  "Anual",
	budget.PeriodCustom:  "Personalizado",
}

// BudgetsModel shows each budget's spending in its current window.
type BudgetsModel struct {
	svc *Services

	bar        progress.Model
	budgets    []budget.WithUsage
	categories map[uuid.UUID]string
	cursor     int
	form       *huh.Form
	loading    bool
	err        error
	status     string

	in *budgetInput
}

type budgetInput struct {
	category string
	amount   string
	period   string
	start    string
	end      string
}

func NewBudgetsModel(svc *Services) BudgetsModel {
	return BudgetsModel{
		svc:     svc,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		loading: true,
	}
}

func (m BudgetsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m BudgetsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadBudgetsMsg:
		m.loading = false
		m.err = msg.err
		m.budgets = msg.budgets
		m.categories = msg.categories
		m.cursor = min(m.cursor, max(0, len(m.budgets)-1))

		return m, nil

	case budgetActionMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = fmt.Sprintf("Erro: %v", msg.err)
		}

		m.form = nil

		return m, m.loadCmd()
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "esc":
		return m, Back
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.budgets)-1 {
			m.cursor++
		}
	case "r":
		return m, m.loadCmd()
	case "n":
		return m.startForm()
	case "x":
		if m.cursor < len(m.budgets) {
			return m, m.deleteCmd(m.budgets[m.cursor].ID)
		}
	}

	return m, nil
}

func (m BudgetsModel) startForm() (tea.Model, tea.Cmd) {
	ctx, cancel := m.svc.Ctx(dbTimeout)
	defer cancel()

	t := category.TypeExpense

	cats, err := m.svc.Categories.List(ctx, &t)
	if err != nil {
		m.status = fmt.Sprintf("Erro: %v", err)
		return m, nil
	}

	m.in = &budgetInput{
		period: string(budget.PeriodMonthly),
		start:  FormatDate(m.svc.Transactions.Today()),
	}

	periods := make([]huh.Option[string], 0, len(periodLabels))
	for _, p := range []budget.Period{budget.PeriodMonthly, budget.PeriodWeekly, budget.PeriodYearly, budget.PeriodCustom} {
		periods = append(periods, huh.NewOption(periodLabels[p], string(p)))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Categoria").
				Options(categoryOptions(cats, "(todas as despesas)")...).
				Value(&m.in.category),
			huh.NewInput().
				Title("Limite").
				Value(&m.in.amount).
				Validate(validateAmount),
			huh.NewSelect[string]().
				Title("Período").
				Options(periods...).
				Value(&m.in.period),
			huh.NewInput().
				Title("Início").
				Value(&m.in.start).
				Validate(validateDate),
			huh.NewInput().
				Title("Fim (somente personalizado)").
				Placeholder("DD/MM/AAAA").
				Value(&m.in.end).
				Validate(validateOptionalDate),
		),
	).WithWidth(40).WithShowHelp(false)

	return m, m.form.Init()
}

func (m BudgetsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	amount, _ := parseAmount(m.in.amount)
	start, _ := parseDate(m.in.start)
	params := budget.CreateParams{
		CategoryID: optionalID(m.in.category),
		Amount:     amount,
		Period:     budget.Period(m.in.period),
		StartDate:  start,
		EndDate:    optionalDate(m.in.end),
	}
	svc := m.svc

	return m, func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		if _, err := svc.Budgets.Create(ctx, params); err != nil {
			return budgetActionMsg{err: err}
		}

		return budgetActionMsg{status: "Orçamento criado."}
	}
}

func (m BudgetsModel) View() string {
	if m.loading {
		return padded.Render("Carregando orçamentos...")
	}

	if m.err != nil {
		return padded.Render(errorStyle.Render(fmt.Sprintf("Erro: %v", m.err)))
	}

	if m.form != nil {
		return padded.Render("Novo orçamento\n\n" + m.form.View())
	}

	var b strings.Builder

	b.WriteString("Orçamentos\n\n")

	if len(m.budgets) == 0 {
		b.WriteString(faintStyle.Render("Nenhum orçamento cadastrado.") + "\n")
	}

	for i, bu := range m.budgets {
		name := "Todas as despesas"
		if bu.CategoryID != nil {
			name = m.categories[*bu.CategoryID]
		}

		line := fmt.Sprintf("%s (%s)", name, periodLabels[bu.Period])
		if i == m.cursor {
			line = activeStyle("> " + line)
		} else {
			line = "  " + line
		}

		pct, _ := bu.Usage.Percentage.Float64()

		fmt.Fprintf(&b, "%s\n    %s %s%%\n", line, m.bar.ViewAs(min(pct, 100)/100), bu.Usage.Percentage.StringFixed(1))

		usage := fmt.Sprintf("%s de %s | %s a %s | %d dias restantes",
			FormatAmount(bu.Usage.Spent), FormatAmount(bu.Amount),
			FormatDate(bu.Usage.Start), FormatDate(bu.Usage.End), bu.Usage.DaysRemaining)

		if pct > 100 {
			usage = errorStyle.Render(usage)
		} else {
			usage = faintStyle.Render(usage)
		}

		fmt.Fprintf(&b, "    %s\n\n", usage)
	}

	b.WriteString(faintStyle.Render("n: novo | x: excluir | r: atualizar | Esc: voltar"))

	if m.status != "" {
		return padded.Render(faintStyle.Render(m.status) + "\n" + b.String())
	}

	return padded.Render(b.String())
}

type loadBudgetsMsg struct {
	budgets    []budget.WithUsage
	categories map[uuid.UUID]string
	err        error
}

type budgetActionMsg struct {
	status string
	err    error
}

func (m BudgetsModel) loadCmd() tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		budgets, err := svc.Budgets.ListWithUsage(ctx)
		if err != nil {
			return loadBudgetsMsg{err: err}
		}

		cats, err := svc.Categories.List(ctx, nil)
		if err != nil {
			return loadBudgetsMsg{err: err}
		}

		names := make(map[uuid.UUID]string, len(cats))
		for _, c := range cats {
			names[c.ID] = c.Name
		}

		return loadBudgetsMsg{budgets: budgets, categories: names}
	}
}

func (m BudgetsModel) deleteCmd(id uuid.UUID) tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		if err := svc.Budgets.Delete(ctx, id); err != nil {
			return budgetActionMsg{err: err}
		}

		return budgetActionMsg{status: "Orçamento excluído."}
	}
}
