package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/category"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

type reviewState int

const (
	reviewStateTimeframe reviewState = iota
	reviewStateReviewing
)

// ReviewModel walks the uncategorized transactions of a period, assigning
// categories and optionally learning a rule from each answer.
type ReviewModel struct {
	svc *Services

	state           reviewState
	timeframePicker TimeframePicker

	categories []*category.Category
	queue      []*transaction.Transaction
	current    *transaction.Transaction
	choices    []*category.Category
	cursor     int
	learn      bool

	patternInput textinput.Model

	status     string
	loading    bool
	totalCount int
}

func NewReviewModel(svc *Services) ReviewModel {
	ti := textinput.New()
	ti.Prompt = "Regra: "
	ti.Placeholder = "trecho da descrição"
	ti.Width = 40

	return ReviewModel{
		svc:             svc,
		timeframePicker: NewTimeframePicker(TimeframeThisMonth),
		patternInput:    ti,
		learn:           true,
	}
}

func (m ReviewModel) Init() tea.Cmd {
	return nil
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.state = reviewStateReviewing
		m.loading = true

		return m, m.loadCmd(msg)

	case loadReviewMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Erro ao carregar: %v", msg.err)
			return m, nil
		}

		m.categories = msg.categories
		m.queue = msg.txs
		m.totalCount = len(m.queue)

		cmd := m.nextTx()

		return m, cmd

	case reviewSavedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Erro ao salvar: %v", msg.err)
			return m, nil
		}

		cmd := m.nextTx()

		return m, cmd
	}

	if m.state == reviewStateTimeframe {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc && m.timeframePicker.IsSelecting() {
			return m, Back
		}

		var cmd tea.Cmd
		m.timeframePicker, cmd = m.timeframePicker.Update(msg)

		return m, cmd
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.loading {
		return m, nil
	}

	if keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	if m.current == nil {
		return m, nil
	}

	switch keyMsg.String() {
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}

		return m, nil
	case "down":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}

		return m, nil
	case "tab":
		m.learn = !m.learn
		return m, nil
	case "ctrl+s":
		cmd := m.nextTx()

		return m, cmd
	case "enter":
		if len(m.choices) == 0 {
			cmd := m.nextTx()

			return m, cmd
		}

		return m, m.saveCmd()
	}

	var cmd tea.Cmd
	m.patternInput, cmd = m.patternInput.Update(msg)

	return m, cmd
}

// nextTx pops the queue and preselects the suggested category.
func (m *ReviewModel) nextTx() tea.Cmd {
	if len(m.queue) == 0 {
		m.current = nil
		m.status = "Tudo revisado!"
		m.patternInput.Blur()

		return nil
	}

	m.current, m.queue = m.queue[0], m.queue[1:]
	m.status = fmt.Sprintf("Revisando %d/%d", m.totalCount-len(m.queue), m.totalCount)
	m.choices = category.Eligible(m.categories, category.Type(m.current.Type))
	m.cursor = 0
	m.patternInput.SetValue(m.current.Description)

	ctx, cancel := m.svc.Ctx(dbTimeout)
	defer cancel()

	if suggested, err := m.svc.Rules.Suggest(ctx, m.current.Description); err == nil && suggested != nil {
		for i, c := range m.choices {
			if c.ID == *suggested {
				m.cursor = i
			}
		}
	}

	return m.patternInput.Focus()
}

func (m ReviewModel) View() string {
	if m.state == reviewStateTimeframe {
		return padded.Render("Revisar transações sem categoria\n\n" + m.timeframePicker.View())
	}

	if m.loading {
		return padded.Render("Carregando transações...")
	}

	if m.current == nil {
		return padded.Render(m.status + "\n\n(Esc para voltar)")
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", m.status)
	b.WriteString(boxStyle.Padding(0, 1).Render(fmt.Sprintf("%s  %s  %s\n%s",
		FormatDate(m.current.Date), typeLabel(&m.current.Type),
		FormatAmount(m.current.Amount), m.current.Description)))
	b.WriteString("\n\nCategoria:\n")

	if len(m.choices) == 0 {
		b.WriteString(faintStyle.Render("  nenhuma categoria disponível para este tipo") + "\n")
	}

	for i, c := range m.choices {
		if i == m.cursor {
			b.WriteString(activeStyle("> "+c.Name) + "\n")
		} else {
			b.WriteString("  " + c.Name + "\n")
		}
	}

	learn := "[ ]"
	if m.learn {
		learn = "[x]"
	}

	fmt.Fprintf(&b, "\n%s Aprender regra  %s\n\n", learn, m.patternInput.View())
	b.WriteString(faintStyle.Render("↑/↓: categoria | Tab: regra | Enter: salvar | Ctrl+S: pular | Esc: sair"))

	return padded.Render(b.String())
}

type loadReviewMsg struct {
	txs        []*transaction.Transaction
	categories []*category.Category
	err        error
}

func (m ReviewModel) loadCmd(tf TimeframeSelectedMsg) tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		filter := transaction.ListFilter{}
		if !tf.All {
			filter.StartDate = &tf.Start
			filter.EndDate = &tf.End
		}

		txs, err := svc.Transactions.List(ctx, filter)
		if err != nil {
			return loadReviewMsg{err: err}
		}

		cats, err := svc.Categories.List(ctx, nil)
		if err != nil {
			return loadReviewMsg{err: err}
		}

		pending := make([]*transaction.Transaction, 0, len(txs))
		for _, tx := range txs {
			if tx.CategoryID == nil && tx.TransferID == nil && tx.Status != transaction.StatusCancelled {
				pending = append(pending, tx)
			}
		}

		return loadReviewMsg{txs: pending, categories: cats}
	}
}

type reviewSavedMsg struct {
	err error
}

func (m ReviewModel) saveCmd() tea.Cmd {
	svc, tx := m.svc, m.current
	categoryID := m.choices[m.cursor].ID
	pattern := strings.TrimSpace(m.patternInput.Value())
	learn := m.learn && pattern != ""

	return func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		if _, err := svc.Transactions.Update(ctx, tx.ID, transaction.UpdateParams{CategoryID: new(categoryID)}); err != nil {
			return reviewSavedMsg{err: err}
		}

		if learn {
			if _, err := svc.Rules.Learn(ctx, pattern, categoryID); err != nil {
				return reviewSavedMsg{err: fmt.Errorf("learning rule: %w", err)}
			}
		}

		return reviewSavedMsg{}
	}
}

// RulesModel lists the learned categorization rules.
type RulesModel struct {
	svc *Services

	rules   []ruleRow
	cursor  int
	loading bool
	err     error
	status  string
}

type ruleRow struct {
	id       uuid.UUID
	pattern  string
	category string
}

func NewRulesModel(svc *Services) RulesModel {
	return RulesModel{svc: svc, loading: true}
}

func (m RulesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m RulesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadRulesMsg:
		m.loading = false
		m.err = msg.err
		m.rules = msg.rules
		m.cursor = min(m.cursor, max(0, len(m.rules)-1))

		return m, nil

	case ruleDeletedMsg:
		m.status = "Regra excluída."
		if msg.err != nil {
			m.status = fmt.Sprintf("Erro: %v", msg.err)
		}

		return m, m.loadCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rules)-1 {
				m.cursor++
			}
		case "x":
			if m.cursor < len(m.rules) {
				return m, m.deleteCmd(m.rules[m.cursor].id)
			}
		}
	}

	return m, nil
}

func (m RulesModel) View() string {
	if m.loading {
		return padded.Render("Carregando regras...")
	}

	if m.err != nil {
		return padded.Render(errorStyle.Render(fmt.Sprintf("Erro: %v", m.err)))
	}

	var b strings.Builder

	if m.status != "" {
		b.WriteString(faintStyle.Render(m.status) + "\n")
	}

	b.WriteString("Regras de categorização\n\n")

	if len(m.rules) == 0 {
		b.WriteString(faintStyle.Render("Nenhuma regra aprendida ainda.") + "\n")
	}

	for i, r := range m.rules {
		line := fmt.Sprintf("%-40s → %s", r.pattern, r.category)
		if i == m.cursor {
			b.WriteString(activeStyle("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n" + faintStyle.Render("x: excluir | Esc: voltar"))

	return padded.Render(b.String())
}

type loadRulesMsg struct {
	rules []ruleRow
	err   error
}

type ruleDeletedMsg struct {
	err error
}

func (m RulesModel) loadCmd() tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		rules, err := svc.Rules.List(ctx)
		if err != nil {
			return loadRulesMsg{err: err}
		}

		cats, err := svc.Categories.List(ctx, nil)
		if err != nil {
			return loadRulesMsg{err: err}
		}

		names := make(map[uuid.UUID]string, len(cats))
		for _, c := range cats {
			names[c.ID] = c.Name
		}

		rows := make([]ruleRow, 0, len(rules))
		for _, r := range rules {
			rows = append(rows, ruleRow{id: r.ID, pattern: r.Pattern, category: names[r.CategoryID]})
		}

		return loadRulesMsg{rules: rows}
	}
}

func (m RulesModel) deleteCmd(id uuid.UUID) tea.Cmd {
	svc := m.svc

	return func() tea.Msg {
		ctx, cancel := svc.Ctx(dbTimeout)
		defer cancel()

		return ruleDeletedMsg{err: svc.Rules.Delete(ctx, id)}
	}
}
