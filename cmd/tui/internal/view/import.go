package view

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/account"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/importer"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateAccountSelect importState = iota
	importStateFilePick
	importStateImporting
	importStateConflicts
	importStateResult
)

// ImportModel imports a bank statement into one account.
type ImportModel struct {
	svc *Services

	state      importState
	filePicker filepicker.Model
	accounts   []*account.Account
	cursor     int

	newParams    []transaction.CreateParams
	conflicts    []transaction.Conflict
	conflictList list.Model
	selected     map[int]bool

	help   help.Model
	status string
	err    error
}

func NewImportModel(svc *Services) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		svc:        svc,
		filePicker: fp,
		selected:   make(map[int]bool),
		help:       help.New(),
	}
}

func (m ImportModel) Init() tea.Cmd {
	return loadOptionsCmd(m.svc)
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateAccountSelect {
			return m.updateAccountSelect(msg)
		}

		if m.state == importStateConflicts {
			return m.updateConflicts(msg)
		}

	case ledgerOptions:
		if msg.err != nil {
			return m.fail(msg.err), nil
		}

		m.accounts = msg.accounts
		if len(m.accounts) == 0 {
			return m.fail(fmt.Errorf("cadastre uma conta antes de importar")), nil
		}

		return m, nil

	case importResultMsg:
		if msg.err != nil {
			return m.fail(msg.err), nil
		}

		if len(msg.result.Conflicts) == 0 {
			m.state = importStateResult
			m.status = fmt.Sprintf("%d transações importadas.", len(msg.result.Imported))

			return m, nil
		}

		m.newParams = msg.result.New
		m.conflicts = msg.result.Conflicts
		m.selected = make(map[int]bool)
		m.state = importStateConflicts

		items := make([]list.Item, len(m.conflicts))
		for i, c := range m.conflicts {
			items[i] = conflictItem{conflict: c, index: i}
		}

		m.conflictList = list.New(items, conflictDelegate{selected: m.selected}, 80, 20)
		m.conflictList.Title = fmt.Sprintf("Possíveis duplicatas (%d novas serão importadas)", len(m.newParams))
		m.conflictList.SetShowStatusBar(false)
		m.conflictList.SetFilteringEnabled(false)
		m.conflictList.SetShowHelp(false)

		return m, nil

	case confirmResultMsg:
		if msg.err != nil {
			return m.fail(msg.err), nil
		}

		m.state = importStateResult
		m.status = fmt.Sprintf("%d transações importadas.", msg.count)

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importando %s...", path)

		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m ImportModel) fail(err error) ImportModel {
	m.state = importStateResult
	m.err = err
	m.status = fmt.Sprintf("Erro: %v", err)

	return m
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick, importStateConflicts:
		m.state = importStateAccountSelect
		m.conflicts = nil
		m.newParams = nil

		return m, nil
	case importStateResult:
		if len(m.accounts) == 0 {
			return m, Back
		}

		m.state = importStateAccountSelect
		m.err = nil
		m.status = ""

		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateAccountSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if m.cursor < len(m.accounts)-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		if len(m.accounts) == 0 {
			return m, nil
		}

		m.state = importStateFilePick

		return m, m.filePicker.Init()
	}

	return m, nil
}

type conflictKeyMap struct {
	Toggle  key.Binding
	All     key.Binding
	None    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

func (k conflictKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.All, k.None, k.Confirm, k.Cancel}
}

func (k conflictKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var conflictKeys = conflictKeyMap{
	Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("espaço", "marcar")),
	All:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "todas")),
	None:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "nenhuma")),
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "importar")),
	Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancelar")),
}

// updateConflicts lets the user pick which suspected duplicates to import
// anyway. Unmarked conflicts are dropped.
func (m ImportModel) updateConflicts(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	setAll := func(v bool) {
		for i := range m.conflicts {
			m.selected[i] = v
		}
	}

	switch {
	case key.Matches(msg, conflictKeys.Toggle):
		idx := m.conflictList.Index()
		m.selected[idx] = !m.selected[idx]
	case key.Matches(msg, conflictKeys.All):
		setAll(true)
	case key.Matches(msg, conflictKeys.None):
		setAll(false)
	case key.Matches(msg, conflictKeys.Confirm):
		return m, m.confirmCmd()
	default:
		var cmd tea.Cmd
		m.conflictList, cmd = m.conflictList.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateAccountSelect:
		return m.viewAccountSelect()
	case importStateFilePick:
		return padded.Render(fmt.Sprintf("Extrato para %s (CSV):\n\n%s", m.account().Name, m.filePicker.View()))
	case importStateImporting:
		return padded.Render(m.status)
	case importStateConflicts:
		return padded.Render(m.conflictList.View() + "\n" + m.help.View(conflictKeys))
	case importStateResult:
		style := okStyle
		if m.err != nil {
			style = errorStyle
		}

		return padded.Render(style.Render(m.status) + "\n\n(Esc para voltar)")
	}

	return ""
}

func (m ImportModel) viewAccountSelect() string {
	if m.accounts == nil {
		return padded.Render("Carregando contas...")
	}

	s := "Importar extrato para a conta:\n\n"

	for i, a := range m.accounts {
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, a.Name)
	}

	return padded.Render(s)
}

func (m ImportModel) account() *account.Account {
	return m.accounts[m.cursor]
}

type importResultMsg struct {
	result *transaction.ImportResult
	err    error
}

type confirmResultMsg struct {
	count int
	err   error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	svc, accountID := m.svc, m.account().ID

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := svc.Ctx(importTimeout)
		defer cancel()

		result, err := svc.Import.Import(ctx, importer.FormatCSV, accountID, f, false)
		if err != nil {
			return importResultMsg{err: err}
		}

		return importResultMsg{result: result}
	}
}

func (m ImportModel) confirmCmd() tea.Cmd {
	svc, accountID := m.svc, m.account().ID

	params := append([]transaction.CreateParams(nil), m.newParams...)
	for i, c := range m.conflicts {
		if m.selected[i] {
			params = append(params, c.Incoming)
		}
	}

	return func() tea.Msg {
		if len(params) == 0 {
			return confirmResultMsg{}
		}

		ctx, cancel := svc.Ctx(importTimeout)
		defer cancel()

		txs, err := svc.Transactions.CreateBatch(ctx, accountID, params)
		if err != nil {
			return confirmResultMsg{err: err}
		}

		return confirmResultMsg{count: len(txs)}
	}
}

type conflictItem struct {
	conflict transaction.Conflict
	index    int
}

func (i conflictItem) Title() string       { return i.conflict.Incoming.Description }
func (i conflictItem) Description() string { return "" }
func (i conflictItem) FilterValue() string { return i.conflict.Incoming.Description }

type conflictDelegate struct {
	selected map[int]bool
}

func (d conflictDelegate) Height() int                             { return 3 }
func (d conflictDelegate) Spacing() int                            { return 0 }
func (d conflictDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d conflictDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(conflictItem)
	if !ok {
		return
	}

	checkbox := "[ ]"
	if d.selected[item.index] {
		checkbox = "[x]"
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	incoming := item.conflict.Incoming
	existing := item.conflict.Existing

	fmt.Fprintf(w, "%s%s %s  %s  %s\n", cursor, checkbox,
		FormatDate(incoming.Date), FormatAmount(incoming.Amount), incoming.Description)
	fmt.Fprintf(w, "      %s %s  %s  %s [%s]\n", faintStyle.Render("Existente:"),
		FormatDate(existing.Date), FormatAmount(existing.Amount), existing.Description,
		statusLabel(&existing.Status))
}
