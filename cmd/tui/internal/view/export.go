package view

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/export"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/transaction"
)

const exportTimeout = 2 * time.Minute

type exportState int

const (
	exportStateTimeframe exportState = iota
	exportStatePath
	exportStateExporting
	exportStateResult
)

// ExportModel writes a spreadsheet of the transactions in a chosen period.
type ExportModel struct {
	svc *Services

	state           exportState
	err             error
	timeframePicker TimeframePicker

	filter transaction.ListFilter
	form   *huh.Form
	dir    *string

	spinner spinner.Model
	file    string
	rows    int
}

func NewExportModel(svc *Services) ExportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ExportModel{
		svc:             svc,
		state:           exportStateTimeframe,
		timeframePicker: NewTimeframePicker(TimeframeThisMonth),
		dir:             new("./exports"),
		spinner:         s,
	}
}

func (m ExportModel) Init() tea.Cmd {
	return nil
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if tfMsg, ok := msg.(TimeframeSelectedMsg); ok {
		m.filter = transaction.ListFilter{}
		if !tfMsg.All {
			m.filter.StartDate = &tfMsg.Start
			m.filter.EndDate = &tfMsg.End
		}

		m.form = m.buildPathForm()
		m.state = exportStatePath

		return m, m.form.Init()
	}

	switch m.state {
	case exportStateTimeframe:
		return m.updateTimeframe(msg)
	case exportStatePath:
		return m.updatePath(msg)
	case exportStateExporting:
		return m.updateExporting(msg)
	case exportStateResult:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			return m, Back
		}
	}

	return m, nil
}

func (m ExportModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc && m.timeframePicker.IsSelecting() {
			return m, Back
		}
	}

	var cmd tea.Cmd
	m.timeframePicker, cmd = m.timeframePicker.Update(msg)

	return m, cmd
}

func (m ExportModel) updatePath(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = exportStateTimeframe
		m.timeframePicker.Reset()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = exportStateExporting
	m.err = nil

	return m, tea.Batch(m.spinner.Tick, m.runExportCmd())
}

func (m ExportModel) updateExporting(msg tea.Msg) (tea.Model, tea.Cmd) {
	if result, ok := msg.(exportResultMsg); ok {
		m.state = exportStateResult
		m.err = result.err
		m.file = result.file
		m.rows = result.rows

		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)

	return m, cmd
}

func (m ExportModel) buildPathForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("dir").
				Title("Diretório de saída").
				Description("Será criado se não existir").
				Placeholder("./exports").
				Value(m.dir),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ExportModel) View() string {
	switch m.state {
	case exportStateTimeframe:
		return padded.Render(m.timeframePicker.View())
	case exportStatePath:
		return padded.Render(m.form.View())
	case exportStateExporting:
		return padded.Render(fmt.Sprintf("%s Gerando planilha...", m.spinner.View()))
	case exportStateResult:
		if m.err != nil {
			return padded.Render(errorStyle.Render(fmt.Sprintf("Erro: %v", m.err)) + "\n\n(Esc para voltar)")
		}

		header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")).Render("Exportação concluída!")

		return padded.Render(lipgloss.JoinVertical(lipgloss.Left,
			header,
			"",
			fmt.Sprintf("%d transações em %s", m.rows, m.file),
			"",
			faintStyle.Render("(Esc para voltar)"),
		))
	}

	return ""
}

type exportResultMsg struct {
	file string
	rows int
	err  error
}

func (m ExportModel) runExportCmd() tea.Cmd {
	svc, filter, dir := m.svc, m.filter, *m.dir

	return func() tea.Msg {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return exportResultMsg{err: fmt.Errorf("creating output directory: %w", err)}
		}

		path := filepath.Join(dir, export.Filename(filter, svc.Transactions.Today()))

		f, err := os.Create(path)
		if err != nil {
			return exportResultMsg{err: fmt.Errorf("creating %s: %w", path, err)}
		}
		defer f.Close()

		ctx, cancel := svc.Ctx(exportTimeout)
		defer cancel()

		rows, err := svc.Export.WriteXLSX(ctx, filter, f)
		if err != nil {
			return exportResultMsg{err: err}
		}

		return exportResultMsg{file: path, rows: rows}
	}
}
