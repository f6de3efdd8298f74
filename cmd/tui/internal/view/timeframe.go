package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/calendar"
)

// Timeframe is a predefined or custom date range.
type Timeframe int

const (
	TimeframeThisWeek Timeframe = iota
	TimeframeLastWeek
	TimeframeThisMonth
	TimeframeLastMonth
	TimeframeThisYear
	TimeframeAll
	TimeframeCustom
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeThisWeek:
		return "Esta semana"
	case TimeframeLastWeek:
		return "Semana passada"
	case TimeframeThisMonth:
		return "Este mês"
	case TimeframeLastMonth:
		return "Mês passado"
	case TimeframeThisYear:
		return "Este ano"
	case TimeframeAll:
		return "Todo o período"
	case TimeframeCustom:
		return "Personalizado"
	}

	return "?"
}

// DateRange returns the inclusive ledger date range of t relative to today.
// Weeks start on Monday. The zero range is returned for TimeframeAll and
// TimeframeCustom.
func (t Timeframe) DateRange(today time.Time) (time.Time, time.Time) {
	today = calendar.Day(today)

	weekday := int(today.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	monday := today.AddDate(0, 0, 1-weekday)
	firstOfMonth := calendar.Date(today.Year(), today.Month(), 1)

	switch t {
	case TimeframeThisWeek:
		return monday, today
	case TimeframeLastWeek:
		return monday.AddDate(0, 0, -7), monday.AddDate(0, 0, -1)
	case TimeframeThisMonth:
		return firstOfMonth, today
	case TimeframeLastMonth:
		return calendar.AddMonths(firstOfMonth, -1), firstOfMonth.AddDate(0, 0, -1)
	case TimeframeThisYear:
		return calendar.Date(today.Year(), time.January, 1), today
	}

	return time.Time{}, time.Time{}
}

// TimeframeSelectedMsg is emitted once a range is chosen. Start and End are
// zero when All is set.
type TimeframeSelectedMsg struct {
	Start time.Time
	End   time.Time
	All   bool
}

// TimeframePicker lets the user pick a date range from a list or type one.
type TimeframePicker struct {
	selected Timeframe
	custom   bool

	startInput textinput.Model
	endInput   textinput.Model
	focusIndex int

	today func() time.Time
	err   error
}

func NewTimeframePicker(initial Timeframe) TimeframePicker {
	newInput := func(prompt string) textinput.Model {
		in := textinput.New()
		in.Placeholder = "DD/MM/AAAA"
		in.CharLimit = 10
		in.Width = 12
		in.Prompt = prompt

		return in
	}

	return TimeframePicker{
		selected:   initial,
		startInput: newInput("Início: "),
		endInput:   newInput("Fim:    "),
		today:      time.Now,
	}
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.custom {
			return m.updateInputs(msg)
		}

		return m, nil
	}

	if m.custom {
		return m.updateCustom(keyMsg)
	}

	switch keyMsg.Type {
	case tea.KeyUp:
		if m.selected > TimeframeThisWeek {
			m.selected--
		}
	case tea.KeyDown:
		if m.selected < TimeframeCustom {
			m.selected++
		}
	case tea.KeyEnter:
		switch m.selected {
		case TimeframeCustom:
			m.custom = true
			m.focusIndex = 0
			m.startInput.Focus()

			return m, textinput.Blink
		case TimeframeAll:
			return m, func() tea.Msg { return TimeframeSelectedMsg{All: true} }
		}

		start, end := m.selected.DateRange(m.today())

		return m, func() tea.Msg { return TimeframeSelectedMsg{Start: start, End: end} }
	}

	return m, nil
}

func (m TimeframePicker) updateCustom(msg tea.KeyMsg) (TimeframePicker, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.focusIndex = 1 - m.focusIndex
		m.startInput.Blur()
		m.endInput.Blur()

		if m.focusIndex == 0 {
			m.startInput.Focus()
		} else {
			m.endInput.Focus()
		}

		return m, textinput.Blink
	case "enter":
		start, err := parseDate(m.startInput.Value())
		if err != nil {
			m.err = fmt.Errorf("data inicial inválida")
			return m, nil
		}

		end, err := parseDate(m.endInput.Value())
		if err != nil {
			m.err = fmt.Errorf("data final inválida")
			return m, nil
		}

		if end.Before(start) {
			m.err = fmt.Errorf("a data final é anterior à inicial")
			return m, nil
		}

		m.err = nil

		return m, func() tea.Msg { return TimeframeSelectedMsg{Start: start, End: end} }
	case "esc":
		m.custom = false
		m.err = nil

		return m, nil
	}

	return m.updateInputs(msg)
}

func (m TimeframePicker) updateInputs(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	var startCmd, endCmd tea.Cmd

	m.startInput, startCmd = m.startInput.Update(msg)
	m.endInput, endCmd = m.endInput.Update(msg)

	return m, tea.Batch(startCmd, endCmd)
}

func (m TimeframePicker) View() string {
	var b strings.Builder

	if m.custom {
		fmt.Fprintf(&b, "Período personalizado:\n\n%s\n%s\n\n(Enter confirma, Tab alterna, Esc volta)",
			m.startInput.View(), m.endInput.View())
	} else {
		b.WriteString("Selecione o período:\n\n")

		for tf := TimeframeThisWeek; tf <= TimeframeCustom; tf++ {
			cursor := " "
			if tf == m.selected {
				cursor = ">"
			}

			fmt.Fprintf(&b, "%s %s\n", cursor, tf)
		}

		b.WriteString("\n(Enter seleciona, Esc volta)")
	}

	if m.err != nil {
		b.WriteString("\n\n" + errorStyle.Render(m.err.Error()))
	}

	return b.String()
}

// IsSelecting reports whether the picker shows the list rather than the
// custom range inputs.
func (m TimeframePicker) IsSelecting() bool {
	return !m.custom
}

func (m *TimeframePicker) Reset() {
	m.custom = false
	m.err = nil
	m.startInput.SetValue("")
	m.endInput.SetValue("")
}
