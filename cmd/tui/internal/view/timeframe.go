package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Timeframe is a predefined or custom date range.
type Timeframe int

const (
	TimeframeThisWeek Timeframe = iota
	TimeframeThisMonth
	TimeframeLastMonth
	TimeframeThisYear
	TimeframeAll
	TimeframeCustom
)

var timeframeLabels = map[Timeframe]string{
	TimeframeThisWeek:  "This Week",
	TimeframeThisMonth: "This Month",
	TimeframeLastMonth: "Last Month",
	TimeframeThisYear:  "Year to Date",
	TimeframeAll:       "All Time",
	TimeframeCustom:    "Custom Range",
}

func (t Timeframe) String() string {
	if s, ok := timeframeLabels[t]; ok {
		return s
	}

	return "Unknown"
}

// dateRange resolves a predefined timeframe relative to now. Weeks start on
// Monday.
func (t Timeframe) dateRange(now time.Time) (time.Time, time.Time) {
	switch t {
	case TimeframeThisWeek:
		offset := (int(now.Weekday()) + 6) % 7
		return now.AddDate(0, 0, -offset), now
	case TimeframeThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
	case TimeframeLastMonth:
		start := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, -1)
	case TimeframeThisYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), now
	}

	return time.Time{}, time.Time{}
}

// normalizeDateRange widens the range to whole UTC days.
func normalizeDateRange(start, end time.Time) (time.Time, time.Time) {
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)
}

// TimeframeSelectedMsg carries the chosen range. Start and End are zero when
// All is set.
type TimeframeSelectedMsg struct {
	Start time.Time
	End   time.Time
	All   bool
}

// TimeframePicker lets the user choose a date range from a list or type a
// custom one.
type TimeframePicker struct {
	custom   bool
	selected Timeframe
	minFrame Timeframe

	inputs [2]textinput.Model
	focus  int

	err error
}

func NewTimeframePicker(minFrame Timeframe) TimeframePicker {
	var inputs [2]textinput.Model

	for i, prompt := range []string{"From: ", "To:   "} {
		in := textinput.New()
		in.Placeholder = "YYYY-MM-DD"
		in.CharLimit = 10
		in.Width = 12
		in.Prompt = prompt
		inputs[i] = in
	}

	return TimeframePicker{
		selected: minFrame,
		minFrame: minFrame,
		inputs:   inputs,
	}
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	keyMsg, isKey := msg.(tea.KeyMsg)

	if !m.custom {
		if isKey {
			return m.updateSelect(keyMsg)
		}

		return m, nil
	}

	if isKey {
		switch keyMsg.String() {
		case "tab", "shift+tab":
			m.inputs[m.focus].Blur()
			m.focus = 1 - m.focus

			return m, m.inputs[m.focus].Focus()
		case "enter":
			return m.submitCustom()
		case "esc":
			m.custom = false
			m.err = nil

			return m, nil
		}
	}

	var cmds [2]tea.Cmd
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}

	return m, tea.Batch(cmds[:]...)
}

func (m TimeframePicker) updateSelect(msg tea.KeyMsg) (TimeframePicker, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		m.selected = max(m.selected-1, m.minFrame)
	case tea.KeyDown:
		m.selected = min(m.selected+1, TimeframeCustom)
	case tea.KeyEnter:
		switch m.selected {
		case TimeframeCustom:
			m.custom = true
			m.focus = 0

			return m, m.inputs[0].Focus()
		case TimeframeAll:
			return m, selectTimeframe(TimeframeSelectedMsg{All: true})
		}

		start, end := normalizeDateRange(m.selected.dateRange(time.Now()))

		return m, selectTimeframe(TimeframeSelectedMsg{Start: start, End: end})
	}

	return m, nil
}

func (m TimeframePicker) submitCustom() (TimeframePicker, tea.Cmd) {
	var dates [2]time.Time

	for i, name := range [2]string{"start", "end"} {
		d, err := time.Parse(time.DateOnly, strings.TrimSpace(m.inputs[i].Value()))
		if err != nil {
			m.err = fmt.Errorf("invalid %s date (YYYY-MM-DD)", name)
			return m, nil
		}

		dates[i] = d
	}

	if dates[1].Before(dates[0]) {
		m.err = errors.New("end date is before start date")
		return m, nil
	}

	m.err = nil
	start, end := normalizeDateRange(dates[0], dates[1])

	return m, selectTimeframe(TimeframeSelectedMsg{Start: start, End: end})
}

func selectTimeframe(msg TimeframeSelectedMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func (m TimeframePicker) View() string {
	var b strings.Builder

	if m.custom {
		fmt.Fprintf(&b, "Enter Custom Range:\n\n%s\n%s\n\n(Enter to confirm, Tab to switch, Esc to back)",
			m.inputs[0].View(), m.inputs[1].View())
	} else {
		b.WriteString("Select Timeframe:\n\n")

		for tf := m.minFrame; tf <= TimeframeCustom; tf++ {
			cursor := " "
			if tf == m.selected {
				cursor = ">"
			}

			fmt.Fprintf(&b, "%s %s\n", cursor, tf)
		}

		b.WriteString("\n(Enter to select, Esc to back)")
	}

	if m.err != nil {
		b.WriteString("\n\n" + errorStyle.Render("Error: "+m.err.Error()))
	}

	return b.String()
}

// IsSelecting reports whether the picker shows the predefined list rather
// than the custom range inputs.
func (m TimeframePicker) IsSelecting() bool {
	return !m.custom
}

func (m *TimeframePicker) Reset() {
	m.custom = false
	m.selected = m.minFrame
	m.err = nil

	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
}
