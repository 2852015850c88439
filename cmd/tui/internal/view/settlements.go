package view

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/money"
	"github.com/MrJamesThe3rd/colmado/internal/settlement"
)

type settlementsState int

const (
	settlementsStateTimeframe settlementsState = iota
	settlementsStateList
)

// SettlementsModel lists recorded settlements for a date range.
type SettlementsModel struct {
	CommonModel
	svc *settlement.Service

	state           settlementsState
	timeframePicker TimeframePicker
	filter          settlement.ListFilter

	table       table.Model
	settlements []*settlement.CardSettlement

	loading bool
	err     error
	status  string
}

func NewSettlementsModel(svc *settlement.Service) SettlementsModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Reference", Width: 14},
		{Title: "Sales", Width: 6},
		{Title: "Gross", Width: 13},
		{Title: "Commission", Width: 12},
		{Title: "Retention", Width: 11},
		{Title: "Net", Width: 13},
		{Title: "Posted", Width: 7},
	}

	return SettlementsModel{
		svc:             svc,
		state:           settlementsStateTimeframe,
		timeframePicker: NewTimeframePicker(TimeframeThisMonth),
		table:           newTable(columns, 15),
	}
}

func (m SettlementsModel) Title() string { return "Settlements" }

func (m SettlementsModel) ShortHelp() string {
	if m.state == settlementsStateTimeframe {
		return "Esc: back | Enter: select"
	}

	return "Esc: timeframe | p: repost pending | r: refresh"
}

func (m SettlementsModel) Init() tea.Cmd {
	return nil
}

func (m SettlementsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.filter = settlement.ListFilter{}
		if !msg.All {
			m.filter.StartDate = &msg.Start
			m.filter.EndDate = &msg.End
		}

		m.state = settlementsStateList
		m.loading = true

		return m, m.loadCmd()

	case loadSettlementsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.settlements = msg.settlements
		m.refreshTable()

		return m, nil

	case repostMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Repost failed: %v", msg.err)
			return m, nil
		}

		m.status = fmt.Sprintf("Reposted %d, still failing %d", msg.repaired, msg.failed)

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == settlementsStateTimeframe {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc && m.timeframePicker.IsSelecting() {
			return m, Back
		}

		var cmd tea.Cmd
		m.timeframePicker, cmd = m.timeframePicker.Update(msg)

		return m, cmd
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.state = settlementsStateTimeframe
			m.timeframePicker.Reset()
			m.status = ""

			return m, nil
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "p":
			return m, m.repostCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m SettlementsModel) View() string {
	if m.state == settlementsStateTimeframe {
		return lipgloss.NewStyle().Padding(1).Render(m.timeframePicker.View())
	}

	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading settlements...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	gross := make([]decimal.Decimal, len(m.settlements))
	net := make([]decimal.Decimal, len(m.settlements))

	for i, st := range m.settlements {
		gross[i] = st.GrossAmount
		net[i] = st.NetDeposit
	}

	header := fmt.Sprintf("%d settlements | Gross %s | Net %s",
		len(m.settlements),
		activeStyle(FormatMoney(money.Sum(gross...))),
		activeStyle(FormatMoney(money.Sum(net...))),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		borderStyle.Render(m.table.View()),
	)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *SettlementsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.settlements))
	for _, s := range m.settlements {
		posted := "yes"
		if s.Pending() {
			posted = "no"
		}

		rows = append(rows, table.Row{
			FormatDate(s.SettlementDate),
			s.DepositReference,
			fmt.Sprintf("%d", len(s.SaleIDs)),
			FormatMoney(s.GrossAmount),
			FormatMoney(s.CommissionAmount),
			FormatMoney(s.RetentionAmount),
			FormatMoney(s.NetDeposit),
			posted,
		})
	}

	m.table.SetRows(rows)
}

type loadSettlementsMsg struct {
	settlements []*settlement.CardSettlement
	err         error
}

func (m SettlementsModel) loadCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		list, err := m.svc.List(ctx, filter)

		return loadSettlementsMsg{settlements: list, err: err}
	}
}

type repostMsg struct {
	repaired int
	failed   int
	err      error
}

const repostTimeout = time.Minute

func (m SettlementsModel) repostCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), repostTimeout)
		defer cancel()

		res, err := m.svc.RepostPending(ctx)
		if err != nil {
			return repostMsg{err: err}
		}

		return repostMsg{repaired: res.Repaired, failed: res.Failed}
	}
}
