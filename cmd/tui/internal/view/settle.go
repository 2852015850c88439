package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/colmado/internal/money"
	"github.com/MrJamesThe3rd/colmado/internal/sale"
	"github.com/MrJamesThe3rd/colmado/internal/settlement"
)

type settleState int

const (
	settleStateBrowse settleState = iota
	settleStateForm
	settleStateResult
)

// settleForm holds the form bindings behind a pointer so copies of the model
// keep writing to the same values.
type settleForm struct {
	bankAccount    string
	gross          string
	commissionRate string
	retentionRate  string
	reference      string
	date           string
}

// SettleModel records a card processor deposit against the selected paid
// card sales.
type SettleModel struct {
	CommonModel
	svc *settlement.Service

	state      settleState
	table      table.Model
	candidates []*sale.Sale
	selected   map[uuid.UUID]bool

	form   *huh.Form
	fields *settleForm

	result *settlement.CardSettlement
	err    error
	status string
}

func NewSettleModel(svc *settlement.Service) SettleModel {
	columns := []table.Column{
		{Title: " ", Width: 3},
		{Title: "Date", Width: 12},
		{Title: "Number", Width: 14},
		{Title: "Method", Width: 12},
		{Title: "Total", Width: 14},
	}

	return SettleModel{
		svc:      svc,
		table:    newTable(columns, 15),
		selected: make(map[uuid.UUID]bool),
	}
}

func (m SettleModel) Title() string { return "Card Settlement" }

func (m SettleModel) ShortHelp() string {
	switch m.state {
	case settleStateForm:
		return "Navigate form | Esc: cancel"
	case settleStateResult:
		return "Enter: new settlement | Esc: back"
	}

	return "Esc: back | Space: toggle | a: all | s: settle | r: refresh"
}

func (m SettleModel) Init() tea.Cmd {
	return m.loadCandidatesCmd()
}

func (m SettleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadCandidatesMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.candidates = msg.sales
		clear(m.selected)
		m.refreshTable()

		return m, nil

	case settleResultMsg:
		m.form = nil
		if msg.err != nil {
			m.state = settleStateBrowse
			m.status = settleErrorText(msg.err)
			m.table.Focus()

			return m, nil
		}

		m.result = msg.settlement
		m.state = settleStateResult

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 12)
		return m, nil
	}

	switch m.state {
	case settleStateBrowse:
		return m.updateBrowse(msg)
	case settleStateForm:
		return m.updateForm(msg)
	case settleStateResult:
		return m.updateResult(msg)
	}

	return m, nil
}

func (m SettleModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.status = ""
			return m, m.loadCandidatesCmd()
		case " ":
			idx := m.table.Cursor()
			if idx >= 0 && idx < len(m.candidates) {
				id := m.candidates[idx].ID
				m.selected[id] = !m.selected[id]
				m.refreshTable()
			}

			return m, nil
		case "a":
			all := len(m.selectedSales()) < len(m.candidates)
			for _, s := range m.candidates {
				m.selected[s.ID] = all
			}

			m.refreshTable()

			return m, nil
		case "s", "enter":
			return m.enterForm()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m SettleModel) enterForm() (tea.Model, tea.Cmd) {
	selected := m.selectedSales()

	m.fields = &settleForm{date: FormatDate(time.Now())}
	if len(selected) > 0 {
		m.fields.gross = selectedTotal(selected).StringFixed(2)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("bank_account").
				Title("Bank Account").
				Description("Ledger account the deposit landed in").
				Placeholder("1001").
				Value(&m.fields.bankAccount).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("bank account is required")
					}
					return nil
				}),

			huh.NewInput().
				Key("gross").
				Title("Gross Amount").
				Value(&m.fields.gross).
				Validate(func(s string) error {
					d, err := money.Parse(strings.TrimSpace(s))
					if err != nil || !d.IsPositive() {
						return errors.New("enter an amount greater than zero")
					}
					return nil
				}),

			huh.NewInput().
				Key("commission_rate").
				Title("Commission Rate").
				Placeholder("configured default").
				Value(&m.fields.commissionRate).
				Validate(validateRate),

			huh.NewInput().
				Key("retention_rate").
				Title("Retention Rate").
				Placeholder("configured default").
				Value(&m.fields.retentionRate).
				Validate(validateRate),

			huh.NewInput().
				Key("reference").
				Title("Deposit Reference").
				Value(&m.fields.reference),

			huh.NewInput().
				Key("date").
				Title("Settlement Date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fields.date).
				Validate(func(s string) error {
					if _, err := time.Parse(time.DateOnly, s); err != nil {
						return errors.New("use YYYY-MM-DD")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = settleStateForm
	m.status = ""
	m.table.Blur()

	return m, m.form.Init()
}

func (m SettleModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = settleStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.createCmd()
}

func (m SettleModel) updateResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			return m, Back
		case tea.KeyEnter:
			m.state = settleStateBrowse
			m.result = nil
			m.table.Focus()

			return m, m.loadCandidatesCmd()
		}
	}

	return m, nil
}

func (m SettleModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to back)")
	}

	if m.state == settleStateResult && m.result != nil {
		return lipgloss.NewStyle().Padding(1).Render(resultView(m.result))
	}

	selected := m.selectedSales()
	header := fmt.Sprintf(
		"Paid card sales awaiting settlement: %d | Selected: %s (%s)",
		len(m.candidates),
		activeStyle(fmt.Sprintf("%d", len(selected))),
		activeStyle(FormatMoney(selectedTotal(selected))),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		borderStyle.Render(m.table.View()),
	)

	if m.state == settleStateForm && m.form != nil {
		panel := panelStyle.Width(48).Render("New Settlement\n\n" + m.form.View())
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = errorStyle.Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func resultView(st *settlement.CardSettlement) string {
	rows := [][2]string{
		{"Gross", FormatMoney(st.GrossAmount)},
		{"Commission (" + FormatRate(st.CommissionRate) + ")", FormatMoney(st.CommissionAmount)},
		{"Retention (" + FormatRate(st.RetentionRate) + ")", FormatMoney(st.RetentionAmount)},
		{"Net deposit", FormatMoney(st.NetDeposit)},
		{"Sales", fmt.Sprintf("%d", len(st.SaleIDs))},
		{"Period", FormatDate(st.PeriodStart) + " to " + FormatDate(st.PeriodEnd)},
	}

	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%-22s %14s\n", r[0], r[1])
	}

	if st.Pending() {
		b.WriteString("\n" + errorStyle.Render("Journal or retention posting failed; it will be retried."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, okStyle.Render("Settlement recorded"), "", b.String())
}

// validateRate accepts a blank value or a fraction in [0, 1).
func validateRate(s string) error {
	_, err := parseRate(s)
	return err
}

func parseRate(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	r, err := money.Parse(s)
	if err != nil || !money.ValidRate(r) {
		return nil, errors.New("enter a fraction such as 0.038")
	}

	return &r, nil
}

func settleErrorText(err error) string {
	var mismatch *settlement.MismatchError
	if errors.As(err, &mismatch) {
		return fmt.Sprintf("Gross %s does not match the selected sales total %s",
			mismatch.Gross.StringFixed(2), mismatch.Selected.StringFixed(2))
	}

	return fmt.Sprintf("Error: %v", err)
}

func (m SettleModel) selectedSales() []*sale.Sale {
	var out []*sale.Sale
	for _, s := range m.candidates {
		if m.selected[s.ID] {
			out = append(out, s)
		}
	}

	return out
}

func selectedTotal(sales []*sale.Sale) decimal.Decimal {
	totals := make([]decimal.Decimal, len(sales))
	for i, s := range sales {
		totals[i] = s.Total
	}

	return money.Sum(totals...)
}

func (m *SettleModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.candidates))
	for _, s := range m.candidates {
		mark := "[ ]"
		if m.selected[s.ID] {
			mark = "[x]"
		}

		rows = append(rows, table.Row{
			mark,
			FormatDate(s.Date),
			s.Number,
			string(s.PaymentMethod),
			FormatMoney(s.Total),
		})
	}

	m.table.SetRows(rows)
}

type loadCandidatesMsg struct {
	sales []*sale.Sale
	err   error
}

func (m SettleModel) loadCandidatesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		sales, err := m.svc.Candidates(ctx)

		return loadCandidatesMsg{sales: sales, err: err}
	}
}

type settleResultMsg struct {
	settlement *settlement.CardSettlement
	err        error
}

func (m SettleModel) createCmd() tea.Cmd {
	fields := *m.fields

	selected := m.selectedSales()
	ids := make([]uuid.UUID, len(selected))
	for i, s := range selected {
		ids[i] = s.ID
	}

	return func() tea.Msg {
		gross, err := money.Parse(strings.TrimSpace(fields.gross))
		if err != nil {
			return settleResultMsg{err: fmt.Errorf("invalid gross amount: %w", err)}
		}

		date, err := time.Parse(time.DateOnly, fields.date)
		if err != nil {
			return settleResultMsg{err: fmt.Errorf("invalid date: %w", err)}
		}

		commissionRate, err := parseRate(fields.commissionRate)
		if err != nil {
			return settleResultMsg{err: err}
		}

		retentionRate, err := parseRate(fields.retentionRate)
		if err != nil {
			return settleResultMsg{err: err}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		st, err := m.svc.Create(ctx, settlement.CreateParams{
			SaleIDs:          ids,
			GrossAmount:      &gross,
			CommissionRate:   commissionRate,
			RetentionRate:    retentionRate,
			SettlementDate:   date,
			BankAccount:      strings.TrimSpace(fields.bankAccount),
			DepositReference: strings.TrimSpace(fields.reference),
			CreatedBy:        "tui",
		})

		return settleResultMsg{settlement: st, err: err}
	}
}
