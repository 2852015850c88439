package view

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/colmado/internal/inventory"
)

type productsState int

const (
	productsStateBrowse productsState = iota
	productsStateAdjust
	productsStateKardex
)

type adjustForm struct {
	count  string
	reason inventory.Reason
	notes  string
}

// ProductsModel browses stock levels, records physical counts and shows a
// product's kardex.
type ProductsModel struct {
	CommonModel
	svc *inventory.Service

	state    productsState
	table    table.Model
	products []*inventory.Product
	lowStock bool

	form   *huh.Form
	fields *adjustForm

	kardexTable table.Model
	kardex      *inventory.Kardex

	err    error
	status string
}

func NewProductsModel(svc *inventory.Service) ProductsModel {
	columns := []table.Column{
		{Title: "SKU", Width: 12},
		{Title: "Name", Width: 30},
		{Title: "Stock", Width: 7},
		{Title: "Reorder", Width: 8},
		{Title: "Last Cost", Width: 12},
		{Title: " ", Width: 4},
	}

	kardexColumns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Type", Width: 11},
		{Title: "Reason", Width: 16},
		{Title: "Qty", Width: 7},
		{Title: "Unit Cost", Width: 12},
		{Title: "Total", Width: 13},
		{Title: "Balance", Width: 8},
	}

	return ProductsModel{
		svc:         svc,
		table:       newTable(columns, 15),
		kardexTable: newTable(kardexColumns, 15),
	}
}

func (m ProductsModel) Title() string { return "Products" }

func (m ProductsModel) ShortHelp() string {
	switch m.state {
	case productsStateAdjust:
		return "Navigate form | Esc: cancel"
	case productsStateKardex:
		return "Esc: back to products"
	}

	return "Esc: back | a: adjust | k: kardex | l: low stock | r: refresh"
}

func (m ProductsModel) Init() tea.Cmd {
	return m.loadProductsCmd()
}

func (m ProductsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadProductsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.products = msg.products
		m.refreshTable()

		return m, nil

	case adjustResultMsg:
		m.state = productsStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = errorStyle.Render(adjustErrorText(msg.err))
			return m, nil
		}

		m.status = fmt.Sprintf("Adjusted by %+d units", msg.movement.Quantity)
		if msg.movement.TotalCost != nil {
			m.status += " (" + FormatMoney(*msg.movement.TotalCost) + ")"
		}

		return m, m.loadProductsCmd()

	case loadKardexMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Error: %v", msg.err))
			return m, nil
		}

		m.kardex = msg.kardex
		m.refreshKardex()
		m.state = productsStateKardex
		m.table.Blur()
		m.kardexTable.Focus()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		m.kardexTable.SetHeight(msg.Height - 12)

		return m, nil
	}

	switch m.state {
	case productsStateBrowse:
		return m.updateBrowse(msg)
	case productsStateAdjust:
		return m.updateAdjust(msg)
	case productsStateKardex:
		return m.updateKardex(msg)
	}

	return m, nil
}

func (m ProductsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.status = ""
			return m, m.loadProductsCmd()
		case "l":
			m.lowStock = !m.lowStock
			return m, m.loadProductsCmd()
		case "a":
			return m.enterAdjust()
		case "k":
			if p := m.current(); p != nil {
				return m, m.loadKardexCmd(p)
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ProductsModel) enterAdjust() (tea.Model, tea.Cmd) {
	p := m.current()
	if p == nil {
		return m, nil
	}

	m.fields = &adjustForm{
		count:  strconv.Itoa(p.CurrentStock),
		reason: inventory.ReasonPhysicalCount,
	}

	options := make([]huh.Option[inventory.Reason], len(inventory.Reasons))
	for i, r := range inventory.Reasons {
		options[i] = huh.NewOption(strings.ReplaceAll(string(r), "_", " "), r)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("count").
				Title("Physical Count").
				Description(fmt.Sprintf("On record: %d", p.CurrentStock)).
				Value(&m.fields.count).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 0 {
						return errors.New("enter a whole number of units")
					}
					return nil
				}),

			huh.NewSelect[inventory.Reason]().
				Key("reason").
				Title("Reason").
				Options(options...).
				Value(&m.fields.reason),

			huh.NewText().
				Key("notes").
				Title("Notes").
				Lines(3).
				Value(&m.fields.notes),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = productsStateAdjust
	m.status = ""
	m.table.Blur()

	return m, m.form.Init()
}

func (m ProductsModel) updateAdjust(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = productsStateBrowse
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

	return m, m.adjustCmd()
}

func (m ProductsModel) updateKardex(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = productsStateBrowse
		m.kardex = nil
		m.kardexTable.Blur()
		m.table.Focus()

		return m, nil
	}

	var cmd tea.Cmd
	m.kardexTable, cmd = m.kardexTable.Update(msg)

	return m, cmd
}

func (m ProductsModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to back)")
	}

	if m.state == productsStateKardex && m.kardex != nil {
		p := m.kardex.Product
		header := fmt.Sprintf("Kardex %s %s | Stock %s", p.SKU, p.Name, activeStyle(strconv.Itoa(p.CurrentStock)))

		return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().PaddingBottom(1).Render(header),
			borderStyle.Render(m.kardexTable.View()),
		))
	}

	filter := "All"
	if m.lowStock {
		filter = "Low stock"
	}

	header := fmt.Sprintf("Filter: [l] %s | %d products", activeStyle(filter), len(m.products))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		borderStyle.Render(m.table.View()),
	)

	if m.state == productsStateAdjust && m.form != nil {
		title := "Adjust Stock"
		if p := m.current(); p != nil {
			title += "\n" + p.Name
		}

		panel := panelStyle.Width(48).Render(title + "\n\n" + m.form.View())
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = m.status + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m ProductsModel) current() *inventory.Product {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.products) {
		return nil
	}

	return m.products[idx]
}

func (m *ProductsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.products))
	for _, p := range m.products {
		flag := ""
		if p.LowStock() {
			flag = "low"
		}

		rows = append(rows, table.Row{
			p.SKU,
			p.Name,
			strconv.Itoa(p.CurrentStock),
			strconv.Itoa(p.ReorderPoint),
			FormatMoney(p.LastCost),
			flag,
		})
	}

	m.table.SetRows(rows)
}

func (m *ProductsModel) refreshKardex() {
	rows := make([]table.Row, 0, len(m.kardex.Lines))
	for _, l := range m.kardex.Lines {
		mv := l.Movement

		unit, total := "", ""
		if mv.UnitCost != nil {
			unit = FormatMoney(*mv.UnitCost)
		}

		if mv.TotalCost != nil {
			total = FormatMoney(*mv.TotalCost)
		}

		rows = append(rows, table.Row{
			FormatDate(mv.Date),
			string(mv.Type),
			string(mv.Reason),
			fmt.Sprintf("%+d", mv.Delta()),
			unit,
			total,
			strconv.Itoa(l.Balance),
		})
	}

	m.kardexTable.SetRows(rows)
	m.kardexTable.SetCursor(0)
}

func adjustErrorText(err error) string {
	if errors.Is(err, inventory.ErrNoDifference) {
		return "Count matches the stock on record; nothing to adjust."
	}

	return fmt.Sprintf("Error: %v", err)
}

type loadProductsMsg struct {
	products []*inventory.Product
	err      error
}

func (m ProductsModel) loadProductsCmd() tea.Cmd {
	filter := inventory.ListFilter{LowStock: m.lowStock}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		products, err := m.svc.ListProducts(ctx, filter)

		return loadProductsMsg{products: products, err: err}
	}
}

type loadKardexMsg struct {
	kardex *inventory.Kardex
	err    error
}

func (m ProductsModel) loadKardexCmd(p *inventory.Product) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		k, err := m.svc.Kardex(ctx, p.ID)

		return loadKardexMsg{kardex: k, err: err}
	}
}

type adjustResultMsg struct {
	movement *inventory.Movement
	err      error
}

func (m ProductsModel) adjustCmd() tea.Cmd {
	p := m.current()
	fields := *m.fields

	return func() tea.Msg {
		if p == nil {
			return adjustResultMsg{err: errors.New("no product selected")}
		}

		count, err := strconv.Atoi(strings.TrimSpace(fields.count))
		if err != nil {
			return adjustResultMsg{err: fmt.Errorf("invalid count: %w", err)}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		mv, err := m.svc.SaveAdjustment(ctx, inventory.AdjustParams{
			ProductID:   p.ID,
			ActualCount: count,
			Reason:      fields.reason,
			Notes:       strings.TrimSpace(fields.notes),
			CreatedBy:   "tui",
		})

		return adjustResultMsg{movement: mv, err: err}
	}
}
