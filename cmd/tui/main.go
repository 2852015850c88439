package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/colmado/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/colmado/internal/app"
	"github.com/MrJamesThe3rd/colmado/internal/config"
)

type screen int

const (
	screenMenu screen = iota
	screenSettle
	screenSettlements
	screenProducts
)

type model struct {
	app *app.App

	current screen

	settleView      view.SettleModel
	settlementsView view.SettlementsModel
	productsView    view.ProductsModel
}

func initialModel(a *app.App) model {
	return model{
		app:             a,
		current:         screenMenu,
		settleView:      view.NewSettleModel(a.Settlements),
		settlementsView: view.NewSettlementsModel(a.Settlements),
		productsView:    view.NewProductsModel(a.Inventory),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.current == screenMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.current = screenSettle
				m.settleView = view.NewSettleModel(m.app.Settlements)

				return m, m.settleView.Init()
			case "2":
				m.current = screenSettlements
				m.settlementsView = view.NewSettlementsModel(m.app.Settlements)

				return m, m.settlementsView.Init()
			case "3":
				m.current = screenProducts
				m.productsView = view.NewProductsModel(m.app.Inventory)

				return m, m.productsView.Init()
			}
		}
	case view.BackMsg:
		m.current = screenMenu
		return m, nil
	}

	var (
		next tea.Model
		cmd  tea.Cmd
	)

	switch m.current {
	case screenSettle:
		next, cmd = m.settleView.Update(msg)
		m.settleView = next.(view.SettleModel)
	case screenSettlements:
		next, cmd = m.settlementsView.Update(msg)
		m.settlementsView = next.(view.SettlementsModel)
	case screenProducts:
		next, cmd = m.productsView.Update(msg)
		m.productsView = next.(view.ProductsModel)
	}

	return m, cmd
}

func (m model) View() string {
	var (
		title string
		help  string
		body  string
	)

	switch m.current {
	case screenMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Colmado\n\n" +
				"1. Settle Card Sales\n" +
				"2. Settlement History\n" +
				"3. Products & Stock\n\n" +
				"q. Quit",
		)
	case screenSettle:
		title, help, body = m.settleView.Title(), m.settleView.ShortHelp(), m.settleView.View()
	case screenSettlements:
		title, help, body = m.settlementsView.Title(), m.settlementsView.ShortHelp(), m.settlementsView.View()
	case screenProducts:
		title, help, body = m.productsView.Title(), m.productsView.ShortHelp(), m.productsView.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Padding(1, 1, 0).Render(title),
		body,
		lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(help),
	)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI; logs go to stderr only above warn.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if _, err := tea.NewProgram(initialModel(a), tea.WithAltScreen()).Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		a.Close()
		os.Exit(1)
	}
}
