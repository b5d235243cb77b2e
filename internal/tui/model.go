package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/xcellar/xcellar/internal/repository"
	"github.com/xcellar/xcellar/internal/repository/sqlite"
	"github.com/xcellar/xcellar/internal/service"
)

// ViewType selects the active screen.
type ViewType int

const (
	ViewOverview    ViewType = iota // platform stats
	ViewOrderList                   // recent orders
	ViewOrderDetail                 // one order with its tracking history
)

// OrderDetail bundles an order with its tracking trail for the detail view.
type OrderDetail struct {
	Order    *repository.Order
	Tracking []*repository.TrackingEntry
}

// Model is the operator dashboard state.
type Model struct {
	store *sqlite.Store
	ops   service.OpsService

	view   ViewType
	width  int
	height int

	loading bool
	err     error

	stats  *service.PlatformStats
	system *service.SystemSnapshot

	orders        []*repository.Order
	selectedOrder int

	detail             *OrderDetail
	detailScrollOffset int

	keys keyMap
}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Back    key.Binding
	Tab     key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:    key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// NewModel builds the dashboard over the given store.
func NewModel(store *sqlite.Store) Model {
	return Model{
		store:   store,
		ops:     service.NewOpsService(store.Users(), store.Orders()),
		view:    ViewOverview,
		loading: true,
		keys:    defaultKeyMap(),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadOverview(), tickCmd())
}

// Messages

type overviewLoadedMsg struct {
	stats  *service.PlatformStats
	system *service.SystemSnapshot
}

type ordersLoadedMsg struct {
	orders []*repository.Order
}

type detailLoadedMsg struct {
	detail *OrderDetail
}

type errorMsg struct {
	err error
}

type tickMsg time.Time

const refreshInterval = 5 * time.Second

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Data loading commands

func (m Model) loadOverview() tea.Cmd {
	ops := m.ops
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		stats, err := ops.Stats(ctx)
		if err != nil {
			return errorMsg{err: err}
		}
		system, err := ops.System(ctx)
		if err != nil {
			return errorMsg{err: err}
		}
		return overviewLoadedMsg{stats: stats, system: system}
	}
}

func (m Model) loadOrders() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		orders, err := store.Orders().List(ctx, repository.OrderFilter{Limit: 50})
		if err != nil {
			return errorMsg{err: err}
		}
		return ordersLoadedMsg{orders: orders}
	}
}

func (m Model) loadOrderDetail(orderID int64) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		order, err := store.Orders().FindByID(ctx, orderID)
		if err != nil {
			return errorMsg{err: err}
		}
		tracking, err := store.Tracking().ListForOrder(ctx, orderID, 100)
		if err != nil {
			return errorMsg{err: err}
		}
		return detailLoadedMsg{detail: &OrderDetail{Order: order, Tracking: tracking}}
	}
}
