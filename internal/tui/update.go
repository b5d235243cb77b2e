package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case overviewLoadedMsg:
		m.loading = false
		m.stats = msg.stats
		m.system = msg.system
		m.err = nil
		return m, nil

	case ordersLoadedMsg:
		m.loading = false
		m.orders = msg.orders
		m.err = nil
		if m.selectedOrder >= len(m.orders) {
			m.selectedOrder = 0
		}
		return m, nil

	case detailLoadedMsg:
		m.loading = false
		m.detail = msg.detail
		m.err = nil
		return m, nil

	case errorMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case tickMsg:
		// Auto refresh based on current view
		switch m.view {
		case ViewOverview:
			return m, tea.Batch(m.loadOverview(), tickCmd())
		case ViewOrderList:
			return m, tea.Batch(m.loadOrders(), tickCmd())
		case ViewOrderDetail:
			if m.detail != nil && m.detail.Order != nil {
				return m, tea.Batch(m.loadOrderDetail(m.detail.Order.ID), tickCmd())
			}
			return m, tickCmd()
		}
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		return m.handleUp()

	case key.Matches(msg, m.keys.Down):
		return m.handleDown()

	case key.Matches(msg, m.keys.Enter):
		return m.handleEnter()

	case key.Matches(msg, m.keys.Back):
		return m.handleBack()

	case key.Matches(msg, m.keys.Tab):
		return m.handleTab()

	case key.Matches(msg, m.keys.Refresh):
		return m.handleRefresh()
	}

	return m, nil
}

func (m Model) handleUp() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewOrderList:
		if len(m.orders) > 0 {
			m.selectedOrder--
			if m.selectedOrder < 0 {
				m.selectedOrder = len(m.orders) - 1
			}
		}
	case ViewOrderDetail:
		if m.detailScrollOffset > 0 {
			m.detailScrollOffset--
		}
	}
	return m, nil
}

func (m Model) handleDown() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewOrderList:
		if len(m.orders) > 0 {
			m.selectedOrder++
			if m.selectedOrder >= len(m.orders) {
				m.selectedOrder = 0
			}
		}
	case ViewOrderDetail:
		m.detailScrollOffset++
	}
	return m, nil
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewOverview:
		m.view = ViewOrderList
		m.loading = true
		return m, m.loadOrders()
	case ViewOrderList:
		if m.selectedOrder < len(m.orders) {
			m.view = ViewOrderDetail
			m.detailScrollOffset = 0
			m.loading = true
			return m, m.loadOrderDetail(m.orders[m.selectedOrder].ID)
		}
	}
	return m, nil
}

func (m Model) handleBack() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewOrderDetail:
		m.view = ViewOrderList
		m.detail = nil
		m.detailScrollOffset = 0
		return m, m.loadOrders()
	case ViewOrderList:
		m.view = ViewOverview
		return m, m.loadOverview()
	}
	return m, nil
}

func (m Model) handleTab() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewOverview:
		m.view = ViewOrderList
		m.loading = true
		return m, m.loadOrders()
	default:
		m.view = ViewOverview
		m.detail = nil
		m.loading = true
		return m, m.loadOverview()
	}
}

func (m Model) handleRefresh() (tea.Model, tea.Cmd) {
	m.loading = true
	switch m.view {
	case ViewOverview:
		return m, m.loadOverview()
	case ViewOrderList:
		return m, m.loadOrders()
	case ViewOrderDetail:
		if m.detail != nil && m.detail.Order != nil {
			return m, m.loadOrderDetail(m.detail.Order.ID)
		}
	}
	return m, nil
}
