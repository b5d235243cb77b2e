package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styleStatusDead.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	switch m.view {
	case ViewOverview:
		b.WriteString(m.renderOverview())
	case ViewOrderList:
		b.WriteString(m.renderOrderList())
	case ViewOrderDetail:
		b.WriteString(m.renderOrderDetail())
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	title := "Xcellar Operations"
	switch m.view {
	case ViewOrderList:
		title += " · Orders"
	case ViewOrderDetail:
		if m.detail != nil && m.detail.Order != nil {
			title += " · Order " + m.detail.Order.OrderNumber
		}
	}
	if m.loading {
		title += "  (loading…)"
	}
	return styleTitle.Render(title)
}

func (m Model) renderHelp() string {
	switch m.view {
	case ViewOverview:
		return styleHelp.Render("enter/tab orders · r refresh · q quit")
	case ViewOrderList:
		return styleHelp.Render("↑/↓ select · enter detail · esc overview · r refresh · q quit")
	default:
		return styleHelp.Render("↑/↓ scroll · esc back · r refresh · q quit")
	}
}

func (m Model) renderOverview() string {
	if m.stats == nil {
		return styleMuted().Render("  Loading platform stats…")
	}

	var platform strings.Builder
	platform.WriteString(renderField("Customers", fmt.Sprintf("%d", m.stats.Users)))
	platform.WriteString(renderField("Couriers", fmt.Sprintf("%d", m.stats.Couriers)))
	platform.WriteString("\n")

	statuses := make([]string, 0, len(m.stats.OrdersByStat))
	for status := range m.stats.OrdersByStat {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	var total int64
	for _, status := range statuses {
		count := m.stats.OrdersByStat[status]
		total += count
		platform.WriteString(renderField(status, fmt.Sprintf("%d", count)))
	}
	platform.WriteString(renderField("Total orders", fmt.Sprintf("%d", total)))

	boxes := []string{styleBox.Render("Platform\n\n" + strings.TrimRight(platform.String(), "\n"))}

	if m.system != nil {
		var host strings.Builder
		host.WriteString(renderField("CPU", fmt.Sprintf("%s %.1f%%", ProgressBar(m.system.CPUPercent, 20), m.system.CPUPercent)))
		host.WriteString(renderField("Memory", fmt.Sprintf("%s %.1f%%", ProgressBar(m.system.MemPercent, 20), m.system.MemPercent)))
		host.WriteString(renderField("Disk", fmt.Sprintf("%s %.1f%%", ProgressBar(m.system.DiskPercent, 20), m.system.DiskPercent)))
		host.WriteString(renderField("Load", fmt.Sprintf("%.2f / %.2f / %.2f", m.system.Load1, m.system.Load5, m.system.Load15)))
		host.WriteString(renderField("Uptime", formatDuration(time.Duration(m.system.UptimeSeconds)*time.Second)))
		host.WriteString(renderField("Goroutines", fmt.Sprintf("%d", m.system.Goroutines)))
		boxes = append(boxes, styleBox.Render("Host\n\n"+strings.TrimRight(host.String(), "\n")))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m Model) renderOrderList() string {
	if len(m.orders) == 0 {
		if m.loading {
			return styleMuted().Render("  Loading orders…")
		}
		return styleMuted().Render("  No orders yet.")
	}

	var b strings.Builder
	header := fmt.Sprintf("%-6s %-22s %-12s %-28s %12s %-12s", "ID", "Order", "Status", "Route", "Total", "Created")
	b.WriteString(styleTableHeader.Render(header))
	b.WriteString("\n")

	visible := m.visibleRows()
	start := 0
	if m.selectedOrder >= visible {
		start = m.selectedOrder - visible + 1
	}
	end := start + visible
	if end > len(m.orders) {
		end = len(m.orders)
	}

	for i := start; i < end; i++ {
		o := m.orders[i]
		route := truncate(o.PickupAddress, 12) + " → " + truncate(o.DropoffAddress, 12)
		row := fmt.Sprintf("%-6d %-22s %-12s %-28s %12s %-12s",
			o.ID,
			truncate(o.OrderNumber, 22),
			truncate(o.Status, 12),
			route,
			formatNaira(o.TotalAmountKobo),
			formatUnixShort(o.CreatedAt),
		)
		if i == m.selectedOrder {
			b.WriteString(styleTableRowSelected.Render("▸ " + row))
		} else {
			b.WriteString(styleTableRow.Render("  " + row))
		}
		b.WriteString("\n")
	}

	b.WriteString(styleMuted().Render(fmt.Sprintf("  %d of %d orders", m.selectedOrder+1, len(m.orders))))
	return b.String()
}

func (m Model) renderOrderDetail() string {
	if m.detail == nil || m.detail.Order == nil {
		return styleMuted().Render("  Loading order…")
	}
	o := m.detail.Order

	var info strings.Builder
	info.WriteString(renderField("Order", o.OrderNumber))
	info.WriteString(renderField("Tracking no.", o.TrackingNumber))
	info.WriteString(renderField("Status", OrderStatusBadge(o.Status)))
	info.WriteString(renderField("Payment", o.PaymentStatus))
	info.WriteString(renderField("Pickup", o.PickupAddress))
	info.WriteString(renderField("Dropoff", o.DropoffAddress))
	info.WriteString(renderField("Recipient", fmt.Sprintf("%s (%s)", o.RecipientName, o.RecipientPhone)))
	info.WriteString(renderField("Parcel", fmt.Sprintf("%s ×%d, %.1f kg", o.ParcelType, o.ParcelQuantity, o.ParcelWeightKG)))
	info.WriteString(renderField("Delivery fee", formatNaira(o.DeliveryFeeKobo)))
	info.WriteString(renderField("Total", formatNaira(o.TotalAmountKobo)))
	if o.AssignedCourierID != nil {
		info.WriteString(renderField("Courier", fmt.Sprintf("#%d", *o.AssignedCourierID)))
	}
	if o.CurrentLocation != "" {
		info.WriteString(renderField("Location", o.CurrentLocation))
	}
	info.WriteString(renderField("Created", formatUnix(o.CreatedAt)))

	var trail strings.Builder
	if len(m.detail.Tracking) == 0 {
		trail.WriteString(styleMuted().Render("No tracking events yet."))
	} else {
		entries := m.detail.Tracking
		offset := m.detailScrollOffset
		if offset >= len(entries) {
			offset = len(entries) - 1
		}
		for _, e := range entries[offset:] {
			line := fmt.Sprintf("%s  %s", formatUnix(e.CreatedAt), OrderStatusBadge(e.Status))
			if e.Location != "" {
				line += "  " + styleValue.Render(e.Location)
			}
			trail.WriteString(line)
			trail.WriteString("\n")
			if e.Notes != "" {
				trail.WriteString(styleMuted().Render("    " + e.Notes))
				trail.WriteString("\n")
			}
		}
	}

	left := styleDetailBox.Render("Order\n\n" + strings.TrimRight(info.String(), "\n"))
	right := styleBox.Render("Tracking\n\n" + strings.TrimRight(trail.String(), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m Model) visibleRows() int {
	rows := m.height - 7
	if rows < 5 {
		rows = 5
	}
	return rows
}

func renderField(label, value string) string {
	return styleLabel.Render(label) + styleValue.Render(value) + "\n"
}

func formatNaira(kobo int64) string {
	return fmt.Sprintf("₦%.2f", float64(kobo)/100)
}

func formatUnix(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).Format("2006-01-02 15:04:05")
}

func formatUnixShort(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).Format("01-02 15:04")
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
