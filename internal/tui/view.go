package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tobert/halfremembered-launcher/models"
)

const listHotKeys = "↑/↓ move  tab view  enter details  c copy  r refresh  v version"

func (m monitorModel) View() string {
	var page string
	switch {
	case m.showBuild:
		page = renderBuildInfoWindow(m.status.Hostname, m.build)
	case m.detail != nil:
		page = renderPage("CLIENT "+m.detail.Hostname, m.renderClientDetail(*m.detail), "c copy session id  esc back")
	default:
		page = renderPage(m.header(), m.renderTabs()+"\n\n"+m.renderBody(), m.footer())
	}

	if m.errMsg != "" {
		page = lipgloss.JoinVertical(lipgloss.Left, page, "", errorOverlayModel{message: m.errMsg}.View())
	}
	return appStyle.Render(page)
}

func (m monitorModel) header() string {
	host := valueOrDash(m.status.Hostname)
	title := fmt.Sprintf("HALFREMEMBERED LAUNCHER  %s  %s  up %s  %d clients",
		host, valueOrDash(m.status.Version), m.status.Uptime.Truncate(time.Second), len(m.status.Clients))
	if m.loading {
		title += " " + m.spinner.View()
	}
	return title
}

func (m monitorModel) footer() string {
	line := listHotKeys
	if !m.updatedAt.IsZero() {
		line += "  updated " + formatAge(m.now(), m.updatedAt) + " ago"
	}
	if m.note != "" {
		line += "  " + m.note
	}
	return line
}

func (m monitorModel) renderTabs() string {
	tabs := make([]string, 0, viewCount)
	for v := view(0); v < viewCount; v++ {
		if v == m.view {
			tabs = append(tabs, activeTabStyle.Render(v.String()))
			continue
		}
		tabs = append(tabs, tabStyle.Render(v.String()))
	}
	return strings.Join(tabs, "   ")
}

func (m monitorModel) renderBody() string {
	switch m.view {
	case viewClients:
		return m.renderClients()
	case viewSyncs:
		if m.storageDisabled {
			return "sync history is unavailable: the server runs without storage"
		}
		return m.renderSyncs()
	case viewWatches:
		if m.storageDisabled {
			return "watches are unavailable: the server runs without storage"
		}
		return m.renderWatches()
	}
	return ""
}

func (m monitorModel) renderClients() string {
	if len(m.status.Clients) == 0 {
		return "no daemons connected"
	}

	now := m.now()
	lines := []string{fmt.Sprintf("%-20s %-12s %-14s %-10s %s", "HOST", "STATE", "PLATFORM", "HEARTBEAT", "SESSION")}
	for i, c := range m.status.Clients {
		row := fmt.Sprintf("%-20s %-12s %-14s %-10s %s",
			fitText(c.Hostname, 20),
			fitText(c.State, 12),
			fitText(valueOrDash(c.Platform), 14),
			formatAge(now, c.LastHeartbeat),
			fitText(c.SessionID, 36),
		)
		lines = append(lines, m.highlight(viewClients, i, row))
	}
	return strings.Join(lines, "\n")
}

func (m monitorModel) renderSyncs() string {
	if len(m.syncs) == 0 {
		return "no syncs recorded yet"
	}

	lines := []string{fmt.Sprintf("%-19s %-16s %-4s %-10s %s", "WHEN", "HOST", "OK", "SIZE", "DESTINATION")}
	for i, r := range m.syncs {
		ok := okStyle.Render("yes ")
		if !r.Success {
			ok = failStyle.Render("no  ")
		}
		row := fmt.Sprintf("%-19s %-16s %s %-10s %s",
			r.RecordedAt.Local().Format("2006-01-02 15:04:05"),
			fitText(r.Hostname, 16),
			ok,
			formatBytes(r.BytesTransferred),
			fitText(r.Destination, 40),
		)
		lines = append(lines, m.highlight(viewSyncs, i, row))
	}
	return strings.Join(lines, "\n")
}

func (m monitorModel) renderWatches() string {
	if len(m.watches) == 0 {
		return "no watches configured"
	}

	lines := []string{fmt.Sprintf("%-40s %-9s %s", "PATH", "RECURSIVE", "DESTINATION")}
	for i, w := range m.watches {
		recursive := "no"
		if w.Recursive {
			recursive = "yes"
		}
		row := fmt.Sprintf("%-40s %-9s %s", fitText(w.Path, 40), recursive, valueOrDash(w.Destination))
		lines = append(lines, m.highlight(viewWatches, i, row))
	}
	return strings.Join(lines, "\n")
}

func (m monitorModel) renderClientDetail(c models.ClientInfo) string {
	now := m.now()
	var b strings.Builder
	fmt.Fprintf(&b, "Session:      %s\n", c.SessionID)
	fmt.Fprintf(&b, "Hostname:     %s\n", c.Hostname)
	fmt.Fprintf(&b, "State:        %s\n", c.State)
	fmt.Fprintf(&b, "Platform:     %s\n", valueOrDash(c.Platform))
	fmt.Fprintf(&b, "Version:      %s\n", valueOrDash(c.Version))
	fmt.Fprintf(&b, "Identity:     %s\n", valueOrDash(c.Identity))
	fmt.Fprintf(&b, "Address:      %s\n", valueOrDash(c.RemoteAddr))
	fmt.Fprintf(&b, "Capabilities: %s\n", valueOrDash(strings.Join(c.Capabilities, ", ")))
	fmt.Fprintf(&b, "Connected:    %s ago\n", formatAge(now, c.ConnectedAt))
	fmt.Fprintf(&b, "Heartbeat:    %s ago", formatAge(now, c.LastHeartbeat))
	return b.String()
}

func (m monitorModel) highlight(v view, i int, row string) string {
	if m.cursor[v] == i {
		return selectedStyle.Render(row)
	}
	return row
}
