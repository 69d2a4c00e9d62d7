// internal/tui/view.go
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions
var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("250")).
			Padding(0, 1)

	mainContentStyle = lipgloss.NewStyle().
				Padding(1, 0)

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1)

	activeTabStyle = tabStyle.
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("0"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// View renders the UI
func (m Model) View() string {
	timeStr := m.currentTime.Format("Mon Jan 2 15:04:05 2006")

	headerContent := lipgloss.JoinHorizontal(
		lipgloss.Center,
		"📷 ClearValue Capture",
		lipgloss.NewStyle().
			Width(m.width-24).
			Align(lipgloss.Right).
			Render(timeStr),
	)

	header := headerStyle.Width(m.width).Render(headerContent)
	tabs := m.renderTabs()
	mainContent := mainContentStyle.Render(m.renderActiveTabContent())

	statusBar := statusBarStyle.Width(m.width).Render(
		fmt.Sprintf("Status: %s | Tab: Switch Views | Space: Capture | q: Quit", m.status),
	)

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, tabs, mainContent, statusBar)
}

func (m Model) renderTabs() string {
	var renderedTabs []string
	for _, t := range m.tabs {
		style := tabStyle
		if t.id == m.activeTab {
			style = activeTabStyle
		}
		renderedTabs = append(renderedTabs, style.Render(t.title))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
}

func (m Model) renderActiveTabContent() string {
	switch m.activeTab {
	case captureTab:
		return m.renderCaptureTab()
	case lotsTab:
		return m.renderLotsTab()
	case serverTab:
		return m.renderServerTab()
	}
	return ""
}

func (m Model) renderCaptureTab() string {
	var content strings.Builder

	sel := m.controller.Selection()
	if sel == nil {
		content.WriteString("No camera selected.\n")
	} else {
		content.WriteString(fmt.Sprintf("Device: %s (%s)\n", sel.Device.Name, sel.Device.ID))
		content.WriteString(fmt.Sprintf("Format: %dx%d photo, %dx%d video, %.1f MP\n",
			sel.Format.PhotoWidth, sel.Format.PhotoHeight,
			sel.Format.VideoWidth, sel.Format.VideoHeight,
			sel.Format.PhotoMegapixels()))
	}
	content.WriteString(fmt.Sprintf("Preset: %s\n", m.controller.Preset()))

	if zoom := m.controller.Zoom(); zoom != nil {
		content.WriteString(fmt.Sprintf("Zoom: %.2fx", zoom.Factor()))
		if zoom.MacroEngaged() {
			content.WriteString(" (macro)")
		}
		content.WriteString("\nPresets:")
		for i, p := range zoom.Presets() {
			content.WriteString(fmt.Sprintf(" [%d] %s", i+1, p.Label))
		}
		content.WriteString("\n")
	}

	extra := "main"
	if m.isExtra {
		extra = "extra"
	}
	content.WriteString(fmt.Sprintf("Mode: %s (%s captures)\n", m.captureMode, extra))
	if m.controller.Recording() {
		content.WriteString("● Recording\n")
	}

	content.WriteString("\nRecent:\n")
	for _, msg := range m.messages {
		line := fmt.Sprintf("%s %s", msg.timestamp.Format("15:04:05"), msg.text)
		if msg.isError {
			line = errorStyle.Render(line)
		} else {
			line = dimStyle.Render(line)
		}
		content.WriteString(line + "\n")
	}
	return content.String()
}

func (m Model) renderLotsTab() string {
	var content strings.Builder

	store := m.controller.Lots()
	active := store.ActiveIndex()
	content.WriteString(fmt.Sprintf("Lots: %d (n: next, b: previous, d: remove newest)\n\n", store.Len()))

	for i := 0; i < store.Len(); i++ {
		snap, err := store.Snapshot(i)
		if err != nil {
			continue
		}
		marker := "  "
		if i == active {
			marker = "> "
		}
		mode := "unset"
		if snap.Mode != nil {
			mode = snap.Mode.String()
		}
		video := ""
		if snap.Video != nil {
			video = ", video"
		}
		content.WriteString(fmt.Sprintf("%sLot %d: mode=%s, %d main, %d extra%s, cover #%d\n",
			marker, i+1, mode, len(snap.MainImages), len(snap.ExtraImages), video, snap.CoverIndex))
	}
	return content.String()
}

func (m Model) renderServerTab() string {
	var content strings.Builder

	status := "Stopped"
	if m.server.IsRunning() {
		status = fmt.Sprintf("Running on port %s", m.serverPort)
	}
	content.WriteString(fmt.Sprintf("Observer Server:\n"+
		"• Status: %s\n"+
		"• Endpoint: ws://%s:%s/ws/session\n"+
		"• Press 's' to start/stop server\n\n", status, m.config.ServerIP, m.server.Port()))

	content.WriteString("Recent Logs:\n")
	content.WriteString("------------\n")
	start := len(m.logs) - 10
	if start < 0 {
		start = 0
	}
	for _, entry := range m.logs[start:] {
		content.WriteString(dimStyle.Render(entry) + "\n")
	}
	return content.String()
}
