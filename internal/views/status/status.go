// Package status renders the one-line status bar at the top of the TUI.
package status

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/primebench/primebench/internal/client"
	"github.com/primebench/primebench/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Status    string
	Transport string
	Items     int
	Target    int
	Rejected  int
	Elapsed   time.Duration
	Spinner   string
	// Source names a loaded archive when not showing a live session.
	Source  string
	Host    *client.HostInfo
	HostErr error
	Width   int
}

// New creates a status bar model.
func New(transport string) Model {
	return Model{Status: "idle", Transport: transport}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	color := theme.StatusColor(m.Status)
	glyph := theme.StatusGlyph(m.Status)
	if m.Spinner != "" && (m.Status == "connecting" || m.Status == "streaming") {
		glyph = m.Spinner
	}
	stateStr := lipgloss.NewStyle().Foreground(color).Bold(true).Render(glyph + " " + m.Status)

	progress := fmt.Sprintf("%d/%d items", m.Items, m.Target)
	if m.Rejected > 0 {
		progress += lipgloss.NewStyle().Foreground(theme.ColorWarning).
			Render(fmt.Sprintf("  %d rejected", m.Rejected))
	}
	if m.Elapsed > 0 {
		progress += fmt.Sprintf("  %s", m.Elapsed.Round(100*time.Millisecond))
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := stateStr + sep + theme.StyleDimmed.Render(m.Transport) + sep + progress
	if m.Source != "" {
		content += sep + theme.StyleDimmed.Render("archive: "+m.Source)
	}
	content += sep + m.hostView()

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func (m Model) hostView() string {
	if m.HostErr != nil {
		return lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("host: unreachable")
	}
	if m.Host == nil {
		return theme.StyleDimmed.Render("host: …")
	}
	cpu := lipgloss.NewStyle().Foreground(theme.LoadColor(m.Host.CPUPercent)).
		Render(fmt.Sprintf("cpu %.0f%%", m.Host.CPUPercent))
	mem := lipgloss.NewStyle().Foreground(theme.LoadColor(m.Host.MemUsedPercent)).
		Render(fmt.Sprintf("mem %.0f%%", m.Host.MemUsedPercent))
	name := m.Host.Hostname
	if name == "" {
		name = "host"
	}
	return fmt.Sprintf("%s %s %s  %d streams", theme.StyleDimmed.Render(name), cpu, mem, m.Host.ActiveStreams)
}
