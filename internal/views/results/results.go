// Package results lists every received item in a scrollable viewport.
package results

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	res "github.com/primebench/primebench/internal/results"
	"github.com/primebench/primebench/internal/theme"
)

const (
	indexWidth = 5
	timeWidth  = 14
)

// Model is the item list.
type Model struct {
	viewport viewport.Model
	items    []res.Item
	// Expanded shows full values wrapped over several lines instead of a
	// single truncated line.
	Expanded bool
	follow   bool
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height), follow: true}
}

// SetSize resizes the viewport.
func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
	m.render()
}

// SetItems replaces the list. The view stays pinned to the bottom unless
// the user has scrolled up.
func (m *Model) SetItems(items []res.Item) {
	m.items = items
	m.render()
}

// ToggleExpanded switches between truncated and wrapped values.
func (m *Model) ToggleExpanded() {
	m.Expanded = !m.Expanded
	m.render()
}

func (m *Model) render() {
	m.viewport.SetContent(m.content())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) content() string {
	if len(m.items) == 0 {
		return theme.StyleDimmed.Render("  waiting for results")
	}

	valueWidth := m.viewport.Width - indexWidth - timeWidth - 2
	if valueWidth < 8 {
		valueWidth = 8
	}
	indexStyle := theme.StyleDimmed.Width(indexWidth).Align(lipgloss.Right)
	timeStyle := lipgloss.NewStyle().Width(timeWidth).Align(lipgloss.Right)

	var sb strings.Builder
	for i, it := range m.items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		value := it.Value
		digits := fmt.Sprintf("%d digits", it.Digits())
		if m.Expanded {
			value = ansi.Hardwrap(value, valueWidth, false)
		} else {
			value = ansi.Truncate(value, valueWidth, "…")
		}
		lines := strings.Split(value, "\n")
		for j, line := range lines {
			idx, tm := "", ""
			if j == 0 {
				idx = fmt.Sprintf("%d", i+1)
				tm = fmt.Sprintf("%.6fs", it.Elapsed)
			}
			if j > 0 {
				sb.WriteByte('\n')
			}
			pad := valueWidth - ansi.StringWidth(line)
			if pad < 0 {
				pad = 0
			}
			sb.WriteString(indexStyle.Render(idx) + " " + line + strings.Repeat(" ", pad) + " " + timeStyle.Render(tm))
		}
		if m.Expanded {
			sb.WriteString("\n" + theme.StyleDimmed.Render(strings.Repeat(" ", indexWidth+1)+digits))
		}
	}
	return sb.String()
}

// Update forwards scrolling keys and mouse events to the viewport.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.follow = m.viewport.AtBottom()
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}
