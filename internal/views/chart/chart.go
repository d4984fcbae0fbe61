// Package chart draws elapsed time per item as a terminal bar chart with a
// spring-animated marker at the running mean.
package chart

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/primebench/primebench/internal/results"
	"github.com/primebench/primebench/internal/theme"
)

const (
	fps          = 30
	minHeight    = 4
	labelWidth   = 10
	settleThresh = 0.01
)

var blocks = []rune(" ▁▂▃▄▅▆▇█")

// FrameMsg advances the mean marker animation.
type FrameMsg struct{}

// Model holds the chart state. Width and Height are the drawing area
// excluding the axis label column.
type Model struct {
	Width  int
	Height int

	values []float64
	mean   float64
	max    float64

	spring    harmonica.Spring
	markerPos float64 // current marker height in rows
	markerVel float64
	animating bool
}

func New() Model {
	return Model{
		Height: 8,
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.6),
	}
}

// SetSnapshot replaces the plotted data. It returns a command that starts
// the marker animation if it is not already running.
func (m *Model) SetSnapshot(snap results.Snapshot) tea.Cmd {
	m.values = m.values[:0]
	for _, it := range snap.Items {
		m.values = append(m.values, it.Elapsed)
	}
	m.mean = snap.Aggregate.Mean
	m.max = snap.Aggregate.Max

	if m.settled() || m.animating {
		return nil
	}
	m.animating = true
	return frame()
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg { return FrameMsg{} })
}

// Update steps the spring on FrameMsg.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(FrameMsg); !ok {
		return m, nil
	}
	m.markerPos, m.markerVel = m.spring.Update(m.markerPos, m.markerVel, m.target())
	if m.settled() {
		m.markerPos = m.target()
		m.markerVel = 0
		m.animating = false
		return m, nil
	}
	return m, frame()
}

// target is the mean's height in rows above the baseline.
func (m Model) target() float64 {
	if m.max <= 0 {
		return 0
	}
	return m.mean / m.max * float64(m.height())
}

func (m Model) settled() bool {
	return math.Abs(m.markerPos-m.target()) < settleThresh && math.Abs(m.markerVel) < settleThresh
}

func (m Model) height() int {
	if m.Height < minHeight {
		return minHeight
	}
	return m.Height
}

// MarkerRow returns the row (0 = baseline) currently holding the marker.
func (m Model) MarkerRow() int {
	h := m.height()
	row := int(math.Floor(m.markerPos))
	if row < 0 {
		row = 0
	}
	if row > h-1 {
		row = h - 1
	}
	return row
}

// View renders the chart.
func (m Model) View() string {
	h := m.height()
	if len(m.values) == 0 {
		empty := theme.StyleDimmed.Render("  no items yet")
		return lipgloss.NewStyle().Height(h).Render(empty)
	}

	cols := m.Width - labelWidth
	if cols < 10 {
		cols = 10
	}
	values := m.values
	if len(values) > cols {
		values = values[len(values)-cols:]
	}
	barWidth := 1
	if len(values) > 0 && cols/len(values) >= 3 {
		barWidth = 2
	}

	barStyle := lipgloss.NewStyle().Foreground(theme.ColorBar)
	slowStyle := lipgloss.NewStyle().Foreground(theme.ColorBarSlow)
	meanStyle := lipgloss.NewStyle().Foreground(theme.ColorMean)

	marker := m.MarkerRow()
	rows := make([]string, 0, h+1)
	for row := h - 1; row >= 0; row-- {
		var sb strings.Builder
		for _, v := range values {
			cell := m.cell(v, row, h)
			style := barStyle
			if v > m.mean {
				style = slowStyle
			}
			if cell == ' ' && row == marker {
				sb.WriteString(meanStyle.Render(strings.Repeat("─", barWidth)))
				continue
			}
			sb.WriteString(style.Render(strings.Repeat(string(cell), barWidth)))
		}
		label := ""
		switch {
		case row == marker:
			label = meanStyle.Render(fmt.Sprintf(" ◀ %s", formatSeconds(m.mean)))
		case row == h-1:
			label = theme.StyleDimmed.Render(" " + formatSeconds(m.max))
		}
		rows = append(rows, sb.String()+label)
	}
	rows = append(rows, theme.StyleDimmed.Render(fmt.Sprintf("%d items, mean %s", len(m.values), formatSeconds(m.mean))))
	return strings.Join(rows, "\n")
}

// cell returns the block character for value v in the given row.
func (m Model) cell(v float64, row, h int) rune {
	if m.max <= 0 {
		return ' '
	}
	eighths := int(math.Round(v / m.max * float64(h*8)))
	fill := eighths - row*8
	switch {
	case fill <= 0:
		return ' '
	case fill >= 8:
		return blocks[8]
	default:
		return blocks[fill]
	}
}

func formatSeconds(s float64) string {
	switch {
	case s >= 1:
		return fmt.Sprintf("%.2fs", s)
	case s >= 0.001:
		return fmt.Sprintf("%.1fms", s*1000)
	default:
		return fmt.Sprintf("%.0fµs", s*1e6)
	}
}
