// Package help renders the key reference overlay from Markdown.
package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/primebench/primebench/internal/theme"
)

// Model caches the rendered overlay per width.
type Model struct {
	Style    string
	bindings []key.Binding
	width    int
	rendered string
	err      error
}

// New builds a help overlay for bindings. style is a glamour standard style
// name such as "dark" or "notty".
func New(style string, bindings ...key.Binding) Model {
	if style == "" {
		style = "dark"
	}
	return Model{Style: style, bindings: bindings}
}

// Markdown returns the overlay source.
func (m Model) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# primebench\n\n")
	sb.WriteString("Streams generated primes and tracks the mean generation time.\n\n")
	sb.WriteString("| key | action |\n|---|---|\n")
	for _, b := range m.bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		fmt.Fprintf(&sb, "| `%s` | %s |\n", h.Key, h.Desc)
	}
	sb.WriteString("\nExports are written to the configured export directory. ")
	sb.WriteString("A stream that closes without its end event is reported as failed; ")
	sb.WriteString("the items received until then stay on screen.\n")
	return sb.String()
}

// View renders the overlay for the given width.
func (m *Model) View(width int) string {
	innerW := width - 8
	if innerW < 30 {
		innerW = 30
	}
	if m.rendered == "" || m.width != innerW {
		m.width = innerW
		m.rendered, m.err = render(m.Markdown(), m.Style, innerW)
	}
	body := m.rendered
	if m.err != nil {
		body = m.Markdown()
	}
	footer := theme.StyleDimmed.Render("esc:close")
	return lipgloss.NewStyle().
		Width(innerW).
		Padding(0, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(strings.TrimRight(body, "\n") + "\n" + footer)
}

func render(md, style string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
