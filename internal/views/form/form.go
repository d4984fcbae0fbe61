// Package form holds the two request inputs: digits per item and number
// of items.
package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/primebench/primebench/internal/stream"
	"github.com/primebench/primebench/internal/theme"
)

const (
	fieldItemSize = iota
	fieldIterationCount
	fieldCount
)

// Model is the request form.
type Model struct {
	inputs [fieldCount]textinput.Model
	focus  int
	errs   [fieldCount]string
}

// New creates a form prefilled with params.
func New(params stream.Params) Model {
	var m Model
	labels := [fieldCount]string{"digits per prime", "number of primes"}
	values := [fieldCount]int{params.ItemSize, params.IterationCount}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = labels[i]
		ti.CharLimit = 4
		ti.Width = 6
		ti.SetValue(strconv.Itoa(values[i]))
		m.inputs[i] = ti
	}
	m.inputs[fieldItemSize].Focus()
	return m
}

// Accepts reports whether the form wants msg. Only digits and editing keys
// are taken so that letter shortcuts keep working while the form has
// focus.
func (m Model) Accepts(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete, tea.KeyLeft, tea.KeyRight, tea.KeyHome, tea.KeyEnd,
		tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		return true
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if r < '0' || r > '9' {
				return false
			}
		}
		return len(msg.Runes) > 0
	}
	return false
}

// Update handles a key the form accepted.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.Type {
		case tea.KeyTab, tea.KeyDown:
			return m.setFocus((m.focus + 1) % fieldCount), nil
		case tea.KeyShiftTab, tea.KeyUp:
			return m.setFocus((m.focus + fieldCount - 1) % fieldCount), nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.errs[m.focus] = ""
	return m, cmd
}

func (m Model) setFocus(i int) Model {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
	return m
}

// Params parses and validates the inputs. Field messages are kept for the
// next View.
func (m *Model) Params() (stream.Params, error) {
	m.errs = [fieldCount]string{}

	size, sizeErr := strconv.Atoi(strings.TrimSpace(m.inputs[fieldItemSize].Value()))
	count, countErr := strconv.Atoi(strings.TrimSpace(m.inputs[fieldIterationCount].Value()))
	if sizeErr != nil {
		m.errs[fieldItemSize] = "enter a whole number"
	}
	if countErr != nil {
		m.errs[fieldIterationCount] = "enter a whole number"
	}
	if sizeErr != nil || countErr != nil {
		return stream.Params{}, errors.New("request values must be whole numbers")
	}

	p := stream.Params{ItemSize: size, IterationCount: count}
	if err := p.Validate(); err != nil {
		var ve *stream.ValidationError
		if errors.As(err, &ve) {
			msg := fmt.Sprintf("must be between %d and %d", ve.Min, ve.Max)
			if ve.Field == "itemSize" {
				m.errs[fieldItemSize] = msg
			} else {
				m.errs[fieldIterationCount] = msg
			}
		}
		return stream.Params{}, err
	}
	return p, nil
}

// View renders the inputs side by side.
func (m Model) View() string {
	labels := [fieldCount]string{"Digits", "Count"}
	var cells []string
	for i := range m.inputs {
		label := theme.StyleDimmed.Render(labels[i] + ":")
		if i == m.focus {
			label = theme.StyleSelected.Render(labels[i] + ":")
		}
		cell := label + " " + m.inputs[i].View()
		if m.errs[i] != "" {
			cell += " " + theme.StyleError.Render(m.errs[i])
		}
		cells = append(cells, lipgloss.NewStyle().PaddingRight(3).Render(cell))
	}
	hint := theme.StyleDimmed.Render("enter: start")
	return lipgloss.JoinHorizontal(lipgloss.Top, append(cells, hint)...)
}
