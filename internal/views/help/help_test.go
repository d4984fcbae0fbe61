package help

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
)

func bindings() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start / restart")),
		key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "export CSV")),
		key.NewBinding(key.WithKeys("z")),
	}
}

func TestMarkdownListsBindings(t *testing.T) {
	md := New("notty", bindings()...).Markdown()
	assert.Contains(t, md, "| `enter` | start / restart |")
	assert.Contains(t, md, "| `c` | export CSV |")
	assert.NotContains(t, md, "`z`")
}

func TestViewRendersAndCaches(t *testing.T) {
	m := New("notty", bindings()...)
	v := m.View(100)
	assert.Contains(t, v, "export CSV")
	assert.Contains(t, v, "esc:close")
	assert.NoError(t, m.err)

	first := m.rendered
	m.View(100)
	assert.Equal(t, first, m.rendered)
}
