// Package theme provides the Lip Gloss color palette and reusable styles
// for the primebench TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Session status colors.
var (
	ColorIdle       = lipgloss.Color("#4b5563")
	ColorConnecting = lipgloss.Color("#7c3aed")
	ColorStreaming  = lipgloss.Color("#2563eb")
	ColorCompleted  = lipgloss.Color("#16a34a")
	ColorFailed     = lipgloss.Color("#dc2626")
)

// Chart colors.
var (
	ColorBar     = lipgloss.Color("#3b82f6")
	ColorBarSlow = lipgloss.Color("#d97706")
	ColorMean    = lipgloss.Color("#f59e0b")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// StatusColor returns the Lip Gloss color for a session status name.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "idle":
		return ColorIdle
	case "connecting":
		return ColorConnecting
	case "streaming":
		return ColorStreaming
	case "completed":
		return ColorCompleted
	case "failed":
		return ColorFailed
	default:
		return ColorDimmed
	}
}

// StatusGlyph returns a Unicode glyph representing a session status.
func StatusGlyph(status string) string {
	switch status {
	case "idle":
		return "○"
	case "connecting":
		return "◎"
	case "streaming":
		return "●>"
	case "completed":
		return "✓"
	case "failed":
		return "✗"
	default:
		return "·"
	}
}

// LoadColor returns the color for a host utilization percentage.
func LoadColor(pct float64) lipgloss.Color {
	switch {
	case pct > 80:
		return ColorDanger
	case pct > 50:
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorDanger)
)
